package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-kiosk/internal/faceid"
)

const indexMaxNeighbors = 16

// IndexMatch is one nearest-neighbor result from the face index.
type IndexMatch struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Distance float64 `json:"distance"`
}

// FaceIndex keeps an in-memory HNSW graph over the reference embeddings of
// all enrolled identities. It serves the admin 1:N identify operation and
// is kept in sync with store writes.
type FaceIndex struct {
	graph    *hnsw.Graph[string]
	idToName map[string]string
	mu       sync.RWMutex
}

// NewFaceIndex creates an empty face index.
func NewFaceIndex() *FaceIndex {
	return &FaceIndex{
		idToName: make(map[string]string),
	}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = indexMaxNeighbors
	g.Ml = 1.0 / float64(indexMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance
	return g
}

// Rebuild replaces the index contents with the given identities.
// Identities without a cached embedding are skipped.
func (f *FaceIndex) Rebuild(identities []Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.idToName = make(map[string]string, len(identities))
	if len(identities) == 0 {
		f.graph = nil
		return
	}

	g := newGraph()
	for i := range identities {
		ident := &identities[i]
		if len(ident.ReferenceEmbedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(ident.ID, ident.ReferenceEmbedding))
		f.idToName[ident.ID] = ident.Username
	}
	f.graph = g
}

// RebuildFromStore loads all identities and rebuilds the index.
func (f *FaceIndex) RebuildFromStore(ctx context.Context, store Store) error {
	identities, err := store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("listing identities for index rebuild: %w", err)
	}
	f.Rebuild(identities)
	return nil
}

// Add indexes a single identity.
func (f *FaceIndex) Add(identity *Identity) {
	if len(identity.ReferenceEmbedding) == 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.graph == nil {
		f.graph = newGraph()
	}
	f.graph.Add(hnsw.MakeNode(identity.ID, identity.ReferenceEmbedding))
	f.idToName[identity.ID] = identity.Username
}

// Delete drops an identity from search results. HNSW has no true deletion;
// removing the ID from the lookup map filters it out.
func (f *FaceIndex) Delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.idToName, id)
}

// Count returns the number of searchable identities.
func (f *FaceIndex) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.idToName)
}

// Search returns up to k enrolled identities nearest to the query
// embedding, ordered by cosine distance.
func (f *FaceIndex) Search(query []float32, k int) ([]IndexMatch, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.graph == nil {
		return nil, errors.New("face index not initialized")
	}

	neighbors := f.graph.Search(query, k)

	matches := make([]IndexMatch, 0, len(neighbors))
	for _, n := range neighbors {
		username, ok := f.idToName[n.Key]
		if !ok {
			continue // deleted identity still present in the graph
		}
		matches = append(matches, IndexMatch{
			ID:       n.Key,
			Username: username,
			Distance: faceid.CosineDistance(query, n.Value),
		})
	}

	return matches, nil
}

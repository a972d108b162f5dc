// Package mock provides an in-memory identity Store for testing.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/face-kiosk/internal/directory"
)

// MockStore is an in-memory implementation of directory.Store.
type MockStore struct {
	mu         sync.RWMutex
	identities map[string]*directory.Identity // keyed by username

	// Error injection
	CreateError          error
	GetError             error
	ListError            error
	DeleteError          error
	CountError           error
	UpdateEmbeddingError error
}

// NewMockStore creates a new empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		identities: make(map[string]*directory.Identity),
	}
}

// Add seeds the store with an identity, bypassing uniqueness checks.
func (m *MockStore) Add(identity directory.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[identity.Username] = &identity
}

// Create inserts a new identity, failing on duplicate usernames.
func (m *MockStore) Create(ctx context.Context, identity *directory.Identity) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[identity.Username]; ok {
		return directory.ErrUsernameTaken
	}
	clone := *identity
	m.identities[identity.Username] = &clone
	return nil
}

// GetByUsername retrieves an identity by username.
func (m *MockStore) GetByUsername(ctx context.Context, username string) (*directory.Identity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.identities[username]
	if !ok {
		return nil, directory.ErrNotFound
	}
	clone := *identity
	return &clone, nil
}

// GetByID retrieves an identity by ID.
func (m *MockStore) GetByID(ctx context.Context, id string) (*directory.Identity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, identity := range m.identities {
		if identity.ID == id {
			clone := *identity
			return &clone, nil
		}
	}
	return nil, directory.ErrNotFound
}

// List returns all identities ordered by creation time, skipping excludeID.
func (m *MockStore) List(ctx context.Context, excludeID string) ([]directory.Identity, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var identities []directory.Identity
	for _, identity := range m.identities {
		if excludeID != "" && identity.ID == excludeID {
			continue
		}
		identities = append(identities, *identity)
	}
	sort.Slice(identities, func(i, j int) bool {
		if identities[i].CreatedAt.Equal(identities[j].CreatedAt) {
			return identities[i].Username < identities[j].Username
		}
		return identities[i].CreatedAt.Before(identities[j].CreatedAt)
	})
	return identities, nil
}

// Delete removes an identity by username.
func (m *MockStore) Delete(ctx context.Context, username string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[username]; !ok {
		return directory.ErrNotFound
	}
	delete(m.identities, username)
	return nil
}

// Count returns the number of stored identities.
func (m *MockStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// UpdateEmbedding replaces the cached reference embedding of an identity.
func (m *MockStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	if m.UpdateEmbeddingError != nil {
		return m.UpdateEmbeddingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, identity := range m.identities {
		if identity.ID == id {
			identity.ReferenceEmbedding = embedding
			return nil
		}
	}
	return directory.ErrNotFound
}

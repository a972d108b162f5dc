package directory

import "testing"

func indexedIdentity(id, username string, embedding []float32) Identity {
	return Identity{
		ID:                 id,
		Username:           username,
		Role:               RoleGuest,
		ReferenceEmbedding: embedding,
	}
}

func TestFaceIndex_SearchNearest(t *testing.T) {
	idx := NewFaceIndex()
	idx.Rebuild([]Identity{
		indexedIdentity("id-1", "alice", []float32{1, 0, 0}),
		indexedIdentity("id-2", "bob", []float32{0, 1, 0}),
		indexedIdentity("id-3", "carol", []float32{0, 0, 1}),
	})

	matches, err := idx.Search([]float32{0.9, 0.1, 0}, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Username != "alice" {
		t.Errorf("expected alice, got %s", matches[0].Username)
	}
	if matches[0].Distance > 0.1 {
		t.Errorf("expected small distance, got %f", matches[0].Distance)
	}
}

func TestFaceIndex_EmptyIndex(t *testing.T) {
	idx := NewFaceIndex()

	if _, err := idx.Search([]float32{1, 0, 0}, 5); err == nil {
		t.Error("expected error for empty index")
	}
	if idx.Count() != 0 {
		t.Errorf("expected count 0, got %d", idx.Count())
	}
}

func TestFaceIndex_DeleteFiltersResults(t *testing.T) {
	idx := NewFaceIndex()
	idx.Rebuild([]Identity{
		indexedIdentity("id-1", "alice", []float32{1, 0, 0}),
		indexedIdentity("id-2", "bob", []float32{0, 1, 0}),
	})

	idx.Delete("id-1")

	if idx.Count() != 1 {
		t.Errorf("expected count 1 after delete, got %d", idx.Count())
	}

	matches, err := idx.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, m := range matches {
		if m.ID == "id-1" {
			t.Error("deleted identity should not appear in search results")
		}
	}
}

func TestFaceIndex_AddAfterRebuild(t *testing.T) {
	idx := NewFaceIndex()
	idx.Rebuild([]Identity{
		indexedIdentity("id-1", "alice", []float32{1, 0, 0}),
	})

	ident := indexedIdentity("id-2", "bob", []float32{0, 1, 0})
	idx.Add(&ident)

	if idx.Count() != 2 {
		t.Errorf("expected count 2, got %d", idx.Count())
	}

	matches, err := idx.Search([]float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 || matches[0].Username != "bob" {
		t.Errorf("expected bob as nearest match, got %+v", matches)
	}
}

func TestFaceIndex_SkipsIdentitiesWithoutEmbedding(t *testing.T) {
	idx := NewFaceIndex()
	idx.Rebuild([]Identity{
		indexedIdentity("id-1", "alice", []float32{1, 0, 0}),
		indexedIdentity("id-2", "bob", nil),
	})

	if idx.Count() != 1 {
		t.Errorf("expected only the identity with an embedding, got %d", idx.Count())
	}
}

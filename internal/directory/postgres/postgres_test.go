//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-kiosk/internal/config"
	"github.com/kozaktomas/face-kiosk/internal/directory"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func testIdentity(username string, role directory.Role) *directory.Identity {
	embedding := make([]float32, 512)
	for i := range embedding {
		embedding[i] = float32(i) / 512.0
	}
	return &directory.Identity{
		ID:                 uuid.NewString(),
		Username:           username,
		Role:               role,
		ReferenceImage:     "data:image/jpeg;base64,Zm9v",
		ReferenceEmbedding: embedding,
		Profile: directory.Profile{
			FirstName: "Test",
			LastName:  "User",
		},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestIdentityStore(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	store := NewIdentityStore(pool)

	t.Run("CreateAndGet", func(t *testing.T) {
		identity := testIdentity("alice", directory.RoleGuest)
		if err := store.Create(ctx, identity); err != nil {
			t.Fatalf("Failed to create identity: %v", err)
		}

		got, err := store.GetByUsername(ctx, "alice")
		if err != nil {
			t.Fatalf("Failed to get identity: %v", err)
		}
		if got.ID != identity.ID {
			t.Errorf("Expected ID %s, got %s", identity.ID, got.ID)
		}
		if got.Role != directory.RoleGuest {
			t.Errorf("Expected role guest, got %s", got.Role)
		}
		if got.ReferenceImage != identity.ReferenceImage {
			t.Errorf("Reference image mismatch")
		}
		if len(got.ReferenceEmbedding) != 512 {
			t.Errorf("Expected 512 dimensions, got %d", len(got.ReferenceEmbedding))
		}
		if got.Profile.FirstName != "Test" {
			t.Errorf("Expected profile first name 'Test', got '%s'", got.Profile.FirstName)
		}

		byID, err := store.GetByID(ctx, identity.ID)
		if err != nil {
			t.Fatalf("Failed to get identity by ID: %v", err)
		}
		if byID.Username != "alice" {
			t.Errorf("Expected username 'alice', got '%s'", byID.Username)
		}
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		dup := testIdentity("alice", directory.RoleGuest)
		err := store.Create(ctx, dup)
		if !errors.Is(err, directory.ErrUsernameTaken) {
			t.Errorf("Expected ErrUsernameTaken, got %v", err)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.GetByUsername(ctx, "nonexistent")
		if !errors.Is(err, directory.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListExcludes", func(t *testing.T) {
		admin := testIdentity("boss", directory.RoleAdmin)
		if err := store.Create(ctx, admin); err != nil {
			t.Fatalf("Failed to create admin: %v", err)
		}

		all, err := store.List(ctx, "")
		if err != nil {
			t.Fatalf("Failed to list identities: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("Expected 2 identities, got %d", len(all))
		}

		filtered, err := store.List(ctx, admin.ID)
		if err != nil {
			t.Fatalf("Failed to list identities: %v", err)
		}
		if len(filtered) != 1 {
			t.Fatalf("Expected 1 identity, got %d", len(filtered))
		}
		if filtered[0].Username != "alice" {
			t.Errorf("Expected 'alice', got '%s'", filtered[0].Username)
		}
	})

	t.Run("Count", func(t *testing.T) {
		count, err := store.Count(ctx)
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected 2, got %d", count)
		}
	})

	t.Run("UpdateEmbedding", func(t *testing.T) {
		alice, err := store.GetByUsername(ctx, "alice")
		if err != nil {
			t.Fatalf("Failed to get identity: %v", err)
		}

		fresh := make([]float32, 512)
		fresh[0] = 1.0
		if err := store.UpdateEmbedding(ctx, alice.ID, fresh); err != nil {
			t.Fatalf("Failed to update embedding: %v", err)
		}

		got, err := store.GetByID(ctx, alice.ID)
		if err != nil {
			t.Fatalf("Failed to get identity: %v", err)
		}
		if got.ReferenceEmbedding[0] != 1.0 {
			t.Errorf("Expected updated embedding, got %v", got.ReferenceEmbedding[0])
		}

		err = store.UpdateEmbedding(ctx, uuid.NewString(), fresh)
		if !errors.Is(err, directory.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete(ctx, "alice"); err != nil {
			t.Fatalf("Failed to delete identity: %v", err)
		}

		_, err := store.GetByUsername(ctx, "alice")
		if !errors.Is(err, directory.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}

		err = store.Delete(ctx, "alice")
		if !errors.Is(err, directory.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewSessionRepository(pool)

	identityID := uuid.NewString()
	now := time.Now().UTC()

	t.Run("SaveAndGet", func(t *testing.T) {
		err := repo.Save(ctx, "sess1", identityID, "guest", now, now.Add(time.Hour))
		if err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		got, err := repo.Get(ctx, "sess1")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if got == nil {
			t.Fatal("Expected session, got nil")
		}
		if got.IdentityID != identityID {
			t.Errorf("Expected identity ID %s, got %s", identityID, got.IdentityID)
		}
		if got.Role != "guest" {
			t.Errorf("Expected role 'guest', got '%s'", got.Role)
		}
	})

	t.Run("ExpiredIsInvisible", func(t *testing.T) {
		err := repo.Save(ctx, "sess2", identityID, "guest", now.Add(-2*time.Hour), now.Add(-time.Hour))
		if err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		got, err := repo.Get(ctx, "sess2")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if got != nil {
			t.Error("Expected nil for expired session")
		}
	})

	t.Run("DeleteByIdentity", func(t *testing.T) {
		if err := repo.DeleteByIdentity(ctx, identityID); err != nil {
			t.Fatalf("Failed to delete sessions: %v", err)
		}

		got, err := repo.Get(ctx, "sess1")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if got != nil {
			t.Error("Expected session to be gone")
		}
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		repo.Save(ctx, "sess3", uuid.NewString(), "guest", now.Add(-2*time.Hour), now.Add(-time.Hour))

		count, err := repo.DeleteExpired(ctx)
		if err != nil {
			t.Fatalf("Failed to delete expired sessions: %v", err)
		}
		if count < 1 {
			t.Errorf("Expected at least 1 deleted, got %d", count)
		}
	})
}

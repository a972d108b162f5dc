package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-kiosk/internal/directory"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// IdentityStore provides PostgreSQL-backed identity storage.
type IdentityStore struct {
	pool *Pool
}

// NewIdentityStore creates a new PostgreSQL identity store.
func NewIdentityStore(pool *Pool) *IdentityStore {
	return &IdentityStore{pool: pool}
}

// Create inserts a new identity. The unique index on username makes the
// insert atomic; a concurrent duplicate fails with ErrUsernameTaken.
func (s *IdentityStore) Create(ctx context.Context, identity *directory.Identity) error {
	profile, err := json.Marshal(identity.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	query := `
		INSERT INTO identities (id, username, role, reference_image, reference_embedding, profile, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		identity.ID,
		identity.Username,
		string(identity.Role),
		identity.ReferenceImage,
		embeddingValue(identity.ReferenceEmbedding),
		profile,
		identity.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return directory.ErrUsernameTaken
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

// GetByUsername returns the identity for a normalized username.
func (s *IdentityStore) GetByUsername(ctx context.Context, username string) (*directory.Identity, error) {
	return s.getByColumn(ctx, "username", username)
}

// GetByID returns the identity for an ID.
func (s *IdentityStore) GetByID(ctx context.Context, id string) (*directory.Identity, error) {
	return s.getByColumn(ctx, "id", id)
}

func (s *IdentityStore) getByColumn(ctx context.Context, column, value string) (*directory.Identity, error) {
	query := fmt.Sprintf(`
		SELECT id, username, role, reference_image, reference_embedding, profile, created_at
		FROM identities
		WHERE %s = $1
	`, column)

	identity, err := scanIdentity(s.pool.QueryRow(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query identity by %s: %w", column, err)
	}
	return identity, nil
}

// List returns all identities ordered by creation time, skipping excludeID.
func (s *IdentityStore) List(ctx context.Context, excludeID string) ([]directory.Identity, error) {
	query := `
		SELECT id, username, role, reference_image, reference_embedding, profile, created_at
		FROM identities
		WHERE $1 = '' OR id::text <> $1
		ORDER BY created_at, username
	`

	rows, err := s.pool.Query(ctx, query, excludeID)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var identities []directory.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, *identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// Delete removes the identity for a username.
func (s *IdentityStore) Delete(ctx context.Context, username string) error {
	result, err := s.pool.Exec(ctx, "DELETE FROM identities WHERE username = $1", username)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return directory.ErrNotFound
	}
	return nil
}

// Count returns the number of enrolled identities.
func (s *IdentityStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// UpdateEmbedding replaces the cached reference embedding of an identity.
func (s *IdentityStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	result, err := s.pool.Exec(ctx,
		"UPDATE identities SET reference_embedding = $2 WHERE id = $1",
		id, embeddingValue(embedding),
	)
	if err != nil {
		return fmt.Errorf("update embedding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return directory.ErrNotFound
	}
	return nil
}

// embeddingValue maps an empty embedding to SQL NULL.
func embeddingValue(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*directory.Identity, error) {
	var identity directory.Identity
	var role string
	var vec sql.Null[pgvector.Vector]
	var profile []byte

	err := row.Scan(
		&identity.ID,
		&identity.Username,
		&role,
		&identity.ReferenceImage,
		&vec,
		&profile,
		&identity.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	identity.Role = directory.ParseRole(role)
	if vec.Valid {
		identity.ReferenceEmbedding = vec.V.Slice()
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &identity.Profile); err != nil {
			return nil, fmt.Errorf("unmarshal profile: %w", err)
		}
	}
	return &identity, nil
}

package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-kiosk/internal/directory"
)

// duplicateEntry is the MySQL error number for unique key violations.
const duplicateEntry = 1062

// IdentityStore provides MariaDB-backed identity storage.
type IdentityStore struct {
	pool *Pool
}

// NewIdentityStore creates a new MariaDB identity store.
func NewIdentityStore(pool *Pool) *IdentityStore {
	return &IdentityStore{pool: pool}
}

// Create inserts a new identity. The unique key on username makes the
// insert atomic; a concurrent duplicate fails with ErrUsernameTaken.
func (s *IdentityStore) Create(ctx context.Context, identity *directory.Identity) error {
	profile, err := json.Marshal(identity.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	embedding, err := marshalEmbedding(identity.ReferenceEmbedding)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO identities (id, username, role, reference_image, reference_embedding, profile, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.pool.db.ExecContext(ctx, query,
		identity.ID,
		identity.Username,
		string(identity.Role),
		identity.ReferenceImage,
		embedding,
		profile,
		identity.CreatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == duplicateEntry {
			return directory.ErrUsernameTaken
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

// GetByUsername returns the identity for a normalized username.
func (s *IdentityStore) GetByUsername(ctx context.Context, username string) (*directory.Identity, error) {
	return s.getWhere(ctx, "username = ?", username)
}

// GetByID returns the identity for an ID.
func (s *IdentityStore) GetByID(ctx context.Context, id string) (*directory.Identity, error) {
	return s.getWhere(ctx, "id = ?", id)
}

func (s *IdentityStore) getWhere(ctx context.Context, condition, value string) (*directory.Identity, error) {
	query := fmt.Sprintf(`
		SELECT id, username, role, reference_image, reference_embedding, profile, created_at
		FROM identities
		WHERE %s
	`, condition)

	identity, err := scanIdentity(s.pool.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query identity: %w", err)
	}
	return identity, nil
}

// List returns all identities ordered by creation time, skipping excludeID.
func (s *IdentityStore) List(ctx context.Context, excludeID string) ([]directory.Identity, error) {
	query := `
		SELECT id, username, role, reference_image, reference_embedding, profile, created_at
		FROM identities
		WHERE ? = '' OR id <> ?
		ORDER BY created_at, username
	`

	rows, err := s.pool.db.QueryContext(ctx, query, excludeID, excludeID)
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
	result, err := s.pool.db.ExecContext(ctx, "DELETE FROM identities WHERE username = ?", username)
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
	err := s.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// UpdateEmbedding replaces the cached reference embedding of an identity.
func (s *IdentityStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	data, err := marshalEmbedding(embedding)
	if err != nil {
		return err
	}

	// Verify the row exists first (MySQL RowsAffected returns 0 when data is unchanged)
	var exists bool
	err = s.pool.db.QueryRowContext(ctx, "SELECT 1 FROM identities WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check identity exists: %w", err)
	}

	_, err = s.pool.db.ExecContext(ctx, "UPDATE identities SET reference_embedding = ? WHERE id = ?", data, id)
	if err != nil {
		return fmt.Errorf("update embedding: %w", err)
	}
	return nil
}

// marshalEmbedding encodes an embedding as JSON, nil for empty.
func marshalEmbedding(embedding []float32) ([]byte, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}
	return data, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*directory.Identity, error) {
	var identity directory.Identity
	var role string
	var embedding []byte
	var profile []byte

	err := row.Scan(
		&identity.ID,
		&identity.Username,
		&role,
		&identity.ReferenceImage,
		&embedding,
		&profile,
		&identity.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	identity.Role = directory.ParseRole(role)
	if len(embedding) > 0 {
		if err := json.Unmarshal(embedding, &identity.ReferenceEmbedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding: %w", err)
		}
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &identity.Profile); err != nil {
			return nil, fmt.Errorf("unmarshal profile: %w", err)
		}
	}
	return &identity, nil
}

// Package directory defines the identity store: enrolled usernames, their
// reference images and cached embeddings, behind a backend-neutral Store
// interface with PostgreSQL, MariaDB and in-memory mock implementations.
package directory

import (
	"context"
	"errors"
)

// Sentinel errors every backend maps its driver-specific failures onto.
var (
	// ErrUsernameTaken is returned by Create when the normalized username
	// already exists. Backends enforce this with a unique constraint, so
	// concurrent registrations of the same username cannot both succeed.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrNotFound is returned when a lookup or delete targets a username
	// or ID with no record.
	ErrNotFound = errors.New("identity not found")
)

// Store is the persistence port for identity records.
type Store interface {
	// Create inserts a new identity. The insert is atomic: a duplicate
	// username fails with ErrUsernameTaken and writes nothing.
	Create(ctx context.Context, identity *Identity) error

	// GetByUsername returns the identity for a normalized username,
	// or ErrNotFound.
	GetByUsername(ctx context.Context, username string) (*Identity, error)

	// GetByID returns the identity for an ID, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Identity, error)

	// List returns all identities ordered by creation time, skipping
	// excludeID when non-empty. Reference images are included; the admin
	// view renders them.
	List(ctx context.Context, excludeID string) ([]Identity, error)

	// Delete removes the identity for a username. Deleting a missing
	// record returns ErrNotFound; callers that tolerate it check for it.
	Delete(ctx context.Context, username string) error

	// Count returns the number of enrolled identities.
	Count(ctx context.Context) (int, error)

	// UpdateEmbedding replaces the cached reference embedding of an
	// identity. Used by reindexing; the reference image itself is
	// immutable.
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

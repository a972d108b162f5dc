package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-kiosk/internal/config"
	"github.com/kozaktomas/face-kiosk/internal/directory"
	"github.com/kozaktomas/face-kiosk/internal/directory/mariadb"
	"github.com/kozaktomas/face-kiosk/internal/directory/postgres"
	"github.com/kozaktomas/face-kiosk/internal/web/middleware"
)

// backend bundles the opened identity store and its optional session
// persistence.
type backend struct {
	store       directory.Store
	sessionRepo middleware.SessionRepository
	close       func() error
}

// openBackend connects to PostgreSQL when DATABASE_URL is set, falling
// back to MariaDB via MARIADB_DSN. Session persistence is PostgreSQL
// only; MariaDB installations keep sessions in memory.
func openBackend(cfg *config.Config) (*backend, error) {
	if cfg.Database.URL != "" {
		fmt.Println("Connecting to PostgreSQL database...")
		pool, err := postgres.Initialize(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return &backend{
			store:       postgres.NewIdentityStore(pool),
			sessionRepo: postgres.NewSessionRepository(pool),
			close:       pool.Close,
		}, nil
	}

	if cfg.Database.MariaDBDSN != "" {
		fmt.Println("Connecting to MariaDB database...")
		pool, err := mariadb.Initialize(cfg.Database.MariaDBDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		return &backend{
			store: mariadb.NewIdentityStore(pool),
			close: pool.Close,
		}, nil
	}

	return nil, errors.New("DATABASE_URL or MARIADB_DSN environment variable is required")
}

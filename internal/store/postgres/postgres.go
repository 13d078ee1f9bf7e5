// Package postgres implements the repository contract on a networked
// PostgreSQL database. Writes are durable on commit; the connection pool is
// sized from configuration and shared by all repositories.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/lib/pq"

	"github.com/arpeggia/recordkeeper/internal/models"
	"github.com/arpeggia/recordkeeper/internal/shared"
	"github.com/arpeggia/recordkeeper/internal/store/migrate"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Store implements [models.Store] on PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *log.Logger

	tracks    *TrackRepository
	playlists *PlaylistRepository
	users     *UserRepository
	artists   *ArtistRepository
}

// Open connects to PostgreSQL, applies pending migrations, and returns a
// ready Store.
func Open(ctx context.Context, cfg shared.PostgresConfig, logger *log.Logger) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open postgres connection: %v", shared.ErrBackendUnavailable, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping postgres: %v", shared.ErrBackendUnavailable, err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.tracks = &TrackRepository{store: s}
	s.playlists = &PlaylistRepository{store: s}
	s.users = &UserRepository{store: s}
	s.artists = &ArtistRepository{store: s}

	logger.Debug("opened postgres store", "host", cfg.Host, "dbname", cfg.DBName)
	return s, nil
}

func (s *Store) Tracks() models.Repository[*models.Track]       { return s.tracks }
func (s *Store) Playlists() models.Repository[*models.Playlist] { return s.playlists }
func (s *Store) Users() models.Repository[*models.UserAccount]  { return s.users }
func (s *Store) Artists() models.Repository[*models.Artist]     { return s.artists }

// Capabilities reports full relational capability.
func (s *Store) Capabilities() models.Capabilities {
	return models.Capabilities{RangeQueries: true, Durable: true, Transactional: true}
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrBackendUnavailable, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if err := migrate.Run(s.db, migrationFiles, migrate.Postgres); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrBackendUnavailable, err)
	}
	return nil
}

// Rollback reverts the most recently applied migration.
func (s *Store) Rollback(ctx context.Context) error {
	if err := migrate.Rollback(s.db, migrationFiles, migrate.Postgres); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrBackendUnavailable, err)
	}
	return nil
}

// Package sqlite implements the repository contract on an embedded SQLite
// database. Writes are durable on commit; the file path ":memory:" yields a
// throwaway in-process database for tests.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/arpeggia/recordkeeper/internal/models"
	"github.com/arpeggia/recordkeeper/internal/shared"
	"github.com/arpeggia/recordkeeper/internal/store/migrate"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Store implements [models.Store] on SQLite.
type Store struct {
	db     *sql.DB
	logger *log.Logger

	tracks    *TrackRepository
	playlists *PlaylistRepository
	users     *UserRepository
	artists   *ArtistRepository
}

// Open connects to the SQLite database at cfg.Path, applies pending
// migrations, and returns a ready Store. Foreign key enforcement is switched
// on per connection via the DSN.
func Open(ctx context.Context, cfg shared.SQLiteConfig, logger *log.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: sqlite path is empty", shared.ErrConfiguration)
	}

	dsn := cfg.Path + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open sqlite database: %v", shared.ErrBackendUnavailable, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping sqlite database: %v", shared.ErrBackendUnavailable, err)
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

	logger.Debug("opened sqlite store", "path", cfg.Path)
	return s, nil
}

func (s *Store) Tracks() models.Repository[*models.Track]       { return s.tracks }
func (s *Store) Playlists() models.Repository[*models.Playlist] { return s.playlists }
func (s *Store) Users() models.Repository[*models.UserAccount]  { return s.users }
func (s *Store) Artists() models.Repository[*models.Artist]     { return s.artists }

// Capabilities reports full relational capability: durable on commit,
// transactional, range queries supported.
func (s *Store) Capabilities() models.Capabilities {
	return models.Capabilities{RangeQueries: true, Durable: true, Transactional: true}
}

// Ping verifies the database file is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrBackendUnavailable, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if err := migrate.Run(s.db, migrationFiles, migrate.SQLite); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrBackendUnavailable, err)
	}
	return nil
}

// Rollback reverts the most recently applied migration.
func (s *Store) Rollback(ctx context.Context) error {
	if err := migrate.Rollback(s.db, migrationFiles, migrate.SQLite); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrBackendUnavailable, err)
	}
	return nil
}

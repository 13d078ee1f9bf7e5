// Package rediscache implements the repository contract on Redis.
//
// This backend is a cache, not a source of truth: writes are best-effort,
// entries expire after the configured TTL, and nothing survives a flush.
// Range queries are unsupported; Query degrades to id-only lookups and the
// capability flags advertise the limitation instead of silently returning
// incomplete results.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/arpeggia/recordkeeper/internal/models"
	"github.com/arpeggia/recordkeeper/internal/shared"
)

// Key prefixes, one namespace per entity type.
const (
	trackKeyPrefix    = "rk:track:"
	playlistKeyPrefix = "rk:playlist:"
	userKeyPrefix     = "rk:user:"
	artistKeyPrefix   = "rk:artist:"
)

// Store implements [models.Store] on Redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger

	tracks    *TrackRepository
	playlists *PlaylistRepository
	users     *UserRepository
	artists   *ArtistRepository
}

// Open connects to Redis and verifies the server responds to PING.
func Open(ctx context.Context, cfg shared.RedisConfig, logger *log.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to connect to redis: %v", shared.ErrBackendUnavailable, err)
	}

	s := &Store{
		client: client,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
		logger: logger,
	}
	s.tracks = &TrackRepository{store: s}
	s.playlists = &PlaylistRepository{store: s}
	s.users = &UserRepository{store: s}
	s.artists = &ArtistRepository{store: s}

	logger.Debug("opened redis cache store", "addr", cfg.Addr, "db", cfg.DB, "ttl", s.ttl)
	return s, nil
}

func (s *Store) Tracks() models.Repository[*models.Track]       { return s.tracks }
func (s *Store) Playlists() models.Repository[*models.Playlist] { return s.playlists }
func (s *Store) Users() models.Repository[*models.UserAccount]  { return s.users }
func (s *Store) Artists() models.Repository[*models.Artist]     { return s.artists }

// Capabilities advertises the cache limitations: no range queries, no
// durability, no multi-key transactions beyond single-entity CAS.
func (s *Store) Capabilities() models.Capabilities {
	return models.Capabilities{RangeQueries: false, Durable: false, Transactional: false}
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrBackendUnavailable, err)
	}
	return nil
}

// Close releases the client's connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// setJSON stores a JSON-encoded entity under key with the cache TTL.
func setJSON(ctx context.Context, s *Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: failed to write cache entry: %v", shared.ErrBackendUnavailable, err)
	}
	return nil
}

// getJSON loads and decodes the entity stored under key.
func getJSON[T any](ctx context.Context, s *Store, key string) (*T, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read cache entry: %v", shared.ErrBackendUnavailable, err)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &value, nil
}

// deleteKey removes key, reporting ErrNotFound when nothing was stored.
func deleteKey(ctx context.Context, s *Store, key string) error {
	removed, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: failed to delete cache entry: %v", shared.ErrBackendUnavailable, err)
	}
	if removed == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// queryByIDs implements the degraded id-only Query shared by every
// repository in this backend. Missing ids are skipped, matching the
// filter semantics of the full backends.
func queryByIDs[T any](ctx context.Context, s *Store, prefix string, filter models.Filter, page models.Page) ([]*T, error) {
	if !filter.IDsOnly() {
		return nil, fmt.Errorf("%w: redis cache supports id-only queries", shared.ErrCapability)
	}
	page = page.Bounded()

	var results []*T
	for _, id := range filter.IDs {
		value, err := getJSON[T](ctx, s, prefix+id)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, value)
	}

	if page.Offset >= len(results) {
		return nil, nil
	}
	results = results[page.Offset:]
	if len(results) > page.Limit {
		results = results[:page.Limit]
	}
	return results, nil
}

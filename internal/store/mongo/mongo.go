// Package mongo implements the repository contract on a MongoDB database.
// Entities are stored one collection per type, with playlists embedding
// their ordered track id array. Writes are durable on acknowledgment.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/arpeggia/recordkeeper/internal/models"
	"github.com/arpeggia/recordkeeper/internal/shared"
)

const (
	collTracks    = "tracks"
	collPlaylists = "playlists"
	collUsers     = "user_accounts"
	collArtists   = "artists"
)

// Store implements [models.Store] on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *log.Logger

	tracks    *TrackRepository
	playlists *PlaylistRepository
	users     *UserRepository
	artists   *ArtistRepository
}

// Open connects to MongoDB, verifies the server is reachable, and ensures
// the secondary indexes the query paths rely on.
func Open(ctx context.Context, cfg shared.MongoConfig, logger *log.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to mongo: %v", shared.ErrBackendUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: failed to ping mongo: %v", shared.ErrBackendUnavailable, err)
	}

	s := &Store{
		client: client,
		db:     client.Database(cfg.Database),
		logger: logger,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	s.tracks = &TrackRepository{store: s}
	s.playlists = &PlaylistRepository{store: s}
	s.users = &UserRepository{store: s}
	s.artists = &ArtistRepository{store: s}

	logger.Debug("opened mongo store", "database", cfg.Database)
	return s, nil
}

func (s *Store) Tracks() models.Repository[*models.Track]       { return s.tracks }
func (s *Store) Playlists() models.Repository[*models.Playlist] { return s.playlists }
func (s *Store) Users() models.Repository[*models.UserAccount]  { return s.users }
func (s *Store) Artists() models.Repository[*models.Artist]     { return s.artists }

// Capabilities reports durable storage with range queries. Multi-document
// mutations (the track delete cascade) are not transactional on a
// standalone server, so Transactional is false.
func (s *Store) Capabilities() models.Capabilities {
	return models.Capabilities{RangeQueries: true, Durable: true, Transactional: false}
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrBackendUnavailable, err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ensureIndexes creates the secondary indexes used by filtered queries.
func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collTracks: {
			{Keys: bson.D{{Key: "title", Value: 1}}},
			{Keys: bson.D{{Key: "isrc", Value: 1}}},
		},
		collPlaylists: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
			{Keys: bson.D{{Key: "track_ids", Value: 1}}},
		},
		collUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		collArtists: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
	}

	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("%w: failed to create %s indexes: %v", shared.ErrBackendUnavailable, coll, err)
		}
	}
	return nil
}

// sortOrder is the contract's result ordering: creation time, then id.
func sortOrder() bson.D {
	return bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
}

// mapErr wraps unexpected driver failures in the shared taxonomy.
func mapErr(err error, op string) error {
	if err == mongo.ErrNoDocuments {
		return shared.ErrNotFound
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return fmt.Errorf("%w: %s: %v", shared.ErrBackendUnavailable, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

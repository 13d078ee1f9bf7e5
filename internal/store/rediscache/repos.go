package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arpeggia/recordkeeper/internal/models"
	"github.com/arpeggia/recordkeeper/internal/shared"
)

// TrackRepository implements models.Repository[*models.Track] on the Redis
// cache.
type TrackRepository struct {
	store *Store
}

// Get retrieves a cached track by ID.
func (r *TrackRepository) Get(ctx context.Context, id string) (*models.Track, error) {
	track, err := getJSON[models.Track](ctx, r.store, trackKeyPrefix+id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
	}
	return track, err
}

// Upsert caches a track snapshot. A missing ID is assigned.
func (r *TrackRepository) Upsert(ctx context.Context, track *models.Track) (*models.Track, error) {
	if err := track.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidEntity, err)
	}

	stored := *track
	if stored.ID == "" {
		stored.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	stored.UpdatedAt = now
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.FetchedAt.IsZero() {
		stored.FetchedAt = now
	}

	if err := setJSON(ctx, r.store, trackKeyPrefix+stored.ID, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Delete evicts a track and pulls its id out of every cached playlist that
// references it. The cascade scans the playlist namespace; acceptable for a
// cache-sized keyspace.
func (r *TrackRepository) Delete(ctx context.Context, id string) error {
	if err := deleteKey(ctx, r.store, trackKeyPrefix+id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
		}
		return err
	}

	iter := r.store.client.Scan(ctx, 0, playlistKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.removeFromPlaylist(ctx, key, id); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: failed to scan playlists for cascade: %v", shared.ErrBackendUnavailable, err)
	}

	r.store.logger.Debug("deleted track", "id", id)
	return nil
}

// removeFromPlaylist atomically drops trackID from the playlist stored at
// key, bumping its revision so concurrent writers notice the change.
func (r *TrackRepository) removeFromPlaylist(ctx context.Context, key, trackID string) error {
	err := r.store.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}

		var playlist models.Playlist
		if err := json.Unmarshal(data, &playlist); err != nil {
			return err
		}
		if !slices.Contains(playlist.TrackIDs, trackID) {
			return nil
		}

		playlist.TrackIDs = slices.DeleteFunc(playlist.TrackIDs, func(id string) bool {
			return id == trackID
		})
		playlist.Revision++
		playlist.UpdatedAt = time.Now().UTC()

		updated, err := json.Marshal(&playlist)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, r.store.ttl)
			return nil
		})
		return err
	}, key)
	if err == redis.TxFailedErr {
		// Another writer touched the playlist mid-cascade; retry.
		return r.removeFromPlaylist(ctx, key, trackID)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to cascade track delete: %v", shared.ErrBackendUnavailable, err)
	}
	return nil
}

// Query supports id-only lookups; anything else is ErrCapability.
func (r *TrackRepository) Query(ctx context.Context, filter models.Filter, page models.Page) ([]*models.Track, error) {
	return queryByIDs[models.Track](ctx, r.store, trackKeyPrefix, filter, page)
}

// PlaylistRepository implements models.Repository[*models.Playlist] on the
// Redis cache. Revision checks use WATCH-based compare-and-set.
type PlaylistRepository struct {
	store *Store
}

// Get retrieves a cached playlist by ID.
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.Playlist, error) {
	playlist, err := getJSON[models.Playlist](ctx, r.store, playlistKeyPrefix+id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	return playlist, err
}

// Upsert caches a playlist with a revision check and track reference
// verification against the cached track namespace.
func (r *PlaylistRepository) Upsert(ctx context.Context, playlist *models.Playlist) (*models.Playlist, error) {
	if err := playlist.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidEntity, err)
	}

	stored := *playlist
	if stored.ID == "" {
		stored.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	stored.UpdatedAt = now

	if err := r.verifyTrackRefs(ctx, stored.TrackIDs); err != nil {
		return nil, err
	}

	key := playlistKeyPrefix + stored.ID
	err := r.store.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
			if stored.Revision != 0 {
				return fmt.Errorf("%w: playlist %s revision %d against absent record", shared.ErrConflict, stored.ID, stored.Revision)
			}
			stored.Revision = 1
			stored.CreatedAt = now
		case err != nil:
			return err
		default:
			var current models.Playlist
			if err := json.Unmarshal(data, &current); err != nil {
				return err
			}
			if stored.Revision != current.Revision {
				return fmt.Errorf("%w: playlist %s revision %d, stored %d", shared.ErrConflict, stored.ID, stored.Revision, current.Revision)
			}
			stored.Revision = current.Revision + 1
			stored.CreatedAt = current.CreatedAt
		}

		updated, err := json.Marshal(&stored)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, r.store.ttl)
			return nil
		})
		return err
	}, key)
	if err == redis.TxFailedErr {
		// The key changed between read and commit: a concurrent writer won.
		return nil, fmt.Errorf("%w: playlist %s modified concurrently", shared.ErrConflict, stored.ID)
	}
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to upsert playlist: %v", shared.ErrBackendUnavailable, err)
	}

	return &stored, nil
}

// Delete evicts a playlist.
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	err := deleteKey(ctx, r.store, playlistKeyPrefix+id)
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	if err == nil {
		r.store.logger.Debug("deleted playlist", "id", id)
	}
	return err
}

// Query supports id-only lookups; anything else is ErrCapability.
func (r *PlaylistRepository) Query(ctx context.Context, filter models.Filter, page models.Page) ([]*models.Playlist, error) {
	return queryByIDs[models.Playlist](ctx, r.store, playlistKeyPrefix, filter, page)
}

// verifyTrackRefs confirms every referenced track is currently cached.
// Expired tracks count as absent: the cache cannot vouch for what it no
// longer holds.
func (r *PlaylistRepository) verifyTrackRefs(ctx context.Context, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	keys := make([]string, len(trackIDs))
	for i, id := range trackIDs {
		keys[i] = trackKeyPrefix + id
	}

	present, err := r.store.client.Exists(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("%w: failed to verify track references: %v", shared.ErrBackendUnavailable, err)
	}
	if int(present) != len(trackIDs) {
		return fmt.Errorf("%w: playlist references %d unknown tracks", shared.ErrIntegrity, len(trackIDs)-int(present))
	}
	return nil
}

// UserRepository implements models.Repository[*models.UserAccount] on the
// Redis cache with the same CAS scheme as playlists.
type UserRepository struct {
	store *Store
}

// Get retrieves a cached user account by ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.UserAccount, error) {
	user, err := getJSON[models.UserAccount](ctx, r.store, userKeyPrefix+id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	return user, err
}

// Upsert caches a user account with a revision check.
func (r *UserRepository) Upsert(ctx context.Context, user *models.UserAccount) (*models.UserAccount, error) {
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidEntity, err)
	}

	stored := *user
	if stored.ID == "" {
		stored.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	stored.UpdatedAt = now

	key := userKeyPrefix + stored.ID
	err := r.store.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
			if stored.Revision != 0 {
				return fmt.Errorf("%w: user %s revision %d against absent record", shared.ErrConflict, stored.ID, stored.Revision)
			}
			stored.Revision = 1
			stored.CreatedAt = now
		case err != nil:
			return err
		default:
			var current models.UserAccount
			if err := json.Unmarshal(data, &current); err != nil {
				return err
			}
			if stored.Revision != current.Revision {
				return fmt.Errorf("%w: user %s revision %d, stored %d", shared.ErrConflict, stored.ID, stored.Revision, current.Revision)
			}
			stored.Revision = current.Revision + 1
			stored.CreatedAt = current.CreatedAt
		}

		updated, err := json.Marshal(&stored)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, r.store.ttl)
			return nil
		})
		return err
	}, key)
	if err == redis.TxFailedErr {
		return nil, fmt.Errorf("%w: user %s modified concurrently", shared.ErrConflict, stored.ID)
	}
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to upsert user: %v", shared.ErrBackendUnavailable, err)
	}

	return &stored, nil
}

// Delete evicts a user account.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	err := deleteKey(ctx, r.store, userKeyPrefix+id)
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	if err == nil {
		r.store.logger.Debug("deleted user", "id", id)
	}
	return err
}

// Query supports id-only lookups; anything else is ErrCapability.
func (r *UserRepository) Query(ctx context.Context, filter models.Filter, page models.Page) ([]*models.UserAccount, error) {
	return queryByIDs[models.UserAccount](ctx, r.store, userKeyPrefix, filter, page)
}

// ArtistRepository implements models.Repository[*models.Artist] on the
// Redis cache.
type ArtistRepository struct {
	store *Store
}

// Get retrieves a cached artist by ID.
func (r *ArtistRepository) Get(ctx context.Context, id string) (*models.Artist, error) {
	artist, err := getJSON[models.Artist](ctx, r.store, artistKeyPrefix+id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: artist %s", shared.ErrNotFound, id)
	}
	return artist, err
}

// Upsert caches an artist record.
func (r *ArtistRepository) Upsert(ctx context.Context, artist *models.Artist) (*models.Artist, error) {
	if err := artist.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidEntity, err)
	}

	stored := *artist
	if stored.ID == "" {
		stored.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	stored.UpdatedAt = now
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}

	if err := setJSON(ctx, r.store, artistKeyPrefix+stored.ID, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Delete evicts an artist.
func (r *ArtistRepository) Delete(ctx context.Context, id string) error {
	err := deleteKey(ctx, r.store, artistKeyPrefix+id)
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: artist %s", shared.ErrNotFound, id)
	}
	if err == nil {
		r.store.logger.Debug("deleted artist", "id", id)
	}
	return err
}

// Query supports id-only lookups; anything else is ErrCapability.
func (r *ArtistRepository) Query(ctx context.Context, filter models.Filter, page models.Page) ([]*models.Artist, error) {
	return queryByIDs[models.Artist](ctx, r.store, artistKeyPrefix, filter, page)
}

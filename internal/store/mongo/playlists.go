package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arpeggia/recordkeeper/internal/models"
	"github.com/arpeggia/recordkeeper/internal/shared"
)

// PlaylistRepository implements models.Repository[*models.Playlist] on
// MongoDB. The revision check rides on the replace filter: a stale caller
// matches no document and the write is rejected.
type PlaylistRepository struct {
	store *Store
}

func (r *PlaylistRepository) coll() *mongo.Collection {
	return r.store.db.Collection(collPlaylists)
}

// Get retrieves a playlist by ID.
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.Playlist, error) {
	var doc playlistDoc
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapErr(err, "get playlist")
	}
	return doc.toModel(), nil
}

// Upsert inserts or replaces a playlist with a revision check and track
// reference verification.
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

	if stored.Revision == 0 {
		stored.Revision = 1
		stored.CreatedAt = now
		_, err := r.coll().InsertOne(ctx, toPlaylistDoc(&stored))
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: playlist %s already exists", shared.ErrConflict, stored.ID)
		}
		if err != nil {
			return nil, mapErr(err, "insert playlist")
		}
		return &stored, nil
	}

	// Existing record: replace only when the stored revision still matches
	// the caller's. CreatedAt is carried over from the current document.
	var current playlistDoc
	err := r.coll().FindOne(ctx, bson.M{"_id": stored.ID}).Decode(&current)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: playlist %s revision %d against absent record", shared.ErrConflict, stored.ID, stored.Revision)
	}
	if err != nil {
		return nil, mapErr(err, "read playlist revision")
	}

	callerRevision := stored.Revision
	stored.Revision = callerRevision + 1
	stored.CreatedAt = current.CreatedAt

	result, err := r.coll().ReplaceOne(ctx,
		bson.M{"_id": stored.ID, "revision": callerRevision},
		toPlaylistDoc(&stored))
	if err != nil {
		return nil, mapErr(err, "replace playlist")
	}
	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: playlist %s revision %d, stored %d", shared.ErrConflict, stored.ID, callerRevision, current.Revision)
	}

	return &stored, nil
}

// Delete removes a playlist.
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err, "delete playlist")
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}

	r.store.logger.Debug("deleted playlist", "id", id)
	return nil
}

// Query returns playlists matching the filter.
func (r *PlaylistRepository) Query(ctx context.Context, filter models.Filter, page models.Page) ([]*models.Playlist, error) {
	page = page.Bounded()

	match := bson.M{}
	if len(filter.IDs) > 0 {
		match["_id"] = bson.M{"$in": filter.IDs}
	}
	if filter.Name != "" {
		match["name"] = filter.Name
	}
	if filter.OwnerID != "" {
		match["owner_id"] = filter.OwnerID
	}

	opts := options.Find().
		SetSort(sortOrder()).
		SetSkip(int64(page.Offset)).
		SetLimit(int64(page.Limit))

	cursor, err := r.coll().Find(ctx, match, opts)
	if err != nil {
		return nil, mapErr(err, "query playlists")
	}
	defer cursor.Close(ctx)

	var playlists []*models.Playlist
	for cursor.Next(ctx) {
		var doc playlistDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode playlist: %w", err)
		}
		playlists = append(playlists, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, mapErr(err, "iterate playlists")
	}

	return playlists, nil
}

// verifyTrackRefs confirms every referenced track exists in this backend.
func (r *PlaylistRepository) verifyTrackRefs(ctx context.Context, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	count, err := r.store.db.Collection(collTracks).CountDocuments(ctx, bson.M{"_id": bson.M{"$in": trackIDs}})
	if err != nil {
		return mapErr(err, "verify track references")
	}
	if int(count) != len(trackIDs) {
		return fmt.Errorf("%w: playlist references %d unknown tracks", shared.ErrIntegrity, len(trackIDs)-int(count))
	}
	return nil
}

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

// TrackRepository implements models.Repository[*models.Track] on MongoDB.
type TrackRepository struct {
	store *Store
}

func (r *TrackRepository) coll() *mongo.Collection {
	return r.store.db.Collection(collTracks)
}

// Get retrieves a track by ID.
func (r *TrackRepository) Get(ctx context.Context, id string) (*models.Track, error) {
	var doc trackDoc
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapErr(err, "get track")
	}
	return doc.toModel()
}

// Upsert inserts or refreshes a track snapshot. A missing ID is assigned.
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

	doc, err := toTrackDoc(&stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode track: %w", err)
	}

	// Preserve the original created_at when the document already exists.
	update := bson.M{
		"$set": bson.M{
			"title":       doc.Title,
			"artists":     doc.Artists,
			"album":       doc.Album,
			"duration_ms": doc.DurationMS,
			"isrc":        doc.ISRC,
			"metadata":    doc.Metadata,
			"fetched_at":  doc.FetchedAt,
			"updated_at":  doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": doc.CreatedAt},
	}

	_, err = r.coll().UpdateOne(ctx, bson.M{"_id": stored.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, mapErr(err, "upsert track")
	}

	return r.Get(ctx, stored.ID)
}

// Delete removes a track and pulls its id out of every playlist that
// references it.
func (r *TrackRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err, "delete track")
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
	}

	_, err = r.store.db.Collection(collPlaylists).UpdateMany(ctx,
		bson.M{"track_ids": id},
		bson.M{"$pull": bson.M{"track_ids": id}})
	if err != nil {
		return mapErr(err, "cascade track delete")
	}

	r.store.logger.Debug("deleted track", "id", id)
	return nil
}

// Query returns tracks matching the filter, ordered by creation time then ID.
func (r *TrackRepository) Query(ctx context.Context, filter models.Filter, page models.Page) ([]*models.Track, error) {
	page = page.Bounded()

	match := bson.M{}
	if len(filter.IDs) > 0 {
		match["_id"] = bson.M{"$in": filter.IDs}
	}
	if filter.Title != "" {
		match["title"] = filter.Title
	}
	if filter.Artist != "" {
		match["artists"] = filter.Artist
	}
	if filter.Album != "" {
		match["album"] = filter.Album
	}
	if filter.ISRC != "" {
		match["isrc"] = filter.ISRC
	}

	opts := options.Find().
		SetSort(sortOrder()).
		SetSkip(int64(page.Offset)).
		SetLimit(int64(page.Limit))

	cursor, err := r.coll().Find(ctx, match, opts)
	if err != nil {
		return nil, mapErr(err, "query tracks")
	}
	defer cursor.Close(ctx)

	var tracks []*models.Track
	for cursor.Next(ctx) {
		var doc trackDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode track: %w", err)
		}
		track, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	if err := cursor.Err(); err != nil {
		return nil, mapErr(err, "iterate tracks")
	}

	return tracks, nil
}

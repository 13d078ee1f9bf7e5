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

// ArtistRepository implements models.Repository[*models.Artist] on MongoDB.
type ArtistRepository struct {
	store *Store
}

func (r *ArtistRepository) coll() *mongo.Collection {
	return r.store.db.Collection(collArtists)
}

// Get retrieves an artist by ID.
func (r *ArtistRepository) Get(ctx context.Context, id string) (*models.Artist, error) {
	var doc artistDoc
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: artist %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapErr(err, "get artist")
	}
	return doc.toModel(), nil
}

// Upsert inserts or refreshes an artist record.
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

	update := bson.M{
		"$set": bson.M{
			"name":       stored.Name,
			"genres":     stored.Genres,
			"followers":  stored.Followers,
			"updated_at": stored.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": stored.CreatedAt},
	}

	_, err := r.coll().UpdateOne(ctx, bson.M{"_id": stored.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, mapErr(err, "upsert artist")
	}

	return r.Get(ctx, stored.ID)
}

// Delete removes an artist.
func (r *ArtistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err, "delete artist")
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: artist %s", shared.ErrNotFound, id)
	}

	r.store.logger.Debug("deleted artist", "id", id)
	return nil
}

// Query returns artists matching the filter.
func (r *ArtistRepository) Query(ctx context.Context, filter models.Filter, page models.Page) ([]*models.Artist, error) {
	page = page.Bounded()

	match := bson.M{}
	if len(filter.IDs) > 0 {
		match["_id"] = bson.M{"$in": filter.IDs}
	}
	if filter.Name != "" {
		match["name"] = filter.Name
	}
	if filter.Genre != "" {
		match["genres"] = filter.Genre
	}

	opts := options.Find().
		SetSort(sortOrder()).
		SetSkip(int64(page.Offset)).
		SetLimit(int64(page.Limit))

	cursor, err := r.coll().Find(ctx, match, opts)
	if err != nil {
		return nil, mapErr(err, "query artists")
	}
	defer cursor.Close(ctx)

	var artists []*models.Artist
	for cursor.Next(ctx) {
		var doc artistDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode artist: %w", err)
		}
		artists = append(artists, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, mapErr(err, "iterate artists")
	}

	return artists, nil
}

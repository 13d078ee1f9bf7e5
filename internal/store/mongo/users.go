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

// UserRepository implements models.Repository[*models.UserAccount] on
// MongoDB with playlist-style revision checks.
type UserRepository struct {
	store *Store
}

func (r *UserRepository) coll() *mongo.Collection {
	return r.store.db.Collection(collUsers)
}

// Get retrieves a user account by ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.UserAccount, error) {
	var doc userDoc
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapErr(err, "get user")
	}
	return doc.toModel(), nil
}

// Upsert inserts or replaces a user account with a revision check.
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

	if stored.Revision == 0 {
		stored.Revision = 1
		stored.CreatedAt = now
		_, err := r.coll().InsertOne(ctx, toUserDoc(&stored))
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: user %s already exists", shared.ErrConflict, stored.ID)
		}
		if err != nil {
			return nil, mapErr(err, "insert user")
		}
		return &stored, nil
	}

	var current userDoc
	err := r.coll().FindOne(ctx, bson.M{"_id": stored.ID}).Decode(&current)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: user %s revision %d against absent record", shared.ErrConflict, stored.ID, stored.Revision)
	}
	if err != nil {
		return nil, mapErr(err, "read user revision")
	}

	callerRevision := stored.Revision
	stored.Revision = callerRevision + 1
	stored.CreatedAt = current.CreatedAt

	result, err := r.coll().ReplaceOne(ctx,
		bson.M{"_id": stored.ID, "revision": callerRevision},
		toUserDoc(&stored))
	if err != nil {
		return nil, mapErr(err, "replace user")
	}
	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: user %s revision %d, stored %d", shared.ErrConflict, stored.ID, callerRevision, current.Revision)
	}

	return &stored, nil
}

// Delete removes a user account.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err, "delete user")
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}

	r.store.logger.Debug("deleted user", "id", id)
	return nil
}

// Query returns user accounts matching the filter.
func (r *UserRepository) Query(ctx context.Context, filter models.Filter, page models.Page) ([]*models.UserAccount, error) {
	page = page.Bounded()

	match := bson.M{}
	if len(filter.IDs) > 0 {
		match["_id"] = bson.M{"$in": filter.IDs}
	}
	if filter.Email != "" {
		match["email"] = filter.Email
	}

	opts := options.Find().
		SetSort(sortOrder()).
		SetSkip(int64(page.Offset)).
		SetLimit(int64(page.Limit))

	cursor, err := r.coll().Find(ctx, match, opts)
	if err != nil {
		return nil, mapErr(err, "query users")
	}
	defer cursor.Close(ctx)

	var users []*models.UserAccount
	for cursor.Next(ctx) {
		var doc userDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		users = append(users, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, mapErr(err, "iterate users")
	}

	return users, nil
}

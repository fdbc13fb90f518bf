package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const wishlistCollectionName = "wishlist"

type wishlistRepository struct {
	collection *mongo.Collection
}

func NewWishlistRepository(db *mongo.Database, log logger.Logger) repository.WishlistRepository {
	coll := db.Collection(wishlistCollectionName)
	ensureIndexes(coll, log, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "item_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "item_id", Value: 1}}},
	})
	return &wishlistRepository{collection: coll}
}

func (r *wishlistRepository) Add(ctx context.Context, userID, itemID string) (bool, error) {
	filter := bson.M{"user_id": userID, "item_id": itemID}
	doc := wishlistDocument{UserID: userID, ItemID: itemID, AddedAt: time.Now().UTC()}

	opts := options.Update().SetUpsert(true)
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$setOnInsert": doc}, opts)
	if err != nil {
		// Two concurrent upserts can both miss and race on the unique index.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to add wishlist entry: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (r *wishlistRepository) Remove(ctx context.Context, userID, itemID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID, "item_id": itemID})
	if err != nil {
		return fmt.Errorf("failed to remove wishlist entry: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *wishlistRepository) ListByUser(ctx context.Context, userID string) ([]entity.WishlistEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "added_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []wishlistDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode wishlist: %w", err)
	}
	entries := make([]entity.WishlistEntry, 0, len(docs))
	for i := range docs {
		entries = append(entries, docs[i].toEntity())
	}
	return entries, nil
}

func (r *wishlistRepository) DeleteByItem(ctx context.Context, itemID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"item_id": itemID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete wishlist entries for item %s: %w", itemID, err)
	}
	return res.DeletedCount, nil
}

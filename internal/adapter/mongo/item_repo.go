package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const itemCollectionName = "items"

type itemRepository struct {
	collection *mongo.Collection
}

func NewItemRepository(db *mongo.Database, log logger.Logger) repository.ItemRepository {
	coll := db.Collection(itemCollectionName)
	ensureIndexes(coll, log, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return &itemRepository{collection: coll}
}

func (r *itemRepository) Create(ctx context.Context, item *entity.Item) (string, error) {
	doc, err := fromItemEntity(item)
	if err != nil {
		return "", err
	}
	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create item: %w", err)
	}
	return insertedHex(res.InsertedID)
}

func (r *itemRepository) GetByID(ctx context.Context, itemID string) (*entity.Item, error) {
	oid, err := objectID(itemID)
	if err != nil {
		return nil, err
	}
	var doc itemDocument
	if err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item by ID %s: %w", itemID, err)
	}
	item := doc.toEntity()
	return &item, nil
}

func (r *itemRepository) List(ctx context.Context, params repository.ListItemsParams) ([]entity.Item, error) {
	filter := bson.M{}
	if params.Status != "" {
		filter["status"] = params.Status
	}
	if params.Category != "" {
		filter["category"] = params.Category
	}
	if params.SellerID != "" {
		filter["seller_id"] = params.SellerID
	}
	if params.Query != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(params.Query), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []itemDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode listed items: %w", err)
	}
	items := make([]entity.Item, 0, len(docs))
	for i := range docs {
		items = append(items, docs[i].toEntity())
	}
	return items, nil
}

func (r *itemRepository) Update(ctx context.Context, params repository.UpdateItemParams) error {
	oid, err := objectID(params.ItemID)
	if err != nil {
		return err
	}
	price, err := toDecimal128(params.Price)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": oid, "version": params.Version}
	update := bson.M{
		"$set": bson.M{
			"name":        params.Name,
			"description": params.Description,
			"category":    params.Category,
			"price":       price,
			"updated_at":  time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update item %s: %w", params.ItemID, err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, oid)
	}
	return nil
}

func (r *itemRepository) UpdateStatus(ctx context.Context, itemID string, from, to entity.ItemStatus) error {
	oid, err := objectID(itemID)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": oid, "status": from}
	update := bson.M{
		"$set": bson.M{
			"status":     to,
			"updated_at": time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update status of item %s: %w", itemID, err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, oid)
	}
	return nil
}

func (r *itemRepository) AddImages(ctx context.Context, itemID string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	oid, err := objectID(itemID)
	if err != nil {
		return err
	}
	update := bson.M{
		"$push": bson.M{"image_urls": bson.M{"$each": urls}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to add images to item %s: %w", itemID, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes the item only while it is still Available.
func (r *itemRepository) Delete(ctx context.Context, itemID string) error {
	oid, err := objectID(itemID)
	if err != nil {
		return err
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid, "status": entity.ItemStatusAvailable})
	if err != nil {
		return fmt.Errorf("failed to delete item %s: %w", itemID, err)
	}
	if res.DeletedCount == 0 {
		return r.missOrConflict(ctx, oid)
	}
	return nil
}

func (r *itemRepository) missOrConflict(ctx context.Context, oid primitive.ObjectID) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUpdateFailed, err)
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrOptimisticLock
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const offerCollectionName = "offers"

type offerRepository struct {
	collection *mongo.Collection
}

func NewOfferRepository(db *mongo.Database, log logger.Logger) repository.OfferRepository {
	coll := db.Collection(offerCollectionName)
	ensureIndexes(coll, log, []mongo.IndexModel{
		{Keys: bson.D{{Key: "item_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	return &offerRepository{collection: coll}
}

func (r *offerRepository) Create(ctx context.Context, offer *entity.Offer) (string, error) {
	doc, err := fromOfferEntity(offer)
	if err != nil {
		return "", err
	}
	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create offer: %w", err)
	}
	return insertedHex(res.InsertedID)
}

func (r *offerRepository) GetByID(ctx context.Context, offerID string) (*entity.Offer, error) {
	oid, err := objectID(offerID)
	if err != nil {
		return nil, err
	}
	var doc offerDocument
	if err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get offer by ID %s: %w", offerID, err)
	}
	offer := doc.toEntity()
	return &offer, nil
}

func (r *offerRepository) ListByItem(ctx context.Context, itemID string) ([]entity.Offer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"item_id": itemID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers for item %s: %w", itemID, err)
	}
	defer cursor.Close(ctx)

	var docs []offerDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode offers: %w", err)
	}
	offers := make([]entity.Offer, 0, len(docs))
	for i := range docs {
		offers = append(offers, docs[i].toEntity())
	}
	return offers, nil
}

func (r *offerRepository) Resolve(ctx context.Context, offerID string, status entity.OfferStatus, resolvedAt time.Time) error {
	oid, err := objectID(offerID)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": oid, "status": entity.OfferStatusPending}
	update := bson.M{"$set": bson.M{"status": status, "resolved_at": resolvedAt}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to resolve offer %s: %w", offerID, err)
	}
	if res.MatchedCount == 0 {
		count, errCount := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
		if errCount != nil {
			return fmt.Errorf("%w: %v", repository.ErrUpdateFailed, errCount)
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrOptimisticLock
	}
	return nil
}

func (r *offerRepository) RejectPendingForItem(ctx context.Context, itemID, exceptOfferID string, resolvedAt time.Time) (int64, error) {
	filter := bson.M{"item_id": itemID, "status": entity.OfferStatusPending}
	if exceptOfferID != "" {
		if oid, err := primitive.ObjectIDFromHex(exceptOfferID); err == nil {
			filter["_id"] = bson.M{"$ne": oid}
		}
	}
	update := bson.M{"$set": bson.M{"status": entity.OfferStatusRejected, "resolved_at": resolvedAt}}
	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to reject pending offers for item %s: %w", itemID, err)
	}
	return res.ModifiedCount, nil
}

func (r *offerRepository) DeleteByItem(ctx context.Context, itemID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"item_id": itemID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete offers for item %s: %w", itemID, err)
	}
	return res.DeletedCount, nil
}

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

const transactionCollectionName = "transactions"

type transactionRepository struct {
	collection *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database, log logger.Logger) repository.TransactionRepository {
	coll := db.Collection(transactionCollectionName)
	ensureIndexes(coll, log, []mongo.IndexModel{
		{Keys: bson.D{{Key: "buyer_id", Value: 1}, {Key: "date_initiated", Value: -1}}},
		{Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "date_initiated", Value: -1}}},
		{Keys: bson.D{{Key: "item_id", Value: 1}}},
	})
	return &transactionRepository{collection: coll}
}

func (r *transactionRepository) Create(ctx context.Context, tx *entity.Transaction) (string, error) {
	doc, err := fromTransactionEntity(tx)
	if err != nil {
		return "", err
	}
	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}
	return insertedHex(res.InsertedID)
}

func (r *transactionRepository) GetByID(ctx context.Context, transactionID string) (*entity.Transaction, error) {
	oid, err := objectID(transactionID)
	if err != nil {
		return nil, err
	}
	var doc transactionDocument
	if err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by ID %s: %w", transactionID, err)
	}
	tx := doc.toEntity()
	return &tx, nil
}

func (r *transactionRepository) SetConfirmation(ctx context.Context, transactionID string, party entity.Party) (*entity.Transaction, error) {
	oid, err := objectID(transactionID)
	if err != nil {
		return nil, err
	}

	var field string
	switch party {
	case entity.PartyBuyer:
		field = "buyer_confirmation"
	case entity.PartySeller:
		field = "seller_confirmation"
	default:
		return nil, fmt.Errorf("unknown party %q: %w", party, repository.ErrUpdateFailed)
	}

	filter := bson.M{"_id": oid, "status": entity.TransactionStatusPending}
	update := bson.M{"$set": bson.M{field: true}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc transactionDocument
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.missOrConflict(ctx, oid)
		}
		return nil, fmt.Errorf("failed to confirm transaction %s: %w", transactionID, err)
	}
	tx := doc.toEntity()
	return &tx, nil
}

func (r *transactionRepository) MarkSold(ctx context.Context, transactionID string, completedAt time.Time) error {
	oid, err := objectID(transactionID)
	if err != nil {
		return err
	}

	filter := bson.M{
		"_id":                 oid,
		"status":              entity.TransactionStatusPending,
		"buyer_confirmation":  true,
		"seller_confirmation": true,
		"date_completed":      nil,
	}
	update := bson.M{"$set": bson.M{
		"status":         entity.TransactionStatusSold,
		"date_completed": completedAt,
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to complete transaction %s: %w", transactionID, err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, oid)
	}
	return nil
}

func (r *transactionRepository) HasPendingForItem(ctx context.Context, itemID string) (bool, error) {
	filter := bson.M{"item_id": itemID, "status": entity.TransactionStatusPending}
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to look up pending transactions for item %s: %w", itemID, err)
	}
	return n > 0, nil
}

func (r *transactionRepository) ListByBuyer(ctx context.Context, buyerID string) ([]entity.Transaction, error) {
	return r.list(ctx, bson.M{"buyer_id": buyerID})
}

func (r *transactionRepository) ListBySeller(ctx context.Context, sellerID string) ([]entity.Transaction, error) {
	return r.list(ctx, bson.M{"seller_id": sellerID})
}

func (r *transactionRepository) list(ctx context.Context, filter bson.M) ([]entity.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date_initiated", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []transactionDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	txs := make([]entity.Transaction, 0, len(docs))
	for i := range docs {
		txs = append(txs, docs[i].toEntity())
	}
	return txs, nil
}

func (r *transactionRepository) missOrConflict(ctx context.Context, oid primitive.ObjectID) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUpdateFailed, err)
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrOptimisticLock
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userCollectionName = "users"

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database, log logger.Logger) repository.UserRepository {
	coll := db.Collection(userCollectionName)
	ensureIndexes(coll, log, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return &userRepository{collection: coll}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) (string, error) {
	doc, err := fromUserEntity(user)
	if err != nil {
		return "", err
	}
	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", repository.ErrAlreadyExists
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	return insertedHex(res.InsertedID)
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (*entity.User, error) {
	oid, err := objectID(userID)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.toEntity(), nil
}

func (r *userRepository) ListByIDs(ctx context.Context, userIDs []string) (map[string]*entity.User, error) {
	result := make(map[string]*entity.User, len(userIDs))
	oids := make([]primitive.ObjectID, 0, len(userIDs))
	for _, id := range userIDs {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return result, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for i := range docs {
		u := docs[i].toEntity()
		result[u.ID] = u
	}
	return result, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, params repository.UpdateProfileParams) error {
	oid, err := objectID(params.UserID)
	if err != nil {
		return err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if params.Username != nil {
		set["username"] = *params.Username
	}
	if params.Email != nil {
		set["email"] = *params.Email
	}
	if params.Bio != nil {
		set["bio"] = *params.Bio
	}
	if params.Address != nil {
		set["address"] = *params.Address
	}
	if params.ProfileImageURL != nil {
		set["profile_image_url"] = *params.ProfileImageURL
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("failed to update user %s: %w", params.UserID, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) error {
	oid, err := objectID(userID)
	if err != nil {
		return err
	}
	amt, err := toDecimal128(amount)
	if err != nil {
		return err
	}
	neg, err := toDecimal128(amount.Neg())
	if err != nil {
		return err
	}

	filter := bson.M{"_id": oid, "balance": bson.M{"$gte": amt}}
	update := bson.M{
		"$inc": bson.M{"balance": neg},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to debit user %s: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		count, errCount := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
		if errCount != nil {
			return fmt.Errorf("failed to debit user %s: %w", userID, errCount)
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrInsufficientBalance
	}
	return nil
}

func (r *userRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal) error {
	oid, err := objectID(userID)
	if err != nil {
		return err
	}
	amt, err := toDecimal128(amount)
	if err != nil {
		return err
	}

	update := bson.M{
		"$inc": bson.M{"balance": amt},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to credit user %s: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	reportCollectionName     = "reports"
	reviewCollectionName     = "reviews"
	userRatingCollectionName = "user_ratings"
)

type reportRepository struct {
	collection *mongo.Collection
}

func NewReportRepository(db *mongo.Database, log logger.Logger) repository.ReportRepository {
	coll := db.Collection(reportCollectionName)
	ensureIndexes(coll, log, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "item_id", Value: 1}}},
	})
	return &reportRepository{collection: coll}
}

func (r *reportRepository) Create(ctx context.Context, report *entity.Report) (string, error) {
	res, err := r.collection.InsertOne(ctx, fromReportEntity(report))
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}
	return insertedHex(res.InsertedID)
}

func (r *reportRepository) GetByID(ctx context.Context, reportID string) (*entity.Report, error) {
	oid, err := objectID(reportID)
	if err != nil {
		return nil, err
	}
	var doc reportDocument
	if err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report by ID %s: %w", reportID, err)
	}
	report := doc.toEntity()
	return &report, nil
}

func (r *reportRepository) List(ctx context.Context, status entity.ReportStatus) ([]entity.Report, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []reportDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}
	reports := make([]entity.Report, 0, len(docs))
	for i := range docs {
		reports = append(reports, docs[i].toEntity())
	}
	return reports, nil
}

func (r *reportRepository) UpdateStatus(ctx context.Context, reportID string, from, to entity.ReportStatus) error {
	oid, err := objectID(reportID)
	if err != nil {
		return err
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "status": from},
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		return fmt.Errorf("failed to update report %s: %w", reportID, err)
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

func (r *reportRepository) DeleteByItem(ctx context.Context, itemID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"item_id": itemID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete reports for item %s: %w", itemID, err)
	}
	return res.DeletedCount, nil
}

type reviewRepository struct {
	collection *mongo.Collection
}

func NewReviewRepository(db *mongo.Database, log logger.Logger) repository.ReviewRepository {
	coll := db.Collection(reviewCollectionName)
	ensureIndexes(coll, log, []mongo.IndexModel{
		{Keys: bson.D{{Key: "item_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return &reviewRepository{collection: coll}
}

func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) (string, error) {
	doc := reviewDocument{
		ReviewerID: review.ReviewerID,
		ItemID:     review.ItemID,
		Rating:     review.Rating,
		Comment:    review.Comment,
		CreatedAt:  review.CreatedAt,
	}
	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create review: %w", err)
	}
	return insertedHex(res.InsertedID)
}

func (r *reviewRepository) ListByItem(ctx context.Context, itemID string) ([]entity.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"item_id": itemID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews for item %s: %w", itemID, err)
	}
	defer cursor.Close(ctx)

	var docs []reviewDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}
	reviews := make([]entity.Review, 0, len(docs))
	for i := range docs {
		reviews = append(reviews, docs[i].toEntity())
	}
	return reviews, nil
}

func (r *reviewRepository) Summary(ctx context.Context, itemID string) (*entity.RatingSummary, error) {
	return ratingSummary(ctx, r.collection, bson.M{"item_id": itemID})
}

func (r *reviewRepository) DeleteByItem(ctx context.Context, itemID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"item_id": itemID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete reviews for item %s: %w", itemID, err)
	}
	return res.DeletedCount, nil
}

type userRatingRepository struct {
	collection *mongo.Collection
}

func NewUserRatingRepository(db *mongo.Database, log logger.Logger) repository.UserRatingRepository {
	coll := db.Collection(userRatingCollectionName)
	ensureIndexes(coll, log, []mongo.IndexModel{
		{Keys: bson.D{{Key: "rated_user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return &userRatingRepository{collection: coll}
}

func (r *userRatingRepository) Create(ctx context.Context, rating *entity.UserRating) (string, error) {
	doc := userRatingDocument{
		RatedUserID: rating.RatedUserID,
		ReviewerID:  rating.ReviewerID,
		Rating:      rating.Rating,
		Comment:     rating.Comment,
		CreatedAt:   rating.CreatedAt,
	}
	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create user rating: %w", err)
	}
	return insertedHex(res.InsertedID)
}

func (r *userRatingRepository) ListByRatedUser(ctx context.Context, userID string) ([]entity.UserRating, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"rated_user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var docs []userRatingDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode user ratings: %w", err)
	}
	ratings := make([]entity.UserRating, 0, len(docs))
	for i := range docs {
		ratings = append(ratings, docs[i].toEntity())
	}
	return ratings, nil
}

func (r *userRatingRepository) Summary(ctx context.Context, userID string) (*entity.RatingSummary, error) {
	return ratingSummary(ctx, r.collection, bson.M{"rated_user_id": userID})
}

func ratingSummary(ctx context.Context, coll *mongo.Collection, match bson.M) (*entity.RatingSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"average": bson.M{"$avg": "$rating"},
			"count":   bson.M{"$sum": 1},
		}}},
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	defer cursor.Close(ctx)

	summary := &entity.RatingSummary{}
	if cursor.Next(ctx) {
		var row ratingSummaryDocument
		if err = cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode rating summary: %w", err)
		}
		summary.Average = row.Average
		summary.Count = row.Count
	}
	if err = cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rating summary: %w", err)
	}
	return summary, nil
}

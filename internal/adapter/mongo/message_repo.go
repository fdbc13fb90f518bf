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

const messageCollectionName = "messages"

type messageRepository struct {
	collection *mongo.Collection
}

func NewMessageRepository(db *mongo.Database, log logger.Logger) repository.MessageRepository {
	coll := db.Collection(messageCollectionName)
	ensureIndexes(coll, log, []mongo.IndexModel{
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "is_read", Value: 1}}},
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "timestamp", Value: 1}}},
	})
	return &messageRepository{collection: coll}
}

func (r *messageRepository) Create(ctx context.Context, msg *entity.Message) (string, error) {
	res, err := r.collection.InsertOne(ctx, fromMessageEntity(msg))
	if err != nil {
		return "", fmt.Errorf("failed to store message: %w", err)
	}
	return insertedHex(res.InsertedID)
}

type partnerRow struct {
	SenderID      string    `bson:"_id"`
	LastMessageAt time.Time `bson:"last_message_at"`
}

func (r *messageRepository) Partners(ctx context.Context, userID string) ([]entity.ConversationPartner, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"receiver_id": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":             "$sender_id",
			"last_message_at": bson.M{"$max": "$timestamp"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_message_at", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate conversation partners: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []partnerRow
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode conversation partners: %w", err)
	}
	partners := make([]entity.ConversationPartner, 0, len(rows))
	for _, row := range rows {
		partners = append(partners, entity.ConversationPartner{
			UserID:        row.SenderID,
			LastMessageAt: row.LastMessageAt,
		})
	}
	return partners, nil
}

func (r *messageRepository) Thread(ctx context.Context, userA, userB string) ([]entity.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": userA, "receiver_id": userB},
		bson.M{"sender_id": userB, "receiver_id": userA},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode thread: %w", err)
	}
	msgs := make([]entity.Message, 0, len(docs))
	for i := range docs {
		msgs = append(msgs, docs[i].toEntity())
	}
	return msgs, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	filter := bson.M{"receiver_id": receiverID, "sender_id": senderID, "is_read": false}
	res, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"receiver_id": receiverID, "is_read": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

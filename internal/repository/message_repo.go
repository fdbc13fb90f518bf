package repository

import (
	"context"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) (string, error)
	// Partners lists distinct senders of messages received by userID,
	// most recent sender first.
	Partners(ctx context.Context, userID string) ([]entity.ConversationPartner, error)
	// Thread returns messages exchanged between the two users in both
	// directions, oldest first.
	Thread(ctx context.Context, userA, userB string) ([]entity.Message, error)
	MarkRead(ctx context.Context, receiverID, senderID string) (int64, error)
	CountUnread(ctx context.Context, receiverID string) (int64, error)
}

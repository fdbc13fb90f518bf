package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain"
)

type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	IsRead     bool      `json:"is_read"`
}

func NewMessage(senderID, receiverID, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message cannot be empty", domain.ErrValidation)
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot send a message to yourself", domain.ErrValidation)
	}
	return &Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  time.Now().UTC(),
	}, nil
}

// ConversationPartner is a user who has sent messages to the inbox owner,
// with the time of their latest inbound message.
type ConversationPartner struct {
	UserID        string    `json:"user_id"`
	Username      string    `json:"username,omitempty"`
	LastMessageAt time.Time `json:"last_message_at"`
}

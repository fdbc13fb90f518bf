package service

import (
	"context"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/metrics"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
)

type MessagingService interface {
	Send(ctx context.Context, senderID, receiverID, content string) (*entity.Message, error)
	ConversationPartners(ctx context.Context, userID string) ([]entity.ConversationPartner, error)
	// Thread returns the conversation with partnerID and marks the partner's
	// messages to userID as read.
	Thread(ctx context.Context, userID, partnerID string) ([]entity.Message, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

type messagingService struct {
	messages  repository.MessageRepository
	users     repository.UserRepository
	publisher EventPublisher
	metrics   *metrics.MetricsManager
	log       logger.Logger
}

func NewMessagingService(
	messages repository.MessageRepository,
	users repository.UserRepository,
	publisher EventPublisher,
	m *metrics.MetricsManager,
	log logger.Logger,
) MessagingService {
	return &messagingService{
		messages:  messages,
		users:     users,
		publisher: publisher,
		metrics:   m,
		log:       log.Named("messaging"),
	}
}

func (s *messagingService) Send(ctx context.Context, senderID, receiverID, content string) (*entity.Message, error) {
	msg, err := entity.NewMessage(senderID, receiverID, content)
	if err != nil {
		return nil, err
	}
	if _, err = s.users.GetByID(ctx, receiverID); err != nil {
		return nil, translateRepoErr(err, "receiver "+receiverID)
	}

	id, err := s.messages.Create(ctx, msg)
	if err != nil {
		return nil, translateRepoErr(err, "send message")
	}
	msg.ID = id

	s.metrics.IncMessagesSent()
	publish(ctx, s.publisher, s.log, SubjectMessageSent, MessageSentEvent{
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Timestamp:  msg.Timestamp,
	})
	return msg, nil
}

func (s *messagingService) ConversationPartners(ctx context.Context, userID string) ([]entity.ConversationPartner, error) {
	partners, err := s.messages.Partners(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "conversation partners")
	}
	if len(partners) == 0 {
		return partners, nil
	}

	ids := make([]string, 0, len(partners))
	for _, p := range partners {
		ids = append(ids, p.UserID)
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		s.log.Warnf("could not resolve partner usernames for %s: %v", userID, err)
		return partners, nil
	}
	for i := range partners {
		if u, ok := users[partners[i].UserID]; ok {
			partners[i].Username = u.Username
		}
	}
	return partners, nil
}

func (s *messagingService) Thread(ctx context.Context, userID, partnerID string) ([]entity.Message, error) {
	if _, err := s.users.GetByID(ctx, partnerID); err != nil {
		return nil, translateRepoErr(err, "user "+partnerID)
	}
	marked, err := s.messages.MarkRead(ctx, userID, partnerID)
	if err != nil {
		return nil, translateRepoErr(err, "mark messages read")
	}
	if marked > 0 {
		s.log.Debugf("%d messages from %s to %s marked read", marked, partnerID, userID)
	}

	msgs, err := s.messages.Thread(ctx, userID, partnerID)
	if err != nil {
		return nil, translateRepoErr(err, "load thread")
	}
	return msgs, nil
}

func (s *messagingService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.messages.CountUnread(ctx, userID)
	if err != nil {
		return 0, translateRepoErr(err, "count unread messages")
	}
	return count, nil
}

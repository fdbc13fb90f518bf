package service

import (
	"context"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/shopspring/decimal"
)

const (
	SubjectItemCreated          = "marketplace.item.created"
	SubjectItemStatusChanged    = "marketplace.item.status_changed"
	SubjectTransactionInitiated = "marketplace.transaction.initiated"
	SubjectTransactionCompleted = "marketplace.transaction.completed"
	SubjectOfferCreated         = "marketplace.offer.created"
	SubjectOfferAccepted        = "marketplace.offer.accepted"
	SubjectOfferRejected        = "marketplace.offer.rejected"
	SubjectMessageSent          = "marketplace.message.sent"
	SubjectReportCreated        = "marketplace.report.created"
)

type ItemStatusChangedEvent struct {
	ItemID     string            `json:"item_id"`
	From       entity.ItemStatus `json:"from"`
	To         entity.ItemStatus `json:"to"`
	OccurredAt time.Time         `json:"occurred_at"`
}

type OfferEvent struct {
	OfferID  string             `json:"offer_id"`
	ItemID   string             `json:"item_id"`
	BuyerID  string             `json:"buyer_id"`
	Price    decimal.Decimal    `json:"price"`
	Status   entity.OfferStatus `json:"status"`
	SellerID string             `json:"seller_id,omitempty"`
}

func newOfferEvent(o *entity.Offer, sellerID string) OfferEvent {
	return OfferEvent{
		OfferID:  o.ID,
		ItemID:   o.ItemID,
		BuyerID:  o.BuyerID,
		Price:    o.Price,
		Status:   o.Status,
		SellerID: sellerID,
	}
}

// MessageSentEvent omits the message body.
type MessageSentEvent struct {
	MessageID  string    `json:"message_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func publish(ctx context.Context, pub EventPublisher, log logger.Logger, subject string, event interface{}) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, subject, event); err != nil {
		log.Warnf("failed to publish %s event: %v", subject, err)
	}
}

package entity

import (
	"fmt"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain"
	"github.com/shopspring/decimal"
)

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "Pending"
	OfferStatusAccepted OfferStatus = "Accepted"
	OfferStatusRejected OfferStatus = "Rejected"
)

type Offer struct {
	ID         string          `json:"id"`
	BuyerID    string          `json:"buyer_id"`
	ItemID     string          `json:"item_id"`
	Price      decimal.Decimal `json:"price"`
	Status     OfferStatus     `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

func NewOffer(buyerID, itemID string, price decimal.Decimal) (*Offer, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: offer price must be a positive number", domain.ErrValidation)
	}
	return &Offer{
		BuyerID:   buyerID,
		ItemID:    itemID,
		Price:     price,
		Status:    OfferStatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// IsResolved is true once the offer was accepted or rejected; resolved
// offers never change again.
func (o *Offer) IsResolved() bool {
	return o.Status != OfferStatusPending
}

package repository

import (
	"context"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
)

type OfferRepository interface {
	Create(ctx context.Context, offer *entity.Offer) (string, error)
	GetByID(ctx context.Context, offerID string) (*entity.Offer, error)
	ListByItem(ctx context.Context, itemID string) ([]entity.Offer, error)
	// Resolve moves a Pending offer to Accepted or Rejected. An offer that is
	// no longer Pending yields ErrOptimisticLock.
	Resolve(ctx context.Context, offerID string, status entity.OfferStatus, resolvedAt time.Time) error
	RejectPendingForItem(ctx context.Context, itemID, exceptOfferID string, resolvedAt time.Time) (int64, error)
	DeleteByItem(ctx context.Context, itemID string) (int64, error)
}

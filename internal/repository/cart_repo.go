package repository

import (
	"context"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
)

type CartRepository interface {
	GetByUserID(ctx context.Context, userID string) (*entity.Cart, error)
	Save(ctx context.Context, cart *entity.Cart, ttl time.Duration) error
	DeleteByUserID(ctx context.Context, userID string) error
}

type WishlistRepository interface {
	// Add is idempotent: it reports false when the entry already existed.
	Add(ctx context.Context, userID, itemID string) (bool, error)
	Remove(ctx context.Context, userID, itemID string) error
	ListByUser(ctx context.Context, userID string) ([]entity.WishlistEntry, error)
	DeleteByItem(ctx context.Context, itemID string) (int64, error)
}

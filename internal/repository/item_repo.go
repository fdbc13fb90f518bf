package repository

import (
	"context"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/shopspring/decimal"
)

type ListItemsParams struct {
	Query    string
	Category entity.Category
	Status   entity.ItemStatus
	SellerID string
}

type UpdateItemParams struct {
	ItemID      string
	Name        string
	Description string
	Category    entity.Category
	Price       decimal.Decimal
	Version     int
}

type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) (string, error)
	GetByID(ctx context.Context, itemID string) (*entity.Item, error)
	// List returns items newest first.
	List(ctx context.Context, params ListItemsParams) ([]entity.Item, error)
	Update(ctx context.Context, params UpdateItemParams) error
	// UpdateStatus moves the item from one status to another only if its
	// current status is from; a mismatch yields ErrOptimisticLock.
	UpdateStatus(ctx context.Context, itemID string, from, to entity.ItemStatus) error
	AddImages(ctx context.Context, itemID string, urls []string) error
	// Delete removes an Available item; any other status yields
	// ErrOptimisticLock.
	Delete(ctx context.Context, itemID string) error
}

type ItemCache interface {
	Get(ctx context.Context, itemID string) (*entity.Item, error)
	Set(ctx context.Context, item *entity.Item, ttl time.Duration) error
	Delete(ctx context.Context, itemID string) error
}

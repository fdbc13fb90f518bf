package repository

import (
	"context"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) (string, error)
	GetByID(ctx context.Context, transactionID string) (*entity.Transaction, error)
	// SetConfirmation raises the flag of the given party on a Pending
	// transaction and returns the updated record.
	SetConfirmation(ctx context.Context, transactionID string, party entity.Party) (*entity.Transaction, error)
	// MarkSold completes a fully confirmed Pending transaction. It matches
	// only while date_completed is unset, so completion happens once.
	MarkSold(ctx context.Context, transactionID string, completedAt time.Time) error
	// HasPendingForItem reports whether a direct purchase of the item is
	// still awaiting confirmation.
	HasPendingForItem(ctx context.Context, itemID string) (bool, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]entity.Transaction, error)
	ListBySeller(ctx context.Context, sellerID string) ([]entity.Transaction, error)
}

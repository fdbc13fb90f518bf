package repository

import (
	"context"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/shopspring/decimal"
)

type UpdateProfileParams struct {
	UserID          string
	Username        *string
	Email           *string
	Bio             *string
	Address         *string
	ProfileImageURL *string
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) (string, error)
	GetByID(ctx context.Context, userID string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	ListByIDs(ctx context.Context, userIDs []string) (map[string]*entity.User, error)
	UpdateProfile(ctx context.Context, params UpdateProfileParams) error
	// Debit subtracts amount only if the balance covers it; otherwise it
	// returns ErrInsufficientBalance and leaves the balance untouched.
	Debit(ctx context.Context, userID string, amount decimal.Decimal) error
	Credit(ctx context.Context, userID string, amount decimal.Decimal) error
}

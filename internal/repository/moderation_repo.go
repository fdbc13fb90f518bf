package repository

import (
	"context"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
)

type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) (string, error)
	GetByID(ctx context.Context, reportID string) (*entity.Report, error)
	List(ctx context.Context, status entity.ReportStatus) ([]entity.Report, error)
	UpdateStatus(ctx context.Context, reportID string, from, to entity.ReportStatus) error
	DeleteByItem(ctx context.Context, itemID string) (int64, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) (string, error)
	ListByItem(ctx context.Context, itemID string) ([]entity.Review, error)
	Summary(ctx context.Context, itemID string) (*entity.RatingSummary, error)
	DeleteByItem(ctx context.Context, itemID string) (int64, error)
}

type UserRatingRepository interface {
	Create(ctx context.Context, rating *entity.UserRating) (string, error)
	ListByRatedUser(ctx context.Context, userID string) ([]entity.UserRating, error)
	Summary(ctx context.Context, userID string) (*entity.RatingSummary, error)
}

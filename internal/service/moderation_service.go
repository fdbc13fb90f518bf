package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain"
	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
)

type ModerationService interface {
	Report(ctx context.Context, reporterID, itemID, reason, description string) (*entity.Report, error)
	Review(ctx context.Context, reviewerID, itemID string, rating int, comment string) (*entity.Review, error)
	// CanModerate is the single capability check for acting on content the
	// user does not own.
	CanModerate(ctx context.Context, userID string) (bool, error)
	ListReviews(ctx context.Context, itemID string) ([]entity.Review, error)
	ItemRating(ctx context.Context, itemID string) (*entity.RatingSummary, error)
	RateUser(ctx context.Context, reviewerID, ratedUserID string, rating int, comment string) (*entity.UserRating, error)
	ListUserRatings(ctx context.Context, userID string) ([]entity.UserRating, error)
	UserRating(ctx context.Context, userID string) (*entity.RatingSummary, error)
	ListReports(ctx context.Context, actorID string, status entity.ReportStatus) ([]entity.Report, error)
	UpdateReportStatus(ctx context.Context, actorID, reportID string, status entity.ReportStatus) (*entity.Report, error)
}

type ModerationDeps struct {
	Reports     repository.ReportRepository
	Reviews     repository.ReviewRepository
	UserRatings repository.UserRatingRepository
	Items       repository.ItemRepository
	Users       repository.UserRepository
	Publisher   EventPublisher
}

type ModerationServiceConfig struct {
	Policy entity.ReportPolicy
}

type moderationService struct {
	reports     repository.ReportRepository
	reviews     repository.ReviewRepository
	userRatings repository.UserRatingRepository
	items       repository.ItemRepository
	users       repository.UserRepository
	publisher   EventPublisher
	policy      entity.ReportPolicy
	log         logger.Logger
}

func NewModerationService(deps ModerationDeps, log logger.Logger, cfg ModerationServiceConfig) ModerationService {
	policy := cfg.Policy
	if policy.MinDescriptionLength <= 0 {
		policy.MinDescriptionLength = entity.DefaultMinReportDescription
	}
	if policy.Denylist == nil {
		policy.Denylist = entity.DefaultReportDenylist
	}
	return &moderationService{
		reports:     deps.Reports,
		reviews:     deps.Reviews,
		userRatings: deps.UserRatings,
		items:       deps.Items,
		users:       deps.Users,
		publisher:   deps.Publisher,
		policy:      policy,
		log:         log.Named("moderation"),
	}
}

func (s *moderationService) Report(ctx context.Context, reporterID, itemID, reason, description string) (*entity.Report, error) {
	report, err := entity.NewReport(itemID, reporterID, reason, description, s.policy)
	if err != nil {
		return nil, err
	}
	if _, err = s.items.GetByID(ctx, itemID); err != nil {
		return nil, translateRepoErr(err, "item "+itemID)
	}

	id, err := s.reports.Create(ctx, report)
	if err != nil {
		return nil, translateRepoErr(err, "create report")
	}
	report.ID = id

	s.log.Infof("item %s reported by %s: %s", itemID, reporterID, reason)
	publish(ctx, s.publisher, s.log, SubjectReportCreated, report)
	return report, nil
}

func (s *moderationService) Review(ctx context.Context, reviewerID, itemID string, rating int, comment string) (*entity.Review, error) {
	review, err := entity.NewReview(reviewerID, itemID, rating, comment)
	if err != nil {
		return nil, err
	}
	if _, err = s.items.GetByID(ctx, itemID); err != nil {
		return nil, translateRepoErr(err, "item "+itemID)
	}

	id, err := s.reviews.Create(ctx, review)
	if err != nil {
		return nil, translateRepoErr(err, "create review")
	}
	review.ID = id
	return review, nil
}

func (s *moderationService) CanModerate(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, translateRepoErr(err, "user "+userID)
	}
	return user.CanModerate(), nil
}

func (s *moderationService) ListReviews(ctx context.Context, itemID string) ([]entity.Review, error) {
	reviews, err := s.reviews.ListByItem(ctx, itemID)
	if err != nil {
		return nil, translateRepoErr(err, "list reviews")
	}
	return reviews, nil
}

func (s *moderationService) ItemRating(ctx context.Context, itemID string) (*entity.RatingSummary, error) {
	summary, err := s.reviews.Summary(ctx, itemID)
	if err != nil {
		return nil, translateRepoErr(err, "item rating")
	}
	return summary, nil
}

func (s *moderationService) RateUser(ctx context.Context, reviewerID, ratedUserID string, rating int, comment string) (*entity.UserRating, error) {
	ur, err := entity.NewUserRating(reviewerID, ratedUserID, rating, comment)
	if err != nil {
		return nil, err
	}
	if _, err = s.users.GetByID(ctx, ratedUserID); err != nil {
		return nil, translateRepoErr(err, "user "+ratedUserID)
	}

	id, err := s.userRatings.Create(ctx, ur)
	if err != nil {
		return nil, translateRepoErr(err, "rate user")
	}
	ur.ID = id
	return ur, nil
}

func (s *moderationService) ListUserRatings(ctx context.Context, userID string) ([]entity.UserRating, error) {
	ratings, err := s.userRatings.ListByRatedUser(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "list user ratings")
	}
	return ratings, nil
}

func (s *moderationService) UserRating(ctx context.Context, userID string) (*entity.RatingSummary, error) {
	summary, err := s.userRatings.Summary(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "user rating")
	}
	return summary, nil
}

func (s *moderationService) ListReports(ctx context.Context, actorID string, status entity.ReportStatus) ([]entity.Report, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown report status %q", domain.ErrValidation, status)
	}
	if err := s.requireModerator(ctx, actorID); err != nil {
		return nil, err
	}
	reports, err := s.reports.List(ctx, status)
	if err != nil {
		return nil, translateRepoErr(err, "list reports")
	}
	return reports, nil
}

func (s *moderationService) UpdateReportStatus(ctx context.Context, actorID, reportID string, status entity.ReportStatus) (*entity.Report, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown report status %q", domain.ErrValidation, status)
	}
	if err := s.requireModerator(ctx, actorID); err != nil {
		return nil, err
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, translateRepoErr(err, "report "+reportID)
	}
	if !report.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: report cannot move from %s to %s", domain.ErrConflict, report.Status, status)
	}
	if err = s.reports.UpdateStatus(ctx, reportID, report.Status, status); err != nil {
		return nil, translateRepoErr(err, "report "+reportID)
	}

	s.log.Infof("report %s moved to %s by %s", reportID, status, actorID)
	report.Status = status
	return report, nil
}

func (s *moderationService) requireModerator(ctx context.Context, actorID string) error {
	ok, err := s.CanModerate(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: moderator role required", domain.ErrPermission)
	}
	return nil
}

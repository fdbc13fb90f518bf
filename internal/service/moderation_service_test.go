package service

import (
	"context"
	"testing"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain"
	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type moderationFixture struct {
	reports     *MockReportRepository
	reviews     *MockReviewRepository
	userRatings *MockUserRatingRepository
	items       *MockItemRepository
	users       *MockUserRepository
	svc         ModerationService
}

func newModerationFixture(policy entity.ReportPolicy) *moderationFixture {
	f := &moderationFixture{
		reports:     new(MockReportRepository),
		reviews:     new(MockReviewRepository),
		userRatings: new(MockUserRatingRepository),
		items:       new(MockItemRepository),
		users:       new(MockUserRepository),
	}
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.svc = NewModerationService(ModerationDeps{
		Reports:     f.reports,
		Reviews:     f.reviews,
		UserRatings: f.userRatings,
		Items:       f.items,
		Users:       f.users,
		Publisher:   pub,
	}, logger.NewNop(), ModerationServiceConfig{Policy: policy})
	return f
}

func (f *moderationFixture) assertExpectations(t *testing.T) {
	f.reports.AssertExpectations(t)
	f.reviews.AssertExpectations(t)
	f.userRatings.AssertExpectations(t)
	f.items.AssertExpectations(t)
	f.users.AssertExpectations(t)
}

func TestModerationService_Report_DescriptionPolicy(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		policy      entity.ReportPolicy
		reason      string
		description string
		wantErr     error
	}{
		{name: "missing reason", reason: " ", wantErr: domain.ErrValidation},
		{name: "too short", reason: "Scam", description: "bad", wantErr: domain.ErrValidation},
		{name: "default denylist", reason: "Scam", description: "this listing is SPAM for sure", wantErr: domain.ErrValidation},
		{
			name:        "configured denylist",
			policy:      entity.ReportPolicy{Denylist: []string{"rubbish"}},
			reason:      "Scam",
			description: "what rubbish is this listing",
			wantErr:     domain.ErrValidation,
		},
		{
			name:        "configured denylist replaces default",
			policy:      entity.ReportPolicy{Denylist: []string{"rubbish"}},
			reason:      "Scam",
			description: "seller posted a fake photo",
		},
		{name: "empty description accepted", reason: "Prohibited item"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newModerationFixture(tt.policy)
			if tt.wantErr == nil {
				f.items.On("GetByID", ctx, "item1").Return(availableItem(40), nil).Once()
				f.reports.On("Create", ctx, mock.AnythingOfType("*entity.Report")).Return("rep1", nil).Once()
			}

			report, err := f.svc.Report(ctx, "buyer1", "item1", tt.reason, tt.description)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				f.reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "rep1", report.ID)
				assert.Equal(t, entity.ReportStatusPending, report.Status)
			}
			f.assertExpectations(t)
		})
	}
}

func TestModerationService_Review(t *testing.T) {
	ctx := context.Background()

	t.Run("rating out of range", func(t *testing.T) {
		f := newModerationFixture(entity.ReportPolicy{})
		_, err := f.svc.Review(ctx, "buyer1", "item1", 6, "great")
		assert.ErrorIs(t, err, domain.ErrValidation)
		f.assertExpectations(t)
	})

	t.Run("unknown item", func(t *testing.T) {
		f := newModerationFixture(entity.ReportPolicy{})
		f.items.On("GetByID", ctx, "nope").Return(nil, repository.ErrNotFound).Once()

		_, err := f.svc.Review(ctx, "buyer1", "nope", 4, "")

		assert.ErrorIs(t, err, domain.ErrNotFound)
		f.assertExpectations(t)
	})

	t.Run("stored", func(t *testing.T) {
		f := newModerationFixture(entity.ReportPolicy{})
		f.items.On("GetByID", ctx, "item1").Return(availableItem(40), nil).Once()
		f.reviews.On("Create", ctx, mock.AnythingOfType("*entity.Review")).Return("rev1", nil).Once()

		review, err := f.svc.Review(ctx, "buyer1", "item1", 5, "as described")

		require.NoError(t, err)
		assert.Equal(t, "rev1", review.ID)
		assert.Equal(t, 5, review.Rating)
		f.assertExpectations(t)
	})
}

func TestModerationService_CanModerate(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(entity.ReportPolicy{})

	admin := &entity.User{ID: "admin1", Role: entity.RoleAdmin}
	customer := &entity.User{ID: "cust1", Role: entity.RoleCustomer}
	f.users.On("GetByID", ctx, "admin1").Return(admin, nil).Once()
	f.users.On("GetByID", ctx, "cust1").Return(customer, nil).Once()
	f.users.On("GetByID", ctx, "ghost").Return(nil, repository.ErrNotFound).Once()

	ok, err := f.svc.CanModerate(ctx, "admin1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.CanModerate(ctx, "cust1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.CanModerate(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
	f.assertExpectations(t)
}

func TestModerationService_ListReports_RequiresModerator(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(entity.ReportPolicy{})
	f.users.On("GetByID", ctx, "cust1").Return(&entity.User{ID: "cust1", Role: entity.RoleCustomer}, nil).Once()

	_, err := f.svc.ListReports(ctx, "cust1", "")

	assert.ErrorIs(t, err, domain.ErrPermission)
	f.reports.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestModerationService_UpdateReportStatus(t *testing.T) {
	ctx := context.Background()
	staff := &entity.User{ID: "staff1", Role: entity.RoleStaff}

	t.Run("resolved is terminal", func(t *testing.T) {
		f := newModerationFixture(entity.ReportPolicy{})
		f.users.On("GetByID", ctx, "staff1").Return(staff, nil).Once()
		f.reports.On("GetByID", ctx, "rep1").Return(&entity.Report{ID: "rep1", Status: entity.ReportStatusResolved}, nil).Once()

		_, err := f.svc.UpdateReportStatus(ctx, "staff1", "rep1", entity.ReportStatusReviewed)

		assert.ErrorIs(t, err, domain.ErrConflict)
		f.assertExpectations(t)
	})

	t.Run("pending to reviewed", func(t *testing.T) {
		f := newModerationFixture(entity.ReportPolicy{})
		f.users.On("GetByID", ctx, "staff1").Return(staff, nil).Once()
		f.reports.On("GetByID", ctx, "rep1").Return(&entity.Report{ID: "rep1", Status: entity.ReportStatusPending}, nil).Once()
		f.reports.On("UpdateStatus", ctx, "rep1", entity.ReportStatusPending, entity.ReportStatusReviewed).Return(nil).Once()

		report, err := f.svc.UpdateReportStatus(ctx, "staff1", "rep1", entity.ReportStatusReviewed)

		require.NoError(t, err)
		assert.Equal(t, entity.ReportStatusReviewed, report.Status)
		f.assertExpectations(t)
	})
}

func TestModerationService_RateUser(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture(entity.ReportPolicy{})
	f.users.On("GetByID", ctx, "seller1").Return(&entity.User{ID: "seller1"}, nil).Once()
	f.userRatings.On("Create", ctx, mock.AnythingOfType("*entity.UserRating")).Return("ur1", nil).Once()
	f.userRatings.On("Summary", ctx, "seller1").Return(&entity.RatingSummary{Average: 4, Count: 1}, nil).Once()

	rating, err := f.svc.RateUser(ctx, "buyer1", "seller1", 4, "quick handover")
	require.NoError(t, err)
	assert.Equal(t, "ur1", rating.ID)

	summary, err := f.svc.UserRating(ctx, "seller1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Count)
	f.assertExpectations(t)
}

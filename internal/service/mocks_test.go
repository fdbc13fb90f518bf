package service

import (
	"context"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID string) (*entity.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) ListByIDs(ctx context.Context, userIDs []string) (map[string]*entity.User, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*entity.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, params repository.UpdateProfileParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockUserRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockUserRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) Create(ctx context.Context, item *entity.Item) (string, error) {
	args := m.Called(ctx, item)
	return args.String(0), args.Error(1)
}

func (m *MockItemRepository) GetByID(ctx context.Context, itemID string) (*entity.Item, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Item), args.Error(1)
}

func (m *MockItemRepository) List(ctx context.Context, params repository.ListItemsParams) ([]entity.Item, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Item), args.Error(1)
}

func (m *MockItemRepository) Update(ctx context.Context, params repository.UpdateItemParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockItemRepository) UpdateStatus(ctx context.Context, itemID string, from, to entity.ItemStatus) error {
	args := m.Called(ctx, itemID, from, to)
	return args.Error(0)
}

func (m *MockItemRepository) AddImages(ctx context.Context, itemID string, urls []string) error {
	args := m.Called(ctx, itemID, urls)
	return args.Error(0)
}

func (m *MockItemRepository) Delete(ctx context.Context, itemID string) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

type MockItemCache struct {
	mock.Mock
}

func (m *MockItemCache) Get(ctx context.Context, itemID string) (*entity.Item, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Item), args.Error(1)
}

func (m *MockItemCache) Set(ctx context.Context, item *entity.Item, ttl time.Duration) error {
	args := m.Called(ctx, item, ttl)
	return args.Error(0)
}

func (m *MockItemCache) Delete(ctx context.Context, itemID string) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *entity.Transaction) (string, error) {
	args := m.Called(ctx, tx)
	return args.String(0), args.Error(1)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, transactionID string) (*entity.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SetConfirmation(ctx context.Context, transactionID string, party entity.Party) (*entity.Transaction, error) {
	args := m.Called(ctx, transactionID, party)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) HasPendingForItem(ctx context.Context, itemID string) (bool, error) {
	args := m.Called(ctx, itemID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) MarkSold(ctx context.Context, transactionID string, completedAt time.Time) error {
	args := m.Called(ctx, transactionID, completedAt)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByBuyer(ctx context.Context, buyerID string) ([]entity.Transaction, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListBySeller(ctx context.Context, sellerID string) ([]entity.Transaction, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Transaction), args.Error(1)
}

type MockOfferRepository struct {
	mock.Mock
}

func (m *MockOfferRepository) Create(ctx context.Context, offer *entity.Offer) (string, error) {
	args := m.Called(ctx, offer)
	return args.String(0), args.Error(1)
}

func (m *MockOfferRepository) GetByID(ctx context.Context, offerID string) (*entity.Offer, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Offer), args.Error(1)
}

func (m *MockOfferRepository) ListByItem(ctx context.Context, itemID string) ([]entity.Offer, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Offer), args.Error(1)
}

func (m *MockOfferRepository) Resolve(ctx context.Context, offerID string, status entity.OfferStatus, resolvedAt time.Time) error {
	args := m.Called(ctx, offerID, status, resolvedAt)
	return args.Error(0)
}

func (m *MockOfferRepository) RejectPendingForItem(ctx context.Context, itemID, exceptOfferID string, resolvedAt time.Time) (int64, error) {
	args := m.Called(ctx, itemID, exceptOfferID, resolvedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOfferRepository) DeleteByItem(ctx context.Context, itemID string) (int64, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(int64), args.Error(1)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *entity.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func (m *MockMessageRepository) Partners(ctx context.Context, userID string) ([]entity.ConversationPartner, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ConversationPartner), args.Error(1)
}

func (m *MockMessageRepository) Thread(ctx context.Context, userA, userB string) ([]entity.Message, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Message), args.Error(1)
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	args := m.Called(ctx, receiverID, senderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepository) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	args := m.Called(ctx, receiverID)
	return args.Get(0).(int64), args.Error(1)
}

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, report *entity.Report) (string, error) {
	args := m.Called(ctx, report)
	return args.String(0), args.Error(1)
}

func (m *MockReportRepository) GetByID(ctx context.Context, reportID string) (*entity.Report, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Report), args.Error(1)
}

func (m *MockReportRepository) List(ctx context.Context, status entity.ReportStatus) ([]entity.Report, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Report), args.Error(1)
}

func (m *MockReportRepository) UpdateStatus(ctx context.Context, reportID string, from, to entity.ReportStatus) error {
	args := m.Called(ctx, reportID, from, to)
	return args.Error(0)
}

func (m *MockReportRepository) DeleteByItem(ctx context.Context, itemID string) (int64, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(int64), args.Error(1)
}

type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *entity.Review) (string, error) {
	args := m.Called(ctx, review)
	return args.String(0), args.Error(1)
}

func (m *MockReviewRepository) ListByItem(ctx context.Context, itemID string) ([]entity.Review, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewRepository) Summary(ctx context.Context, itemID string) (*entity.RatingSummary, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RatingSummary), args.Error(1)
}

func (m *MockReviewRepository) DeleteByItem(ctx context.Context, itemID string) (int64, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserRatingRepository struct {
	mock.Mock
}

func (m *MockUserRatingRepository) Create(ctx context.Context, rating *entity.UserRating) (string, error) {
	args := m.Called(ctx, rating)
	return args.String(0), args.Error(1)
}

func (m *MockUserRatingRepository) ListByRatedUser(ctx context.Context, userID string) ([]entity.UserRating, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.UserRating), args.Error(1)
}

func (m *MockUserRatingRepository) Summary(ctx context.Context, userID string) (*entity.RatingSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RatingSummary), args.Error(1)
}

type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) GetByUserID(ctx context.Context, userID string) (*entity.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Cart), args.Error(1)
}

func (m *MockCartRepository) Save(ctx context.Context, cart *entity.Cart, ttl time.Duration) error {
	args := m.Called(ctx, cart, ttl)
	return args.Error(0)
}

func (m *MockCartRepository) DeleteByUserID(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockWishlistRepository struct {
	mock.Mock
}

func (m *MockWishlistRepository) Add(ctx context.Context, userID, itemID string) (bool, error) {
	args := m.Called(ctx, userID, itemID)
	return args.Bool(0), args.Error(1)
}

func (m *MockWishlistRepository) Remove(ctx context.Context, userID, itemID string) error {
	args := m.Called(ctx, userID, itemID)
	return args.Error(0)
}

func (m *MockWishlistRepository) ListByUser(ctx context.Context, userID string) ([]entity.WishlistEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.WishlistEntry), args.Error(1)
}

func (m *MockWishlistRepository) DeleteByItem(ctx context.Context, itemID string) (int64, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(int64), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, event interface{}) error {
	args := m.Called(ctx, subject, event)
	return args.Error(0)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to []string, subject, bodyHTML, bodyText string) error {
	args := m.Called(ctx, to, subject, bodyHTML, bodyText)
	return args.Error(0)
}

type MockImageStorage struct {
	mock.Mock
}

func (m *MockImageStorage) Upload(ctx context.Context, folder, fileName string, data []byte) (string, error) {
	args := m.Called(ctx, folder, fileName, data)
	return args.String(0), args.Error(1)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(userID string, role entity.Role) (string, error) {
	args := m.Called(userID, role)
	return args.String(0), args.Error(1)
}

// passthroughTx runs fn directly and counts invocations. It stands in for
// the Mongo session based manager.
type passthroughTx struct {
	calls int
}

func (p *passthroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

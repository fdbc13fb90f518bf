package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain"
	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/middleware"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserService struct {
	mock.Mock
	service.UserService
}

func (m *MockUserService) Register(ctx context.Context, username, email, password string) (*entity.User, error) {
	args := m.Called(ctx, username, email, password)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, email, password)
	res, _ := args.Get(0).(*service.LoginResult)
	return res, args.Error(1)
}

type MockCatalogService struct {
	mock.Mock
	service.CatalogService
}

func (m *MockCatalogService) GetItem(ctx context.Context, itemID string) (*entity.Item, error) {
	args := m.Called(ctx, itemID)
	item, _ := args.Get(0).(*entity.Item)
	return item, args.Error(1)
}

func (m *MockCatalogService) CreateItem(ctx context.Context, sellerID string, input service.ItemInput, images []service.ImageUpload) (*entity.Item, error) {
	args := m.Called(ctx, sellerID, input, images)
	item, _ := args.Get(0).(*entity.Item)
	return item, args.Error(1)
}

func (m *MockCatalogService) SetStatus(ctx context.Context, itemID string, next entity.ItemStatus) (*entity.Item, error) {
	args := m.Called(ctx, itemID, next)
	item, _ := args.Get(0).(*entity.Item)
	return item, args.Error(1)
}

type MockSettlementService struct {
	mock.Mock
	service.SettlementService
}

func (m *MockSettlementService) ProcessPurchase(ctx context.Context, buyerID, itemID, address string) (*entity.Transaction, error) {
	args := m.Called(ctx, buyerID, itemID, address)
	tx, _ := args.Get(0).(*entity.Transaction)
	return tx, args.Error(1)
}

func (m *MockSettlementService) Confirm(ctx context.Context, transactionID, actorID string) (*entity.Transaction, error) {
	args := m.Called(ctx, transactionID, actorID)
	tx, _ := args.Get(0).(*entity.Transaction)
	return tx, args.Error(1)
}

func (m *MockSettlementService) MakeOffer(ctx context.Context, buyerID, itemID string, price decimal.Decimal) (*entity.Offer, error) {
	args := m.Called(ctx, buyerID, itemID, price)
	offer, _ := args.Get(0).(*entity.Offer)
	return offer, args.Error(1)
}

func (m *MockSettlementService) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*entity.User, error) {
	args := m.Called(ctx, userID, amount)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

type MockModerationService struct {
	mock.Mock
	service.ModerationService
}

func (m *MockModerationService) CanModerate(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type MockMessagingService struct {
	mock.Mock
	service.MessagingService
}

func (m *MockMessagingService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockCartService struct {
	mock.Mock
	service.CartService
}

func (m *MockCartService) AddToWishlist(ctx context.Context, userID, itemID string) (bool, error) {
	args := m.Called(ctx, userID, itemID)
	return args.Bool(0), args.Error(1)
}

type routerFixture struct {
	handler    http.Handler
	tokens     *middleware.JWTManager
	users      *MockUserService
	catalog    *MockCatalogService
	settlement *MockSettlementService
	moderation *MockModerationService
	messaging  *MockMessagingService
	cart       *MockCartService
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	return newRouterFixtureWithUploadLimit(t, 1<<20)
}

func newRouterFixtureWithUploadLimit(t *testing.T, maxUpload int64) *routerFixture {
	t.Helper()
	tokens, err := middleware.NewJWTManager("test-secret", time.Hour)
	require.NoError(t, err)

	f := &routerFixture{
		tokens:     tokens,
		users:      new(MockUserService),
		catalog:    new(MockCatalogService),
		settlement: new(MockSettlementService),
		moderation: new(MockModerationService),
		messaging:  new(MockMessagingService),
		cart:       new(MockCartService),
	}
	log := logger.NewNop()
	f.handler = NewRouter(Handlers{
		Users:      NewUserHandler(f.users, f.moderation, log, maxUpload),
		Items:      NewItemHandler(f.catalog, f.moderation, log, maxUpload),
		Settlement: NewSettlementHandler(f.settlement, log),
		Messages:   NewMessageHandler(f.messaging, log),
		Moderation: NewModerationHandler(f.moderation, log),
		Cart:       NewCartHandler(f.cart, log),
	}, tokens, nil, log)
	return f
}

func (f *routerFixture) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := f.tokens.Issue(userID, entity.RoleCustomer)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestRouter_Health(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	f := newRouterFixture(t)
	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/me"},
		{http.MethodPost, "/api/items/item1/buy"},
		{http.MethodPost, "/api/wallet/deposit"},
		{http.MethodGet, "/api/messages/unread"},
		{http.MethodGet, "/api/cart"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			rec := f.do(t, p.method, p.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: bad", domain.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: no", domain.ErrPermission), http.StatusForbidden},
		{fmt.Errorf("%w: gone", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: sold", domain.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: poor", domain.ErrInsufficientFunds), http.StatusPaymentRequired},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, statusFor(tc.err), tc.err.Error())
	}
}

func TestRouter_BuyWithBalance(t *testing.T) {
	t.Run("insufficient funds maps to 402", func(t *testing.T) {
		f := newRouterFixture(t)
		f.settlement.On("ProcessPurchase", mock.Anything, "buyer1", "item1", "1 University Avenue").
			Return(nil, fmt.Errorf("%w: balance 50.00 is below price 75.00", domain.ErrInsufficientFunds)).Once()

		rec := f.do(t, http.MethodPost, "/api/items/item1/buy", "buyer1", buyRequest{Address: "1 University Avenue"})

		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.Contains(t, errorBody(t, rec), "balance")
		f.settlement.AssertExpectations(t)
	})

	t.Run("success returns the sold transaction", func(t *testing.T) {
		f := newRouterFixture(t)
		tx := entity.NewCompletedTransaction("buyer1", "seller1", "item1", decimal.NewFromInt(40), entity.SourceBalance, "1 University Avenue")
		tx.ID = "tx1"
		f.settlement.On("ProcessPurchase", mock.Anything, "buyer1", "item1", "1 University Avenue").Return(tx, nil).Once()

		rec := f.do(t, http.MethodPost, "/api/items/item1/buy", "buyer1", buyRequest{Address: "1 University Avenue"})

		require.Equal(t, http.StatusCreated, rec.Code)
		var got entity.Transaction
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "tx1", got.ID)
		assert.Equal(t, entity.TransactionStatusSold, got.Status)
		assert.True(t, got.TotalPrice.Equal(decimal.NewFromInt(40)))
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodPost, "/api/items/item1/buy", "buyer1", `{"address":"x","price":1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.settlement.AssertNotCalled(t, "ProcessPurchase", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty body", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodPost, "/api/items/item1/buy", "buyer1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "request body is empty", errorBody(t, rec))
	})
}

func TestRouter_ConfirmConflict(t *testing.T) {
	f := newRouterFixture(t)
	f.settlement.On("Confirm", mock.Anything, "tx1", "seller1").
		Return(nil, fmt.Errorf("%w: transaction already completed", domain.ErrConflict)).Once()

	rec := f.do(t, http.MethodPost, "/api/transactions/tx1/confirm", "seller1", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	f.settlement.AssertExpectations(t)
}

func TestRouter_DecimalBodies(t *testing.T) {
	t.Run("offer price as string", func(t *testing.T) {
		f := newRouterFixture(t)
		price := mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.RequireFromString("30.50")) })
		f.settlement.On("MakeOffer", mock.Anything, "buyer1", "item1", price).
			Return(&entity.Offer{ID: "offer1", ItemID: "item1", BuyerID: "buyer1", Price: decimal.RequireFromString("30.50")}, nil).Once()

		rec := f.do(t, http.MethodPost, "/api/items/item1/offers", "buyer1", `{"price":"30.50"}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		f.settlement.AssertExpectations(t)
	})

	t.Run("deposit amount as number", func(t *testing.T) {
		f := newRouterFixture(t)
		amount := mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(25)) })
		f.settlement.On("Deposit", mock.Anything, "user1", amount).
			Return(&entity.User{ID: "user1", Balance: decimal.NewFromInt(125)}, nil).Once()

		rec := f.do(t, http.MethodPost, "/api/wallet/deposit", "user1", `{"amount":25}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"balance":"125"}`, rec.Body.String())
	})
}

func TestRouter_InternalErrorsAreMasked(t *testing.T) {
	f := newRouterFixture(t)
	f.catalog.On("GetItem", mock.Anything, "item1").Return(nil, errors.New("mongo: connection reset")).Once()

	rec := f.do(t, http.MethodGet, "/api/items/item1", "", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", errorBody(t, rec))
}

func oversizedImageForm(t *testing.T, field string, size int) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Desk lamp"))
	require.NoError(t, mw.WriteField("category", string(entity.CategoryFurniture)))
	require.NoError(t, mw.WriteField("price", "5"))
	part, err := mw.CreateFormFile(field, "huge.jpg")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0xff}, size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestRouter_UploadsAreCapped(t *testing.T) {
	const limit = 1024

	cases := []struct {
		name  string
		path  string
		field string
	}{
		{name: "create item", path: "/api/items", field: imagesFormField},
		{name: "add images", path: "/api/items/item1/images", field: imagesFormField},
		{name: "avatar", path: "/api/me/avatar", field: avatarFormField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newRouterFixtureWithUploadLimit(t, limit)
			body, contentType := oversizedImageForm(t, tc.field, 4*limit)

			token, err := f.tokens.Issue("seller1", entity.RoleCustomer)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodPost, tc.path, body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
			assert.Contains(t, errorBody(t, rec), "upload exceeds 1024 bytes")
			f.catalog.AssertNotCalled(t, "CreateItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.catalog.AssertNotCalled(t, "AddImages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.users.AssertNotCalled(t, "UploadAvatar", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRouter_SetStatusRequiresModerator(t *testing.T) {
	t.Run("customer is forbidden", func(t *testing.T) {
		f := newRouterFixture(t)
		f.moderation.On("CanModerate", mock.Anything, "user1").Return(false, nil).Once()

		rec := f.do(t, http.MethodPatch, "/api/items/item1/status", "user1", statusRequest{Status: entity.ItemStatusSold})

		assert.Equal(t, http.StatusForbidden, rec.Code)
		f.catalog.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("staff moves the item", func(t *testing.T) {
		f := newRouterFixture(t)
		f.moderation.On("CanModerate", mock.Anything, "staff1").Return(true, nil).Once()
		f.catalog.On("SetStatus", mock.Anything, "item1", entity.ItemStatusSold).
			Return(&entity.Item{ID: "item1", Status: entity.ItemStatusSold}, nil).Once()

		rec := f.do(t, http.MethodPatch, "/api/items/item1/status", "staff1", statusRequest{Status: entity.ItemStatusSold})

		assert.Equal(t, http.StatusOK, rec.Code)
		f.catalog.AssertExpectations(t)
	})
}

func TestRouter_CreateItemMultipart(t *testing.T) {
	f := newRouterFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Calculus"))
	require.NoError(t, mw.WriteField("description", "Second edition"))
	require.NoError(t, mw.WriteField("category", string(entity.CategoryBooks)))
	require.NoError(t, mw.WriteField("price", "12.99"))
	part, err := mw.CreateFormFile(imagesFormField, "cover.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	input := mock.MatchedBy(func(in service.ItemInput) bool {
		return in.Name == "Calculus" && in.Category == entity.CategoryBooks && in.Price.Equal(decimal.RequireFromString("12.99"))
	})
	images := mock.MatchedBy(func(imgs []service.ImageUpload) bool {
		return len(imgs) == 1 && imgs[0].FileName == "cover.jpg" && string(imgs[0].Data) == "jpeg-bytes"
	})
	f.catalog.On("CreateItem", mock.Anything, "seller1", input, images).
		Return(&entity.Item{ID: "item1", Name: "Calculus"}, nil).Once()

	token, err := f.tokens.Issue("seller1", entity.RoleCustomer)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/items", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	f.catalog.AssertExpectations(t)
}

func TestRouter_UnreadCount(t *testing.T) {
	f := newRouterFixture(t)
	f.messaging.On("UnreadCount", mock.Anything, "user1").Return(int64(3), nil).Once()

	rec := f.do(t, http.MethodGet, "/api/messages/unread", "user1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread":3}`, rec.Body.String())
}

func TestRouter_AddToWishlistStatus(t *testing.T) {
	f := newRouterFixture(t)
	f.cart.On("AddToWishlist", mock.Anything, "user1", "item1").Return(true, nil).Once()
	f.cart.On("AddToWishlist", mock.Anything, "user1", "item1").Return(false, nil).Once()

	first := f.do(t, http.MethodPut, "/api/wishlist/item1", "user1", nil)
	second := f.do(t, http.MethodPut, "/api/wishlist/item1", "user1", nil)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
}

func TestRouter_RegisterConflict(t *testing.T) {
	f := newRouterFixture(t)
	f.users.On("Register", mock.Anything, "alice", "1234567A@student.gla.ac.uk", "password123").
		Return(nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)).Once()

	rec := f.do(t, http.MethodPost, "/api/users/register", "", registerRequest{
		Username: "alice",
		Email:    "1234567A@student.gla.ac.uk",
		Password: "password123",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, errorBody(t, rec), "already registered")
}

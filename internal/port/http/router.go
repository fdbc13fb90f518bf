package http

import (
	"net/http"

	"github.com/Shiyikai2002/student-trading-platform/internal/middleware"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Users      *UserHandler
	Items      *ItemHandler
	Settlement *SettlementHandler
	Messages   *MessageHandler
	Moderation *ModerationHandler
	Cart       *CartHandler
}

// NewRouter mounts public routes at the top level and everything that needs
// an identity inside a group guarded by Authenticate.
func NewRouter(h Handlers, tokens middleware.TokenParser, m *metrics.MetricsManager, log logger.Logger) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.RequestLogger(log))
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Tracing())
	mux.Use(middleware.Metrics(m))

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Post("/api/users/register", h.Users.HandleRegister)
	mux.Post("/api/users/login", h.Users.HandleLogin)
	mux.Get("/api/users/{id}/ratings", h.Users.HandleUserRatings)
	mux.Get("/api/categories", h.Items.HandleListCategories)
	mux.Get("/api/items", h.Items.HandleListItems)
	mux.Get("/api/items/{id}", h.Items.HandleGetItem)
	mux.Get("/api/items/{id}/reviews", h.Moderation.HandleListReviews)
	mux.Get("/api/items/{id}/rating", h.Moderation.HandleItemRating)

	mux.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(tokens, log))

		r.Get("/api/me", h.Users.HandleGetMe)
		r.Put("/api/me", h.Users.HandleUpdateMe)
		r.Put("/api/me/address", h.Users.HandleUpdateAddress)
		r.Post("/api/me/avatar", h.Users.HandleUploadAvatar)
		r.Get("/api/me/items", h.Items.HandleMyItems)
		r.Get("/api/me/purchases", h.Settlement.HandlePurchases)
		r.Get("/api/me/sales", h.Settlement.HandleSales)
		r.Post("/api/users/{id}/ratings", h.Users.HandleRateUser)

		r.Post("/api/items", h.Items.HandleCreateItem)
		r.Put("/api/items/{id}", h.Items.HandleUpdateItem)
		r.Delete("/api/items/{id}", h.Items.HandleDeleteItem)
		r.Post("/api/items/{id}/images", h.Items.HandleAddImages)
		r.Patch("/api/items/{id}/status", h.Items.HandleSetStatus)

		r.Post("/api/items/{id}/purchase", h.Settlement.HandleInitiatePurchase)
		r.Post("/api/items/{id}/buy", h.Settlement.HandleBuyWithBalance)
		r.Post("/api/items/{id}/offers", h.Settlement.HandleMakeOffer)
		r.Get("/api/items/{id}/offers", h.Settlement.HandleListOffers)
		r.Post("/api/offers/{id}/accept", h.Settlement.HandleAcceptOffer)
		r.Post("/api/offers/{id}/reject", h.Settlement.HandleRejectOffer)
		r.Post("/api/transactions/{id}/confirm", h.Settlement.HandleConfirm)
		r.Get("/api/transactions/{id}", h.Settlement.HandleGetTransaction)
		r.Post("/api/wallet/deposit", h.Settlement.HandleDeposit)

		r.Post("/api/items/{id}/reports", h.Moderation.HandleReport)
		r.Post("/api/items/{id}/reviews", h.Moderation.HandleReview)
		r.Get("/api/reports", h.Moderation.HandleListReports)
		r.Patch("/api/reports/{id}", h.Moderation.HandleUpdateReport)

		r.Post("/api/messages", h.Messages.HandleSend)
		r.Get("/api/messages/partners", h.Messages.HandlePartners)
		r.Get("/api/messages/unread", h.Messages.HandleUnread)
		r.Get("/api/messages/{userID}", h.Messages.HandleThread)

		r.Get("/api/cart", h.Cart.HandleGetCart)
		r.Post("/api/cart/items/{itemID}", h.Cart.HandleAddToCart)
		r.Delete("/api/cart/items/{itemID}", h.Cart.HandleRemoveFromCart)
		r.Get("/api/wishlist", h.Cart.HandleListWishlist)
		r.Put("/api/wishlist/{itemID}", h.Cart.HandleAddToWishlist)
		r.Delete("/api/wishlist/{itemID}", h.Cart.HandleRemoveFromWishlist)
	})

	return mux
}

package http

import (
	"net/http"

	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/service"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	cart service.CartService
	log  logger.Logger
}

func NewCartHandler(cart service.CartService, log logger.Logger) *CartHandler {
	return &CartHandler{cart: cart, log: log.Named("cart_handler")}
}

func (h *CartHandler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	view, err := h.cart.GetCart(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *CartHandler) HandleAddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	view, err := h.cart.AddToCart(r.Context(), userID, chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *CartHandler) HandleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	view, err := h.cart.RemoveFromCart(r.Context(), userID, chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *CartHandler) HandleListWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	items, err := h.cart.ListWishlist(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleAddToWishlist answers 201 when the item was added and 200 when it
// was already there.
func (h *CartHandler) HandleAddToWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	added, err := h.cart.AddToWishlist(r.Context(), userID, chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]bool{"added": added})
}

func (h *CartHandler) HandleRemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.cart.RemoveFromWishlist(r.Context(), userID, chi.URLParam(r, "itemID")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

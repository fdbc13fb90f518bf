package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain"
	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
	"github.com/shopspring/decimal"
)

// CartLineView is a cart line resolved against the catalog.
type CartLineView struct {
	Item      entity.Item     `json:"item"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Available bool            `json:"available"`
}

type CartView struct {
	UserID string          `json:"user_id"`
	Lines  []CartLineView  `json:"lines"`
	Total  decimal.Decimal `json:"total"`
}

type CartService interface {
	AddToCart(ctx context.Context, userID, itemID string) (*CartView, error)
	RemoveFromCart(ctx context.Context, userID, itemID string) (*CartView, error)
	GetCart(ctx context.Context, userID string) (*CartView, error)
	AddToWishlist(ctx context.Context, userID, itemID string) (bool, error)
	RemoveFromWishlist(ctx context.Context, userID, itemID string) error
	ListWishlist(ctx context.Context, userID string) ([]entity.Item, error)
}

type CartServiceConfig struct {
	CartTTL time.Duration
}

type cartService struct {
	carts    repository.CartRepository
	wishlist repository.WishlistRepository
	catalog  CatalogService
	log      logger.Logger
	cartTTL  time.Duration
}

func NewCartService(
	carts repository.CartRepository,
	wishlist repository.WishlistRepository,
	catalog CatalogService,
	log logger.Logger,
	cfg CartServiceConfig,
) CartService {
	cartTTL := cfg.CartTTL
	if cartTTL <= 0 {
		cartTTL = defaultCartTTL
	}
	return &cartService{
		carts:    carts,
		wishlist: wishlist,
		catalog:  catalog,
		log:      log.Named("cart"),
		cartTTL:  cartTTL,
	}
}

// AddToCart adds one unit of the item; repeated adds bump the quantity.
func (s *cartService) AddToCart(ctx context.Context, userID, itemID string) (*CartView, error) {
	item, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.IsOwnedBy(userID) {
		return nil, fmt.Errorf("%w: you cannot add your own item to the cart", domain.ErrConflict)
	}

	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve cart: %w", err)
	}
	if err = cart.Add(itemID); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err = s.carts.Save(ctx, cart, s.cartTTL); err != nil {
		return nil, fmt.Errorf("could not save cart: %w", err)
	}
	return s.resolve(ctx, cart)
}

func (s *cartService) RemoveFromCart(ctx context.Context, userID, itemID string) (*CartView, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve cart: %w", err)
	}
	if !cart.Remove(itemID) {
		return nil, fmt.Errorf("%w: item %s is not in the cart", domain.ErrNotFound, itemID)
	}
	if err = s.carts.Save(ctx, cart, s.cartTTL); err != nil {
		return nil, fmt.Errorf("could not save cart: %w", err)
	}
	return s.resolve(ctx, cart)
}

func (s *cartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve cart: %w", err)
	}
	return s.resolve(ctx, cart)
}

// resolve prices the cart against the catalog. Lines whose item vanished
// are dropped from the stored cart.
func (s *cartService) resolve(ctx context.Context, cart *entity.Cart) (*CartView, error) {
	view := &CartView{UserID: cart.UserID, Lines: make([]CartLineView, 0, len(cart.Lines)), Total: decimal.Zero}
	var vanished []string

	for _, line := range cart.Lines {
		item, err := s.catalog.GetItem(ctx, line.ItemID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				vanished = append(vanished, line.ItemID)
				continue
			}
			return nil, err
		}
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		available := item.IsAvailable()
		if available {
			view.Total = view.Total.Add(lineTotal)
		}
		view.Lines = append(view.Lines, CartLineView{
			Item:      *item,
			Quantity:  line.Quantity,
			LineTotal: lineTotal,
			Available: available,
		})
	}

	if len(vanished) > 0 {
		for _, id := range vanished {
			cart.Remove(id)
		}
		if err := s.carts.Save(ctx, cart, s.cartTTL); err != nil {
			s.log.Warnf("could not prune cart of %s: %v", cart.UserID, err)
		}
	}
	return view, nil
}

// AddToWishlist is idempotent and reports whether a new entry was created.
func (s *cartService) AddToWishlist(ctx context.Context, userID, itemID string) (bool, error) {
	if _, err := s.catalog.GetItem(ctx, itemID); err != nil {
		return false, err
	}
	created, err := s.wishlist.Add(ctx, userID, itemID)
	if err != nil {
		return false, translateRepoErr(err, "add to wishlist")
	}
	return created, nil
}

func (s *cartService) RemoveFromWishlist(ctx context.Context, userID, itemID string) error {
	if err := s.wishlist.Remove(ctx, userID, itemID); err != nil {
		return translateRepoErr(err, "wishlist entry")
	}
	return nil
}

func (s *cartService) ListWishlist(ctx context.Context, userID string) ([]entity.Item, error) {
	entries, err := s.wishlist.ListByUser(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "list wishlist")
	}
	items := make([]entity.Item, 0, len(entries))
	for _, e := range entries {
		item, err := s.catalog.GetItem(ctx, e.ItemID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain"
	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/metrics"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	defaultItemCacheTTL = 5 * time.Minute
	// Items that can still be sold are cached briefly: a read that loses the
	// race with a settlement's eviction may put the old status back.
	volatileItemCacheTTL = 10 * time.Second
)

type ItemInput struct {
	Name        string
	Description string
	Category    entity.Category
	Price       decimal.Decimal
}

type CatalogService interface {
	ListAvailable(ctx context.Context, query string, category entity.Category) ([]entity.Item, error)
	CreateItem(ctx context.Context, sellerID string, input ItemInput, images []ImageUpload) (*entity.Item, error)
	SetStatus(ctx context.Context, itemID string, next entity.ItemStatus) (*entity.Item, error)
	GetItem(ctx context.Context, itemID string) (*entity.Item, error)
	ListBySeller(ctx context.Context, sellerID string) ([]entity.Item, error)
	UpdateItem(ctx context.Context, actorID, itemID string, input ItemInput) (*entity.Item, error)
	DeleteItem(ctx context.Context, actorID, itemID string) error
	AddImages(ctx context.Context, actorID, itemID string, images []ImageUpload) (*entity.Item, error)
}

type CatalogServiceConfig struct {
	ItemCacheTTL time.Duration
}

type catalogService struct {
	items     repository.ItemRepository
	cache     repository.ItemCache
	users     repository.UserRepository
	offers    repository.OfferRepository
	reports   repository.ReportRepository
	reviews   repository.ReviewRepository
	wishlist  repository.WishlistRepository
	txs       repository.TransactionRepository
	txManager repository.TxManager
	storage   ImageStorage
	publisher EventPublisher
	metrics   *metrics.MetricsManager
	log       logger.Logger
	cacheTTL  time.Duration
}

type CatalogDeps struct {
	Items     repository.ItemRepository
	Cache     repository.ItemCache
	Users     repository.UserRepository
	Offers    repository.OfferRepository
	Reports   repository.ReportRepository
	Reviews   repository.ReviewRepository
	Wishlist     repository.WishlistRepository
	Transactions repository.TransactionRepository
	TxManager    repository.TxManager
	Storage      ImageStorage
	Publisher EventPublisher
	Metrics   *metrics.MetricsManager
}

func NewCatalogService(deps CatalogDeps, log logger.Logger, cfg CatalogServiceConfig) CatalogService {
	ttl := cfg.ItemCacheTTL
	if ttl <= 0 {
		ttl = defaultItemCacheTTL
	}
	return &catalogService{
		items:     deps.Items,
		cache:     deps.Cache,
		users:     deps.Users,
		offers:    deps.Offers,
		reports:   deps.Reports,
		reviews:   deps.Reviews,
		wishlist:  deps.Wishlist,
		txs:       deps.Transactions,
		txManager: deps.TxManager,
		storage:   deps.Storage,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		log:       log.Named("catalog"),
		cacheTTL:  ttl,
	}
}

func (s *catalogService) ListAvailable(ctx context.Context, query string, category entity.Category) ([]entity.Item, error) {
	if category != "" && !category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, category)
	}
	items, err := s.items.List(ctx, repository.ListItemsParams{
		Query:    strings.TrimSpace(query),
		Category: category,
		Status:   entity.ItemStatusAvailable,
	})
	if err != nil {
		return nil, translateRepoErr(err, "list items")
	}
	return items, nil
}

func (s *catalogService) CreateItem(ctx context.Context, sellerID string, input ItemInput, images []ImageUpload) (*entity.Item, error) {
	item, err := entity.NewItem(sellerID, input.Name, input.Description, input.Category, input.Price)
	if err != nil {
		return nil, err
	}

	urls, err := s.uploadImages(ctx, images)
	if err != nil {
		return nil, err
	}
	item.ImageURLs = urls

	id, err := s.items.Create(ctx, item)
	if err != nil {
		return nil, translateRepoErr(err, "create item")
	}
	item.ID = id

	s.log.Infof("item %s listed by seller %s at %s", item.ID, sellerID, item.Price.StringFixed(2))
	s.metrics.IncItemsListed()
	publish(ctx, s.publisher, s.log, SubjectItemCreated, item)
	return item, nil
}

// SetStatus is the moderator override of the state machine. Pending is
// reserved for direct purchases, and an item with an open direct purchase
// is settled through Confirm only.
func (s *catalogService) SetStatus(ctx context.Context, itemID string, next entity.ItemStatus) (*entity.Item, error) {
	if !next.IsValid() {
		return nil, fmt.Errorf("%w: unknown item status %q", domain.ErrValidation, next)
	}
	if next == entity.ItemStatusPending {
		return nil, fmt.Errorf("%w: items become Pending only through a purchase", domain.ErrValidation)
	}
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, translateRepoErr(err, "item "+itemID)
	}
	current := item.Status
	if !current.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: item cannot move from %s to %s", domain.ErrConflict, current, next)
	}

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if current == entity.ItemStatusPending {
			open, err := s.txs.HasPendingForItem(txCtx, itemID)
			if err != nil {
				return err
			}
			if open {
				return errOpenPurchase
			}
		}
		return s.items.UpdateStatus(txCtx, itemID, current, next)
	})
	if errors.Is(err, errOpenPurchase) {
		return nil, fmt.Errorf("%w: item %s has a purchase awaiting confirmation", domain.ErrConflict, itemID)
	}
	if err != nil {
		return nil, translateRepoErr(err, "item "+itemID)
	}
	s.evict(ctx, itemID)

	item.Status = next
	item.Version++
	publish(ctx, s.publisher, s.log, SubjectItemStatusChanged, ItemStatusChangedEvent{
		ItemID: itemID, From: current, To: next, OccurredAt: time.Now().UTC(),
	})
	return item, nil
}

func (s *catalogService) GetItem(ctx context.Context, itemID string) (*entity.Item, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, itemID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warnf("item cache read failed for %s: %v", itemID, err)
		}
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, translateRepoErr(err, "item "+itemID)
	}

	if s.cache != nil {
		if err = s.cache.Set(ctx, item, s.cacheTTLFor(item)); err != nil {
			s.log.Warnf("item cache write failed for %s: %v", itemID, err)
		}
	}
	return item, nil
}

func (s *catalogService) cacheTTLFor(item *entity.Item) time.Duration {
	if item.Status == entity.ItemStatusSold || s.cacheTTL < volatileItemCacheTTL {
		return s.cacheTTL
	}
	return volatileItemCacheTTL
}

func (s *catalogService) ListBySeller(ctx context.Context, sellerID string) ([]entity.Item, error) {
	items, err := s.items.List(ctx, repository.ListItemsParams{SellerID: sellerID})
	if err != nil {
		return nil, translateRepoErr(err, "list seller items")
	}
	return items, nil
}

func (s *catalogService) UpdateItem(ctx context.Context, actorID, itemID string, input ItemInput) (*entity.Item, error) {
	if err := entity.ValidateItemAttributes(input.Name, input.Category, input.Price); err != nil {
		return nil, err
	}
	item, err := s.authorizeItemChange(ctx, actorID, itemID)
	if err != nil {
		return nil, err
	}

	err = s.items.Update(ctx, repository.UpdateItemParams{
		ItemID:      itemID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		Version:     item.Version,
	})
	if err != nil {
		return nil, translateRepoErr(err, "item "+itemID)
	}
	s.evict(ctx, itemID)

	item.Name = strings.TrimSpace(input.Name)
	item.Description = input.Description
	item.Category = input.Category
	item.Price = input.Price
	item.Version++
	item.UpdatedAt = time.Now().UTC()
	return item, nil
}

// DeleteItem removes an Available item together with its offers, reports,
// reviews and wishlist rows. Items that reached Pending or Sold are
// referenced by transactions and stay.
func (s *catalogService) DeleteItem(ctx context.Context, actorID, itemID string) error {
	item, err := s.authorizeItemChange(ctx, actorID, itemID)
	if err != nil {
		return err
	}
	if !item.IsAvailable() {
		return fmt.Errorf("%w: only available items can be deleted", domain.ErrConflict)
	}

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.items.Delete(txCtx, itemID); err != nil {
			return err
		}
		if _, err := s.offers.DeleteByItem(txCtx, itemID); err != nil {
			return err
		}
		if _, err := s.reports.DeleteByItem(txCtx, itemID); err != nil {
			return err
		}
		if _, err := s.reviews.DeleteByItem(txCtx, itemID); err != nil {
			return err
		}
		_, err := s.wishlist.DeleteByItem(txCtx, itemID)
		return err
	})
	if err != nil {
		return translateRepoErr(err, "item "+itemID)
	}
	s.evict(ctx, itemID)
	s.log.Infof("item %s deleted by %s", itemID, actorID)
	return nil
}

func (s *catalogService) AddImages(ctx context.Context, actorID, itemID string, images []ImageUpload) (*entity.Item, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: no images provided", domain.ErrValidation)
	}
	item, err := s.authorizeItemChange(ctx, actorID, itemID)
	if err != nil {
		return nil, err
	}
	urls, err := s.uploadImages(ctx, images)
	if err != nil {
		return nil, err
	}
	if err = s.items.AddImages(ctx, itemID, urls); err != nil {
		return nil, translateRepoErr(err, "item "+itemID)
	}
	s.evict(ctx, itemID)
	item.ImageURLs = append(item.ImageURLs, urls...)
	return item, nil
}

// authorizeItemChange loads the item and checks the actor is its seller or
// a moderator.
func (s *catalogService) authorizeItemChange(ctx context.Context, actorID, itemID string) (*entity.Item, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, translateRepoErr(err, "item "+itemID)
	}
	if item.IsOwnedBy(actorID) {
		return item, nil
	}
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, translateRepoErr(err, "user "+actorID)
	}
	if !actor.CanModerate() {
		return nil, fmt.Errorf("%w: only the seller or a moderator can change this item", domain.ErrPermission)
	}
	return item, nil
}

func (s *catalogService) uploadImages(ctx context.Context, images []ImageUpload) ([]string, error) {
	urls := make([]string, 0, len(images))
	if len(images) == 0 {
		return urls, nil
	}
	if s.storage == nil {
		return nil, errors.New("image storage is not configured")
	}
	for _, img := range images {
		if len(img.Data) == 0 {
			return nil, fmt.Errorf("%w: image %q is empty", domain.ErrValidation, img.FileName)
		}
		url, err := s.storage.Upload(ctx, itemImageFolder, img.FileName, img.Data)
		if err != nil {
			return nil, fmt.Errorf("upload image %q: %w", img.FileName, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *catalogService) evict(ctx context.Context, itemID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, itemID); err != nil {
		s.log.Warnf("item cache eviction failed for %s: %v", itemID, err)
	}
}

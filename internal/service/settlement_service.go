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
	defaultCartTTL    = 7 * 24 * time.Hour
	emailSendTimeout  = 15 * time.Second
	saleEmailTemplate = "Your item %q was sold for %s. Transaction reference: %s."
)

// AcceptedOffer is the outcome of a successful offer acceptance.
type AcceptedOffer struct {
	Offer          *entity.Offer       `json:"offer"`
	Transaction    *entity.Transaction `json:"transaction"`
	RejectedOffers int64               `json:"rejected_offers"`
}

type SettlementService interface {
	InitiatePurchase(ctx context.Context, buyerID, itemID string) (*entity.Transaction, error)
	Confirm(ctx context.Context, transactionID, actorID string) (*entity.Transaction, error)
	ProcessPurchase(ctx context.Context, buyerID, itemID, address string) (*entity.Transaction, error)
	MakeOffer(ctx context.Context, buyerID, itemID string, price decimal.Decimal) (*entity.Offer, error)
	AcceptOffer(ctx context.Context, offerID, actorID string) (*AcceptedOffer, error)
	RejectOffer(ctx context.Context, offerID, actorID string) (*entity.Offer, error)
	ListOffers(ctx context.Context, itemID, actorID string) ([]entity.Offer, error)
	Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*entity.User, error)
	GetTransaction(ctx context.Context, transactionID, actorID string) (*entity.Transaction, error)
	ListPurchases(ctx context.Context, userID string) ([]entity.Transaction, error)
	ListSales(ctx context.Context, userID string) ([]entity.Transaction, error)
}

type SettlementDeps struct {
	Users        repository.UserRepository
	Items        repository.ItemRepository
	Transactions repository.TransactionRepository
	Offers       repository.OfferRepository
	Carts        repository.CartRepository
	Cache        repository.ItemCache
	TxManager    repository.TxManager
	Publisher    EventPublisher
	Email        EmailSender
	Metrics      *metrics.MetricsManager
}

type SettlementServiceConfig struct {
	CartTTL time.Duration
}

type settlementService struct {
	users     repository.UserRepository
	items     repository.ItemRepository
	txs       repository.TransactionRepository
	offers    repository.OfferRepository
	carts     repository.CartRepository
	cache     repository.ItemCache
	txManager repository.TxManager
	publisher EventPublisher
	email     EmailSender
	metrics   *metrics.MetricsManager
	log       logger.Logger
	cartTTL   time.Duration
}

func NewSettlementService(deps SettlementDeps, log logger.Logger, cfg SettlementServiceConfig) SettlementService {
	cartTTL := cfg.CartTTL
	if cartTTL <= 0 {
		cartTTL = defaultCartTTL
	}
	return &settlementService{
		users:     deps.Users,
		items:     deps.Items,
		txs:       deps.Transactions,
		offers:    deps.Offers,
		carts:     deps.Carts,
		cache:     deps.Cache,
		txManager: deps.TxManager,
		publisher: deps.Publisher,
		email:     deps.Email,
		metrics:   deps.Metrics,
		log:       log.Named("settlement"),
		cartTTL:   cartTTL,
	}
}

// InitiatePurchase reserves an Available item for the buyer: in one atomic
// unit the item moves to Pending and a Pending transaction is recorded.
func (s *settlementService) InitiatePurchase(ctx context.Context, buyerID, itemID string) (*entity.Transaction, error) {
	item, err := s.loadPurchasableItem(ctx, buyerID, itemID)
	if err != nil {
		s.metrics.ObserveSettlement(metrics.PathDirect, outcomeOf(err))
		return nil, err
	}

	tx := entity.NewPendingTransaction(buyerID, item.SellerID, item.ID, item.Price)
	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.moveItem(txCtx, item.ID, entity.ItemStatusAvailable, entity.ItemStatusPending); err != nil {
			return err
		}
		id, err := s.txs.Create(txCtx, tx)
		if err != nil {
			return err
		}
		tx.ID = id
		return nil
	})
	if err != nil {
		err = translateRepoErr(err, "initiate purchase")
		s.metrics.ObserveSettlement(metrics.PathDirect, outcomeOf(err))
		return nil, err
	}

	s.evictItem(ctx, item.ID)
	s.log.Infof("transaction %s initiated: buyer %s reserved item %s", tx.ID, buyerID, item.ID)
	publish(ctx, s.publisher, s.log, SubjectTransactionInitiated, tx)
	publish(ctx, s.publisher, s.log, SubjectItemStatusChanged, ItemStatusChangedEvent{
		ItemID: item.ID, From: entity.ItemStatusAvailable, To: entity.ItemStatusPending, OccurredAt: tx.DateInitiated,
	})
	return tx, nil
}

// Confirm records the actor's confirmation. The second confirmation completes
// the sale in the same atomic unit: the transaction becomes Sold with its
// completion date set once, and the item moves Pending to Sold.
func (s *settlementService) Confirm(ctx context.Context, transactionID, actorID string) (*entity.Transaction, error) {
	current, err := s.txs.GetByID(ctx, transactionID)
	if err != nil {
		return nil, translateRepoErr(err, "transaction "+transactionID)
	}
	party := current.PartyOf(actorID)
	if party == entity.PartyNone {
		return nil, fmt.Errorf("%w: only the buyer or the seller can confirm this transaction", domain.ErrPermission)
	}
	if current.IsCompleted() {
		return nil, fmt.Errorf("%w: transaction is already completed", domain.ErrConflict)
	}

	var result *entity.Transaction
	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		updated, err := s.txs.SetConfirmation(txCtx, transactionID, party)
		if err != nil {
			if errors.Is(err, repository.ErrOptimisticLock) {
				return fmt.Errorf("%w: transaction is already completed", domain.ErrConflict)
			}
			return err
		}
		if updated.IsFullyConfirmed() {
			completedAt := time.Now().UTC()
			if err := s.txs.MarkSold(txCtx, transactionID, completedAt); err != nil {
				if errors.Is(err, repository.ErrOptimisticLock) {
					return fmt.Errorf("%w: transaction is already completed", domain.ErrConflict)
				}
				return err
			}
			if err := s.moveItem(txCtx, updated.ItemID, entity.ItemStatusPending, entity.ItemStatusSold); err != nil {
				return err
			}
			updated.Status = entity.TransactionStatusSold
			updated.DateCompleted = &completedAt
		}
		result = updated
		return nil
	})
	if err != nil {
		err = translateRepoErr(err, "confirm transaction")
		s.metrics.ObserveSettlement(metrics.PathDirect, outcomeOf(err))
		return nil, err
	}

	s.log.Infof("transaction %s confirmed by %s (%s)", transactionID, actorID, party)
	if result.IsCompleted() {
		s.metrics.ObserveSettlement(metrics.PathDirect, metrics.OutcomeSuccess)
		s.afterSale(ctx, result, entity.ItemStatusPending)
	}
	return result, nil
}

// ProcessPurchase settles a sale from the buyer's wallet in one atomic unit:
// buyer debited, seller credited, item Available to Sold and a completed
// transaction recorded.
func (s *settlementService) ProcessPurchase(ctx context.Context, buyerID, itemID, address string) (*entity.Transaction, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: a shipping address is required", domain.ErrValidation)
	}
	item, err := s.loadPurchasableItem(ctx, buyerID, itemID)
	if err != nil {
		s.metrics.ObserveSettlement(metrics.PathBalance, outcomeOf(err))
		return nil, err
	}
	if err = s.checkFunds(ctx, buyerID, item.Price); err != nil {
		s.metrics.ObserveSettlement(metrics.PathBalance, outcomeOf(err))
		return nil, err
	}

	tx := entity.NewCompletedTransaction(buyerID, item.SellerID, item.ID, item.Price, entity.SourceBalance, address)
	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.moveItem(txCtx, item.ID, entity.ItemStatusAvailable, entity.ItemStatusSold); err != nil {
			return err
		}
		if err := s.transferFunds(txCtx, buyerID, item.SellerID, item.Price); err != nil {
			return err
		}
		id, err := s.txs.Create(txCtx, tx)
		if err != nil {
			return err
		}
		tx.ID = id
		return nil
	})
	if err != nil {
		err = translateRepoErr(err, "process purchase")
		s.metrics.ObserveSettlement(metrics.PathBalance, outcomeOf(err))
		return nil, err
	}

	s.log.Infof("transaction %s settled from balance: buyer %s paid %s for item %s", tx.ID, buyerID, tx.TotalPrice.StringFixed(2), item.ID)
	s.metrics.ObserveSettlement(metrics.PathBalance, metrics.OutcomeSuccess)
	s.afterSale(ctx, tx, entity.ItemStatusAvailable)
	return tx, nil
}

func (s *settlementService) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*entity.User, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: deposit amount must be a positive number", domain.ErrValidation)
	}
	if err := s.users.Credit(ctx, userID, amount); err != nil {
		return nil, translateRepoErr(err, "user "+userID)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "user "+userID)
	}
	s.log.Infof("user %s deposited %s", userID, amount.StringFixed(2))
	return user, nil
}

func (s *settlementService) GetTransaction(ctx context.Context, transactionID, actorID string) (*entity.Transaction, error) {
	tx, err := s.txs.GetByID(ctx, transactionID)
	if err != nil {
		return nil, translateRepoErr(err, "transaction "+transactionID)
	}
	if tx.PartyOf(actorID) == entity.PartyNone {
		return nil, fmt.Errorf("%w: not a party to this transaction", domain.ErrPermission)
	}
	return tx, nil
}

func (s *settlementService) ListPurchases(ctx context.Context, userID string) ([]entity.Transaction, error) {
	txs, err := s.txs.ListByBuyer(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "list purchases")
	}
	return txs, nil
}

func (s *settlementService) ListSales(ctx context.Context, userID string) ([]entity.Transaction, error) {
	txs, err := s.txs.ListBySeller(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "list sales")
	}
	return txs, nil
}

// loadPurchasableItem returns the item if buyerID may buy it right now.
func (s *settlementService) loadPurchasableItem(ctx context.Context, buyerID, itemID string) (*entity.Item, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, translateRepoErr(err, "item "+itemID)
	}
	if item.IsOwnedBy(buyerID) {
		return nil, fmt.Errorf("%w: you cannot buy your own item", domain.ErrConflict)
	}
	if !item.IsAvailable() {
		return nil, fmt.Errorf("%w: item is %s", domain.ErrConflict, item.Status)
	}
	return item, nil
}

func (s *settlementService) checkFunds(ctx context.Context, buyerID string, amount decimal.Decimal) error {
	buyer, err := s.users.GetByID(ctx, buyerID)
	if err != nil {
		return translateRepoErr(err, "user "+buyerID)
	}
	if !buyer.CanAfford(amount) {
		return fmt.Errorf("%w: balance %s is lower than the price %s",
			domain.ErrInsufficientFunds, buyer.Balance.StringFixed(2), amount.StringFixed(2))
	}
	return nil
}

func (s *settlementService) moveItem(ctx context.Context, itemID string, from, to entity.ItemStatus) error {
	err := s.items.UpdateStatus(ctx, itemID, from, to)
	if errors.Is(err, repository.ErrOptimisticLock) {
		return fmt.Errorf("%w: item is no longer %s", domain.ErrConflict, from)
	}
	return err
}

// transferFunds debits the buyer with a balance guard and credits the
// seller by the same amount.
func (s *settlementService) transferFunds(ctx context.Context, buyerID, sellerID string, amount decimal.Decimal) error {
	if err := s.users.Debit(ctx, buyerID, amount); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return fmt.Errorf("%w: balance is lower than %s", domain.ErrInsufficientFunds, amount.StringFixed(2))
		}
		return err
	}
	return s.users.Credit(ctx, sellerID, amount)
}

// afterSale runs the best-effort follow-ups of a completed sale.
func (s *settlementService) afterSale(ctx context.Context, tx *entity.Transaction, from entity.ItemStatus) {
	s.evictItem(ctx, tx.ItemID)
	publish(ctx, s.publisher, s.log, SubjectTransactionCompleted, tx)
	publish(ctx, s.publisher, s.log, SubjectItemStatusChanged, ItemStatusChangedEvent{
		ItemID: tx.ItemID, From: from, To: entity.ItemStatusSold, OccurredAt: *tx.DateCompleted,
	})
	s.removeFromCart(ctx, tx.BuyerID, tx.ItemID)
	s.notifySeller(ctx, tx)
}

func (s *settlementService) removeFromCart(ctx context.Context, userID, itemID string) {
	if s.carts == nil {
		return
	}
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		s.log.Warnf("could not load cart of %s after purchase: %v", userID, err)
		return
	}
	if !cart.Remove(itemID) {
		return
	}
	if err = s.carts.Save(ctx, cart, s.cartTTL); err != nil {
		s.log.Warnf("could not update cart of %s after purchase: %v", userID, err)
	}
}

func (s *settlementService) notifySeller(ctx context.Context, tx *entity.Transaction) {
	if s.email == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emailSendTimeout)
	defer cancel()

	seller, err := s.users.GetByID(sendCtx, tx.SellerID)
	if err != nil {
		s.log.Warnf("sale notification skipped, seller %s not loaded: %v", tx.SellerID, err)
		return
	}
	itemName := tx.ItemID
	if item, errItem := s.items.GetByID(sendCtx, tx.ItemID); errItem == nil {
		itemName = item.Name
	}

	body := fmt.Sprintf(saleEmailTemplate, itemName, tx.TotalPrice.StringFixed(2), tx.ID)
	if err = s.email.Send(sendCtx, []string{seller.Email}, "Your item has been sold", "", body); err != nil {
		s.log.Warnf("sale notification to %s failed: %v", seller.Email, err)
	}
}

func (s *settlementService) evictItem(ctx context.Context, itemID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, itemID); err != nil {
		s.log.Warnf("item cache eviction failed for %s: %v", itemID, err)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, domain.ErrConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		return metrics.OutcomeInsufficientFunds
	}
	return metrics.OutcomeError
}

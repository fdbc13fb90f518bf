package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain"
	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/metrics"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
	"github.com/shopspring/decimal"
)

func (s *settlementService) MakeOffer(ctx context.Context, buyerID, itemID string, price decimal.Decimal) (*entity.Offer, error) {
	offer, err := entity.NewOffer(buyerID, itemID, price)
	if err != nil {
		return nil, err
	}
	item, err := s.loadPurchasableItem(ctx, buyerID, itemID)
	if err != nil {
		return nil, err
	}

	id, err := s.offers.Create(ctx, offer)
	if err != nil {
		return nil, translateRepoErr(err, "create offer")
	}
	offer.ID = id

	s.log.Infof("offer %s of %s made by %s on item %s", offer.ID, price.StringFixed(2), buyerID, itemID)
	s.metrics.ObserveOffer("created")
	publish(ctx, s.publisher, s.log, SubjectOfferCreated, newOfferEvent(offer, item.SellerID))
	return offer, nil
}

// AcceptOffer sells the item to the offer's buyer at the offered price. The
// offer flip, item status change, fund transfer, rejection of competing
// offers and the transaction record are one atomic unit.
func (s *settlementService) AcceptOffer(ctx context.Context, offerID, actorID string) (*AcceptedOffer, error) {
	offer, item, err := s.loadOfferForSeller(ctx, offerID, actorID)
	if err != nil {
		return nil, err
	}
	if !item.IsAvailable() {
		s.metrics.ObserveSettlement(metrics.PathOffer, metrics.OutcomeConflict)
		return nil, fmt.Errorf("%w: item is %s", domain.ErrConflict, item.Status)
	}

	buyer, err := s.users.GetByID(ctx, offer.BuyerID)
	if err != nil {
		return nil, translateRepoErr(err, "user "+offer.BuyerID)
	}
	if !buyer.CanAfford(offer.Price) {
		s.metrics.ObserveSettlement(metrics.PathOffer, metrics.OutcomeInsufficientFunds)
		return nil, fmt.Errorf("%w: buyer balance does not cover the offer of %s",
			domain.ErrInsufficientFunds, offer.Price.StringFixed(2))
	}

	tx := entity.NewCompletedTransaction(offer.BuyerID, item.SellerID, item.ID, offer.Price, entity.SourceOffer, buyer.Address)
	resolvedAt := *tx.DateCompleted
	var rejected int64

	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.offers.Resolve(txCtx, offer.ID, entity.OfferStatusAccepted, resolvedAt); err != nil {
			if errors.Is(err, repository.ErrOptimisticLock) {
				return fmt.Errorf("%w: offer was already resolved", domain.ErrConflict)
			}
			return err
		}
		if err := s.moveItem(txCtx, item.ID, entity.ItemStatusAvailable, entity.ItemStatusSold); err != nil {
			return err
		}
		if err := s.transferFunds(txCtx, offer.BuyerID, item.SellerID, offer.Price); err != nil {
			return err
		}
		n, err := s.offers.RejectPendingForItem(txCtx, item.ID, offer.ID, resolvedAt)
		if err != nil {
			return err
		}
		rejected = n
		id, err := s.txs.Create(txCtx, tx)
		if err != nil {
			return err
		}
		tx.ID = id
		return nil
	})
	if err != nil {
		err = translateRepoErr(err, "accept offer")
		s.metrics.ObserveSettlement(metrics.PathOffer, outcomeOf(err))
		return nil, err
	}

	offer.Status = entity.OfferStatusAccepted
	offer.ResolvedAt = &resolvedAt

	s.log.Infof("offer %s accepted: item %s sold to %s for %s (%d competing offers rejected)",
		offer.ID, item.ID, offer.BuyerID, offer.Price.StringFixed(2), rejected)
	s.metrics.ObserveSettlement(metrics.PathOffer, metrics.OutcomeSuccess)
	s.metrics.ObserveOffer("accepted")
	publish(ctx, s.publisher, s.log, SubjectOfferAccepted, newOfferEvent(offer, item.SellerID))
	s.afterSale(ctx, tx, entity.ItemStatusAvailable)

	return &AcceptedOffer{Offer: offer, Transaction: tx, RejectedOffers: rejected}, nil
}

func (s *settlementService) RejectOffer(ctx context.Context, offerID, actorID string) (*entity.Offer, error) {
	offer, item, err := s.loadOfferForSeller(ctx, offerID, actorID)
	if err != nil {
		return nil, err
	}

	resolvedAt := time.Now().UTC()
	if err = s.offers.Resolve(ctx, offer.ID, entity.OfferStatusRejected, resolvedAt); err != nil {
		if errors.Is(err, repository.ErrOptimisticLock) {
			return nil, fmt.Errorf("%w: offer was already resolved", domain.ErrConflict)
		}
		return nil, translateRepoErr(err, "offer "+offerID)
	}
	offer.Status = entity.OfferStatusRejected
	offer.ResolvedAt = &resolvedAt

	s.metrics.ObserveOffer("rejected")
	publish(ctx, s.publisher, s.log, SubjectOfferRejected, newOfferEvent(offer, item.SellerID))
	return offer, nil
}

func (s *settlementService) ListOffers(ctx context.Context, itemID, actorID string) ([]entity.Offer, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, translateRepoErr(err, "item "+itemID)
	}
	if !item.IsOwnedBy(actorID) {
		return nil, fmt.Errorf("%w: only the seller can view offers on this item", domain.ErrPermission)
	}
	offers, err := s.offers.ListByItem(ctx, itemID)
	if err != nil {
		return nil, translateRepoErr(err, "list offers")
	}
	return offers, nil
}

// loadOfferForSeller loads a Pending offer and its item, checking that the
// actor sells the item.
func (s *settlementService) loadOfferForSeller(ctx context.Context, offerID, actorID string) (*entity.Offer, *entity.Item, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, nil, translateRepoErr(err, "offer "+offerID)
	}
	item, err := s.items.GetByID(ctx, offer.ItemID)
	if err != nil {
		return nil, nil, translateRepoErr(err, "item "+offer.ItemID)
	}
	if !item.IsOwnedBy(actorID) {
		return nil, nil, fmt.Errorf("%w: only the seller can respond to this offer", domain.ErrPermission)
	}
	if offer.IsResolved() {
		return nil, nil, fmt.Errorf("%w: offer is already %s", domain.ErrConflict, offer.Status)
	}
	return offer, item, nil
}

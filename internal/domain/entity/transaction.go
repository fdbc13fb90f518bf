package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "Pending"
	TransactionStatusSold    TransactionStatus = "Sold"
)

// TransactionSource records which settlement path produced the transaction.
type TransactionSource string

const (
	SourceDirect  TransactionSource = "direct"
	SourceBalance TransactionSource = "balance"
	SourceOffer   TransactionSource = "offer"
)

type Party string

const (
	PartyNone   Party = ""
	PartyBuyer  Party = "buyer"
	PartySeller Party = "seller"
)

type Transaction struct {
	ID                 string            `json:"id"`
	BuyerID            string            `json:"buyer_id"`
	SellerID           string            `json:"seller_id"`
	ItemID             string            `json:"item_id"`
	TotalPrice         decimal.Decimal   `json:"total_price"`
	Status             TransactionStatus `json:"status"`
	BuyerConfirmation  bool              `json:"buyer_confirmation"`
	SellerConfirmation bool              `json:"seller_confirmation"`
	ShippingAddress    string            `json:"shipping_address,omitempty"`
	Source             TransactionSource `json:"source"`
	DateInitiated      time.Time         `json:"date_initiated"`
	DateCompleted      *time.Time        `json:"date_completed,omitempty"`
}

func NewPendingTransaction(buyerID, sellerID, itemID string, price decimal.Decimal) *Transaction {
	return &Transaction{
		BuyerID:       buyerID,
		SellerID:      sellerID,
		ItemID:        itemID,
		TotalPrice:    price,
		Status:        TransactionStatusPending,
		Source:        SourceDirect,
		DateInitiated: time.Now().UTC(),
	}
}

// NewCompletedTransaction builds the record for a sale that settles in one
// step, so both parties are treated as having confirmed.
func NewCompletedTransaction(buyerID, sellerID, itemID string, price decimal.Decimal, source TransactionSource, address string) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		BuyerID:            buyerID,
		SellerID:           sellerID,
		ItemID:             itemID,
		TotalPrice:         price,
		Status:             TransactionStatusSold,
		BuyerConfirmation:  true,
		SellerConfirmation: true,
		ShippingAddress:    address,
		Source:             source,
		DateInitiated:      now,
		DateCompleted:      &now,
	}
}

func (t *Transaction) PartyOf(userID string) Party {
	switch {
	case userID == "":
		return PartyNone
	case userID == t.BuyerID:
		return PartyBuyer
	case userID == t.SellerID:
		return PartySeller
	}
	return PartyNone
}

func (t *Transaction) IsFullyConfirmed() bool {
	return t.BuyerConfirmation && t.SellerConfirmation
}

func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusSold
}

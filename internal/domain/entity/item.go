package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain"
	"github.com/shopspring/decimal"
)

type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "Available"
	ItemStatusPending   ItemStatus = "Pending"
	ItemStatusSold      ItemStatus = "Sold"
)

var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusAvailable: {ItemStatusPending, ItemStatusSold},
	ItemStatusPending:   {ItemStatusSold},
	ItemStatusSold:      {},
}

func (s ItemStatus) IsValid() bool {
	_, ok := itemTransitions[s]
	return ok
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Sold is terminal.
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	for _, allowed := range itemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Category string

const (
	CategoryBooks       Category = "Books"
	CategoryElectronics Category = "Electronics"
	CategoryClothing    Category = "Clothing"
	CategoryFurniture   Category = "Furniture"
	CategoryOthers      Category = "Others"
)

func Categories() []Category {
	return []Category{CategoryBooks, CategoryElectronics, CategoryClothing, CategoryFurniture, CategoryOthers}
}

func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Status      ItemStatus      `json:"status"`
	SellerID    string          `json:"seller_id"`
	ImageURLs   []string        `json:"image_urls"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

func NewItem(sellerID, name, description string, category Category, price decimal.Decimal) (*Item, error) {
	if sellerID == "" {
		return nil, fmt.Errorf("%w: seller is required", domain.ErrValidation)
	}
	if err := ValidateItemAttributes(name, category, price); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Item{
		Name:        strings.TrimSpace(name),
		Description: description,
		Category:    category,
		Price:       price,
		Status:      ItemStatusAvailable,
		SellerID:    sellerID,
		ImageURLs:   make([]string, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}, nil
}

func ValidateItemAttributes(name string, category Category, price decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: item name cannot be empty", domain.ErrValidation)
	}
	if !category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", domain.ErrValidation, category)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be a positive number", domain.ErrValidation)
	}
	return nil
}

func (i *Item) IsAvailable() bool {
	return i.Status == ItemStatusAvailable
}

func (i *Item) IsOwnedBy(userID string) bool {
	return userID != "" && i.SellerID == userID
}

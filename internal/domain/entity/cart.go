package entity

import (
	"errors"
	"time"
)

type CartLine struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type Cart struct {
	UserID    string     `json:"user_id"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewCart(userID string) *Cart {
	return &Cart{
		UserID:    userID,
		Lines:     make([]CartLine, 0),
		UpdatedAt: time.Now().UTC(),
	}
}

func (c *Cart) Line(itemID string) (*CartLine, int) {
	for i, line := range c.Lines {
		if line.ItemID == itemID {
			return &c.Lines[i], i
		}
	}
	return nil, -1
}

// Add puts one unit of the item in the cart, or bumps the quantity when the
// item is already there.
func (c *Cart) Add(itemID string) error {
	if itemID == "" {
		return errors.New("item ID cannot be empty for cart line")
	}
	if line, _ := c.Line(itemID); line != nil {
		line.Quantity++
	} else {
		c.Lines = append(c.Lines, CartLine{ItemID: itemID, Quantity: 1})
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (c *Cart) Remove(itemID string) bool {
	_, index := c.Line(itemID)
	if index == -1 {
		return false
	}
	c.Lines = append(c.Lines[:index], c.Lines[index+1:]...)
	c.UpdatedAt = time.Now().UTC()
	return true
}

func (c *Cart) Clear() {
	c.Lines = make([]CartLine, 0)
	c.UpdatedAt = time.Now().UTC()
}

type WishlistEntry struct {
	UserID  string    `json:"user_id"`
	ItemID  string    `json:"item_id"`
	AddedAt time.Time `json:"added_at"`
}

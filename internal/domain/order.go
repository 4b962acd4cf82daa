package domain

import (
	"time"

	"github.com/google/uuid"
)

// Side indicates whether an order buys or sells the base asset.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Order is a limit order entering or resting on the book. Price and
// Quantity are positive integers in the pair's smallest units. Once on
// the book only RemainingQuantity changes, decremented by fills.
type Order struct {
	ID                uuid.UUID
	AccountID         uint64
	Side              Side
	Price             int64
	Quantity          int64
	RemainingQuantity int64
	Sequence          uint64 // arrival order, FIFO tie-break within a price level
	CreatedAt         time.Time
}

// NewOrder validates side, price, and quantity and builds an order with
// a fresh id and full remaining quantity. The admission sequence is
// assigned later, when the exchange accepts the order.
func NewOrder(accountID uint64, side Side, price, qty int64) (*Order, error) {
	if side != SideBuy && side != SideSell {
		return nil, &ValidationError{Message: "side must be buy or sell"}
	}
	if price <= 0 {
		return nil, &ValidationError{Message: "price must be positive"}
	}
	if qty <= 0 {
		return nil, &ValidationError{Message: "quantity must be positive"}
	}
	return &Order{
		ID:                uuid.New(),
		AccountID:         accountID,
		Side:              side,
		Price:             price,
		Quantity:          qty,
		RemainingQuantity: qty,
		CreatedAt:         time.Now(),
	}, nil
}

// Filled reports whether the order has no remaining quantity.
func (o *Order) Filled() bool {
	return o.RemainingQuantity == 0
}

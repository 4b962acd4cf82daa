package domain

import "github.com/google/uuid"

// Trade is a matched execution between a resting (maker) order and an
// incoming (taker) order. Price is always the maker's resting price.
// Trades carry order ids only; settlement resolves them to accounts
// through the ledger's order directory.
type Trade struct {
	MakerOrderID uuid.UUID
	TakerOrderID uuid.UUID
	Price        int64
	Quantity     int64
}

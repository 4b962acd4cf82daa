package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tradecore/pairex/internal/domain"
	"github.com/tradecore/pairex/internal/ledger"
)

// Exchange wires the admission gate, the book, and settlement into the
// per-order control flow: validate, reserve, register, match, settle.
// It is safe for concurrent use; the book serializes matching passes
// and the ledger linearizes balance updates per key.
type Exchange struct {
	ledger  *ledger.Ledger
	book    *OrderBook
	settler *Settler
	seq     atomic.Uint64
	log     zerolog.Logger
}

// NewExchange creates an Exchange over the given ledger and book.
func NewExchange(l *ledger.Ledger, book *OrderBook, settler *Settler, log zerolog.Logger) *Exchange {
	return &Exchange{
		ledger:  l,
		book:    book,
		settler: settler,
		log:     log,
	}
}

// PlaceOrder admits a limit order and runs it through the engine. It
// returns the admitted order and the trades it produced, possibly none.
//
// A *domain.ValidationError means the order was malformed and nothing
// changed. domain.ErrInsufficientBalance means the reservation was
// refused and nothing changed. A wrapped domain.ErrUnknownOrder from
// settlement means ledger and book state have diverged; the caller must
// treat it as fatal.
func (e *Exchange) PlaceOrder(accountID uint64, side domain.Side, price, qty int64) (*domain.Order, []domain.Trade, error) {
	o, err := domain.NewOrder(accountID, side, price, qty)
	if err != nil {
		return nil, nil, err
	}

	if !e.ledger.TryPlaceOrder(accountID, side, price, qty) {
		return nil, nil, domain.ErrInsufficientBalance
	}

	o.Sequence = e.seq.Add(1)
	e.ledger.RegisterOrder(o)

	// The matching pass captures its full trade sequence under the book
	// lock; settlement then runs outside it.
	res := e.book.InsertOrder(o)

	if err := e.settler.Settle(res); err != nil {
		return nil, nil, fmt.Errorf("settle order %s: %w", o.ID, err)
	}

	e.log.Debug().
		Str("order_id", o.ID.String()).
		Uint64("account", accountID).
		Str("side", string(side)).
		Int64("price", price).
		Int64("qty", qty).
		Int("trades", len(res.Trades)).
		Int64("remaining", res.TakerRemaining).
		Msg("order placed")

	return o, res.Trades, nil
}

// Book exposes the underlying order book for depth observers.
func (e *Exchange) Book() *OrderBook {
	return e.book
}

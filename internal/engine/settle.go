package engine

import (
	"fmt"

	"github.com/tradecore/pairex/internal/domain"
	"github.com/tradecore/pairex/internal/ledger"
	"github.com/tradecore/pairex/internal/tape"
)

// Settler is the settlement coordinator: it maps the anonymous trades
// from a matching pass back to accounts through the ledger's order
// directory and moves reserved funds to the counterparties. It runs
// after the book lock is released, so every order a trade references
// must still be registered; deregistration of fully filled orders
// happens here, only after all their trades are settled.
type Settler struct {
	ledger *ledger.Ledger
	tape   *tape.Tape
}

// NewSettler creates a Settler writing settled trades to the tape.
func NewSettler(l *ledger.Ledger, tp *tape.Tape) *Settler {
	return &Settler{ledger: l, tape: tp}
}

// Settle settles every trade in the result exactly once, then
// deregisters the orders that left the book. Deregistration is
// deferred by the directory while other passes still have settlements
// pending against an order, so a delayed Settle always resolves. A
// directory miss is a consistency failure — funds would be credited to
// nobody — so it is returned as a wrapped domain.ErrUnknownOrder and
// nothing after the offending trade is settled.
func (s *Settler) Settle(res MatchResult) error {
	pair := s.ledger.Pair()

	for _, tr := range res.Trades {
		maker, ok := s.ledger.LookupOrder(tr.MakerOrderID)
		if !ok {
			return fmt.Errorf("resolve maker %s: %w", tr.MakerOrderID, domain.ErrUnknownOrder)
		}
		taker, ok := s.ledger.LookupOrder(tr.TakerOrderID)
		if !ok {
			return fmt.Errorf("resolve taker %s: %w", tr.TakerOrderID, domain.ErrUnknownOrder)
		}

		buyer, seller := taker, maker
		if taker.Side == domain.SideSell {
			buyer, seller = maker, taker
		}

		s.ledger.SettleTrade(buyer.AccountID, seller.AccountID, tr.Price, tr.Quantity)

		// A buyer that crossed at a better price reserved more quote
		// than the trade consumed; return the unspent part so reserved
		// funds always equal what live orders can still fill.
		if excess := (buyer.Price - tr.Price) * tr.Quantity; excess > 0 {
			s.ledger.Credit(buyer.AccountID, pair.Quote, excess)
		}

		s.tape.Append(tr)

		s.ledger.FinishSettlement(tr.MakerOrderID)
		s.ledger.FinishSettlement(tr.TakerOrderID)
	}

	for _, id := range res.Closed {
		s.ledger.DeregisterOrder(id)
	}
	return nil
}

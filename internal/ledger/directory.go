package ledger

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tradecore/pairex/internal/domain"
)

// OrderRef is the directory's snapshot of a live order: enough to
// resolve an anonymous trade back to an account, pick the buyer, and
// refund a buyer's unspent reservation on price improvement.
type OrderRef struct {
	AccountID uint64
	Side      domain.Side
	Price     int64
}

// dirEntry tracks one registered order. pending counts trades emitted
// against the order whose settlement has not finished yet; closed
// records that the order left the book. The entry is removed only when
// both the order is closed and nothing is pending, so a settlement
// delayed past a later matching pass can still resolve the order.
type dirEntry struct {
	ref     OrderRef
	pending int
	closed  bool
}

// directory maps live order ids to their owning account and side.
// Entries are added at admission and removed once the order has left
// the book fully filled and every trade referencing it is settled.
type directory struct {
	mu   sync.RWMutex
	refs map[uuid.UUID]*dirEntry
}

func newDirectory() *directory {
	return &directory{
		refs: make(map[uuid.UUID]*dirEntry),
	}
}

// RegisterOrder records the order in the directory. It must be called
// at admission, after the reservation succeeds and before the order
// enters the book, or settlement resolution will miss the order.
func (l *Ledger) RegisterOrder(o *domain.Order) {
	l.dir.mu.Lock()
	defer l.dir.mu.Unlock()
	l.dir.refs[o.ID] = &dirEntry{
		ref: OrderRef{AccountID: o.AccountID, Side: o.Side, Price: o.Price},
	}
}

// BeginSettlement records that a trade referencing the order was
// emitted and will settle after the book lock is released. It must be
// called while that lock is still held, so no later pass can
// deregister the order before this one's settlement resolves it.
func (l *Ledger) BeginSettlement(id uuid.UUID) {
	l.dir.mu.Lock()
	defer l.dir.mu.Unlock()
	if e, ok := l.dir.refs[id]; ok {
		e.pending++
	}
}

// FinishSettlement marks one settled trade against the order and
// removes the entry once the order is closed with nothing pending.
func (l *Ledger) FinishSettlement(id uuid.UUID) {
	l.dir.mu.Lock()
	defer l.dir.mu.Unlock()
	e, ok := l.dir.refs[id]
	if !ok {
		return
	}
	if e.pending > 0 {
		e.pending--
	}
	if e.closed && e.pending == 0 {
		delete(l.dir.refs, id)
	}
}

// DeregisterOrder marks a fully filled order as having left the book.
// The entry is removed immediately when no settlements are pending;
// otherwise it stays resolvable until the last FinishSettlement.
func (l *Ledger) DeregisterOrder(id uuid.UUID) {
	l.dir.mu.Lock()
	defer l.dir.mu.Unlock()
	e, ok := l.dir.refs[id]
	if !ok {
		return
	}
	e.closed = true
	if e.pending == 0 {
		delete(l.dir.refs, id)
	}
}

// LookupOrder resolves an order id to its directory snapshot. A miss
// during settlement means ledger and book state have diverged; callers
// must surface it, never skip the trade.
func (l *Ledger) LookupOrder(id uuid.UUID) (OrderRef, bool) {
	l.dir.mu.RLock()
	defer l.dir.mu.RUnlock()
	e, ok := l.dir.refs[id]
	if !ok {
		return OrderRef{}, false
	}
	return e.ref, true
}

// LiveOrders returns the number of orders currently registered.
func (l *Ledger) LiveOrders() int {
	l.dir.mu.RLock()
	defer l.dir.mu.RUnlock()
	return len(l.dir.refs)
}

package engine

import (
	"sync"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/tradecore/pairex/internal/domain"
)

// priceLevel holds the FIFO queue of orders resting at one price.
// Levels are created on first insertion and deleted when the queue
// empties.
type priceLevel struct {
	price  int64
	orders []*domain.Order
}

// bidLevelLess orders the bid side price descending, so Min() returns
// the best (highest) bid level.
func bidLevelLess(a, b *priceLevel) bool {
	return a.price > b.price
}

// askLevelLess orders the ask side price ascending, so Min() returns
// the best (lowest) ask level.
func askLevelLess(a, b *priceLevel) bool {
	return a.price < b.price
}

// SettlementRegistry records, while the book lock is still held, that
// an emitted trade will settle against an order after the lock is
// released. It keeps the order resolvable until every such settlement
// finishes, even if a later matching pass closes the order first.
type SettlementRegistry interface {
	BeginSettlement(id uuid.UUID)
}

// MatchResult is everything one InsertOrder call produced, captured
// while the book lock was held. Closed lists the ids of orders that
// left the book fully filled (including the taker when it never
// rested); they stay in the order directory until the coordinator has
// settled every trade, then get deregistered. TakerRemaining is the
// incoming order's remaining quantity when the pass ended — read it
// instead of the order itself, which later passes mutate under the
// lock once it rests.
type MatchResult struct {
	Trades         []domain.Trade
	Closed         []uuid.UUID
	TakerRemaining int64
}

// Level is one aggregated price level of book depth.
type Level struct {
	Price         int64
	OrderCount    int
	TotalQuantity int64
}

// OrderBook is the single shared book for the pair: bids ordered by
// descending price priority, asks ascending, FIFO within a level. One
// exclusive lock guards the whole structure; each InsertOrder call runs
// its entire matching loop inside that lock and never blocks on
// anything else while holding it.
type OrderBook struct {
	mu       sync.Mutex
	bids     *btree.BTreeG[*priceLevel]
	asks     *btree.BTreeG[*priceLevel]
	registry SettlementRegistry
}

// NewOrderBook creates an empty order book. reg may be nil when no
// settlement runs against the book's trades.
func NewOrderBook(reg SettlementRegistry) *OrderBook {
	const degree = 32
	return &OrderBook{
		bids:     btree.NewG(degree, bidLevelLess),
		asks:     btree.NewG(degree, askLevelLess),
		registry: reg,
	}
}

// InsertOrder runs continuous matching for the incoming order: while it
// crosses the best opposite level, fill against the oldest resting
// order there at the resting order's price. Any unfilled remainder is
// appended to the tail of its own price level. The returned MatchResult
// must be settled by the caller after this method returns, outside the
// book lock.
func (b *OrderBook) InsertOrder(o *domain.Order) MatchResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	var res MatchResult

	opposite := b.asks
	crosses := func(best int64) bool { return o.Price >= best }
	if o.Side == domain.SideSell {
		opposite = b.bids
		crosses = func(best int64) bool { return o.Price <= best }
	}

	for o.RemainingQuantity > 0 {
		level, ok := opposite.Min()
		if !ok || !crosses(level.price) {
			break
		}

		maker := level.orders[0]

		fill := maker.RemainingQuantity
		if o.RemainingQuantity < fill {
			fill = o.RemainingQuantity
		}

		// Execution price is always the maker's resting price; a taker
		// crossing a better price gets the improvement.
		res.Trades = append(res.Trades, domain.Trade{
			MakerOrderID: maker.ID,
			TakerOrderID: o.ID,
			Price:        maker.Price,
			Quantity:     fill,
		})
		if b.registry != nil {
			b.registry.BeginSettlement(maker.ID)
			b.registry.BeginSettlement(o.ID)
		}

		maker.RemainingQuantity -= fill
		o.RemainingQuantity -= fill

		if maker.Filled() {
			level.orders = level.orders[1:]
			res.Closed = append(res.Closed, maker.ID)
		}
		if len(level.orders) == 0 {
			opposite.Delete(level)
		}
	}

	if o.RemainingQuantity > 0 {
		b.rest(o)
	} else {
		res.Closed = append(res.Closed, o.ID)
	}
	res.TakerRemaining = o.RemainingQuantity

	return res
}

// rest appends the order to the tail of its side's price level,
// creating the level if absent. Caller holds b.mu.
func (b *OrderBook) rest(o *domain.Order) {
	tree := b.bids
	if o.Side == domain.SideSell {
		tree = b.asks
	}

	probe := &priceLevel{price: o.Price}
	level, ok := tree.Get(probe)
	if !ok {
		level = probe
		tree.ReplaceOrInsert(level)
	}
	level.orders = append(level.orders, o)
}

// BestBid returns the highest resting bid price.
func (b *OrderBook) BestBid() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	level, ok := b.bids.Min()
	if !ok {
		return 0, false
	}
	return level.price, true
}

// BestAsk returns the lowest resting ask price.
func (b *OrderBook) BestAsk() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	level, ok := b.asks.Min()
	if !ok {
		return 0, false
	}
	return level.price, true
}

// Depth returns up to n aggregated price levels per side: bids by
// price descending, asks ascending.
func (b *OrderBook) Depth(n int) (bids, asks []Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return topLevels(b.bids, n), topLevels(b.asks, n)
}

// topLevels walks the tree in priority order and aggregates the first
// n levels. Caller holds b.mu.
func topLevels(tree *btree.BTreeG[*priceLevel], n int) []Level {
	if n <= 0 {
		return nil
	}
	levels := make([]Level, 0, n)
	tree.Ascend(func(pl *priceLevel) bool {
		var qty int64
		for _, o := range pl.orders {
			qty += o.RemainingQuantity
		}
		levels = append(levels, Level{
			Price:         pl.price,
			OrderCount:    len(pl.orders),
			TotalQuantity: qty,
		})
		return len(levels) < n
	})
	return levels
}

// RestingQuantity sums the remaining quantity on one side of the book.
func (b *OrderBook) RestingQuantity(side domain.Side) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	tree := b.bids
	if side == domain.SideSell {
		tree = b.asks
	}
	var qty int64
	tree.Ascend(func(pl *priceLevel) bool {
		for _, o := range pl.orders {
			qty += o.RemainingQuantity
		}
		return true
	})
	return qty
}

// Residency counts how many price-level queues each resting order id
// appears in. Every count should be 1; anything else means the book's
// residency invariant broke.
func (b *OrderBook) Residency() map[uuid.UUID]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts := make(map[uuid.UUID]int)
	walk := func(pl *priceLevel) bool {
		for _, o := range pl.orders {
			counts[o.ID]++
		}
		return true
	}
	b.bids.Ascend(walk)
	b.asks.Ascend(walk)
	return counts
}

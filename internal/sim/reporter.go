package sim

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradecore/pairex/internal/domain"
	"github.com/tradecore/pairex/internal/engine"
	"github.com/tradecore/pairex/internal/tape"
)

// Reporter periodically logs aggregated book depth and tape totals. It
// only observes: depth snapshots are taken under the book lock but the
// reporter never mutates anything.
type Reporter struct {
	book     *engine.OrderBook
	tape     *tape.Tape
	interval time.Duration
	depth    int
	log      zerolog.Logger
}

// NewReporter creates a Reporter logging the top depth levels per side.
func NewReporter(book *engine.OrderBook, tp *tape.Tape, interval time.Duration, depth int, log zerolog.Logger) *Reporter {
	return &Reporter{
		book:     book,
		tape:     tp,
		interval: interval,
		depth:    depth,
		log:      log,
	}
}

// Run emits a report every interval until the context is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *Reporter) report() {
	bids, asks := r.book.Depth(r.depth)

	evt := r.log.Info().
		Array("bids", levelArray(bids)).
		Array("asks", levelArray(asks)).
		Int64("bid_qty", r.book.RestingQuantity(domain.SideBuy)).
		Int64("ask_qty", r.book.RestingQuantity(domain.SideSell)).
		Int("trades", r.tape.Len()).
		Int64("volume", r.tape.Volume())

	if recent := r.tape.Recent(1); len(recent) == 1 {
		evt = evt.Int64("last_price", recent[0].Price)
	}
	evt.Msg("book depth")
}

func levelArray(levels []engine.Level) *zerolog.Array {
	arr := zerolog.Arr()
	for _, lv := range levels {
		arr.Dict(zerolog.Dict().
			Int64("price", lv.Price).
			Int64("qty", lv.TotalQuantity).
			Int("orders", lv.OrderCount))
	}
	return arr
}

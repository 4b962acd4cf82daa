package sim

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradecore/pairex/internal/config"
	"github.com/tradecore/pairex/internal/domain"
	"github.com/tradecore/pairex/internal/engine"
	"github.com/tradecore/pairex/internal/ledger"
)

// TraderPool drives the exchange with synthetic traffic: a fixed number
// of goroutines each placing random limit orders on behalf of random
// accounts, paced by the configured order interval.
type TraderPool struct {
	exchange *engine.Exchange
	ledger   *ledger.Ledger
	pair     domain.Pair
	cfg      *config.Config
	log      zerolog.Logger
}

// NewTraderPool creates a pool over the given exchange and ledger.
func NewTraderPool(exch *engine.Exchange, l *ledger.Ledger, pair domain.Pair, cfg *config.Config, log zerolog.Logger) *TraderPool {
	return &TraderPool{
		exchange: exch,
		ledger:   l,
		pair:     pair,
		cfg:      cfg,
		log:      log,
	}
}

// Run starts the trader goroutines and blocks until the context is
// cancelled and every trader has drained.
func (p *TraderPool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Traders; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			p.loop(ctx, rand.New(rand.NewSource(seed)))
		}(time.Now().UnixNano() + int64(i))
	}
	wg.Wait()
}

func (p *TraderPool) loop(ctx context.Context, rng *rand.Rand) {
	ticker := time.NewTicker(p.cfg.OrderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.placeRandomOrder(rng)
		}
	}
}

// placeRandomOrder picks a random account, side, price within the
// configured band, and a quantity the account's balance can plausibly
// cover, and submits it. A refused reservation just skips the tick:
// another order from the same account may have taken the funds between
// the balance read and the reservation.
func (p *TraderPool) placeRandomOrder(rng *rand.Rand) {
	account := uint64(rng.Intn(p.cfg.Accounts))

	side := domain.SideBuy
	if rng.Intn(2) == 1 {
		side = domain.SideSell
	}

	price := p.cfg.PriceFloor + rng.Int63n(p.cfg.PriceCeil-p.cfg.PriceFloor+1)

	var maxQty int64
	if side == domain.SideBuy {
		maxQty = p.ledger.GetBalance(account, p.pair.Quote) / price
	} else {
		maxQty = p.ledger.GetBalance(account, p.pair.Base)
	}
	if maxQty > p.cfg.MaxOrderQty {
		maxQty = p.cfg.MaxOrderQty
	}
	if maxQty <= 0 {
		return
	}
	qty := 1 + rng.Int63n(maxQty)

	_, _, err := p.exchange.PlaceOrder(account, side, price, qty)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInsufficientBalance):
		// Lost the race against this account's other orders.
	case errors.Is(err, domain.ErrUnknownOrder):
		// Ledger and book have diverged; conservation is already broken.
		p.log.Fatal().Err(err).Msg("settlement resolution failed")
	default:
		p.log.Error().Err(err).Msg("order placement failed")
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/tradecore/pairex/internal/config"
	"github.com/tradecore/pairex/internal/domain"
	"github.com/tradecore/pairex/internal/engine"
	"github.com/tradecore/pairex/internal/ledger"
	"github.com/tradecore/pairex/internal/sim"
	"github.com/tradecore/pairex/internal/tape"
)

func main() {
	// A .env file is optional; real env vars win either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	pair := domain.BTCUSD
	ldg := ledger.New(pair)
	book := engine.NewOrderBook(ldg)
	tp := tape.New()
	settler := engine.NewSettler(ldg, tp)
	exch := engine.NewExchange(ldg, book, settler, logger)

	// Initial funding: every account starts with the same quote and
	// base balances. This is the only credit path besides settlement.
	for i := 0; i < cfg.Accounts; i++ {
		ldg.Credit(uint64(i), pair.Quote, cfg.InitialQuote)
		ldg.Credit(uint64(i), pair.Base, cfg.InitialBase)
	}
	logger.Info().
		Int("accounts", cfg.Accounts).
		Int64("quote_each", cfg.InitialQuote).
		Int64("base_each", cfg.InitialBase).
		Msg("accounts funded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := sim.NewTraderPool(exch, ldg, pair, cfg, logger)
	reporter := sim.NewReporter(book, tp, cfg.ReportInterval, cfg.ReportDepth, logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pool.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		reporter.Run(ctx)
	}()

	logger.Info().Int("traders", cfg.Traders).Msg("simulation started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

	cancel()
	wg.Wait()

	logger.Info().
		Int("trades", tp.Len()).
		Int64("volume", tp.Volume()).
		Int("live_orders", ldg.LiveOrders()).
		Msg("exchange stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var w io.Writer = os.Stdout
	if cfg.LogFormat == "pretty" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

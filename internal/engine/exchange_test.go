package engine

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tradecore/pairex/internal/domain"
	"github.com/tradecore/pairex/internal/ledger"
	"github.com/tradecore/pairex/internal/tape"
)

func newTestExchange() (*Exchange, *ledger.Ledger, *tape.Tape) {
	l := ledger.New(domain.BTCUSD)
	tp := tape.New()
	b := NewOrderBook(l)
	s := NewSettler(l, tp)
	return NewExchange(l, b, s, zerolog.Nop()), l, tp
}

func TestPlaceOrder_EndToEnd(t *testing.T) {
	e, l, tp := newTestExchange()
	l.Credit(1, "USD", 1000)
	l.Credit(2, "BTC", 10)

	sell, trades, err := e.PlaceOrder(2, domain.SideSell, 100, 5)
	if err != nil {
		t.Fatalf("unexpected error placing sell: %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("expected no trades for the resting sell, got %d", len(trades))
	}
	if got := l.GetBalance(2, "BTC"); got != 5 {
		t.Errorf("seller base after reservation = %d, want 5", got)
	}

	buy, trades, err := e.PlaceOrder(1, domain.SideBuy, 100, 5)
	if err != nil {
		t.Fatalf("unexpected error placing buy: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected exactly one trade, got %d", len(trades))
	}
	tr := trades[0]
	if tr.MakerOrderID != sell.ID || tr.TakerOrderID != buy.ID {
		t.Errorf("trade maker/taker = %s/%s, want %s/%s", tr.MakerOrderID, tr.TakerOrderID, sell.ID, buy.ID)
	}
	if tr.Price != 100 || tr.Quantity != 5 {
		t.Errorf("trade = qty %d @ %d, want 5 @ 100", tr.Quantity, tr.Price)
	}

	// Both sides end with 500 USD and 5 BTC.
	for _, tc := range []struct {
		account uint64
		asset   domain.Asset
		want    int64
	}{
		{1, "USD", 500},
		{1, "BTC", 5},
		{2, "USD", 500},
		{2, "BTC", 5},
	} {
		if got := l.GetBalance(tc.account, tc.asset); got != tc.want {
			t.Errorf("account %d %s = %d, want %d", tc.account, tc.asset, got, tc.want)
		}
	}

	if got := l.LiveOrders(); got != 0 {
		t.Errorf("LiveOrders = %d, want 0 after both orders filled", got)
	}
	if got := tp.Len(); got != 1 {
		t.Errorf("tape length = %d, want 1", got)
	}
}

func TestPlaceOrder_InvalidOrderRejected(t *testing.T) {
	e, l, _ := newTestExchange()
	l.Credit(1, "USD", 1000)

	cases := []struct {
		name  string
		price int64
		qty   int64
	}{
		{"zero price", 0, 5},
		{"negative price", -5, 5},
		{"zero quantity", 100, 0},
		{"negative quantity", 100, -2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := e.PlaceOrder(1, domain.SideBuy, tc.price, tc.qty)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *domain.ValidationError, got %v", err)
			}
			if got := l.GetBalance(1, "USD"); got != 1000 {
				t.Errorf("balance after rejected order = %d, want 1000", got)
			}
			if got := l.LiveOrders(); got != 0 {
				t.Errorf("LiveOrders = %d, want 0", got)
			}
		})
	}
}

func TestPlaceOrder_InsufficientBalance(t *testing.T) {
	e, l, _ := newTestExchange()
	l.Credit(1, "USD", 499)

	_, _, err := e.PlaceOrder(1, domain.SideBuy, 100, 5)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := l.GetBalance(1, "USD"); got != 499 {
		t.Errorf("balance after refused order = %d, want 499", got)
	}
	if _, ok := e.Book().BestBid(); ok {
		t.Error("refused order must not reach the book")
	}
}

func TestPlaceOrder_RestingOrderStaysRegistered(t *testing.T) {
	e, l, _ := newTestExchange()
	l.Credit(1, "USD", 1000)

	o, _, err := e.PlaceOrder(1, domain.SideBuy, 100, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ref, ok := l.LookupOrder(o.ID)
	if !ok {
		t.Fatal("resting order missing from the directory")
	}
	if ref.AccountID != 1 || ref.Side != domain.SideBuy {
		t.Errorf("ref = %+v, want account 1 / buy", ref)
	}
}

// A buy crossing at a better price pays the maker's price; the unspent
// part of its reservation comes back.
func TestPlaceOrder_PriceImprovementRefund(t *testing.T) {
	e, l, _ := newTestExchange()
	l.Credit(1, "USD", 1000)
	l.Credit(2, "BTC", 10)

	if _, _, err := e.PlaceOrder(2, domain.SideSell, 100, 5); err != nil {
		t.Fatalf("unexpected error placing sell: %v", err)
	}
	_, trades, err := e.PlaceOrder(1, domain.SideBuy, 110, 5)
	if err != nil {
		t.Fatalf("unexpected error placing buy: %v", err)
	}
	if len(trades) != 1 || trades[0].Price != 100 {
		t.Fatalf("expected one trade @ 100, got %+v", trades)
	}

	// Reserved 550, paid 500, refunded 50.
	if got := l.GetBalance(1, "USD"); got != 500 {
		t.Errorf("buyer quote = %d, want 500", got)
	}
	if got := l.GetBalance(2, "USD"); got != 500 {
		t.Errorf("seller quote = %d, want 500", got)
	}
}

// Conservation under concurrency: after any number of concurrent
// placements, funds sit either in balances or in live reservations,
// and the totals per asset never drift from what was funded.
func TestPlaceOrder_ConcurrentConservation(t *testing.T) {
	e, l, _ := newTestExchange()

	const (
		accounts     = 8
		workers      = 8
		ordersPerG   = 200
		initialQuote = int64(1_000_000)
		initialBase  = int64(1_000)
	)

	for i := uint64(0); i < accounts; i++ {
		l.Credit(i, "USD", initialQuote)
		l.Credit(i, "BTC", initialBase)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < ordersPerG; i++ {
				account := uint64(rng.Intn(accounts))
				side := domain.SideBuy
				if rng.Intn(2) == 1 {
					side = domain.SideSell
				}
				price := int64(95 + rng.Intn(11))
				qty := int64(1 + rng.Intn(3))

				_, _, err := e.PlaceOrder(account, side, price, qty)
				if err != nil && !errors.Is(err, domain.ErrInsufficientBalance) {
					t.Errorf("unexpected placement error: %v", err)
				}
			}
		}(int64(w))
	}
	wg.Wait()

	var quoteBalances, baseBalances int64
	for i := uint64(0); i < accounts; i++ {
		quoteBalances += l.GetBalance(i, "USD")
		baseBalances += l.GetBalance(i, "BTC")
	}

	bids, asks := e.Book().Depth(1 << 20)
	var quoteReserved, baseReserved int64
	for _, lv := range bids {
		quoteReserved += lv.Price * lv.TotalQuantity
	}
	for _, lv := range asks {
		baseReserved += lv.TotalQuantity
	}

	if total := quoteBalances + quoteReserved; total != accounts*initialQuote {
		t.Errorf("quote conservation broken: balances %d + reserved %d = %d, want %d",
			quoteBalances, quoteReserved, total, accounts*initialQuote)
	}
	if total := baseBalances + baseReserved; total != accounts*initialBase {
		t.Errorf("base conservation broken: balances %d + reserved %d = %d, want %d",
			baseBalances, baseReserved, total, accounts*initialBase)
	}

	// Directory and book agree on what is live.
	if live, resting := l.LiveOrders(), len(e.Book().Residency()); live != resting {
		t.Errorf("directory has %d live orders, book has %d resting", live, resting)
	}
}

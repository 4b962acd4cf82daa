package tape

import (
	"sync"

	"github.com/tradecore/pairex/internal/domain"
)

// Tape is a thread-safe, append-only in-memory record of settled
// trades in chronological order. The depth reporter reads totals from
// it; nothing ever removes an entry.
type Tape struct {
	mu     sync.RWMutex
	trades []domain.Trade
	volume int64
}

// New creates an empty Tape.
func New() *Tape {
	return &Tape{}
}

// Append records a settled trade.
func (t *Tape) Append(tr domain.Trade) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trades = append(t.trades, tr)
	t.volume += tr.Quantity
}

// Len returns the number of trades recorded.
func (t *Tape) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.trades)
}

// Volume returns the total base quantity traded.
func (t *Tape) Volume() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.volume
}

// Recent returns up to n most recent trades, oldest first. The slice
// is a copy; callers may keep it.
func (t *Tape) Recent(n int) []domain.Trade {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n <= 0 || len(t.trades) == 0 {
		return []domain.Trade{}
	}
	start := len(t.trades) - n
	if start < 0 {
		start = 0
	}
	out := make([]domain.Trade, len(t.trades)-start)
	copy(out, t.trades[start:])
	return out
}

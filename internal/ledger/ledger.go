package ledger

import (
	"encoding/binary"
	"hash/fnv"
	"sync"

	"github.com/tradecore/pairex/internal/domain"
)

const shardCount = 32

// balanceKey identifies one balance bucket: an account's holdings of
// one asset.
type balanceKey struct {
	Account uint64
	Asset   domain.Asset
}

// balanceShard holds a slice of the balance map under its own lock, so
// debits and credits on different keys rarely contend while operations
// on the same key are always linearized.
type balanceShard struct {
	mu       sync.Mutex
	balances map[balanceKey]int64
}

// Ledger owns per-(account, asset) balances, the reservation gate that
// admits orders, settlement credits, and the order directory that maps
// live order ids back to accounts.
//
// Balances are never negative: Debit is a single check-and-subtract
// under the shard lock and refuses to go below zero. Each Credit/Debit
// is one atomic step; a reservation and its later settlement are
// separate steps, not one transaction.
type Ledger struct {
	pair   domain.Pair
	shards [shardCount]*balanceShard
	dir    *directory
}

// Pair returns the trading pair the ledger accounts for.
func (l *Ledger) Pair() domain.Pair {
	return l.pair
}

// New creates an empty ledger for the given trading pair.
func New(pair domain.Pair) *Ledger {
	l := &Ledger{
		pair: pair,
		dir:  newDirectory(),
	}
	for i := range l.shards {
		l.shards[i] = &balanceShard{balances: make(map[balanceKey]int64)}
	}
	return l
}

func (l *Ledger) shardFor(k balanceKey) *balanceShard {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], k.Account)
	h.Write(buf[:])
	h.Write([]byte(k.Asset))
	return l.shards[h.Sum64()%shardCount]
}

// Credit adds amount to the account's balance of asset. It cannot fail;
// absent keys start at zero.
func (l *Ledger) Credit(account uint64, asset domain.Asset, amount int64) {
	k := balanceKey{Account: account, Asset: asset}
	s := l.shardFor(k)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[k] += amount
}

// Debit atomically subtracts amount from the account's balance of
// asset. It returns false and leaves the balance unchanged when the
// balance is insufficient. Concurrent debits on the same key are
// linearized by the shard lock, so a balance of 1 yields exactly one
// successful 1-unit debit no matter how many race for it.
func (l *Ledger) Debit(account uint64, asset domain.Asset, amount int64) bool {
	k := balanceKey{Account: account, Asset: asset}
	s := l.shardFor(k)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balances[k] < amount {
		return false
	}
	s.balances[k] -= amount
	return true
}

// GetBalance returns the account's balance of asset. Absent keys read
// as zero.
func (l *Ledger) GetBalance(account uint64, asset domain.Asset) int64 {
	k := balanceKey{Account: account, Asset: asset}
	s := l.shardFor(k)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[k]
}

// TryPlaceOrder is the reservation gate run before an order may enter
// the book. A buy reserves price*qty of the quote asset; a sell
// reserves qty of the base asset. It returns false, with no state
// change, when the account cannot cover the reservation.
func (l *Ledger) TryPlaceOrder(account uint64, side domain.Side, price, qty int64) bool {
	if side == domain.SideBuy {
		return l.Debit(account, l.pair.Quote, price*qty)
	}
	return l.Debit(account, l.pair.Base, qty)
}

// SettleTrade realizes a matched trade: the buyer receives qty of the
// base asset and the seller receives price*qty of the quote asset. The
// debits happened at reservation time, so this is the credit half that
// completes the transfer. It must be called exactly once per trade.
func (l *Ledger) SettleTrade(buyer, seller uint64, price, qty int64) {
	l.Credit(buyer, l.pair.Base, qty)
	l.Credit(seller, l.pair.Quote, price*qty)
}

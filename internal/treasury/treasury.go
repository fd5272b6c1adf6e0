// Package treasury keeps the shared balance fed by transaction tax and
// drained by administrative distribution. The balance never goes negative.
package treasury

import (
	"fmt"
	"math"
	"sync"

	"github.com/Nixend-creator/DynamicEconomy/internal/broadcast"
	"github.com/Nixend-creator/DynamicEconomy/internal/types"
	"github.com/rs/zerolog/log"
)

// Recipient is anything that can be credited from the treasury.
type Recipient interface {
	ID() string
	Deposit(amount float64)
}

// Summary is a point-in-time copy of the ledger.
type Summary struct {
	Balance          float64 `json:"balance"`
	TotalCollected   float64 `json:"total_collected"`
	TotalDistributed float64 `json:"total_distributed"`
}

// Ledger is the process-wide treasury.
type Ledger struct {
	mu               sync.Mutex
	balance          float64
	totalCollected   float64
	totalDistributed float64

	notifier broadcast.Notifier
}

func NewLedger(notifier broadcast.Notifier) *Ledger {
	return &Ledger{notifier: notifier}
}

// Collect adds amount to the balance. Negative or non-finite amounts are
// ignored.
func (l *Ledger) Collect(amount float64) {
	if !(amount > 0) || math.IsInf(amount, 0) {
		return
	}
	l.mu.Lock()
	l.balance += amount
	l.totalCollected += amount
	l.mu.Unlock()
}

// Distribute pays amount to target. It fails with INSUFFICIENT_FUNDS when
// amount exceeds the balance, leaving the ledger untouched.
func (l *Ledger) Distribute(target Recipient, amount float64) error {
	if !(amount > 0) || math.IsInf(amount, 0) {
		return types.OutcomeInvalidAmount
	}

	l.mu.Lock()
	if amount > l.balance {
		l.mu.Unlock()
		return types.OutcomeInsufficientFund
	}
	l.balance -= amount
	l.totalDistributed += amount
	l.mu.Unlock()

	target.Deposit(amount)
	log.Info().
		Str("service", "treasury").
		Str("player_id", target.ID()).
		Float64("amount", amount).
		Msg("treasury distribution")
	return nil
}

// DistributeToAll splits amount evenly across recipients. The balance is
// debited once; the whole call fails if amount exceeds the balance or there
// is nobody to pay. It returns the share paid to each recipient.
func (l *Ledger) DistributeToAll(recipients []Recipient, amount float64) (float64, error) {
	if !(amount > 0) || math.IsInf(amount, 0) {
		return 0, types.OutcomeInvalidAmount
	}
	if len(recipients) == 0 {
		return 0, types.OutcomeNoPlayersOnline
	}

	l.mu.Lock()
	if amount > l.balance {
		l.mu.Unlock()
		return 0, types.OutcomeInsufficientFund
	}
	l.balance -= amount
	l.totalDistributed += amount
	l.mu.Unlock()

	share := amount / float64(len(recipients))
	for _, r := range recipients {
		r.Deposit(share)
	}

	log.Info().
		Str("service", "treasury").
		Int("recipients", len(recipients)).
		Float64("amount", amount).
		Float64("share", share).
		Msg("treasury distributed to all connected players")
	l.notifier.Announce(broadcast.Announcement{
		Kind:    broadcast.KindTreasuryGiveAll,
		Message: fmt.Sprintf("The treasury paid %.2f to each of %d players", share, len(recipients)),
		Fields:  map[string]any{"amount": amount, "share": share, "recipients": len(recipients)},
	})
	return share, nil
}

// Balance returns the current balance.
func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Summary{
		Balance:          l.balance,
		TotalCollected:   l.totalCollected,
		TotalDistributed: l.totalDistributed,
	}
}

// State returns the persisted form of the ledger.
func (l *Ledger) State() types.TreasuryState {
	s := l.Summary()
	return types.TreasuryState{
		Balance:          s.Balance,
		TotalCollected:   s.TotalCollected,
		TotalDistributed: s.TotalDistributed,
	}
}

// Restore loads a persisted ledger. A negative balance is clamped to zero.
func (l *Ledger) Restore(s types.TreasuryState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance = math.Max(0, s.Balance)
	l.totalCollected = math.Max(0, s.TotalCollected)
	l.totalDistributed = math.Max(0, s.TotalDistributed)
}

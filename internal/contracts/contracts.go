// Package contracts runs the delivery contract board. A contract asks the
// whole server for a bulk quantity of one good before a deadline and pays a
// bonus on sales of that good while it is open.
package contracts

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/broadcast"
	"github.com/Nixend-creator/DynamicEconomy/internal/catalogue"
	"github.com/Nixend-creator/DynamicEconomy/internal/config"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Status is a contract's lifecycle state.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusExpired   Status = "EXPIRED"
)

// Contract is a time-boxed bulk delivery objective.
type Contract struct {
	ID             string    `json:"contract_id"`
	GoodKey        string    `json:"good_key"`
	DisplayName    string    `json:"display_name"`
	RequiredAmount int       `json:"required_amount"`
	Progress       int       `json:"progress"`
	Bonus          float64   `json:"bonus"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// RemainingMinutes is the whole minutes left before expiry, never negative.
func (c Contract) RemainingMinutes(now time.Time) int {
	left := c.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Minute)
}

// Board holds the active contracts. Contracts leave the board as soon as
// they complete or expire.
type Board struct {
	mu     sync.Mutex
	cfg    config.ContractsConfig
	cat    *catalogue.Catalogue
	order  []string
	active map[string]*Contract

	rng      *rand.Rand
	now      func() time.Time
	notifier broadcast.Notifier
}

// NewBoard creates an empty board.
func NewBoard(cat *catalogue.Catalogue, cfg config.ContractsConfig, notifier broadcast.Notifier) *Board {
	return &Board{
		cfg:      cfg,
		cat:      cat,
		active:   make(map[string]*Contract),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		notifier: notifier,
	}
}

// Tick purges expired contracts and then, if there is room, spawns exactly
// one new contract. It returns the spawned contract, if any.
func (b *Board) Tick() *Contract {
	b.mu.Lock()
	expired := b.purgeExpiredLocked()
	var spawned *Contract
	if b.cfg.Enabled && len(b.order) < b.cfg.MaxActive {
		if c := b.spawnLocked(); c != nil {
			cp := *c
			spawned = &cp
		}
	}
	minutes := b.cfg.DurationMinutes
	b.mu.Unlock()

	for _, c := range expired {
		log.Info().Str("service", "contracts").Str("contract_id", c.ID).Str("good", c.GoodKey).Msg("contract expired")
		b.notifier.Announce(broadcast.Announcement{
			Kind:    broadcast.KindContractExpired,
			Message: fmt.Sprintf("The contract for %s has expired", c.DisplayName),
			Fields:  map[string]any{"contract_id": c.ID, "good": c.GoodKey},
		})
	}
	if spawned != nil {
		log.Info().
			Str("service", "contracts").
			Str("contract_id", spawned.ID).
			Str("good", spawned.GoodKey).
			Int("required", spawned.RequiredAmount).
			Msg("new contract")
		b.notifier.Announce(broadcast.Announcement{
			Kind: broadcast.KindContractNew,
			Message: fmt.Sprintf("New contract: deliver %d %s within %d minutes for +%d%%",
				spawned.RequiredAmount, spawned.DisplayName, minutes, int(spawned.Bonus*100)),
			Fields: map[string]any{
				"contract_id": spawned.ID,
				"good":        spawned.GoodKey,
				"required":    spawned.RequiredAmount,
				"expires_at":  spawned.ExpiresAt,
			},
		})
	}
	return spawned
}

func (b *Board) purgeExpiredLocked() []Contract {
	now := b.now()
	var expired []Contract
	kept := b.order[:0]
	for _, id := range b.order {
		c := b.active[id]
		if now.After(c.ExpiresAt) {
			c.Status = StatusExpired
			expired = append(expired, *c)
			delete(b.active, id)
			continue
		}
		kept = append(kept, id)
	}
	b.order = kept
	return expired
}

// spawnLocked picks a random category and then a random good in it, among
// goods that have no active contract. When every good is already targeted
// nothing spawns.
func (b *Board) spawnLocked() *Contract {
	targeted := make(map[string]bool, len(b.order))
	for _, id := range b.order {
		targeted[b.active[id].GoodKey] = true
	}

	var categories [][]*catalogue.Good
	for _, category := range b.cat.Categories() {
		var free []*catalogue.Good
		for _, g := range category.Goods {
			if !targeted[g.Key] {
				free = append(free, g)
			}
		}
		if len(free) > 0 {
			categories = append(categories, free)
		}
	}
	if len(categories) == 0 {
		log.Info().Str("service", "contracts").Int("active", len(b.order)).Msg("every good is under contract, skipping spawn")
		return nil
	}
	free := categories[b.rng.Intn(len(categories))]
	good := free[b.rng.Intn(len(free))]

	lo, hi := b.cfg.AmountMin, b.cfg.AmountMax
	if hi < lo {
		hi = lo
	}
	now := b.now()
	c := &Contract{
		ID:             "CTR_" + uuid.New().String()[:8],
		GoodKey:        good.Key,
		DisplayName:    good.DisplayName,
		RequiredAmount: lo + b.rng.Intn(hi-lo+1),
		Bonus:          b.cfg.BonusMultiplier,
		Status:         StatusActive,
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Duration(b.cfg.DurationMinutes) * time.Minute),
	}
	b.active[c.ID] = c
	b.order = append(b.order, c.ID)
	return c
}

// HasActiveContractFor reports whether a live, non-expired contract targets
// goodKey.
func (b *Board) HasActiveContractFor(goodKey string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.matchLocked(goodKey) != nil
}

// BonusMultiplier returns the contract factor for a sale of goodKey.
func (b *Board) BonusMultiplier(goodKey string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c := b.matchLocked(goodKey); c != nil {
		return 1.0 + c.Bonus
	}
	return 1.0
}

// matchLocked returns the first active contract for goodKey in creation
// order. If two contracts ever target the same good only the first one is
// seen here.
func (b *Board) matchLocked(goodKey string) *Contract {
	now := b.now()
	for _, id := range b.order {
		c := b.active[id]
		if c.GoodKey == goodKey && !now.After(c.ExpiresAt) {
			return c
		}
	}
	return nil
}

// OnSell advances the first matching contract by amount. Progress saturates
// at the requirement; the contract completes and leaves the board exactly
// when it is reached. The completed contract is returned, or nil.
func (b *Board) OnSell(playerID, goodKey string, amount int) *Contract {
	if amount <= 0 {
		return nil
	}

	b.mu.Lock()
	c := b.matchLocked(goodKey)
	if c == nil {
		b.mu.Unlock()
		return nil
	}
	c.Progress = min(c.Progress+amount, c.RequiredAmount)
	if c.Progress < c.RequiredAmount {
		b.mu.Unlock()
		return nil
	}
	c.Status = StatusCompleted
	delete(b.active, c.ID)
	for i, id := range b.order {
		if id == c.ID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	done := *c
	b.mu.Unlock()

	log.Info().
		Str("service", "contracts").
		Str("contract_id", done.ID).
		Str("good", done.GoodKey).
		Str("player_id", playerID).
		Msg("contract completed")
	b.notifier.Announce(broadcast.Announcement{
		Kind:    broadcast.KindContractCompleted,
		Message: fmt.Sprintf("The contract for %s has been fulfilled", done.DisplayName),
		Fields:  map[string]any{"contract_id": done.ID, "good": done.GoodKey, "completed_by": playerID},
	})
	return &done
}

// Active returns copies of the active contracts in creation order.
func (b *Board) Active() []Contract {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Contract, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.active[id])
	}
	return out
}

// Now is the board's clock.
func (b *Board) Now() time.Time {
	return b.now()
}

// Count returns the number of active contracts.
func (b *Board) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}

// Progress returns the delivered amount of a contract, or 0 if it is not active.
func (b *Board) Progress(contractID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.active[contractID]; ok {
		return c.Progress
	}
	return 0
}

// Configure swaps the board configuration. Open contracts keep their terms.
func (b *Board) Configure(cfg config.ContractsConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg
}

// SetCatalogue replaces the catalogue used for future spawns.
func (b *Board) SetCatalogue(cat *catalogue.Catalogue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cat = cat
}

func (b *Board) spawnInterval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Duration(b.cfg.SpawnIntervalMinutes) * time.Minute
}

// Package reputation tracks lifetime trade volume per player and derives the
// tier that lowers sell tax and raises the per-transaction cap. Volume is
// measured in payout, not units.
package reputation

import (
	"math"
	"sort"
	"sync"

	"github.com/Nixend-creator/DynamicEconomy/internal/config"
	"github.com/rs/zerolog/log"
)

// Tier levels.
const (
	TierDefault  = 0
	TierMerchant = 1
	TierTycoon   = 2
)

// Tier is a reputation level and its perks.
type Tier struct {
	Level       int     `json:"level"`
	Name        string  `json:"name"`
	Threshold   float64 `json:"threshold"`
	TaxDiscount float64 `json:"tax_discount"`
	MaxSell     int     `json:"max_sell"`
}

// Standing is a player's volume and resulting tier.
type Standing struct {
	PlayerID string  `json:"player_id"`
	Volume   float64 `json:"volume"`
	Tier     Tier    `json:"tier"`
}

// Tracker owns the volume records.
type Tracker struct {
	mu      sync.Mutex
	cfg     config.ReputationConfig
	baseTax float64
	baseMax int
	volumes map[string]float64
}

// NewTracker creates a tracker over the base sell tax and sell cap.
func NewTracker(cfg config.ReputationConfig, economy config.EconomyConfig) *Tracker {
	return &Tracker{
		cfg:     cfg,
		baseTax: economy.SellTaxRate,
		baseMax: economy.MaxSellAmount,
		volumes: make(map[string]float64),
	}
}

// tiersLocked returns the ordered tier table.
func (t *Tracker) tiersLocked() []Tier {
	return []Tier{
		{Level: TierDefault, Name: "Trader", MaxSell: t.baseMax},
		{Level: TierMerchant, Name: "Merchant", Threshold: t.cfg.MerchantThreshold, TaxDiscount: t.cfg.MerchantTaxDiscount, MaxSell: max(t.baseMax, t.cfg.MerchantMaxSell)},
		{Level: TierTycoon, Name: "Tycoon", Threshold: t.cfg.TycoonThreshold, TaxDiscount: t.cfg.TycoonTaxDiscount, MaxSell: max(t.baseMax, t.cfg.TycoonMaxSell)},
	}
}

// tierForLocked returns the highest tier whose threshold volume meets.
func (t *Tracker) tierForLocked(volume float64) Tier {
	tiers := t.tiersLocked()
	best := tiers[0]
	for _, tier := range tiers[1:] {
		if volume >= tier.Threshold {
			best = tier
		}
	}
	return best
}

// Tiers returns the tier table in ascending order.
func (t *Tracker) Tiers() []Tier {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tiersLocked()
}

// RecordSell adds payout to the player's lifetime volume.
func (t *Tracker) RecordSell(playerID string, amount int, payout float64) {
	if !(payout > 0) || math.IsInf(payout, 0) {
		return
	}
	t.mu.Lock()
	before := t.tierForLocked(t.volumes[playerID])
	t.volumes[playerID] += payout
	after := t.tierForLocked(t.volumes[playerID])
	t.mu.Unlock()

	if after.Level > before.Level {
		log.Info().
			Str("service", "reputation").
			Str("player_id", playerID).
			Str("tier", after.Name).
			Int("units", amount).
			Msg("player reached a new reputation tier")
	}
}

// Standing returns the player's volume and tier.
func (t *Tracker) Standing(playerID string) Standing {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.volumes[playerID]
	return Standing{PlayerID: playerID, Volume: v, Tier: t.tierForLocked(v)}
}

// TaxRate is the base sell tax minus the player's tier discount.
func (t *Tracker) TaxRate(playerID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	tier := t.tierForLocked(t.volumes[playerID])
	return math.Max(0, t.baseTax-tier.TaxDiscount)
}

// MaxSellAmount is the player's per-transaction quantity cap.
func (t *Tracker) MaxSellAmount(playerID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tierForLocked(t.volumes[playerID]).MaxSell
}

// Standings returns every record ordered by player id.
func (t *Tracker) Standings() []Standing {
	t.mu.Lock()
	out := make([]Standing, 0, len(t.volumes))
	for id, v := range t.volumes {
		out = append(out, Standing{PlayerID: id, Volume: v, Tier: t.tierForLocked(v)})
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// Configure swaps the tier table and base values.
func (t *Tracker) Configure(cfg config.ReputationConfig, economy config.EconomyConfig) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg = cfg
	t.baseTax = economy.SellTaxRate
	t.baseMax = economy.MaxSellAmount
}

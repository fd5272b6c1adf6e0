// Package pricing holds the stateless price arithmetic of the market.
//
// Price drop:  drop = dropPerStack * (amount / 64)
// Recovery:    m = min(1, m + recoveryPerHour * hours), only while m < 1
// Payout:      max(0.01, price * bonuses * amount * (1 - tax))
package pricing

import (
	"math"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/catalogue"
)

// StackSize is the number of units that make one full price drop tick.
const StackSize = 64.0

// MinPayout is the floor of any successful sale.
const MinPayout = 0.01

// Params are the configuration constants the calculator depends on.
type Params struct {
	MinMultiplier   float64
	MaxMultiplier   float64
	DropPerStack    float64
	RecoveryPerHour float64
	SellTaxRate     float64
}

// Calculator translates sale and recovery events into multipliers and
// payouts. It holds no market state.
type Calculator struct {
	params Params
}

// NewCalculator creates a calculator over the given constants.
func NewCalculator(p Params) *Calculator {
	return &Calculator{params: p}
}

// Params returns the constants in use.
func (c *Calculator) Params() Params {
	return c.params
}

// MultiplierAfterSale computes the multiplier that selling amount units at
// multiplier current would produce. The result never drops below min and
// never rises above max or current, whichever is higher, so a sale cannot
// lift a price nor flatten an admin override above max.
func (c *Calculator) MultiplierAfterSale(current float64, amount int) float64 {
	drop := c.params.DropPerStack * (float64(amount) / StackSize)
	next := current - drop
	ceiling := math.Max(c.params.MaxMultiplier, current)
	return math.Min(ceiling, math.Max(c.params.MinMultiplier, next))
}

// PreviewMultiplierAfterSale returns what ApplySale would set, without
// mutating the good.
func (c *Calculator) PreviewMultiplierAfterSale(g *catalogue.Good, amount int) float64 {
	return c.MultiplierAfterSale(g.Multiplier(), amount)
}

// ApplySale drops the good's multiplier for a sale of amount units and
// records the sale. It returns the new multiplier.
func (c *Calculator) ApplySale(g *catalogue.Good, amount int, at time.Time) float64 {
	next := c.MultiplierAfterSale(g.Multiplier(), amount)
	g.SetMultiplier(next)
	g.RecordSale(amount, at)
	return next
}

// ApplyRecovery moves a depressed multiplier back toward 1.0. Multipliers at
// or above 1.0 are left alone.
func (c *Calculator) ApplyRecovery(g *catalogue.Good, hoursElapsed float64) {
	current := g.Multiplier()
	if current >= 1.0 || hoursElapsed <= 0 {
		return
	}
	g.SetMultiplier(math.Min(1.0, current+c.params.RecoveryPerHour*hoursElapsed))
}

// Payout computes the net payout of a sale using the configured sell tax.
func (c *Calculator) Payout(g *catalogue.Good, amount int, seasonal, diversity, contract float64) float64 {
	return c.NetPayout(g.CurrentPrice(), amount, c.params.SellTaxRate, seasonal*diversity*contract)
}

// NetPayout computes price * multiplier * amount after taxRate, floored at
// MinPayout.
func (c *Calculator) NetPayout(price float64, amount int, taxRate, multiplier float64) float64 {
	gross := price * multiplier * float64(amount)
	return math.Max(MinPayout, gross*(1.0-taxRate))
}

package catalogue

import (
	"sync"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/types"
)

// Good is a single tradeable catalogue entry. Identity, category and base
// price never change after load; the multiplier, last sale time and sold
// counter are the mutable market state.
type Good struct {
	Key         string  `json:"key"`
	CategoryKey string  `json:"category"`
	DisplayName string  `json:"display_name"`
	BasePrice   float64 `json:"base_price"`

	mu         sync.RWMutex
	multiplier float64
	lastSale   time.Time
	totalSold  int64
}

// NewGood creates a good with the default multiplier of 1.0.
func NewGood(key, categoryKey, displayName string, basePrice float64) *Good {
	return &Good{
		Key:         key,
		CategoryKey: categoryKey,
		DisplayName: displayName,
		BasePrice:   basePrice,
		multiplier:  1.0,
	}
}

// Multiplier returns the current price multiplier.
func (g *Good) Multiplier() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.multiplier
}

// SetMultiplier overwrites the multiplier. Callers clamp.
func (g *Good) SetMultiplier(m float64) {
	g.mu.Lock()
	g.multiplier = m
	g.mu.Unlock()
}

// CurrentPrice is base price times multiplier, before tax and bonuses.
func (g *Good) CurrentPrice() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.BasePrice * g.multiplier
}

// Trend is the signed distance of the multiplier from 1.0.
func (g *Good) Trend() float64 {
	return g.Multiplier() - 1.0
}

// LastSale returns the time of the most recent sale.
func (g *Good) LastSale() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastSale
}

// TotalSold returns the cumulative number of units sold.
func (g *Good) TotalSold() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.totalSold
}

// RecordSale refreshes the last sale time and adds amount to the counter.
func (g *Good) RecordSale(amount int, at time.Time) {
	g.mu.Lock()
	g.lastSale = at
	g.totalSold += int64(amount)
	g.mu.Unlock()
}

// State returns the persisted form of the good's mutable state.
func (g *Good) State() types.GoodState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var millis int64
	if !g.lastSale.IsZero() {
		millis = g.lastSale.UnixMilli()
	}
	return types.GoodState{
		GoodKey:                 g.Key,
		Multiplier:              g.multiplier,
		LastSellTimestampMillis: millis,
		TotalSold:               g.totalSold,
	}
}

// Restore loads persisted state into the good.
func (g *Good) Restore(s types.GoodState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.multiplier = s.Multiplier
	g.totalSold = s.TotalSold
	if s.LastSellTimestampMillis > 0 {
		g.lastSale = time.UnixMilli(s.LastSellTimestampMillis)
	} else {
		g.lastSale = time.Time{}
	}
}

// Category groups goods that share seasonal bonus eligibility. Goods keep
// their catalogue order for display.
type Category struct {
	Key         string  `json:"key"`
	DisplayName string  `json:"display_name"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Slot        int     `json:"slot"`
	Goods       []*Good `json:"goods"`
}

// Good returns the category's good with the given key, or nil.
func (c *Category) Good(key string) *Good {
	for _, g := range c.Goods {
		if g.Key == key {
			return g
		}
	}
	return nil
}

// Catalogue is the ordered set of categories plus a flat good index.
// Its structure is fixed once built.
type Catalogue struct {
	Version    int
	categories []*Category
	byCategory map[string]*Category
	byGood     map[string]*Good
	goods      []*Good
}

// New builds a catalogue from ordered categories. Goods whose key was
// already seen in an earlier category are dropped so the index stays unique.
func New(version int, categories []*Category) *Catalogue {
	c := &Catalogue{
		Version:    version,
		byCategory: make(map[string]*Category, len(categories)),
		byGood:     make(map[string]*Good),
	}
	for _, cat := range categories {
		if _, dup := c.byCategory[cat.Key]; dup {
			continue
		}
		kept := cat.Goods[:0]
		for _, g := range cat.Goods {
			if _, dup := c.byGood[g.Key]; dup {
				continue
			}
			g.CategoryKey = cat.Key
			c.byGood[g.Key] = g
			c.goods = append(c.goods, g)
			kept = append(kept, g)
		}
		cat.Goods = kept
		c.byCategory[cat.Key] = cat
		c.categories = append(c.categories, cat)
	}
	return c
}

// Categories returns the categories in catalogue order.
func (c *Catalogue) Categories() []*Category {
	return c.categories
}

// Category looks up a category by key.
func (c *Catalogue) Category(key string) *Category {
	return c.byCategory[key]
}

// Good looks up a good by key.
func (c *Catalogue) Good(key string) *Good {
	return c.byGood[key]
}

// Goods returns every good in catalogue order.
func (c *Catalogue) Goods() []*Good {
	return c.goods
}

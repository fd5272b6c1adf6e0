package market

import (
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/catalogue"
	"github.com/Nixend-creator/DynamicEconomy/internal/config"
)

// CategoryView is a category as shown in the market browser.
type CategoryView struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Slot        int    `json:"slot"`
	Hot         bool   `json:"hot"`
	Goods       int    `json:"goods"`
}

// GoodView is a good with its live prices and bonuses. Prices shown here may
// be stale by the time a transaction commits.
type GoodView struct {
	Key                string     `json:"key"`
	Category           string     `json:"category"`
	DisplayName        string     `json:"display_name"`
	BasePrice          float64    `json:"base_price"`
	Multiplier         float64    `json:"multiplier"`
	CurrentPrice       float64    `json:"current_price"`
	EffectiveSellPrice float64    `json:"effective_sell_price"`
	BuyPrice           float64    `json:"buy_price,omitempty"`
	Trend              float64    `json:"trend"`
	Hot                bool       `json:"hot"`
	EventMultiplier    float64    `json:"event_multiplier"`
	ContractActive     bool       `json:"contract_active"`
	TotalSold          int64      `json:"total_sold"`
	LastSale           *time.Time `json:"last_sale,omitempty"`
}

// GoodSnapshot is the raw counter set exposed for history sampling.
type GoodSnapshot struct {
	GoodKey                 string  `json:"good_key"`
	Multiplier              float64 `json:"multiplier"`
	CurrentPrice            float64 `json:"current_price"`
	TotalSold               int64   `json:"total_sold"`
	LastSellTimestampMillis int64   `json:"last_sell_timestamp_millis"`
}

func (e *Engine) view() (*catalogue.Catalogue, config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cat, e.cfg
}

// Categories lists the categories in catalogue order.
func (e *Engine) Categories() []CategoryView {
	cat, _ := e.view()
	out := make([]CategoryView, 0, len(cat.Categories()))
	for _, c := range cat.Categories() {
		out = append(out, CategoryView{
			Key:         c.Key,
			DisplayName: c.DisplayName,
			Description: c.Description,
			Icon:        c.Icon,
			Slot:        c.Slot,
			Hot:         e.deps.Seasonal.IsHot(c.Key),
			Goods:       len(c.Goods),
		})
	}
	return out
}

func (e *Engine) goodView(g *catalogue.Good, cfg config.Config) GoodView {
	price := g.CurrentPrice()
	seasonal := e.deps.Seasonal.Multiplier(g.CategoryKey)
	event := e.deps.Events.Multiplier(g.Key)
	v := GoodView{
		Key:                g.Key,
		Category:           g.CategoryKey,
		DisplayName:        g.DisplayName,
		BasePrice:          g.BasePrice,
		Multiplier:         g.Multiplier(),
		CurrentPrice:       price,
		EffectiveSellPrice: price * seasonal * event * (1.0 - cfg.Economy.SellTaxRate),
		Trend:              g.Trend(),
		Hot:                e.deps.Seasonal.IsHot(g.CategoryKey),
		EventMultiplier:    event,
		ContractActive:     e.deps.Contracts.HasActiveContractFor(g.Key),
		TotalSold:          g.TotalSold(),
	}
	if cfg.BuyMode.Enabled {
		v.BuyPrice = price * cfg.BuyMode.SpreadMultiplier
	}
	if last := g.LastSale(); !last.IsZero() {
		v.LastSale = &last
	}
	return v
}

// Good returns the view of one good.
func (e *Engine) Good(key string) (GoodView, bool) {
	cat, cfg := e.view()
	g := cat.Good(key)
	if g == nil {
		return GoodView{}, false
	}
	return e.goodView(g, cfg), true
}

// CategoryGoods returns the views of a category's goods in catalogue order.
func (e *Engine) CategoryGoods(categoryKey string) ([]GoodView, bool) {
	cat, cfg := e.view()
	c := cat.Category(categoryKey)
	if c == nil {
		return nil, false
	}
	out := make([]GoodView, 0, len(c.Goods))
	for _, g := range c.Goods {
		out = append(out, e.goodView(g, cfg))
	}
	return out, true
}

// Snapshot returns raw counters for every good.
func (e *Engine) Snapshot() []GoodSnapshot {
	cat, _ := e.view()
	out := make([]GoodSnapshot, 0, len(cat.Goods()))
	for _, g := range cat.Goods() {
		s := g.State()
		out = append(out, GoodSnapshot{
			GoodKey:                 s.GoodKey,
			Multiplier:              s.Multiplier,
			CurrentPrice:            g.BasePrice * s.Multiplier,
			TotalSold:               s.TotalSold,
			LastSellTimestampMillis: s.LastSellTimestampMillis,
		})
	}
	return out
}

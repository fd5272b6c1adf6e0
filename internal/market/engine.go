// Package market orchestrates sell and buy transactions against the
// catalogue. It owns every good's mutable price state; the seasonal, contract,
// event, treasury and reputation stores are consulted through narrow
// interfaces.
package market

import (
	"sync"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/catalogue"
	"github.com/Nixend-creator/DynamicEconomy/internal/config"
	"github.com/Nixend-creator/DynamicEconomy/internal/contracts"
	"github.com/Nixend-creator/DynamicEconomy/internal/pricing"
	"github.com/Nixend-creator/DynamicEconomy/internal/types"
	"github.com/rs/zerolog/log"
)

// SellAll sells every unit of the good the player holds.
const SellAll = -1

// Trader is the player side of a transaction.
type Trader interface {
	ID() string
	Trusted() bool
	Count(goodKey string) int
	Remove(goodKey string, n int) bool
	Add(goodKey string, n int) bool
	FreeSpace() int
	Balance() float64
	Deposit(amount float64)
	Withdraw(amount float64) bool
}

// Seasonal yields the seasonal factor of a category.
type Seasonal interface {
	Multiplier(categoryKey string) float64
	IsHot(categoryKey string) bool
}

// Contracts is the contract board as seen by a sale.
type Contracts interface {
	HasActiveContractFor(goodKey string) bool
	BonusMultiplier(goodKey string) float64
	OnSell(playerID, goodKey string, amount int) *contracts.Contract
}

// Events yields the market event factor of a good.
type Events interface {
	Multiplier(goodKey string) float64
}

// Treasury receives tax and the buy cut.
type Treasury interface {
	Collect(amount float64)
}

// Reputation supplies per-player tax and caps and records volume.
type Reputation interface {
	TaxRate(playerID string) float64
	MaxSellAmount(playerID string) int
	RecordSell(playerID string, amount int, payout float64)
}

// SellResult describes a sale or a sale preview.
type SellResult struct {
	Outcome           types.Outcome `json:"outcome"`
	GoodKey           string        `json:"good_key,omitempty"`
	DisplayName       string        `json:"display_name,omitempty"`
	Amount            int           `json:"amount"`
	Payout            float64       `json:"payout"`
	PricePerUnit      float64       `json:"price_per_unit"`
	MultiplierAfter   float64       `json:"multiplier_after"`
	TaxRate           float64       `json:"tax_rate"`
	SeasonalBonus     bool          `json:"seasonal_bonus"`
	DiversityBonus    bool          `json:"diversity_bonus"`
	ContractBonus     bool          `json:"contract_bonus"`
	EventMultiplier   float64       `json:"event_multiplier"`
	ContractCompleted bool          `json:"contract_completed,omitempty"`
}

// BuyResult describes a purchase from the market.
type BuyResult struct {
	Outcome      types.Outcome `json:"outcome"`
	GoodKey      string        `json:"good_key,omitempty"`
	DisplayName  string        `json:"display_name,omitempty"`
	Amount       int           `json:"amount"`
	Cost         float64       `json:"cost"`
	PricePerUnit float64       `json:"price_per_unit"`
}

// Deps are the stores a sale consults.
type Deps struct {
	Seasonal   Seasonal
	Contracts  Contracts
	Events     Events
	Treasury   Treasury
	Reputation Reputation
}

// Engine serializes every transaction and every mutation of good state.
type Engine struct {
	mu        sync.Mutex
	cfg       config.Config
	cat       *catalogue.Catalogue
	calc      *pricing.Calculator
	cooldowns map[string]time.Time
	diversity map[string]map[string]time.Time // player -> category -> last sale

	deps Deps
	now  func() time.Time
}

// NewEngine creates an engine over cat.
func NewEngine(cat *catalogue.Catalogue, cfg config.Config, deps Deps) *Engine {
	return &Engine{
		cfg:       cfg,
		cat:       cat,
		calc:      calculatorFor(cfg),
		cooldowns: make(map[string]time.Time),
		diversity: make(map[string]map[string]time.Time),
		deps:      deps,
		now:       time.Now,
	}
}

func calculatorFor(cfg config.Config) *pricing.Calculator {
	return pricing.NewCalculator(pricing.Params{
		MinMultiplier:   cfg.Economy.MinPriceMultiplier,
		MaxMultiplier:   cfg.Economy.MaxPriceMultiplier,
		DropPerStack:    cfg.Economy.PriceDropPerStack,
		RecoveryPerHour: cfg.Economy.PriceRecoveryPerHour,
		SellTaxRate:     cfg.Economy.SellTaxRate,
	})
}

// Catalogue returns the live catalogue.
func (e *Engine) Catalogue() *catalogue.Catalogue {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cat
}

// Config returns a copy of the live configuration.
func (e *Engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// quote is the priced form of a prospective sale.
type quote struct {
	good      *catalogue.Good
	amount    int
	taxRate   float64
	payout    float64
	multAfter float64
	seasonal  float64
	diversity bool
	contract  bool
	event     float64
}

// quoteLocked runs the validation and pricing steps shared by Sell and
// PreviewSell. It never mutates.
func (e *Engine) quoteLocked(t Trader, goodKey string, amount int, now time.Time) (quote, types.Outcome) {
	good := e.cat.Good(goodKey)
	if good == nil {
		return quote{}, types.OutcomeItemNotSold
	}
	if amount != SellAll && amount <= 0 {
		return quote{}, types.OutcomeInvalidAmount
	}

	held := t.Count(goodKey)
	if held <= 0 {
		return quote{}, types.OutcomeNotEnoughItems
	}
	qty := held
	if amount != SellAll {
		qty = min(amount, held)
	}
	qty = min(qty, e.deps.Reputation.MaxSellAmount(t.ID()))
	if qty <= 0 {
		return quote{}, types.OutcomeNotEnoughItems
	}

	q := quote{
		good:     good,
		amount:   qty,
		taxRate:  e.deps.Reputation.TaxRate(t.ID()),
		seasonal: e.deps.Seasonal.Multiplier(good.CategoryKey),
		event:    e.deps.Events.Multiplier(goodKey),
	}
	q.diversity = e.hasDiversityLocked(t.ID(), good.CategoryKey, now)
	diversityMult := 1.0
	if q.diversity {
		diversityMult = 1.0 + e.cfg.Diversity.BonusMultiplier
	}
	contractMult := e.deps.Contracts.BonusMultiplier(goodKey)
	q.contract = e.deps.Contracts.HasActiveContractFor(goodKey)

	q.payout = e.calc.NetPayout(good.CurrentPrice(), qty, q.taxRate, q.seasonal*diversityMult*contractMult*q.event)
	q.multAfter = e.calc.PreviewMultiplierAfterSale(good, qty)
	return q, types.OutcomeSuccess
}

// hasDiversityLocked counts the categories this player sold into within the
// window, counting the current one if it is stale or absent. The scan is
// fresh on every call.
func (e *Engine) hasDiversityLocked(playerID, categoryKey string, now time.Time) bool {
	if !e.cfg.Diversity.Enabled {
		return false
	}
	window := time.Duration(e.cfg.Diversity.WindowMinutes) * time.Minute
	tracker := e.diversity[playerID]

	distinct := 0
	for _, at := range tracker {
		if now.Sub(at) <= window {
			distinct++
		}
	}
	if last, ok := tracker[categoryKey]; !ok || now.Sub(last) > window {
		distinct++
	}
	return distinct >= e.cfg.Diversity.MinCategories
}

func (e *Engine) onCooldownLocked(t Trader, now time.Time) bool {
	if t.Trusted() {
		return false
	}
	last, ok := e.cooldowns[t.ID()]
	if !ok {
		return false
	}
	return now.Sub(last) < time.Duration(e.cfg.Economy.SellCooldownSeconds)*time.Second
}

func (q quote) result() SellResult {
	return SellResult{
		Outcome:         types.OutcomeSuccess,
		GoodKey:         q.good.Key,
		DisplayName:     q.good.DisplayName,
		Amount:          q.amount,
		Payout:          q.payout,
		PricePerUnit:    q.payout / float64(q.amount),
		MultiplierAfter: q.multAfter,
		TaxRate:         q.taxRate,
		SeasonalBonus:   q.seasonal != 1.0,
		DiversityBonus:  q.diversity,
		ContractBonus:   q.contract,
		EventMultiplier: q.event,
	}
}

// Sell sells amount units (or SellAll) of goodKey for t.
func (e *Engine) Sell(t Trader, goodKey string, amount int) SellResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if e.onCooldownLocked(t, now) {
		return SellResult{Outcome: types.OutcomeCooldown, GoodKey: goodKey}
	}

	q, outcome := e.quoteLocked(t, goodKey, amount, now)
	if !outcome.OK() {
		return SellResult{Outcome: outcome, GoodKey: goodKey}
	}

	if !t.Remove(goodKey, q.amount) {
		return SellResult{Outcome: types.OutcomeNotEnoughItems, GoodKey: goodKey}
	}
	t.Deposit(q.payout)
	e.deps.Treasury.Collect(q.payout * q.taxRate)
	q.multAfter = e.calc.ApplySale(q.good, q.amount, now)

	e.cooldowns[t.ID()] = now
	tracker, ok := e.diversity[t.ID()]
	if !ok {
		tracker = make(map[string]time.Time)
		e.diversity[t.ID()] = tracker
	}
	tracker[q.good.CategoryKey] = now

	res := q.result()
	res.ContractCompleted = e.deps.Contracts.OnSell(t.ID(), goodKey, q.amount) != nil
	e.deps.Reputation.RecordSell(t.ID(), q.amount, q.payout)

	if e.cfg.Logging.LogSales {
		log.Info().
			Str("service", "market").
			Str("player_id", t.ID()).
			Str("good", goodKey).
			Int("amount", q.amount).
			Float64("payout", q.payout).
			Float64("multiplier", q.multAfter).
			Bool("diversity", q.diversity).
			Bool("contract", q.contract).
			Msg("sale")
	}
	return res
}

// PreviewSell prices a sale without committing it. A later Sell re-reads
// live state and may settle at a different price.
func (e *Engine) PreviewSell(t Trader, goodKey string, amount int) SellResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	q, outcome := e.quoteLocked(t, goodKey, amount, e.now())
	if !outcome.OK() {
		return SellResult{Outcome: outcome, GoodKey: goodKey}
	}
	return q.result()
}

// Buy purchases amount units of goodKey at the current price times the
// spread. The good's multiplier is not touched.
func (e *Engine) Buy(t Trader, goodKey string, amount int) BuyResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.cfg.BuyMode.Enabled {
		return BuyResult{Outcome: types.OutcomeBuyModeDisabled, GoodKey: goodKey}
	}
	good := e.cat.Good(goodKey)
	if good == nil {
		return BuyResult{Outcome: types.OutcomeItemNotFound, GoodKey: goodKey}
	}
	if amount <= 0 {
		return BuyResult{Outcome: types.OutcomeInvalidAmount, GoodKey: goodKey}
	}
	if t.FreeSpace() < amount {
		return BuyResult{Outcome: types.OutcomeInventoryFull, GoodKey: goodKey}
	}

	unit := good.CurrentPrice() * e.cfg.BuyMode.SpreadMultiplier
	cost := unit * float64(amount)
	if !t.Withdraw(cost) {
		return BuyResult{Outcome: types.OutcomeInsufficientFund, GoodKey: goodKey}
	}
	if !t.Add(goodKey, amount) {
		t.Deposit(cost)
		return BuyResult{Outcome: types.OutcomeInventoryFull, GoodKey: goodKey}
	}
	e.deps.Treasury.Collect(cost * e.cfg.BuyMode.TreasuryCut)

	if e.cfg.Logging.LogBuys {
		log.Info().
			Str("service", "market").
			Str("player_id", t.ID()).
			Str("good", goodKey).
			Int("amount", amount).
			Float64("cost", cost).
			Msg("buy")
	}
	return BuyResult{
		Outcome:      types.OutcomeSuccess,
		GoodKey:      goodKey,
		DisplayName:  good.DisplayName,
		Amount:       amount,
		Cost:         cost,
		PricePerUnit: unit,
	}
}

// Recover applies hoursElapsed of price recovery to every good.
func (e *Engine) Recover(hoursElapsed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, g := range e.cat.Goods() {
		e.calc.ApplyRecovery(g, hoursElapsed)
	}
}

// PruneTrackers drops cooldown and diversity entries older than both
// windows. They carry no meaning past that point.
func (e *Engine) PruneTrackers() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	cooldown := time.Duration(e.cfg.Economy.SellCooldownSeconds) * time.Second
	window := time.Duration(e.cfg.Diversity.WindowMinutes) * time.Minute

	pruned := 0
	for id, at := range e.cooldowns {
		if now.Sub(at) > cooldown {
			delete(e.cooldowns, id)
			pruned++
		}
	}
	for id, tracker := range e.diversity {
		for cat, at := range tracker {
			if now.Sub(at) > window {
				delete(tracker, cat)
			}
		}
		if len(tracker) == 0 {
			delete(e.diversity, id)
			pruned++
		}
	}
	return pruned
}

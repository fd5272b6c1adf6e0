package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/auction"
	"github.com/Nixend-creator/DynamicEconomy/internal/catalogue"
	"github.com/Nixend-creator/DynamicEconomy/internal/config"
	"github.com/Nixend-creator/DynamicEconomy/internal/contracts"
	"github.com/Nixend-creator/DynamicEconomy/internal/events"
	"github.com/Nixend-creator/DynamicEconomy/internal/players"
	"github.com/Nixend-creator/DynamicEconomy/internal/reputation"
	"github.com/Nixend-creator/DynamicEconomy/internal/seasonal"
	"github.com/Nixend-creator/DynamicEconomy/internal/treasury"
	"github.com/Nixend-creator/DynamicEconomy/internal/types"
	"github.com/rs/zerolog/log"
)

// ResetGood sets one good's multiplier back to 1.0.
func (e *Engine) ResetGood(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.cat.Good(key)
	if g == nil {
		return false
	}
	g.SetMultiplier(1.0)
	return true
}

// ResetAll sets every multiplier back to 1.0 and returns how many goods
// were reset.
func (e *Engine) ResetAll() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, g := range e.cat.Goods() {
		g.SetMultiplier(1.0)
	}
	return len(e.cat.Goods())
}

// SetMultiplier forces a good's multiplier, clamped to [0.01, 10].
func (e *Engine) SetMultiplier(key string, m float64) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.cat.Good(key)
	if g == nil {
		return 0, false
	}
	clamped := config.ClampMultiplier(m)
	g.SetMultiplier(clamped)
	return clamped, true
}

// Reconfigure swaps the configuration and catalogue. Goods present in both
// catalogues keep their live state.
func (e *Engine) Reconfigure(cfg config.Config, cat *catalogue.Catalogue) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cat != nil && cat != e.cat {
		for _, g := range cat.Goods() {
			if old := e.cat.Good(g.Key); old != nil {
				g.Restore(old.State())
			}
		}
		e.cat = cat
	}
	e.cfg = cfg
	e.calc = calculatorFor(cfg)
}

// Admin bundles the administrative operations that span every store.
type Admin struct {
	Engine     *Engine
	Goods      *Database
	Seasonal   *seasonal.Rotation
	Contracts  *contracts.Board
	Events     *events.Engine
	Auction    *auction.Board
	Treasury   *treasury.Ledger
	Reputation *reputation.Tracker
	Players    *players.Registry
	ConfigPath string
}

// Info is the aggregate admin view.
type Info struct {
	CatalogueVersion int              `json:"catalogue_version"`
	Categories       int              `json:"categories"`
	Goods            int              `json:"goods"`
	ActiveContracts  int              `json:"active_contracts"`
	ActiveEvents     int              `json:"active_events"`
	ActiveListings   int              `json:"active_listings"`
	ConnectedPlayers int              `json:"connected_players"`
	HotCategory      string           `json:"hot_category,omitempty"`
	HotSince         *time.Time       `json:"hot_since,omitempty"`
	Treasury         treasury.Summary `json:"treasury"`
}

func (a *Admin) Info() Info {
	cat := a.Engine.Catalogue()
	info := Info{
		CatalogueVersion: cat.Version,
		Categories:       len(cat.Categories()),
		Goods:            len(cat.Goods()),
		ActiveContracts:  a.Contracts.Count(),
		ActiveEvents:     a.Events.Count(),
		ActiveListings:   a.Auction.Count(),
		ConnectedPlayers: len(a.Players.Connected()),
		Treasury:         a.Treasury.Summary(),
	}
	if hot, since := a.Seasonal.Hot(); hot != "" {
		info.HotCategory = hot
		info.HotSince = &since
	}
	return info
}

// Reload re-reads the configuration file and catalogue, pushes them into
// every store and reloads persisted good state. Live state is saved first so
// nothing traded since the last auto-save is lost.
func (a *Admin) Reload() (Info, error) {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return Info{}, fmt.Errorf("failed to reload config: %w", err)
	}
	cat, err := catalogue.Load(cfg.Catalogue.Path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to reload catalogue: %w", err)
	}

	if err := a.Engine.Save(a.Goods); err != nil {
		log.Error().Err(err).Msg("failed to save good states before reload")
	}
	a.Engine.Reconfigure(*cfg, cat)
	if err := a.Engine.Load(a.Goods); err != nil {
		log.Error().Err(err).Msg("failed to reload good states, keeping live state")
	}

	a.Seasonal.Configure(cfg.Seasonal)
	a.Seasonal.SetCatalogue(cat)
	a.Contracts.Configure(cfg.Contracts)
	a.Contracts.SetCatalogue(cat)
	a.Events.Configure(cfg.MarketEvents, cfg.Logging.LogEvents)
	a.Events.SetCatalogue(cat)
	a.Auction.Configure(cfg.Auction)
	a.Auction.SetCatalogue(cat)
	a.Reputation.Configure(cfg.Reputation, cfg.Economy)
	a.Players.Configure(cfg.Players)

	log.Info().Int("catalogue_version", cat.Version).Int("goods", len(cat.Goods())).Msg("configuration reloaded")
	return a.Info(), nil
}

// Reset resets one good, or every good when key is "all". It returns the
// number of goods reset.
func (a *Admin) Reset(key string) (int, error) {
	if strings.EqualFold(key, "all") {
		n := a.Engine.ResetAll()
		log.Info().Int("goods", n).Msg("all prices reset")
		return n, nil
	}
	if !a.Engine.ResetGood(key) {
		return 0, types.OutcomeItemNotFound
	}
	log.Info().Str("good", key).Msg("price reset")
	return 1, nil
}

// SetPrice forces a good's multiplier and returns the clamped value.
func (a *Admin) SetPrice(key string, multiplier float64) (float64, error) {
	m, ok := a.Engine.SetMultiplier(key, multiplier)
	if !ok {
		return 0, types.OutcomeItemNotFound
	}
	log.Info().Str("good", key).Float64("requested", multiplier).Float64("multiplier", m).Msg("price multiplier set")
	return m, nil
}

// FireEvent starts or replaces an event on a good.
func (a *Admin) FireEvent(typeName, goodKey string, minutes int) (events.Event, error) {
	t, ok := events.ParseType(typeName)
	if !ok || minutes <= 0 {
		return events.Event{}, types.OutcomeInvalidAmount
	}
	ev, ok := a.Events.Fire(goodKey, t, time.Duration(minutes)*time.Minute)
	if !ok {
		return events.Event{}, types.OutcomeItemNotFound
	}
	return ev, nil
}

// EventView is an active event with its remaining time.
type EventView struct {
	events.Event
	RemainingSeconds int `json:"remaining_seconds"`
}

func (a *Admin) ActiveEvents() []EventView {
	now := a.Events.Now()
	active := a.Events.Active()
	out := make([]EventView, 0, len(active))
	for _, ev := range active {
		out = append(out, EventView{Event: ev, RemainingSeconds: ev.RemainingSeconds(now)})
	}
	return out
}

// Give pays amount from the treasury to a known player.
func (a *Admin) Give(playerID string, amount float64) error {
	account, ok := a.Players.Lookup(playerID)
	if !ok {
		return types.OutcomeNotFound
	}
	return a.Treasury.Distribute(account, amount)
}

// GiveAll splits amount across every connected player.
func (a *Admin) GiveAll(amount float64) (share float64, recipients int, err error) {
	connected := a.Players.Connected()
	rs := make([]treasury.Recipient, 0, len(connected))
	for _, acc := range connected {
		rs = append(rs, acc)
	}
	share, err = a.Treasury.DistributeToAll(rs, amount)
	return share, len(rs), err
}

// Grant adds goods and balance to a player's account, creating it if needed.
func (a *Admin) Grant(playerID, goodKey string, amount int, balance float64) (players.Snapshot, error) {
	if playerID == "" || amount < 0 || balance < 0 {
		return players.Snapshot{}, types.OutcomeInvalidAmount
	}
	account := a.Players.Account(playerID)
	if amount > 0 {
		if a.Engine.Catalogue().Good(goodKey) == nil {
			return players.Snapshot{}, types.OutcomeItemNotFound
		}
		if !account.Add(goodKey, amount) {
			return players.Snapshot{}, types.OutcomeInventoryFull
		}
	}
	account.Deposit(balance)
	log.Info().Str("player_id", playerID).Str("good", goodKey).Int("amount", amount).Float64("balance", balance).Msg("admin grant")
	return account.Snapshot(), nil
}

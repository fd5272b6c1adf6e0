// Package events runs time-boxed market shocks. Each good carries at most one
// event; firing a new one replaces the old one.
package events

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/broadcast"
	"github.com/Nixend-creator/DynamicEconomy/internal/catalogue"
	"github.com/Nixend-creator/DynamicEconomy/internal/config"
	"github.com/rs/zerolog/log"
)

// Type is the kind of market shock.
type Type string

const (
	Boom     Type = "BOOM"
	Shortage Type = "SHORTAGE"
	Crash    Type = "CRASH"
	Panic    Type = "PANIC"
)

// Types lists every event type.
var Types = []Type{Boom, Shortage, Crash, Panic}

// ParseType resolves a case-insensitive event type name.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Types {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Event is an active shock on one good.
type Event struct {
	GoodKey    string    `json:"good_key"`
	Type       Type      `json:"type"`
	Multiplier float64   `json:"multiplier"`
	StartedAt  time.Time `json:"started_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// RemainingSeconds is the whole seconds left before expiry, never negative.
func (e Event) RemainingSeconds(now time.Time) int {
	left := e.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

// Engine is the per-good event state store.
type Engine struct {
	mu     sync.Mutex
	cfg    config.MarketEventsConfig
	logOn  bool
	cat    *catalogue.Catalogue
	active map[string]Event

	rng      *rand.Rand
	now      func() time.Time
	notifier broadcast.Notifier
}

// NewEngine creates an engine with no active events.
func NewEngine(cat *catalogue.Catalogue, cfg config.MarketEventsConfig, logEvents bool, notifier broadcast.Notifier) *Engine {
	return &Engine{
		cfg:      cfg,
		logOn:    logEvents,
		cat:      cat,
		active:   make(map[string]Event),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		notifier: notifier,
	}
}

func (e *Engine) factorLocked(t Type) float64 {
	switch t {
	case Boom:
		return e.cfg.Boom
	case Shortage:
		return e.cfg.Shortage
	case Crash:
		return e.cfg.Crash
	case Panic:
		return e.cfg.Panic
	}
	return 1.0
}

// Fire starts an event of type t on goodKey for duration, replacing any event
// already running on that good. It returns false for an unknown good.
func (e *Engine) Fire(goodKey string, t Type, duration time.Duration) (Event, bool) {
	e.mu.Lock()
	good := e.cat.Good(goodKey)
	if good == nil {
		e.mu.Unlock()
		log.Warn().Str("service", "events").Str("good", goodKey).Msg("cannot fire event on unknown good")
		return Event{}, false
	}
	now := e.now()
	ev := Event{
		GoodKey:    goodKey,
		Type:       t,
		Multiplier: e.factorLocked(t),
		StartedAt:  now,
		ExpiresAt:  now.Add(duration),
	}
	_, replaced := e.active[goodKey]
	e.active[goodKey] = ev
	logOn := e.logOn
	e.mu.Unlock()

	if logOn {
		log.Info().
			Str("service", "events").
			Str("good", goodKey).
			Str("type", string(t)).
			Float64("multiplier", ev.Multiplier).
			Bool("replaced", replaced).
			Dur("duration", duration).
			Msg("market event started")
	}
	e.notifier.Announce(broadcast.Announcement{
		Kind:    broadcast.KindEventStarted,
		Message: fmt.Sprintf("Market event: %s on %s (x%.1f)", t, good.DisplayName, ev.Multiplier),
		Fields: map[string]any{
			"good":       goodKey,
			"type":       string(t),
			"multiplier": ev.Multiplier,
			"expires_at": ev.ExpiresAt,
		},
	})
	return ev, true
}

// FireRandom starts a random event type on a random good for the configured
// duration.
func (e *Engine) FireRandom() (Event, bool) {
	e.mu.Lock()
	goods := e.cat.Goods()
	if len(goods) == 0 {
		e.mu.Unlock()
		return Event{}, false
	}
	good := goods[e.rng.Intn(len(goods))]
	t := Types[e.rng.Intn(len(Types))]
	duration := time.Duration(e.cfg.DurationMinutes) * time.Minute
	e.mu.Unlock()

	return e.Fire(good.Key, t, duration)
}

// Sweep ends every event whose expiry has passed and returns them.
func (e *Engine) Sweep() []Event {
	e.mu.Lock()
	now := e.now()
	var ended []Event
	for key, ev := range e.active {
		if !now.Before(ev.ExpiresAt) {
			ended = append(ended, ev)
			delete(e.active, key)
		}
	}
	logOn := e.logOn
	e.mu.Unlock()

	sort.Slice(ended, func(i, j int) bool { return ended[i].GoodKey < ended[j].GoodKey })
	for _, ev := range ended {
		if logOn {
			log.Info().Str("service", "events").Str("good", ev.GoodKey).Str("type", string(ev.Type)).Msg("market event ended")
		}
		e.notifier.Announce(broadcast.Announcement{
			Kind:    broadcast.KindEventEnded,
			Message: fmt.Sprintf("Market event %s on %s has ended", ev.Type, ev.GoodKey),
			Fields:  map[string]any{"good": ev.GoodKey, "type": string(ev.Type)},
		})
	}
	return ended
}

// Multiplier returns the event factor for goodKey, 1.0 when no live event
// exists. The enabled flag only gates the random scheduler, so events fired
// by an admin apply either way.
func (e *Engine) Multiplier(goodKey string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev, ok := e.active[goodKey]
	if !ok || !e.now().Before(ev.ExpiresAt) {
		return 1.0
	}
	return ev.Multiplier
}

// Get returns the live event on goodKey.
func (e *Engine) Get(goodKey string) (Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev, ok := e.active[goodKey]
	if !ok || !e.now().Before(ev.ExpiresAt) {
		return Event{}, false
	}
	return ev, true
}

// Active returns the live events ordered by good key.
func (e *Engine) Active() []Event {
	e.mu.Lock()
	now := e.now()
	out := make([]Event, 0, len(e.active))
	for _, ev := range e.active {
		if now.Before(ev.ExpiresAt) {
			out = append(out, ev)
		}
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].GoodKey < out[j].GoodKey })
	return out
}

// Count returns the number of live events.
func (e *Engine) Count() int {
	return len(e.Active())
}

// Now returns the engine clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Configure swaps the event configuration. Running events keep their factor.
func (e *Engine) Configure(cfg config.MarketEventsConfig, logEvents bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.logOn = logEvents
}

// SetCatalogue replaces the catalogue and drops events on goods that no
// longer exist.
func (e *Engine) SetCatalogue(cat *catalogue.Catalogue) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cat = cat
	for key := range e.active {
		if cat.Good(key) == nil {
			delete(e.active, key)
		}
	}
}

// nextDelay draws the wait before the next random event from
// [minIntervalMinutes, maxIntervalMinutes].
func (e *Engine) nextDelay() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	lo, hi := e.cfg.MinIntervalMinutes, e.cfg.MaxIntervalMinutes
	if hi < lo {
		hi = lo
	}
	minutes := lo + e.rng.Intn(hi-lo+1)
	return time.Duration(minutes) * time.Minute
}

func (e *Engine) enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Enabled
}

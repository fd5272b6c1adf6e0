package events

import (
	"math/rand"
	"testing"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/broadcast"
	"github.com/Nixend-creator/DynamicEconomy/internal/catalogue"
	"github.com/Nixend-creator/DynamicEconomy/internal/config"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func newTestEngine() (*Engine, *fakeClock) {
	cat := catalogue.New(1, []*catalogue.Category{
		{Key: "farming", Goods: []*catalogue.Good{
			catalogue.NewGood("WHEAT", "farming", "Wheat", 1),
			catalogue.NewGood("CARROT", "farming", "Carrot", 0.8),
		}},
	})
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	e := NewEngine(cat, config.Defaults().MarketEvents, true, broadcast.Discard{})
	e.now = clock.now
	e.rng = rand.New(rand.NewSource(3))
	return e, clock
}

func TestShippedFactors(t *testing.T) {
	e, _ := newTestEngine()
	want := map[Type]float64{Boom: 2.0, Shortage: 1.5, Crash: 0.4, Panic: 0.2}
	for typ, factor := range want {
		e.Fire("WHEAT", typ, time.Hour)
		if got := e.Multiplier("WHEAT"); got != factor {
			t.Fatalf("%s multiplier = %v, want %v", typ, got, factor)
		}
	}
}

func TestFireReplacesInsteadOfStacking(t *testing.T) {
	e, _ := newTestEngine()

	e.Fire("WHEAT", Boom, time.Hour)
	e.Fire("WHEAT", Crash, 10*time.Minute)

	if got := e.Count(); got != 1 {
		t.Fatalf("active events = %d, want 1", got)
	}
	if got := e.Multiplier("WHEAT"); got != 0.4 {
		t.Fatalf("multiplier = %v, want 0.4 (replaced, not 0.8)", got)
	}
	ev, ok := e.Get("WHEAT")
	if !ok || ev.Type != Crash {
		t.Fatalf("active event = %+v", ev)
	}
}

func TestFireUnknownGood(t *testing.T) {
	e, _ := newTestEngine()
	if _, ok := e.Fire("DIRT", Boom, time.Hour); ok {
		t.Fatal("event fired on unknown good")
	}
}

func TestSweepEndsExpiredEvents(t *testing.T) {
	e, clock := newTestEngine()
	e.Fire("WHEAT", Boom, 10*time.Minute)
	e.Fire("CARROT", Panic, time.Hour)

	clock.t = clock.t.Add(10 * time.Minute)
	if got := e.Multiplier("WHEAT"); got != 1.0 {
		t.Fatalf("expired event still applies: %v", got)
	}

	ended := e.Sweep()
	if len(ended) != 1 || ended[0].GoodKey != "WHEAT" {
		t.Fatalf("ended = %+v", ended)
	}
	if e.Count() != 1 {
		t.Fatalf("active = %d", e.Count())
	}
}

func TestManualFireAppliesWhileDisabled(t *testing.T) {
	e, _ := newTestEngine()
	cfg := config.Defaults().MarketEvents
	cfg.Enabled = false
	e.Configure(cfg, false)
	if e.enabled() {
		t.Fatal("scheduler still enabled")
	}

	e.Fire("WHEAT", Boom, time.Hour)
	if got := e.Multiplier("WHEAT"); got != 2.0 {
		t.Fatalf("multiplier with events disabled = %v, want 2.0", got)
	}
	if got := e.Multiplier("CARROT"); got != 1.0 {
		t.Fatalf("untouched good multiplier = %v", got)
	}
}

func TestNextDelayWithinBounds(t *testing.T) {
	e, _ := newTestEngine()
	for i := 0; i < 100; i++ {
		d := e.nextDelay()
		if d < 20*time.Minute || d > 60*time.Minute {
			t.Fatalf("delay %v outside [20m, 60m]", d)
		}
	}
}

func TestFireRandomTargetsKnownGood(t *testing.T) {
	e, _ := newTestEngine()
	ev, ok := e.FireRandom()
	if !ok {
		t.Fatal("random event did not fire")
	}
	if ev.GoodKey != "WHEAT" && ev.GoodKey != "CARROT" {
		t.Fatalf("random event on %q", ev.GoodKey)
	}
	if got := ev.ExpiresAt.Sub(ev.StartedAt); got != 30*time.Minute {
		t.Fatalf("duration = %v", got)
	}
}

func TestParseType(t *testing.T) {
	if typ, ok := ParseType(" boom "); !ok || typ != Boom {
		t.Fatalf("ParseType(boom) = %v, %v", typ, ok)
	}
	if _, ok := ParseType("meteor"); ok {
		t.Fatal("unknown type accepted")
	}
}

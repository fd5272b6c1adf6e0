package seasonal

import (
	"math/rand"
	"testing"

	"github.com/Nixend-creator/DynamicEconomy/internal/broadcast"
	"github.com/Nixend-creator/DynamicEconomy/internal/catalogue"
	"github.com/Nixend-creator/DynamicEconomy/internal/config"
)

type captureNotifier struct {
	got []broadcast.Announcement
}

func (c *captureNotifier) Announce(a broadcast.Announcement) {
	c.got = append(c.got, a)
}

func testCatalogue() *catalogue.Catalogue {
	return catalogue.New(1, []*catalogue.Category{
		{Key: "farming", DisplayName: "Farming", Goods: []*catalogue.Good{catalogue.NewGood("WHEAT", "farming", "Wheat", 1)}},
		{Key: "mining", DisplayName: "Mining", Goods: []*catalogue.Good{catalogue.NewGood("COAL", "mining", "Coal", 2)}},
		{Key: "fishing", DisplayName: "Fishing", Goods: []*catalogue.Good{catalogue.NewGood("COD", "fishing", "Cod", 1.5)}},
	})
}

func TestRotationAlwaysHasOneHotCategory(t *testing.T) {
	n := &captureNotifier{}
	r := New(testCatalogue(), config.Defaults().Seasonal, n)
	r.rng = rand.New(rand.NewSource(7))

	if hot, _ := r.Hot(); hot != "" {
		t.Fatalf("hot before first rotation = %q", hot)
	}

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		key := r.Rotate()
		if key == "" {
			t.Fatal("rotation produced no hot category")
		}
		seen[key] = true

		hotCount := 0
		for _, c := range []string{"farming", "mining", "fishing"} {
			if r.IsHot(c) {
				hotCount++
			}
		}
		if hotCount != 1 {
			t.Fatalf("hot categories = %d, want 1", hotCount)
		}
	}
	if len(seen) != 3 {
		t.Fatalf("uniform pick never reached every category: %v", seen)
	}
	if len(n.got) != 200 || n.got[0].Kind != broadcast.KindSeasonalRotation {
		t.Fatalf("announcements = %d", len(n.got))
	}
}

func TestMultiplierOnlyForHotCategory(t *testing.T) {
	r := New(testCatalogue(), config.Defaults().Seasonal, broadcast.Discard{})
	hot := r.Rotate()

	if got := r.Multiplier(hot); got != 1.5 {
		t.Fatalf("hot multiplier = %v, want 1.5", got)
	}
	for _, c := range []string{"farming", "mining", "fishing"} {
		if c != hot && r.Multiplier(c) != 1.0 {
			t.Fatalf("cold category %s multiplier = %v", c, r.Multiplier(c))
		}
	}

	cfg := config.Defaults().Seasonal
	cfg.Enabled = false
	r.Configure(cfg)
	if got := r.Multiplier(hot); got != 1.0 {
		t.Fatalf("disabled seasonal multiplier = %v, want 1.0", got)
	}
}

func TestRotateEmptyCatalogue(t *testing.T) {
	r := New(catalogue.New(1, nil), config.Defaults().Seasonal, broadcast.Discard{})
	if key := r.Rotate(); key != "" {
		t.Fatalf("rotate on empty catalogue = %q", key)
	}
}

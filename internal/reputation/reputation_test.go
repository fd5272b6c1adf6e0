package reputation

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/Nixend-creator/DynamicEconomy/internal/config"
	"github.com/Nixend-creator/DynamicEconomy/internal/database"
)

func newTestTracker() *Tracker {
	cfg := config.Defaults()
	return NewTracker(cfg.Reputation, cfg.Economy)
}

func TestTierThresholds(t *testing.T) {
	tr := newTestTracker()

	cases := []struct {
		volume  float64
		tier    int
		tax     float64
		maxSell int
	}{
		{0, TierDefault, 0.05, 2304},
		{9_999.99, TierDefault, 0.05, 2304},
		{10_000, TierMerchant, 0.04, 4608},
		{49_999, TierMerchant, 0.04, 4608},
		{50_000, TierTycoon, 0.03, 9216},
	}
	for _, tc := range cases {
		tr.volumes["p"] = tc.volume
		s := tr.Standing("p")
		if s.Tier.Level != tc.tier {
			t.Fatalf("volume %v: tier %d, want %d", tc.volume, s.Tier.Level, tc.tier)
		}
		if got := tr.TaxRate("p"); math.Abs(got-tc.tax) > 1e-9 {
			t.Fatalf("volume %v: tax %v, want %v", tc.volume, got, tc.tax)
		}
		if got := tr.MaxSellAmount("p"); got != tc.maxSell {
			t.Fatalf("volume %v: max sell %d, want %d", tc.volume, got, tc.maxSell)
		}
	}
}

func TestRecordSellIsMonotonic(t *testing.T) {
	tr := newTestTracker()
	tr.RecordSell("alice", 64, 6000)
	tr.RecordSell("alice", 64, -100)
	tr.RecordSell("alice", 64, 4000)

	s := tr.Standing("alice")
	if s.Volume != 10_000 || s.Tier.Level != TierMerchant {
		t.Fatalf("standing = %+v", s)
	}
}

func TestTaxNeverNegative(t *testing.T) {
	cfg := config.Defaults()
	cfg.Economy.SellTaxRate = 0.01
	tr := NewTracker(cfg.Reputation, cfg.Economy)
	tr.volumes["p"] = 1_000_000
	if got := tr.TaxRate("p"); got != 0 {
		t.Fatalf("tax = %v, want 0", got)
	}
}

func TestTrackerPersistence(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer database.Close(db)
	store := NewDatabase(db)

	tr := newTestTracker()
	tr.RecordSell("alice", 10, 123.5)
	tr.RecordSell("bob", 10, 60_000)
	if err := tr.Save(store); err != nil {
		t.Fatalf("save: %v", err)
	}
	tr.RecordSell("alice", 10, 1)
	if err := tr.Save(store); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded := newTestTracker()
	if err := loaded.Load(store); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := loaded.Standing("alice").Volume; got != 124.5 {
		t.Fatalf("alice volume = %v", got)
	}
	if got := loaded.Standing("bob").Tier.Level; got != TierTycoon {
		t.Fatalf("bob tier = %d", got)
	}
}

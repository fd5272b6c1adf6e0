package market

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/auction"
	"github.com/Nixend-creator/DynamicEconomy/internal/broadcast"
	"github.com/Nixend-creator/DynamicEconomy/internal/config"
	"github.com/Nixend-creator/DynamicEconomy/internal/contracts"
	"github.com/Nixend-creator/DynamicEconomy/internal/database"
	"github.com/Nixend-creator/DynamicEconomy/internal/events"
	"github.com/Nixend-creator/DynamicEconomy/internal/players"
	"github.com/Nixend-creator/DynamicEconomy/internal/reputation"
	"github.com/Nixend-creator/DynamicEconomy/internal/seasonal"
	"github.com/Nixend-creator/DynamicEconomy/internal/treasury"
	"github.com/Nixend-creator/DynamicEconomy/internal/types"
)

// newTestAdmin wires the real stores the way the server does.
func newTestAdmin(t *testing.T) *Admin {
	t.Helper()
	cfg := config.Defaults()
	cfg.Players.Capacity = 5000
	cat := testCatalogue()

	registry := players.NewRegistry(cfg.Players)
	ledger := treasury.NewLedger(broadcast.Discard{})
	rotation := seasonal.New(cat, cfg.Seasonal, broadcast.Discard{})
	board := contracts.NewBoard(cat, cfg.Contracts, broadcast.Discard{})
	evs := events.NewEngine(cat, cfg.MarketEvents, false, broadcast.Discard{})
	rep := reputation.NewTracker(cfg.Reputation, cfg.Economy)
	auc := auction.NewBoard(cat, cfg.Auction, func(id string) auction.Holder { return registry.Account(id) }, ledger, broadcast.Discard{})

	engine := NewEngine(cat, cfg, Deps{
		Seasonal:   rotation,
		Contracts:  board,
		Events:     evs,
		Treasury:   ledger,
		Reputation: rep,
	})
	return &Admin{
		Engine:     engine,
		Seasonal:   rotation,
		Contracts:  board,
		Events:     evs,
		Auction:    auc,
		Treasury:   ledger,
		Reputation: rep,
		Players:    registry,
	}
}

func TestAdminSetPriceAndReset(t *testing.T) {
	a := newTestAdmin(t)

	m, err := a.SetPrice("WHEAT", 50)
	if err != nil || m != 10 {
		t.Fatalf("set price = %v, %v", m, err)
	}
	if m, _ := a.SetPrice("IRON", 0); m != 0.01 {
		t.Fatalf("low clamp = %v", m)
	}
	if _, err := a.SetPrice("NOPE", 1); !errors.Is(err, types.OutcomeItemNotFound) {
		t.Fatalf("unknown good err = %v", err)
	}

	if n, err := a.Reset("WHEAT"); err != nil || n != 1 {
		t.Fatalf("reset one = %d, %v", n, err)
	}
	if v, _ := a.Engine.Good("WHEAT"); v.Multiplier != 1 {
		t.Fatalf("wheat = %v", v.Multiplier)
	}
	if n, _ := a.Reset("all"); n != 4 {
		t.Fatalf("reset all = %d", n)
	}
	if v, _ := a.Engine.Good("IRON"); v.Multiplier != 1 {
		t.Fatalf("iron = %v", v.Multiplier)
	}
}

func TestAdminOverrideSurvivesSale(t *testing.T) {
	a := newTestAdmin(t)
	if m, err := a.SetPrice("WHEAT", 5); err != nil || m != 5 {
		t.Fatalf("set price = %v, %v", m, err)
	}

	p := a.Players.Open("alice", true, false, time.Hour)
	p.Add("WHEAT", 1)
	res := a.Engine.Sell(p, "WHEAT", 1)
	if res.Outcome != types.OutcomeSuccess {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if res.MultiplierAfter <= 4.99 || res.MultiplierAfter >= 5 {
		t.Fatalf("multiplier after 1-unit sale from 5.0 = %v", res.MultiplierAfter)
	}
	if v, _ := a.Engine.Good("WHEAT"); v.Multiplier != res.MultiplierAfter {
		t.Fatalf("view multiplier = %v, result %v", v.Multiplier, res.MultiplierAfter)
	}
}

// Run with -race: sales race every background job that touches the market.
func TestSalesSerializedWithBackgroundJobs(t *testing.T) {
	a := newTestAdmin(t)
	const sellers, sales = 8, 200

	var sessions []*players.Session
	for i := 0; i < sellers; i++ {
		s := a.Players.Open(fmt.Sprintf("seller-%d", i), true, false, time.Hour)
		s.Add("WHEAT", sales)
		sessions = append(sessions, s)
	}

	done := make(chan struct{})
	var background sync.WaitGroup
	for _, job := range []func(){
		func() { a.Engine.Recover(0.5) },
		func() { a.Seasonal.Rotate() },
		func() { a.Contracts.Tick() },
		func() { a.Events.FireRandom() },
		func() { a.Events.Sweep() },
		func() { a.Engine.Snapshot() },
		func() { a.Engine.PruneTrackers() },
	} {
		background.Add(1)
		go func() {
			defer background.Done()
			for {
				select {
				case <-done:
					return
				default:
					job()
					time.Sleep(200 * time.Microsecond)
				}
			}
		}()
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := 0
	for _, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < sales; i++ {
				a.Engine.PreviewSell(s, "WHEAT", 1)
				res := a.Engine.Sell(s, "WHEAT", 1)
				if res.Outcome != types.OutcomeSuccess {
					t.Errorf("%s sale %d outcome = %s", s.ID(), i, res.Outcome)
					return
				}
				mu.Lock()
				sold += res.Amount
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(done)
	background.Wait()

	v, _ := a.Engine.Good("WHEAT")
	if sold != sellers*sales || v.TotalSold != int64(sold) {
		t.Fatalf("units sold %d, total sold %d, want %d", sold, v.TotalSold, sellers*sales)
	}
	for _, s := range sessions {
		if s.Count("WHEAT") != 0 {
			t.Fatalf("%s still holds %d", s.ID(), s.Count("WHEAT"))
		}
	}
}

func TestAdminFireEvent(t *testing.T) {
	a := newTestAdmin(t)

	ev, err := a.FireEvent("boom", "IRON", 10)
	if err != nil || ev.Type != events.Boom || ev.Multiplier != 2.0 {
		t.Fatalf("fire = %+v, %v", ev, err)
	}
	if _, err := a.FireEvent("meteor", "IRON", 10); !errors.Is(err, types.OutcomeInvalidAmount) {
		t.Fatalf("unknown type err = %v", err)
	}
	if _, err := a.FireEvent("crash", "NOPE", 10); !errors.Is(err, types.OutcomeItemNotFound) {
		t.Fatalf("unknown good err = %v", err)
	}

	active := a.ActiveEvents()
	if len(active) != 1 || active[0].RemainingSeconds <= 590 {
		t.Fatalf("active = %+v", active)
	}

	v, _ := a.Engine.Good("IRON")
	if v.EventMultiplier != 2.0 {
		t.Fatalf("event not visible in price view: %+v", v)
	}
}

func TestAdminTreasuryDistribution(t *testing.T) {
	a := newTestAdmin(t)
	a.Treasury.Collect(100)

	if err := a.Give("ghost", 10); !errors.Is(err, types.OutcomeNotFound) {
		t.Fatalf("unknown player err = %v", err)
	}
	if _, _, err := a.GiveAll(10); !errors.Is(err, types.OutcomeNoPlayersOnline) {
		t.Fatalf("nobody online err = %v", err)
	}

	alice := a.Players.Open("alice", false, false, time.Hour)
	a.Players.Open("alice", false, false, time.Hour)
	bob := a.Players.Open("bob", false, false, time.Hour)

	if err := a.Give("alice", 150); !errors.Is(err, types.OutcomeInsufficientFund) {
		t.Fatalf("overdraw err = %v", err)
	}
	if err := a.Give("alice", 40); err != nil {
		t.Fatal(err)
	}
	share, n, err := a.GiveAll(60)
	if err != nil || n != 2 || share != 30 {
		t.Fatalf("give all = %v x%d, %v", share, n, err)
	}
	if alice.Balance() != 70 || bob.Balance() != 30 || a.Treasury.Balance() != 0 {
		t.Fatalf("alice %v bob %v treasury %v", alice.Balance(), bob.Balance(), a.Treasury.Balance())
	}
}

func TestAdminGrantAndInfo(t *testing.T) {
	a := newTestAdmin(t)

	snap, err := a.Grant("carol", "BONE", 12, 5)
	if err != nil || snap.Balance != 5 || len(snap.Holdings) != 1 || snap.Holdings[0].Quantity != 12 {
		t.Fatalf("grant = %+v, %v", snap, err)
	}
	if _, err := a.Grant("carol", "NOPE", 1, 0); !errors.Is(err, types.OutcomeItemNotFound) {
		t.Fatalf("unknown good err = %v", err)
	}
	if _, err := a.Grant("carol", "BONE", -1, 0); !errors.Is(err, types.OutcomeInvalidAmount) {
		t.Fatalf("negative err = %v", err)
	}

	a.Seasonal.Rotate()
	a.Contracts.Tick()
	a.Players.Open("carol", false, false, time.Hour)
	info := a.Info()
	if info.Categories != 3 || info.Goods != 4 || info.ActiveContracts != 1 || info.ConnectedPlayers != 1 {
		t.Fatalf("info = %+v", info)
	}
	if info.HotCategory == "" || info.HotSince == nil {
		t.Fatal("hot category missing")
	}
}

func TestAdminReloadKeepsTradedState(t *testing.T) {
	dir := t.TempDir()
	db, err := database.NewDatabase(filepath.Join(dir, "reload.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close(db)

	cfgPath := filepath.Join(dir, "config.toml")
	catPath := filepath.Join(dir, "catalogue.toml")
	body := "[economy]\nsellTaxRate = 0.1\n[catalogue]\npath = \"" + filepath.ToSlash(catPath) + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	a := newTestAdmin(t)
	a.Goods = NewDatabase(db)
	a.ConfigPath = cfgPath
	a.SetPrice("WHEAT", 0.4)

	info, err := a.Reload()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if info.Goods <= 4 {
		t.Fatalf("catalogue not swapped: %+v", info)
	}
	if got := a.Engine.Config().Economy.SellTaxRate; got != 0.1 {
		t.Fatalf("tax after reload = %v", got)
	}
	if a.Reputation.TaxRate("anyone") != 0.1 {
		t.Fatal("reputation not reconfigured")
	}
	wheat, ok := a.Engine.Good("WHEAT")
	if !ok || wheat.Multiplier != 0.4 {
		t.Fatalf("wheat after reload = %+v", wheat)
	}
}

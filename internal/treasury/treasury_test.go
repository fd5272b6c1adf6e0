package treasury

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/Nixend-creator/DynamicEconomy/internal/broadcast"
	"github.com/Nixend-creator/DynamicEconomy/internal/database"
	"github.com/Nixend-creator/DynamicEconomy/internal/types"
)

type wallet struct {
	id      string
	balance float64
}

func (w *wallet) ID() string             { return w.id }
func (w *wallet) Deposit(amount float64) { w.balance += amount }

func TestCollect(t *testing.T) {
	l := NewLedger(broadcast.Discard{})
	l.Collect(10)
	l.Collect(-5)
	l.Collect(2.5)

	s := l.Summary()
	if s.Balance != 12.5 || s.TotalCollected != 12.5 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestDistributeNeverOverdraws(t *testing.T) {
	l := NewLedger(broadcast.Discard{})
	l.Collect(100)
	w := &wallet{id: "alice"}

	err := l.Distribute(w, 100.01)
	if !errors.Is(err, types.OutcomeInsufficientFund) {
		t.Fatalf("err = %v, want INSUFFICIENT_FUNDS", err)
	}
	if l.Balance() != 100 || w.balance != 0 {
		t.Fatalf("failed distribute changed state: balance %v wallet %v", l.Balance(), w.balance)
	}

	if err := l.Distribute(w, 40); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	s := l.Summary()
	if s.Balance != 60 || s.TotalDistributed != 40 || w.balance != 40 {
		t.Fatalf("after distribute: %+v wallet %v", s, w.balance)
	}

	if err := l.Distribute(w, 0); !errors.Is(err, types.OutcomeInvalidAmount) {
		t.Fatalf("zero distribute err = %v", err)
	}
}

func TestDistributeToAll(t *testing.T) {
	l := NewLedger(broadcast.Discard{})
	l.Collect(90)
	ws := []*wallet{{id: "a"}, {id: "b"}, {id: "c"}}
	recipients := []Recipient{ws[0], ws[1], ws[2]}

	share, err := l.DistributeToAll(recipients, 60)
	if err != nil {
		t.Fatalf("distribute to all: %v", err)
	}
	if share != 20 {
		t.Fatalf("share = %v", share)
	}
	for _, w := range ws {
		if w.balance != 20 {
			t.Fatalf("%s got %v", w.id, w.balance)
		}
	}
	if l.Balance() != 30 {
		t.Fatalf("balance = %v, want single debit of 60", l.Balance())
	}
}

func TestDistributeToAllFailsAsAWhole(t *testing.T) {
	l := NewLedger(broadcast.Discard{})
	l.Collect(10)

	if _, err := l.DistributeToAll(nil, 5); !errors.Is(err, types.OutcomeNoPlayersOnline) {
		t.Fatalf("no recipients err = %v", err)
	}

	w := &wallet{id: "a"}
	if _, err := l.DistributeToAll([]Recipient{w}, 11); !errors.Is(err, types.OutcomeInsufficientFund) {
		t.Fatalf("overdraw err = %v", err)
	}
	if l.Balance() != 10 || w.balance != 0 {
		t.Fatal("failed give-all changed state")
	}
}

func TestLedgerPersistence(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer database.Close(db)
	store := NewDatabase(db)

	empty := NewLedger(broadcast.Discard{})
	if err := empty.Load(store); err != nil {
		t.Fatalf("load with no row: %v", err)
	}

	l := NewLedger(broadcast.Discard{})
	l.Collect(75)
	if err := l.Distribute(&wallet{id: "a"}, 25); err != nil {
		t.Fatal(err)
	}
	if err := l.Save(store); err != nil {
		t.Fatalf("save: %v", err)
	}
	l.Collect(5)
	if err := l.Save(store); err != nil {
		t.Fatalf("second save: %v", err)
	}

	restored := NewLedger(broadcast.Discard{})
	if err := restored.Load(store); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := restored.Summary(); got != (Summary{Balance: 55, TotalCollected: 80, TotalDistributed: 25}) {
		t.Fatalf("restored = %+v", got)
	}
}

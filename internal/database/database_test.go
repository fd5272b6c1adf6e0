package database

import (
	"path/filepath"
	"testing"

	"github.com/Nixend-creator/DynamicEconomy/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNewDatabaseMigrates(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	defer Close(db)

	for _, model := range []any{
		&types.GoodState{},
		&types.TreasuryState{},
		&types.ReputationRecord{},
		&types.Account{},
		&types.AuctionListing{},
	} {
		if !db.Migrator().HasTable(model) {
			t.Fatalf("table for %T missing", model)
		}
	}
	if !db.Migrator().HasIndex(&types.AuctionListing{}, "idx_auction_listings_seller_status") {
		t.Fatal("seller/status index missing")
	}
}

func TestNewDatabaseIsReentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 2; i++ {
		db, err := NewDatabase(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		Close(db)
	}
}

func TestNewDatabaseAddsSecretColumnToOldAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	old, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := old.Exec(`CREATE TABLE accounts (
		id integer PRIMARY KEY AUTOINCREMENT,
		created_at datetime, updated_at datetime, deleted_at datetime,
		player_id text, balance real, capacity integer, holdings text)`).Error; err != nil {
		t.Fatal(err)
	}
	Close(old)

	db, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	defer Close(db)
	if !db.Migrator().HasColumn(&types.Account{}, "SecretHash") {
		t.Fatal("secret_hash column missing")
	}
}

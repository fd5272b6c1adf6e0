package migrations

import (
	"github.com/Nixend-creator/DynamicEconomy/internal/types"
	"gorm.io/gorm"
)

// AddMarketState creates the good state, treasury, reputation and account
// tables.
func AddMarketState(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.GoodState{},
		&types.TreasuryState{},
		&types.ReputationRecord{},
		&types.Account{},
	)
}

package migrations

import (
	"github.com/Nixend-creator/DynamicEconomy/internal/types"
	"gorm.io/gorm"
)

// AddAccountSecrets adds the login secret hash to accounts created before
// secrets were persisted.
func AddAccountSecrets(db *gorm.DB) error {
	m := db.Migrator()
	if m.HasColumn(&types.Account{}, "SecretHash") {
		return nil
	}
	return m.AddColumn(&types.Account{}, "SecretHash")
}

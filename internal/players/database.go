package players

import (
	"fmt"

	"github.com/Nixend-creator/DynamicEconomy/internal/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) GetAccounts() ([]types.Account, error) {
	var accounts []types.Account
	if err := d.db.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpsertAccounts writes every account, updating rows that already exist.
func (d *Database) UpsertAccounts(accounts []types.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "capacity", "holdings", "secret_hash", "updated_at"}),
	}).Create(&accounts).Error
}

// Load replaces the registry's accounts with the persisted ones. Rows with
// broken holdings are kept with empty storage and logged.
func (r *Registry) Load(d *Database) error {
	rows, err := d.GetAccounts()
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		a, err := accountFromState(row, r.cfg.Capacity)
		if err != nil {
			log.Warn().Err(err).Str("player_id", row.PlayerID).Msg("corrupt holdings, starting empty")
		}
		r.accounts[a.id] = a
	}
	log.Info().Int("accounts", len(rows)).Msg("player accounts loaded")
	return nil
}

// Save snapshots every account and writes them outside the registry lock.
func (r *Registry) Save(d *Database) error {
	accounts := r.Accounts()
	rows := make([]types.Account, 0, len(accounts))
	for _, a := range accounts {
		row, err := a.State()
		if err != nil {
			log.Error().Err(err).Str("player_id", a.ID()).Msg("failed to encode account")
			continue
		}
		rows = append(rows, row)
	}
	if err := d.UpsertAccounts(rows); err != nil {
		return fmt.Errorf("failed to save accounts: %w", err)
	}
	return nil
}

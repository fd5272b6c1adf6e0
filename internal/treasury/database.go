package treasury

import (
	"errors"
	"fmt"

	"github.com/Nixend-creator/DynamicEconomy/internal/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// treasuryRowID is the primary key of the single treasury row.
const treasuryRowID = 1

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) GetState() (*types.TreasuryState, error) {
	var state types.TreasuryState
	if err := d.db.First(&state, treasuryRowID).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

func (d *Database) SaveState(state types.TreasuryState) error {
	state.ID = treasuryRowID
	return d.db.Save(&state).Error
}

// Load restores the ledger. A missing row leaves it empty.
func (l *Ledger) Load(d *Database) error {
	state, err := d.GetState()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Info().Msg("no persisted treasury, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load treasury: %w", err)
	}
	l.Restore(*state)
	log.Info().Float64("balance", state.Balance).Msg("treasury loaded")
	return nil
}

func (l *Ledger) Save(d *Database) error {
	if err := d.SaveState(l.State()); err != nil {
		return fmt.Errorf("failed to save treasury: %w", err)
	}
	return nil
}

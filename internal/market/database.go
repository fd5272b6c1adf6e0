package market

import (
	"fmt"
	"math"

	"github.com/Nixend-creator/DynamicEconomy/internal/config"
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

func (d *Database) GetGoodStates() ([]types.GoodState, error) {
	var states []types.GoodState
	if err := d.db.Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

func (d *Database) UpsertGoodStates(states []types.GoodState) error {
	if len(states) == 0 {
		return nil
	}
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "good_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"multiplier", "last_sell_timestamp_millis", "total_sold", "updated_at"}),
	}).Create(&states).Error
}

// Load restores persisted good state into matching catalogue goods. Rows for
// unknown goods are skipped; goods without a row keep their defaults. A
// failed read leaves every good at its default and returns the error for the
// caller to log.
func (e *Engine) Load(d *Database) error {
	states, err := d.GetGoodStates()
	if err != nil {
		return fmt.Errorf("failed to load good states: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	restored := 0
	for _, s := range states {
		g := e.cat.Good(s.GoodKey)
		if g == nil {
			log.Debug().Str("good", s.GoodKey).Msg("skipping persisted state for unknown good")
			continue
		}
		if math.IsNaN(s.Multiplier) || s.Multiplier <= 0 || s.TotalSold < 0 {
			log.Warn().
				Str("good", s.GoodKey).
				Float64("multiplier", s.Multiplier).
				Int64("total_sold", s.TotalSold).
				Msg("ignoring corrupt good state")
			continue
		}
		s.Multiplier = config.ClampMultiplier(s.Multiplier)
		g.Restore(s)
		restored++
	}
	log.Info().Int("restored", restored).Int("rows", len(states)).Msg("good states loaded")
	return nil
}

// Save snapshots every good and writes the rows.
func (e *Engine) Save(d *Database) error {
	cat, _ := e.view()
	states := make([]types.GoodState, 0, len(cat.Goods()))
	for _, g := range cat.Goods() {
		states = append(states, g.State())
	}
	if err := d.UpsertGoodStates(states); err != nil {
		return fmt.Errorf("failed to save good states: %w", err)
	}
	return nil
}

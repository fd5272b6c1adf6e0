package reputation

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

func (d *Database) GetRecords() ([]types.ReputationRecord, error) {
	var records []types.ReputationRecord
	if err := d.db.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (d *Database) UpsertRecords(records []types.ReputationRecord) error {
	if len(records) == 0 {
		return nil
	}
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"volume", "updated_at"}),
	}).Create(&records).Error
}

// Load restores persisted volumes. Negative volumes are skipped.
func (t *Tracker) Load(d *Database) error {
	records, err := d.GetRecords()
	if err != nil {
		return fmt.Errorf("failed to load reputation: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range records {
		if r.Volume < 0 {
			log.Warn().Str("player_id", r.PlayerID).Float64("volume", r.Volume).Msg("skipping negative reputation volume")
			continue
		}
		t.volumes[r.PlayerID] = r.Volume
	}
	log.Info().Int("records", len(records)).Msg("reputation loaded")
	return nil
}

func (t *Tracker) Save(d *Database) error {
	standings := t.Standings()
	records := make([]types.ReputationRecord, 0, len(standings))
	for _, s := range standings {
		records = append(records, types.ReputationRecord{PlayerID: s.PlayerID, Volume: s.Volume})
	}
	if err := d.UpsertRecords(records); err != nil {
		return fmt.Errorf("failed to save reputation: %w", err)
	}
	return nil
}

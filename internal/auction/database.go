package auction

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

func (d *Database) GetActiveListings() ([]types.AuctionListing, error) {
	var listings []types.AuctionListing
	if err := d.db.Where("status = ?", string(StatusActive)).Order("sequence ASC").Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (d *Database) GetMaxSequence() (int64, error) {
	var seq int64
	if err := d.db.Model(&types.AuctionListing{}).Select("COALESCE(MAX(sequence), 0)").Scan(&seq).Error; err != nil {
		return 0, err
	}
	return seq, nil
}

// UpsertListings writes listings keyed by listing id. Finished listings stay
// in the table as trade history.
func (d *Database) UpsertListings(listings []types.AuctionListing) error {
	if len(listings) == 0 {
		return nil
	}
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "listing_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "buyer_id", "updated_at"}),
	}).Create(&listings).Error
}

func toRecord(l *Listing) types.AuctionListing {
	return types.AuctionListing{
		ListingID: l.ID,
		Sequence:  l.Sequence,
		SellerID:  l.SellerID,
		GoodKey:   l.GoodKey,
		Quantity:  l.Quantity,
		UnitPrice: l.UnitPrice,
		Status:    string(l.Status),
		BuyerID:   l.BuyerID,
		ExpiresAt: l.ExpiresAt,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

// Load restores the active listings and the sequence counter. Listings for
// goods missing from the catalogue are skipped; their goods stay withheld
// in the table until the good comes back.
func (b *Board) Load(d *Database) error {
	rows, err := d.GetActiveListings()
	if err != nil {
		return fmt.Errorf("failed to load auction listings: %w", err)
	}
	seq, err := d.GetMaxSequence()
	if err != nil {
		return fmt.Errorf("failed to load auction sequence: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	loaded := 0
	for _, r := range rows {
		if b.cat.Good(r.GoodKey) == nil {
			log.Warn().Str("listing_id", r.ListingID).Str("good", r.GoodKey).Msg("skipping listing for unknown good")
			continue
		}
		b.listings[r.ListingID] = &Listing{
			ID:        r.ListingID,
			Sequence:  r.Sequence,
			SellerID:  r.SellerID,
			GoodKey:   r.GoodKey,
			Quantity:  r.Quantity,
			UnitPrice: r.UnitPrice,
			Status:    Status(r.Status),
			BuyerID:   r.BuyerID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			ExpiresAt: r.ExpiresAt,
		}
		loaded++
	}
	b.seq = max(b.seq, seq)
	log.Info().Int("listings", loaded).Int64("sequence", b.seq).Msg("auction listings loaded")
	return nil
}

// Save snapshots every listing under the lock and writes outside it.
func (b *Board) Save(d *Database) error {
	b.mu.Lock()
	rows := make([]types.AuctionListing, 0, len(b.listings))
	for _, l := range b.listings {
		rows = append(rows, toRecord(l))
	}
	b.mu.Unlock()

	if err := d.UpsertListings(rows); err != nil {
		return fmt.Errorf("failed to save auction listings: %w", err)
	}
	return nil
}

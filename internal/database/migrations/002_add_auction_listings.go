package migrations

import (
	"github.com/Nixend-creator/DynamicEconomy/internal/types"
	"gorm.io/gorm"
)

// AddAuctionListings creates the auction listing table and its indexes
func AddAuctionListings(db *gorm.DB) error {
	if err := db.AutoMigrate(&types.AuctionListing{}); err != nil {
		return err
	}

	indexes := []string{
		// Listing pages are read in creation order
		`CREATE INDEX IF NOT EXISTS idx_auction_listings_sequence
		 ON auction_listings(sequence)`,

		// Status filtering for the expiry sweep
		`CREATE INDEX IF NOT EXISTS idx_auction_listings_status
		 ON auction_listings(status)`,

		// "My listings" view
		`CREATE INDEX IF NOT EXISTS idx_auction_listings_seller_status
		 ON auction_listings(seller_id, status)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}

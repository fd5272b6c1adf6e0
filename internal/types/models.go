package types

import (
	"time"

	"gorm.io/gorm"
)

// GoodState is the persisted dynamic part of a catalogue good.
type GoodState struct {
	gorm.Model              `json:"-"`
	GoodKey                 string  `gorm:"uniqueIndex" json:"good_key"`
	Multiplier              float64 `json:"multiplier"`
	LastSellTimestampMillis int64   `json:"last_sell_timestamp_millis"`
	TotalSold               int64   `json:"total_sold"`
}

// TreasuryState holds the single process-wide treasury row.
type TreasuryState struct {
	gorm.Model       `json:"-"`
	Balance          float64 `json:"balance"`
	TotalCollected   float64 `json:"total_collected"`
	TotalDistributed float64 `json:"total_distributed"`
}

// ReputationRecord is a player's lifetime trade volume.
type ReputationRecord struct {
	gorm.Model `json:"-"`
	PlayerID   string  `gorm:"uniqueIndex" json:"player_id"`
	Volume     float64 `json:"volume"`
}

// AuctionListing is the persisted form of an auction listing.
type AuctionListing struct {
	gorm.Model `json:"-"`
	ListingID  string    `gorm:"uniqueIndex" json:"listing_id"`
	Sequence   int64     `json:"sequence"`
	SellerID   string    `json:"seller_id"`
	GoodKey    string    `json:"good_key"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	Status     string    `json:"status"` // ACTIVE, SOLD, CANCELLED, EXPIRED
	BuyerID    string    `json:"buyer_id,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Account is the persisted form of a player's balance and holdings.
type Account struct {
	gorm.Model `json:"-"`
	PlayerID   string  `gorm:"uniqueIndex" json:"player_id"`
	Balance    float64 `json:"balance"`
	Capacity   int     `json:"capacity"`
	Holdings   string  `json:"holdings"` // JSON object good key -> quantity
	SecretHash string  `json:"-"`        // bcrypt hash of the login secret
}

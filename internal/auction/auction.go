// Package auction is the player-to-player board: fixed-price listings bought
// first come, first served. Listed goods are withheld from the seller until
// the listing is sold, cancelled or expires.
package auction

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/broadcast"
	"github.com/Nixend-creator/DynamicEconomy/internal/catalogue"
	"github.com/Nixend-creator/DynamicEconomy/internal/config"
	"github.com/Nixend-creator/DynamicEconomy/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Status is a listing's lifecycle state. Only ACTIVE listings can move.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSold      Status = "SOLD"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// retainTerminal is how long finished listings stay in memory.
const retainTerminal = 24 * time.Hour

// Listing is an offer of a fixed quantity at a fixed unit price.
type Listing struct {
	ID        string    `json:"listing_id"`
	Sequence  int64     `json:"sequence"`
	SellerID  string    `json:"seller_id"`
	GoodKey   string    `json:"good_key"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	Status    Status    `json:"status"`
	BuyerID   string    `json:"buyer_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Total is the price of the whole listing.
func (l Listing) Total() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Holder is the account side of an auction participant.
type Holder interface {
	ID() string
	Count(goodKey string) int
	Remove(goodKey string, n int) bool
	Grant(goodKey string, n int)
	FreeSpace() int
	Balance() float64
	Deposit(amount float64)
	Withdraw(amount float64) bool
}

// Collector receives the platform cut.
type Collector interface {
	Collect(amount float64)
}

// Page is one page of active listings.
type Page struct {
	Listings   []Listing `json:"listings"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
	Total      int       `json:"total"`
}

// Board owns every listing.
type Board struct {
	mu       sync.Mutex
	cfg      config.AuctionConfig
	cat      *catalogue.Catalogue
	listings map[string]*Listing
	seq      int64

	accounts func(playerID string) Holder
	fees     Collector
	notifier broadcast.Notifier
	now      func() time.Time
}

// NewBoard creates an empty board. accounts resolves a seller's account even
// when the seller is offline.
func NewBoard(cat *catalogue.Catalogue, cfg config.AuctionConfig, accounts func(string) Holder, fees Collector, notifier broadcast.Notifier) *Board {
	return &Board{
		cfg:      cfg,
		cat:      cat,
		listings: make(map[string]*Listing),
		accounts: accounts,
		fees:     fees,
		notifier: notifier,
		now:      time.Now,
	}
}

func (b *Board) liveLocked(l *Listing, now time.Time) bool {
	return l.Status == StatusActive && now.Before(l.ExpiresAt)
}

// List withholds quantity units of goodKey from seller and opens a listing.
func (b *Board) List(seller Holder, goodKey string, quantity int, unitPrice float64) (Listing, error) {
	if quantity <= 0 || !(unitPrice > 0) || math.IsInf(unitPrice, 0) {
		return Listing{}, types.OutcomeInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cat.Good(goodKey) == nil {
		return Listing{}, types.OutcomeItemNotFound
	}

	now := b.now()
	if b.cfg.MaxListingsPerPlayer > 0 {
		open := 0
		for _, l := range b.listings {
			if l.SellerID == seller.ID() && b.liveLocked(l, now) {
				open++
			}
		}
		if open >= b.cfg.MaxListingsPerPlayer {
			return Listing{}, types.OutcomeListingLimit
		}
	}

	if !seller.Remove(goodKey, quantity) {
		return Listing{}, types.OutcomeNotEnoughItems
	}

	b.seq++
	l := &Listing{
		ID:        "AUC_" + uuid.New().String(),
		Sequence:  b.seq,
		SellerID:  seller.ID(),
		GoodKey:   goodKey,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(time.Duration(b.cfg.DurationMinutes) * time.Minute),
	}
	b.listings[l.ID] = l

	log.Info().
		Str("service", "auction").
		Str("listing_id", l.ID).
		Str("seller_id", l.SellerID).
		Str("good", goodKey).
		Int("quantity", quantity).
		Float64("unit_price", unitPrice).
		Msg("listing created")
	return *l, nil
}

// Buy settles an active listing for buyer.
func (b *Board) Buy(buyer Holder, listingID string) (Listing, error) {
	b.mu.Lock()

	l, ok := b.listings[listingID]
	now := b.now()
	if !ok || !b.liveLocked(l, now) {
		b.mu.Unlock()
		return Listing{}, types.OutcomeNotFound
	}
	if l.SellerID == buyer.ID() {
		b.mu.Unlock()
		return Listing{}, types.OutcomeOwnListing
	}
	if buyer.FreeSpace() < l.Quantity {
		b.mu.Unlock()
		return Listing{}, types.OutcomeInventoryFull
	}

	total := l.Total()
	if !buyer.Withdraw(total) {
		b.mu.Unlock()
		return Listing{}, types.OutcomeInsufficientFund
	}

	cut := total * b.cfg.PlatformCut
	b.accounts(l.SellerID).Deposit(total - cut)
	if cut > 0 {
		b.fees.Collect(cut)
	}
	buyer.Grant(l.GoodKey, l.Quantity)

	l.Status = StatusSold
	l.BuyerID = buyer.ID()
	l.UpdatedAt = now
	sold := *l
	b.mu.Unlock()

	log.Info().
		Str("service", "auction").
		Str("listing_id", sold.ID).
		Str("seller_id", sold.SellerID).
		Str("buyer_id", sold.BuyerID).
		Float64("total", total).
		Float64("platform_cut", cut).
		Msg("listing sold")
	b.notifier.Announce(broadcast.Announcement{
		Kind:    broadcast.KindAuctionSold,
		Message: fmt.Sprintf("%s bought %d %s from %s", sold.BuyerID, sold.Quantity, sold.GoodKey, sold.SellerID),
		Fields: map[string]any{
			"listing_id": sold.ID,
			"seller_id":  sold.SellerID,
			"buyer_id":   sold.BuyerID,
			"total":      total,
		},
	})
	return sold, nil
}

// Cancel closes seller's own active listing and returns the withheld goods.
// Listings of other sellers look the same as missing ones.
func (b *Board) Cancel(seller Holder, listingID string) (Listing, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.listings[listingID]
	now := b.now()
	if !ok || !b.liveLocked(l, now) || l.SellerID != seller.ID() {
		return Listing{}, types.OutcomeNotFound
	}

	seller.Grant(l.GoodKey, l.Quantity)
	l.Status = StatusCancelled
	l.UpdatedAt = now

	log.Info().Str("service", "auction").Str("listing_id", l.ID).Str("seller_id", l.SellerID).Msg("listing cancelled")
	return *l, nil
}

// Sweep expires every active listing past its expiry, returning the goods to
// the original seller, and forgets finished listings older than a day.
func (b *Board) Sweep() []Listing {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var expired []Listing
	for id, l := range b.listings {
		switch {
		case l.Status == StatusActive && !now.Before(l.ExpiresAt):
			b.accounts(l.SellerID).Grant(l.GoodKey, l.Quantity)
			l.Status = StatusExpired
			l.UpdatedAt = now
			expired = append(expired, *l)
		case l.Status != StatusActive && now.Sub(l.UpdatedAt) > retainTerminal:
			delete(b.listings, id)
		}
	}

	sort.Slice(expired, func(i, j int) bool { return expired[i].Sequence < expired[j].Sequence })
	for _, l := range expired {
		log.Info().Str("service", "auction").Str("listing_id", l.ID).Str("seller_id", l.SellerID).Msg("listing expired")
	}
	return expired
}

// Get returns a listing in any state.
func (b *Board) Get(listingID string) (Listing, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.listings[listingID]
	if !ok {
		return Listing{}, false
	}
	return *l, true
}

// Active returns the live listings in creation order, optionally only those
// of sellerID.
func (b *Board) Active(sellerID string) []Listing {
	b.mu.Lock()
	now := b.now()
	out := make([]Listing, 0, len(b.listings))
	for _, l := range b.listings {
		if !b.liveLocked(l, now) {
			continue
		}
		if sellerID != "" && l.SellerID != sellerID {
			continue
		}
		out = append(out, *l)
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// Page returns page number page (0-based) of the live listings in creation
// order. Out-of-range pages are clamped.
func (b *Board) Page(page int, sellerID string) Page {
	b.mu.Lock()
	size := b.cfg.PageSize
	b.mu.Unlock()
	if size <= 0 {
		size = 45
	}

	all := b.Active(sellerID)
	totalPages := max(1, (len(all)+size-1)/size)
	page = min(max(page, 0), totalPages-1)

	start := page * size
	end := min(start+size, len(all))
	return Page{
		Listings:   all[start:end],
		Page:       page,
		TotalPages: totalPages,
		Total:      len(all),
	}
}

// Count returns the number of live listings.
func (b *Board) Count() int {
	return len(b.Active(""))
}

// Configure swaps the board configuration. Open listings keep their expiry.
func (b *Board) Configure(cfg config.AuctionConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg
}

// SetCatalogue replaces the catalogue used to validate new listings.
func (b *Board) SetCatalogue(cat *catalogue.Catalogue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cat = cat
}

func (b *Board) sweepInterval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Duration(b.cfg.SweepIntervalMinutes) * time.Minute
}

// Package seasonal keeps the hot category. One category is always hot after
// the first rotation and sales into it earn the hot multiplier.
package seasonal

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/broadcast"
	"github.com/Nixend-creator/DynamicEconomy/internal/catalogue"
	"github.com/Nixend-creator/DynamicEconomy/internal/config"
	"github.com/rs/zerolog/log"
)

// Rotation is the hot-category state store. Only Rotate writes the hot key.
type Rotation struct {
	mu        sync.RWMutex
	cfg       config.SeasonalConfig
	cat       *catalogue.Catalogue
	hot       string
	changedAt time.Time

	rng      *rand.Rand
	now      func() time.Time
	notifier broadcast.Notifier
}

// New creates a rotation with no hot category yet.
func New(cat *catalogue.Catalogue, cfg config.SeasonalConfig, notifier broadcast.Notifier) *Rotation {
	return &Rotation{
		cfg:      cfg,
		cat:      cat,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		notifier: notifier,
	}
}

// Rotate picks a category uniformly at random from the full set and makes it
// hot. It returns the new hot key, empty when the catalogue has no categories.
func (r *Rotation) Rotate() string {
	r.mu.Lock()
	categories := r.cat.Categories()
	if len(categories) == 0 {
		r.hot = ""
		r.mu.Unlock()
		return ""
	}
	picked := categories[r.rng.Intn(len(categories))]
	r.hot = picked.Key
	r.changedAt = r.now()
	mult := r.cfg.HotMultiplier
	r.mu.Unlock()

	log.Info().Str("service", "seasonal").Str("category", picked.Key).Msg("seasonal hot category rotated")
	r.notifier.Announce(broadcast.Announcement{
		Kind:    broadcast.KindSeasonalRotation,
		Message: fmt.Sprintf("%s is in high demand: x%.1f sell price", picked.DisplayName, mult),
		Fields:  map[string]any{"category": picked.Key, "multiplier": mult},
	})
	return picked.Key
}

// Hot returns the hot category key and when it became hot.
func (r *Rotation) Hot() (string, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hot, r.changedAt
}

// IsHot reports whether categoryKey currently gets the seasonal bonus.
func (r *Rotation) IsHot(categoryKey string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg.Enabled && r.hot != "" && r.hot == categoryKey
}

// Multiplier returns the seasonal factor for categoryKey.
func (r *Rotation) Multiplier(categoryKey string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cfg.Enabled && r.hot != "" && r.hot == categoryKey {
		return r.cfg.HotMultiplier
	}
	return 1.0
}

// Configure swaps the seasonal configuration. The hot category is kept.
func (r *Rotation) Configure(cfg config.SeasonalConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}

// SetCatalogue replaces the category set. A hot key that no longer exists
// is kept until the next rotation and simply matches nothing.
func (r *Rotation) SetCatalogue(cat *catalogue.Catalogue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cat = cat
}

func (r *Rotation) interval() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return time.Duration(r.cfg.ChangeIntervalMinutes) * time.Minute
}

func (r *Rotation) enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg.Enabled
}

// Start rotates once immediately and then on every interval until ctx is
// cancelled. Each tick is scheduled only after the previous one finished.
func (r *Rotation) Start(ctx context.Context) {
	logger := log.With().Str("component", "seasonal_rotation").Logger()
	logger.Info().Msg("starting seasonal rotation")

	if r.enabled() {
		r.Rotate()
	}

	timer := time.NewTimer(r.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down seasonal rotation")
			return
		case <-timer.C:
			if r.enabled() {
				r.Rotate()
			}
			timer.Reset(r.interval())
		}
	}
}

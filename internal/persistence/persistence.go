// Package persistence coordinates loading and saving every store against the
// shared database.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Store is one persisted component.
type Store struct {
	Name string
	Load func() error
	Save func() error
}

// AutoSaver saves every store on an interval. Each store snapshots under its
// own lock and writes outside it, so saving never blocks a transaction for
// the length of a database write.
type AutoSaver struct {
	stores   []Store
	interval func() time.Duration
}

// NewAutoSaver creates a saver. interval is read before every wait so a
// reloaded configuration takes effect on the next cycle.
func NewAutoSaver(interval func() time.Duration, stores ...Store) *AutoSaver {
	return &AutoSaver{stores: stores, interval: interval}
}

// LoadAll loads every store. A store that fails to load is logged and keeps
// its defaults; the others still load. The returned error joins every
// failure.
func (a *AutoSaver) LoadAll() error {
	var errs []error
	for _, s := range a.stores {
		if s.Load == nil {
			continue
		}
		if err := s.Load(); err != nil {
			log.Error().Err(err).Str("store", s.Name).Msg("failed to load store, using defaults")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// SaveAll saves every store, continuing past failures.
func (a *AutoSaver) SaveAll() error {
	var errs []error
	start := time.Now()
	for _, s := range a.stores {
		if s.Save == nil {
			continue
		}
		if err := s.Save(); err != nil {
			log.Error().Err(err).Str("store", s.Name).Msg("failed to save store")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	log.Debug().Int("stores", len(a.stores)).Dur("took", time.Since(start)).Msg("stores saved")
	return errors.Join(errs...)
}

// Start saves on the configured interval until ctx is cancelled. The final
// save at shutdown is the caller's, once writers have stopped.
func (a *AutoSaver) Start(ctx context.Context) {
	logger := log.With().Str("component", "auto_saver").Logger()
	logger.Info().Int("stores", len(a.stores)).Msg("starting auto-save")

	timer := time.NewTimer(a.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down auto-save")
			return
		case <-timer.C:
			if err := a.SaveAll(); err != nil {
				logger.Warn().Err(err).Msg("auto-save incomplete")
			}
			timer.Reset(a.interval())
		}
	}
}

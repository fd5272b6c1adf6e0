package market

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RecoveryProcessor lifts depressed prices back toward their base on a fixed
// interval, treating each tick as interval/60 hours.
type RecoveryProcessor struct {
	engine *Engine
}

func NewRecoveryProcessor(engine *Engine) *RecoveryProcessor {
	return &RecoveryProcessor{engine: engine}
}

func (p *RecoveryProcessor) interval() time.Duration {
	minutes := p.engine.Config().Economy.RecoveryIntervalMinutes
	return time.Duration(minutes) * time.Minute
}

// Start runs the recovery loop until ctx is cancelled.
func (p *RecoveryProcessor) Start(ctx context.Context) {
	logger := log.With().Str("component", "recovery_processor").Logger()
	logger.Info().Msg("starting price recovery")

	elapsed := p.interval()
	timer := time.NewTimer(elapsed)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down price recovery")
			return
		case <-timer.C:
			p.engine.Recover(elapsed.Hours())
			if pruned := p.engine.PruneTrackers(); pruned > 0 {
				logger.Debug().Int("pruned", pruned).Msg("pruned idle trade trackers")
			}
			elapsed = p.interval()
			timer.Reset(elapsed)
		}
	}
}

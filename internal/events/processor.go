package events

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Processor fires random events at randomized intervals and ends expired
// ones.
type Processor struct {
	engine     *Engine
	sweepDelay time.Duration
}

func NewProcessor(engine *Engine) *Processor {
	return &Processor{
		engine:     engine,
		sweepDelay: 30 * time.Second,
	}
}

// Start runs until ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "event_processor").Logger()
	logger.Info().Msg("starting market event processor")

	fire := time.NewTimer(p.engine.nextDelay())
	defer fire.Stop()
	sweep := time.NewTicker(p.sweepDelay)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down market event processor")
			return
		case <-sweep.C:
			p.engine.Sweep()
		case <-fire.C:
			if p.engine.enabled() {
				p.engine.Sweep()
				if _, ok := p.engine.FireRandom(); !ok {
					logger.Warn().Msg("no goods available for a market event")
				}
			}
			fire.Reset(p.engine.nextDelay())
		}
	}
}

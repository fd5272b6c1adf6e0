package auction

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Processor runs the expiry sweep.
type Processor struct {
	board *Board
}

func NewProcessor(board *Board) *Processor {
	return &Processor{board: board}
}

// Start sweeps on the configured interval until ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "auction_processor").Logger()
	logger.Info().Msg("starting auction sweep")

	timer := time.NewTimer(p.board.sweepInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down auction sweep")
			return
		case <-timer.C:
			if expired := p.board.Sweep(); len(expired) > 0 {
				logger.Info().Int("expired", len(expired)).Msg("expired auction listings returned to sellers")
			}
			timer.Reset(p.board.sweepInterval())
		}
	}
}

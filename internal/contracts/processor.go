package contracts

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Processor drives the board's tick on the spawn interval.
type Processor struct {
	board *Board
	delay time.Duration // first tick, lets the server settle
}

func NewProcessor(board *Board) *Processor {
	return &Processor{
		board: board,
		delay: 10 * time.Second,
	}
}

// Start runs the tick loop until ctx is cancelled. The next tick is only
// scheduled once the current one has returned.
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "contract_processor").Logger()
	logger.Info().Msg("starting contract processor")

	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down contract processor")
			return
		case <-timer.C:
			p.board.Tick()
			logger.Debug().Int("active", p.board.Count()).Msg("contract tick complete")
			timer.Reset(p.board.spawnInterval())
		}
	}
}

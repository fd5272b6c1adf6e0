package players

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const sessionSweepInterval = time.Minute

// Start drops expired sessions every minute until ctx is cancelled.
func (r *Registry) Start(ctx context.Context) {
	logger := log.With().Str("component", "session_sweeper").Logger()
	logger.Info().Msg("starting session sweeper")

	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down session sweeper")
			return
		case <-ticker.C:
			if n := r.SweepSessions(); n > 0 {
				logger.Info().Int("expired", n).Msg("expired sessions closed")
			}
		}
	}
}

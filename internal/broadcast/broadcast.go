// Package broadcast fans market announcements out to the log, an optional
// Redis channel and connected WebSocket sessions. Announce never blocks the
// caller: messages are queued and delivered by Run.
package broadcast

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Kind identifies the type of an announcement.
type Kind string

const (
	KindSeasonalRotation  Kind = "seasonal.rotation"
	KindContractNew       Kind = "contracts.new"
	KindContractCompleted Kind = "contracts.completed"
	KindContractExpired   Kind = "contracts.expired"
	KindEventStarted      Kind = "events.started"
	KindEventEnded        Kind = "events.ended"
	KindTreasuryGiveAll   Kind = "treasury.giveall"
	KindAuctionSold       Kind = "auction.sold"
)

// Announcement is a market-wide notice.
type Announcement struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
	At      time.Time      `json:"at"`
}

// Notifier accepts announcements.
type Notifier interface {
	Announce(a Announcement)
}

// Sink delivers a queued announcement somewhere.
type Sink interface {
	Deliver(ctx context.Context, a Announcement) error
}

const queueSize = 256

// Dispatcher queues announcements and delivers them to every sink.
type Dispatcher struct {
	queue chan Announcement
	sinks []Sink
	now   func() time.Time
}

// NewDispatcher creates a dispatcher over the given sinks.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		queue: make(chan Announcement, queueSize),
		sinks: sinks,
		now:   time.Now,
	}
}

// Announce enqueues a; it is dropped with a warning when the queue is full.
func (d *Dispatcher) Announce(a Announcement) {
	if a.At.IsZero() {
		a.At = d.now()
	}
	select {
	case d.queue <- a:
	default:
		log.Warn().Str("kind", string(a.Kind)).Msg("announcement queue full, dropping")
	}
}

// Run delivers queued announcements until ctx is cancelled, then drains
// what is left.
func (d *Dispatcher) Run(ctx context.Context) error {
	logger := log.With().Str("component", "broadcast_dispatcher").Logger()
	logger.Info().Int("sinks", len(d.sinks)).Msg("starting announcement dispatcher")

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case a := <-d.queue:
					d.deliver(context.Background(), logger, a)
				default:
					logger.Info().Msg("shutting down announcement dispatcher")
					return nil
				}
			}
		case a := <-d.queue:
			d.deliver(ctx, logger, a)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, logger zerolog.Logger, a Announcement) {
	for _, s := range d.sinks {
		if err := s.Deliver(ctx, a); err != nil {
			logger.Error().Err(err).Str("kind", string(a.Kind)).Msg("failed to deliver announcement")
		}
	}
}

// LogSink writes announcements to the global logger.
type LogSink struct{}

func (LogSink) Deliver(_ context.Context, a Announcement) error {
	ev := log.Info().Str("kind", string(a.Kind))
	for k, v := range a.Fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(a.Message)
	return nil
}

// Discard is a Notifier that drops everything.
type Discard struct{}

func (Discard) Announce(Announcement) {}

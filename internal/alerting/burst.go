package alerting

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBurstDelays is the reminder send offsets used when none are configured.
var DefaultBurstDelays = []time.Duration{
	0,
	time.Minute,
	3 * time.Minute,
	6 * time.Minute,
	10 * time.Minute,
}

// ThresholdNotifier delivers a threshold-crossing notification.
type ThresholdNotifier interface {
	NotifyThresholdAlert(ctx context.Context, event ThresholdAlertEvent) error
}

// BurstScheduler fans a single crossing event out into a fixed sequence of
// delayed sends, so a missed first notification is followed up. Scheduled
// sends are fire-and-forget: failures are logged, never retried, and do not
// affect the remaining members of the burst.
type BurstScheduler struct {
	delays   []time.Duration
	notifier ThresholdNotifier
	logger   zerolog.Logger

	// afterFunc is swappable for tests driving a simulated clock.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewBurstScheduler constructs a scheduler with the given delay sequence.
// An empty sequence falls back to DefaultBurstDelays.
func NewBurstScheduler(delays []time.Duration, notifier ThresholdNotifier, logger zerolog.Logger) *BurstScheduler {
	if len(delays) == 0 {
		delays = DefaultBurstDelays
	}
	frozen := make([]time.Duration, len(delays))
	copy(frozen, delays)
	return &BurstScheduler{
		delays:    frozen,
		notifier:  notifier,
		logger:    logger.With().Str("component", "burst_scheduler").Logger(),
		afterFunc: time.AfterFunc,
	}
}

// Schedule queues one delayed send per configured delay, each carrying the
// same captured event. There is no cancellation once scheduled.
func (b *BurstScheduler) Schedule(event ThresholdAlertEvent) {
	for _, delay := range b.delays {
		delay := delay
		b.afterFunc(delay, func() {
			if err := b.notifier.NotifyThresholdAlert(context.Background(), event); err != nil {
				b.logger.Warn().Err(err).Dur("delay", delay).Msg("threshold reminder send failed")
			}
		})
	}
	b.logger.Info().
		Int("sends", len(b.delays)).
		Time("alert_time", event.AlertTime).
		Msg("scheduled threshold alert burst")
}

package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/xbleey/gold-price-alert/internal/alerting"
)

// errorNotifyInterval caps how often an ongoing outage re-notifies.
const errorNotifyInterval = 10 * time.Minute

// StatusMonitor tracks upstream API health across fetch attempts. While the
// API is failing it notifies at most once per errorNotifyInterval; when the
// first success after an outage arrives it sends a resume notification with
// the total downtime.
type StatusMonitor struct {
	notifier alerting.Notifier
	apiURL   string
	logger   zerolog.Logger
	now      func() time.Time

	mu                 sync.Mutex
	firstFailureAt     time.Time
	lastNotificationAt time.Time
}

// NewStatusMonitor constructs a monitor reporting through the notifier.
func NewStatusMonitor(notifier alerting.Notifier, apiURL string, logger zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		notifier: notifier,
		apiURL:   apiURL,
		logger:   logger.With().Str("component", "api_status_monitor").Logger(),
		now:      time.Now,
	}
}

// RecordFailure notes a failed fetch and notifies if the re-notify interval
// has elapsed since the previous outage notification.
func (m *StatusMonitor) RecordFailure(ctx context.Context, detail string) {
	now := m.now()

	var msg *alerting.APIErrorMessage
	m.mu.Lock()
	if m.firstFailureAt.IsZero() {
		m.firstFailureAt = now
	}
	if m.lastNotificationAt.IsZero() || now.Sub(m.lastNotificationAt) >= errorNotifyInterval {
		msg = &alerting.APIErrorMessage{
			OccurredAt: now,
			APIURL:     m.apiURL,
			Detail:     detail,
			Downtime:   now.Sub(m.firstFailureAt),
		}
		m.lastNotificationAt = now
	}
	m.mu.Unlock()

	if msg != nil {
		if err := m.notifier.NotifyAPIError(ctx, *msg); err != nil {
			m.logger.Warn().Err(err).Msg("failed to send api error notification")
		}
	}
}

// RecordSuccess clears outage state; if an outage was in progress it sends
// a resume notification carrying the downtime.
func (m *StatusMonitor) RecordSuccess(ctx context.Context) {
	now := m.now()

	var msg *alerting.APIResumeMessage
	m.mu.Lock()
	if !m.firstFailureAt.IsZero() {
		msg = &alerting.APIResumeMessage{
			ResumedAt:      now,
			FirstFailureAt: m.firstFailureAt,
			Downtime:       now.Sub(m.firstFailureAt),
			APIURL:         m.apiURL,
		}
		m.firstFailureAt = time.Time{}
		m.lastNotificationAt = time.Time{}
	}
	m.mu.Unlock()

	if msg != nil {
		if err := m.notifier.NotifyAPIResume(ctx, *msg); err != nil {
			m.logger.Warn().Err(err).Msg("failed to send api resume notification")
		}
	}
}

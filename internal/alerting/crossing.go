package alerting

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/xbleey/gold-price-alert/internal/history"
)

// thresholdSnapshotCount bounds the context attached to a crossing event.
const thresholdSnapshotCount = 20

// ThresholdSource supplies the current manual threshold. The detector
// fetches it fresh on every call and never caches it.
type ThresholdSource interface {
	Current(ctx context.Context) (decimal.Decimal, bool, error)
}

// CrossingDetector detects the two most recent samples passing through the
// externally held manual threshold, in either direction. It keeps no memory
// of past crossings; once-only semantics live in the threshold lifecycle.
type CrossingDetector struct {
	history    history.Store
	thresholds ThresholdSource
	logger     zerolog.Logger
}

// NewCrossingDetector constructs a detector over history and threshold store.
func NewCrossingDetector(hist history.Store, thresholds ThresholdSource, logger zerolog.Logger) *CrossingDetector {
	return &CrossingDetector{
		history:    hist,
		thresholds: thresholds,
		logger:     logger.With().Str("component", "crossing_detector").Logger(),
	}
}

// Evaluate checks the latest sample against its predecessor for a threshold
// crossing. No threshold set, a non-positive threshold, or fewer than two
// samples all mean no crossing.
func (d *CrossingDetector) Evaluate(ctx context.Context, latest history.Sample) (ThresholdAlertEvent, bool) {
	threshold, ok, err := d.thresholds.Current(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("failed to read manual threshold")
		return ThresholdAlertEvent{}, false
	}
	if !ok || threshold.Sign() <= 0 {
		return ThresholdAlertEvent{}, false
	}

	recent := d.history.Recent(2)
	if len(recent) < 2 {
		return ThresholdAlertEvent{}, false
	}
	previous := recent[0]

	direction, crossed := resolveDirection(previous.Price, latest.Price, threshold)
	if !crossed {
		return ThresholdAlertEvent{}, false
	}

	event := ThresholdAlertEvent{
		Threshold:     threshold,
		Price:         latest.Price,
		Direction:     direction,
		AlertTime:     latest.Time,
		RecentSamples: d.history.Recent(thresholdSnapshotCount),
	}

	d.logger.Warn().
		Str("direction", string(direction)).
		Str("threshold", threshold.String()).
		Str("price", latest.Price.String()).
		Msg("manual threshold crossed")

	return event, true
}

func resolveDirection(previous, latest, threshold decimal.Decimal) (Direction, bool) {
	prevCmp := previous.Cmp(threshold)
	latestCmp := latest.Cmp(threshold)
	switch {
	case prevCmp >= 0 && latestCmp < 0:
		return DirectionDown, true
	case prevCmp < 0 && latestCmp >= 0:
		return DirectionUp, true
	default:
		return "", false
	}
}

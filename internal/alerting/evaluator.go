package alerting

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/xbleey/gold-price-alert/internal/history"
)

// changeScale keeps percent arithmetic well past the comparison precision
// the thresholds are expressed in.
const changeScale = 12

// recentSnapshotCount bounds the context attached to a fired event.
const recentSnapshotCount = 60

var oneHundred = decimal.NewFromInt(100)

type candidate struct {
	level            Level
	config           LevelConfig
	baselinePrice    decimal.Decimal
	changePercent    decimal.Decimal
	absChangePercent decimal.Decimal
}

// Evaluator decides, per freshly appended sample, the single most
// noteworthy severity-level alert.
type Evaluator struct {
	history history.Store
	levels  *Levels
	logger  zerolog.Logger
}

// NewEvaluator constructs a level evaluator over the given history.
func NewEvaluator(hist history.Store, levels *Levels, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		history: hist,
		levels:  levels,
		logger:  logger.With().Str("component", "level_evaluator").Logger(),
	}
}

// Evaluate compares the latest sample against each level's lookback baseline
// and returns the best candidate as an AlertEvent, if any threshold is met.
// Levels lacking a baseline in history are skipped for this cycle.
func (e *Evaluator) Evaluate(latest history.Sample) (AlertEvent, bool) {
	var best *candidate
	for i := 0; i < e.levels.Count(); i++ {
		level := Level(i)
		cfg := e.levels.Config(level)

		target := latest.Time.Add(-cfg.Window)
		baseline, ok := e.history.AtOrBefore(target)
		if !ok {
			continue
		}
		if baseline.Price.Sign() <= 0 {
			continue
		}

		change := latest.Price.Sub(baseline.Price).
			DivRound(baseline.Price, changeScale).
			Mul(oneHundred)
		absChange := change.Abs()
		if absChange.LessThan(cfg.ThresholdPercent) {
			continue
		}

		cand := candidate{
			level:            level,
			config:           cfg,
			baselinePrice:    baseline.Price,
			changePercent:    change,
			absChangePercent: absChange,
		}
		if best == nil {
			best = &cand
			continue
		}
		// Larger magnitude wins; an exact tie goes to the higher severity.
		cmp := absChange.Cmp(best.absChangePercent)
		if cmp > 0 || (cmp == 0 && level > best.level) {
			best = &cand
		}
	}

	if best == nil {
		return AlertEvent{}, false
	}

	event := AlertEvent{
		Level:            best.level,
		LevelName:        best.config.Name,
		AlertTime:        latest.Time,
		Window:           best.config.Window,
		ThresholdPercent: best.config.ThresholdPercent,
		ChangePercent:    best.changePercent,
		BaselinePrice:    best.baselinePrice,
		LatestPrice:      latest.Price,
		RecentSamples:    e.history.Recent(recentSnapshotCount),
	}

	e.logger.Warn().
		Str("level", event.LevelName).
		Dur("window", event.Window).
		Str("threshold_pct", event.ThresholdPercent.StringFixed(4)).
		Str("change_pct", event.ChangePercent.StringFixed(4)).
		Str("baseline", event.BaselinePrice.String()).
		Str("latest", event.LatestPrice.String()).
		Time("alert_time", event.AlertTime).
		Msg("price change alert")

	return event, true
}

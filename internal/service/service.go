package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/xbleey/gold-price-alert/internal/alerting"
	"github.com/xbleey/gold-price-alert/internal/fetcher"
	"github.com/xbleey/gold-price-alert/internal/history"
	"github.com/xbleey/gold-price-alert/internal/scheduler"
	"github.com/xbleey/gold-price-alert/internal/storage"
)

// beijingZone renders the secondary audit timestamp the alert table keeps.
var beijingZone = time.FixedZone("Asia/Shanghai", 8*60*60)

// ThresholdLifecycle is the slice of the threshold store the ingestion
// flow drives after a crossing fires.
type ThresholdLifecycle interface {
	MarkTriggered(ctx context.Context, triggeredAt time.Time, price decimal.Decimal) (bool, error)
}

// Options aggregate the collaborators of the ingestion pipeline.
type Options struct {
	Scheduler       *scheduler.Scheduler
	Fetcher         fetcher.PriceFetcher
	Monitor         *fetcher.StatusMonitor
	History         history.Store
	Evaluator       *alerting.Evaluator
	Gate            *alerting.Gate
	Crossing        *alerting.CrossingDetector
	Burst           *alerting.BurstScheduler
	Thresholds      ThresholdLifecycle
	Snapshots       storage.SnapshotStore
	Alerts          storage.AlertHistoryStore
	Notifier        alerting.Notifier
	AlertsEnabled   bool
	TradingDaysOnly bool
}

// Service orchestrates fetching, history, evaluation, and notification.
type Service struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs the monitoring service.
func New(opts Options, logger zerolog.Logger) *Service {
	return &Service{
		opts:   opts,
		logger: logger.With().Str("component", "service").Logger(),
	}
}

// Run begins the periodic sampling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.opts.Scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.opts.Scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick 执行单个采样周期。Outside trading days the tick is skipped.
func (s *Service) ProcessTick(ctx context.Context, tick time.Time) error {
	if s.opts.TradingDaysOnly && !fetcher.IsTradingDayUTC(tick) {
		s.logger.Debug().Time("tick", tick).Msg("skip fetch outside trading day")
		return nil
	}
	_, err := s.FetchOnce(ctx)
	return err
}

// FetchOnce runs one full ingestion cycle: fetch, persist, append to
// history, evaluate severity levels, and check the manual threshold.
func (s *Service) FetchOnce(ctx context.Context) (fetcher.Snapshot, error) {
	snapshot, err := s.opts.Fetcher.FetchPrice(ctx)
	if err != nil {
		if s.opts.Monitor != nil {
			s.opts.Monitor.RecordFailure(ctx, err.Error())
		}
		return fetcher.Snapshot{}, fmt.Errorf("fetch gold price: %w", err)
	}
	if s.opts.Monitor != nil {
		s.opts.Monitor.RecordSuccess(ctx)
	}

	s.persistSnapshot(ctx, snapshot)

	sample := history.Sample{Time: snapshot.FetchedAt, Price: snapshot.Price}
	s.opts.History.Append(sample)

	alerted := s.evaluateLevels(ctx, sample)
	s.evaluateThreshold(ctx, sample)

	if !alerted {
		s.logger.Info().
			Str("price", snapshot.Price.String()).
			Str("symbol", snapshot.Symbol).
			Time("updated_at", snapshot.UpdatedAt).
			Msg("fetched gold price")
	}

	return snapshot, nil
}

func (s *Service) persistSnapshot(ctx context.Context, snapshot fetcher.Snapshot) {
	if s.opts.Snapshots == nil {
		return
	}
	record := storage.PriceSnapshot{
		FetchedAt:         snapshot.FetchedAt,
		Name:              snapshot.Name,
		Price:             snapshot.Price,
		Symbol:            snapshot.Symbol,
		UpdatedAt:         snapshot.UpdatedAt,
		UpdatedAtReadable: snapshot.UpdatedAtReadable,
	}
	if _, err := s.opts.Snapshots.InsertSnapshot(ctx, record); err != nil {
		s.logger.Error().Err(err).Time("fetched_at", snapshot.FetchedAt).Msg("failed to persist snapshot")
	}
}

// evaluateLevels runs the severity evaluator and routes a produced event
// through persistence and the notification gate. Persistence failures are
// logged and never block notification.
func (s *Service) evaluateLevels(ctx context.Context, sample history.Sample) bool {
	if s.opts.Evaluator == nil {
		return false
	}
	event, ok := s.opts.Evaluator.Evaluate(sample)
	if !ok {
		return false
	}

	s.persistAlert(ctx, event)

	if !s.opts.AlertsEnabled || s.opts.Notifier == nil || s.opts.Gate == nil {
		return true
	}
	if !s.opts.Gate.Decide(event) {
		return true
	}
	if err := s.opts.Notifier.NotifyAlert(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("level", event.LevelName).Msg("failed to dispatch alert")
	}
	return true
}

func (s *Service) persistAlert(ctx context.Context, event alerting.AlertEvent) {
	if s.opts.Alerts == nil {
		return
	}
	record := storage.AlertHistory{
		AlertLevel:       event.LevelName,
		AlertTimeUTC:     event.AlertTime.UTC(),
		AlertTimeBeijing: event.AlertTime.In(beijingZone),
		ThresholdPercent: event.ThresholdPercent,
		ChangePercent:    event.ChangePercent,
		BaselinePrice:    event.BaselinePrice,
		LatestPrice:      event.LatestPrice,
	}
	if _, err := s.opts.Alerts.InsertAlert(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("level", event.LevelName).Msg("failed to persist alert history")
	}
}

// evaluateThreshold checks the manual threshold crossing path and, on a
// crossing, advances the threshold lifecycle and schedules the reminder
// burst.
func (s *Service) evaluateThreshold(ctx context.Context, sample history.Sample) {
	if s.opts.Crossing == nil {
		return
	}
	event, ok := s.opts.Crossing.Evaluate(ctx, sample)
	if !ok {
		return
	}

	if s.opts.Thresholds != nil {
		if _, err := s.opts.Thresholds.MarkTriggered(ctx, event.AlertTime, event.Price); err != nil {
			s.logger.Error().Err(err).Msg("failed to mark threshold triggered")
		}
	}
	if s.opts.Burst != nil {
		s.opts.Burst.Schedule(event)
	}
}

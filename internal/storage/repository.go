package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertSnapshotSQL = `INSERT INTO gold_price_snapshot (
        fetched_at,
        name,
        price,
        symbol,
        updated_at,
        updated_at_readable
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    ) RETURNING id;`

	listRecentSnapshotsSQL = `SELECT
        id,
        fetched_at,
        name,
        price,
        symbol,
        updated_at,
        updated_at_readable
    FROM gold_price_snapshot
    ORDER BY fetched_at DESC
    LIMIT $1;`

	listSnapshotsBetweenSQL = `SELECT
        id,
        fetched_at,
        name,
        price,
        symbol,
        updated_at,
        updated_at_readable
    FROM gold_price_snapshot
    WHERE fetched_at >= $1
      AND fetched_at < $2
    ORDER BY fetched_at;`

	countSnapshotsSQL = `SELECT COUNT(*) FROM gold_price_snapshot;`

	insertAlertSQL = `INSERT INTO gold_alert_history (
        alert_level,
        alert_time_utc,
        alert_time_beijing,
        threshold_percent,
        change_percent,
        baseline_price,
        latest_price
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    ) RETURNING id, created_at;`

	latestThresholdSQL = `SELECT
        id, threshold, set_at, triggered_at, triggered_price, status
    FROM gold_threshold_history
    ORDER BY set_at DESC, id DESC
    LIMIT 1;`

	latestPendingThresholdSQL = `SELECT
        id, threshold, set_at, triggered_at, triggered_price, status
    FROM gold_threshold_history
    WHERE status = 'PENDING'
    ORDER BY set_at DESC, id DESC
    LIMIT 1;`

	insertThresholdSQL = `INSERT INTO gold_threshold_history (
        threshold, set_at, triggered_at, triggered_price, status
    ) VALUES (
        $1,$2,NULL,NULL,'PENDING'
    ) RETURNING id;`

	updateThresholdSQL = `UPDATE gold_threshold_history
    SET threshold = $2,
        set_at = $3,
        triggered_at = NULL,
        triggered_price = NULL,
        status = 'PENDING'
    WHERE id = $1;`

	markThresholdTriggeredSQL = `UPDATE gold_threshold_history
    SET status = 'TRIGGERED', triggered_at = $2, triggered_price = $3
    WHERE id = $1 AND status = 'PENDING';`

	markThresholdClearedSQL = `UPDATE gold_threshold_history
    SET status = 'CLEARED'
    WHERE id = $1 AND status = 'PENDING';`
)

// SnapshotStore defines operations for price snapshot persistence.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, snapshot PriceSnapshot) (int64, error)
	ListRecentSnapshots(ctx context.Context, limit int) ([]PriceSnapshot, error)
	ListSnapshotsBetween(ctx context.Context, from, to time.Time) ([]PriceSnapshot, error)
	CountSnapshots(ctx context.Context) (int64, error)
}

// AlertHistoryStore defines operations for fired-alert auditing.
type AlertHistoryStore interface {
	InsertAlert(ctx context.Context, alert AlertHistory) (AlertHistory, error)
	ListAlertsPage(ctx context.Context, pageNum, pageSize int64, levels []string) (AlertPage, error)
}

// ThresholdHistoryStore defines operations on the manual threshold lifecycle.
type ThresholdHistoryStore interface {
	FindLatest(ctx context.Context) (ThresholdHistory, bool, error)
	FindLatestPending(ctx context.Context) (ThresholdHistory, bool, error)
	SaveThreshold(ctx context.Context, record ThresholdHistory) (int64, error)
	UpdateThreshold(ctx context.Context, record ThresholdHistory) error
	MarkTriggered(ctx context.Context, id int64, triggeredAt time.Time, triggeredPrice decimal.Decimal) (bool, error)
	MarkCleared(ctx context.Context, id int64) error
}

// Store aggregates Postgres access for snapshots, alerts, and thresholds.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertSnapshot persists one price observation.
func (s *Store) InsertSnapshot(ctx context.Context, snapshot PriceSnapshot) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var id int64
	scanErr := pool.QueryRow(ctx, insertSnapshotSQL,
		snapshot.FetchedAt,
		snapshot.Name,
		snapshot.Price.String(),
		snapshot.Symbol,
		snapshot.UpdatedAt,
		snapshot.UpdatedAtReadable,
	).Scan(&id)
	if scanErr != nil {
		return 0, fmt.Errorf("insert snapshot: %w", scanErr)
	}
	return id, nil
}

// ListRecentSnapshots lists the most recent snapshots, newest first.
func (s *Store) ListRecentSnapshots(ctx context.Context, limit int) ([]PriceSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSnapshotsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", queryErr)
	}
	defer rows.Close()

	return scanSnapshots(rows, limit)
}

// ListSnapshotsBetween lists snapshots within a time window, oldest first.
func (s *Store) ListSnapshotsBetween(ctx context.Context, from, to time.Time) ([]PriceSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSnapshotsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list snapshots between: %w", queryErr)
	}
	defer rows.Close()

	return scanSnapshots(rows, 0)
}

// CountSnapshots counts stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSnapshotsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count snapshots: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists a fired alert.
func (s *Store) InsertAlert(ctx context.Context, alert AlertHistory) (AlertHistory, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertHistory{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.AlertLevel,
		alert.AlertTimeUTC,
		alert.AlertTimeBeijing,
		alert.ThresholdPercent.String(),
		alert.ChangePercent.String(),
		alert.BaselinePrice.String(),
		alert.LatestPrice.String(),
	)
	if scanErr := row.Scan(&alert.ID, &alert.CreatedAt); scanErr != nil {
		return AlertHistory{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return alert, nil
}

// ListAlertsPage returns one page of alert history, newest first, optionally
// filtered by level names.
func (s *Store) ListAlertsPage(ctx context.Context, pageNum, pageSize int64, levels []string) (AlertPage, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertPage{}, err
	}

	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > 200 {
		pageSize = 200
	}

	where := ""
	args := []any{}
	if len(levels) > 0 {
		where = " WHERE alert_level = ANY($1)"
		args = append(args, levels)
	}

	var total int64
	countSQL := "SELECT COUNT(*) FROM gold_alert_history" + where + ";"
	if scanErr := pool.QueryRow(ctx, countSQL, args...).Scan(&total); scanErr != nil {
		return AlertPage{}, fmt.Errorf("count alerts: %w", scanErr)
	}

	limitArg := len(args) + 1
	offsetArg := len(args) + 2
	listSQL := `SELECT
        id, alert_level, alert_time_utc, alert_time_beijing,
        threshold_percent, change_percent, baseline_price, latest_price, created_at
    FROM gold_alert_history` + where + fmt.Sprintf(`
    ORDER BY alert_time_utc DESC, id DESC
    LIMIT $%d OFFSET $%d;`, limitArg, offsetArg)
	args = append(args, pageSize, (pageNum-1)*pageSize)

	rows, queryErr := pool.Query(ctx, listSQL, args...)
	if queryErr != nil {
		return AlertPage{}, fmt.Errorf("list alerts: %w", queryErr)
	}
	defer rows.Close()

	records := make([]AlertHistory, 0, pageSize)
	for rows.Next() {
		var rec AlertHistory
		var thresholdStr, changeStr, baselineStr, latestStr string
		if err := rows.Scan(
			&rec.ID,
			&rec.AlertLevel,
			&rec.AlertTimeUTC,
			&rec.AlertTimeBeijing,
			&thresholdStr,
			&changeStr,
			&baselineStr,
			&latestStr,
			&rec.CreatedAt,
		); err != nil {
			return AlertPage{}, err
		}
		if rec.ThresholdPercent, err = decimal.NewFromString(thresholdStr); err != nil {
			return AlertPage{}, fmt.Errorf("parse threshold percent: %w", err)
		}
		if rec.ChangePercent, err = decimal.NewFromString(changeStr); err != nil {
			return AlertPage{}, fmt.Errorf("parse change percent: %w", err)
		}
		if rec.BaselinePrice, err = decimal.NewFromString(baselineStr); err != nil {
			return AlertPage{}, fmt.Errorf("parse baseline price: %w", err)
		}
		if rec.LatestPrice, err = decimal.NewFromString(latestStr); err != nil {
			return AlertPage{}, fmt.Errorf("parse latest price: %w", err)
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return AlertPage{}, rows.Err()
	}

	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return AlertPage{
		Current:  pageNum,
		PageSize: pageSize,
		Total:    total,
		Pages:    pages,
		Records:  records,
	}, nil
}

// FindLatest returns the most recent threshold row regardless of status.
func (s *Store) FindLatest(ctx context.Context) (ThresholdHistory, bool, error) {
	return s.queryThreshold(ctx, latestThresholdSQL)
}

// FindLatestPending returns the currently armed threshold row, if any.
func (s *Store) FindLatestPending(ctx context.Context) (ThresholdHistory, bool, error) {
	return s.queryThreshold(ctx, latestPendingThresholdSQL)
}

func (s *Store) queryThreshold(ctx context.Context, sql string) (ThresholdHistory, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return ThresholdHistory{}, false, err
	}

	var rec ThresholdHistory
	var thresholdStr string
	var triggeredPrice *string
	scanErr := pool.QueryRow(ctx, sql).Scan(
		&rec.ID,
		&thresholdStr,
		&rec.SetAt,
		&rec.TriggeredAt,
		&triggeredPrice,
		&rec.Status,
	)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return ThresholdHistory{}, false, nil
	}
	if scanErr != nil {
		return ThresholdHistory{}, false, fmt.Errorf("query threshold: %w", scanErr)
	}

	if rec.Threshold, err = decimal.NewFromString(thresholdStr); err != nil {
		return ThresholdHistory{}, false, fmt.Errorf("parse threshold: %w", err)
	}
	if triggeredPrice != nil {
		price, convErr := decimal.NewFromString(strings.TrimSpace(*triggeredPrice))
		if convErr != nil {
			return ThresholdHistory{}, false, fmt.Errorf("parse triggered price: %w", convErr)
		}
		rec.TriggeredPrice = &price
	}
	return rec, true, nil
}

// SaveThreshold inserts a new PENDING threshold row.
func (s *Store) SaveThreshold(ctx context.Context, record ThresholdHistory) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var id int64
	scanErr := pool.QueryRow(ctx, insertThresholdSQL,
		record.Threshold.String(),
		record.SetAt,
	).Scan(&id)
	if scanErr != nil {
		return 0, fmt.Errorf("save threshold: %w", scanErr)
	}
	return id, nil
}

// UpdateThreshold re-arms an existing row with a new value.
func (s *Store) UpdateThreshold(ctx context.Context, record ThresholdHistory) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, updateThresholdSQL,
		record.ID,
		record.Threshold.String(),
		record.SetAt,
	); execErr != nil {
		return fmt.Errorf("update threshold: %w", execErr)
	}
	return nil
}

// MarkTriggered transitions a PENDING row to TRIGGERED.
func (s *Store) MarkTriggered(ctx context.Context, id int64, triggeredAt time.Time, triggeredPrice decimal.Decimal) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	cmdTag, execErr := pool.Exec(ctx, markThresholdTriggeredSQL, id, triggeredAt, triggeredPrice.String())
	if execErr != nil {
		return false, fmt.Errorf("mark threshold triggered: %w", execErr)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// MarkCleared transitions a PENDING row to CLEARED.
func (s *Store) MarkCleared(ctx context.Context, id int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, markThresholdClearedSQL, id); execErr != nil {
		return fmt.Errorf("mark threshold cleared: %w", execErr)
	}
	return nil
}

func scanSnapshots(rows pgx.Rows, capacityHint int) ([]PriceSnapshot, error) {
	snapshots := make([]PriceSnapshot, 0, capacityHint)
	for rows.Next() {
		var snap PriceSnapshot
		var priceStr string
		if err := rows.Scan(
			&snap.ID,
			&snap.FetchedAt,
			&snap.Name,
			&priceStr,
			&snap.Symbol,
			&snap.UpdatedAt,
			&snap.UpdatedAtReadable,
		); err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		snap.Price = price
		snapshots = append(snapshots, snap)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

var _ SnapshotStore = (*Store)(nil)
var _ AlertHistoryStore = (*Store)(nil)
var _ ThresholdHistoryStore = (*Store)(nil)

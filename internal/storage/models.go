package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is a persisted price observation.
type PriceSnapshot struct {
	ID                int64
	FetchedAt         time.Time
	Name              string
	Price             decimal.Decimal
	Symbol            string
	UpdatedAt         time.Time
	UpdatedAtReadable string
}

// AlertHistory captures a fired severity-level alert for auditing.
type AlertHistory struct {
	ID               int64
	AlertLevel       string
	AlertTimeUTC     time.Time
	AlertTimeBeijing time.Time
	ThresholdPercent decimal.Decimal
	ChangePercent    decimal.Decimal
	BaselinePrice    decimal.Decimal
	LatestPrice      decimal.Decimal
	CreatedAt        time.Time
}

// Threshold lifecycle states.
const (
	ThresholdStatusPending   = "PENDING"
	ThresholdStatusTriggered = "TRIGGERED"
	ThresholdStatusCleared   = "CLEARED"
)

// ThresholdHistory is one row of the manual threshold lifecycle:
// PENDING while armed, then TRIGGERED or CLEARED.
type ThresholdHistory struct {
	ID             int64
	Threshold      decimal.Decimal
	SetAt          time.Time
	TriggeredAt    *time.Time
	TriggeredPrice *decimal.Decimal
	Status         string
}

// IsPending reports whether the row is the armed threshold.
func (t ThresholdHistory) IsPending() bool {
	return t.Status == ThresholdStatusPending
}

// AlertPage is one page of alert history plus paging metadata.
type AlertPage struct {
	Current  int64
	PageSize int64
	Total    int64
	Pages    int64
	Records  []AlertHistory
}

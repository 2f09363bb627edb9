package alerting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xbleey/gold-price-alert/internal/history"
)

// AlertEvent is a fired severity-level alert handed to persistence and
// the notification channel.
type AlertEvent struct {
	Level            Level
	LevelName        string
	AlertTime        time.Time
	Window           time.Duration
	ThresholdPercent decimal.Decimal
	ChangePercent    decimal.Decimal
	BaselinePrice    decimal.Decimal
	LatestPrice      decimal.Decimal
	RecentSamples    []history.Sample
}

// Direction reports which way the manual threshold was crossed.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// SubjectTag renders the direction for notification subjects.
func (d Direction) SubjectTag() string {
	if d == DirectionUp {
		return "UP TO"
	}
	return "DOWN TO"
}

// ThresholdAlertEvent is emitted when consecutive samples cross the
// user-set manual threshold.
type ThresholdAlertEvent struct {
	Threshold     decimal.Decimal
	Price         decimal.Decimal
	Direction     Direction
	AlertTime     time.Time
	RecentSamples []history.Sample
}

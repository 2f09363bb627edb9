package alerting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Level identifies one severity tier by its position in the configured
// level list. Higher ordinal means higher severity.
type Level int

// LevelConfig carries the lookback window and percent threshold for one tier.
type LevelConfig struct {
	Name             string
	Window           time.Duration
	ThresholdPercent decimal.Decimal
}

// Levels is the ordered severity configuration, lowest severity first.
// It is loaded once at startup and never mutated.
type Levels struct {
	configs []LevelConfig
}

// DefaultLevelConfigs mirrors the historical production tiers.
func DefaultLevelConfigs() []LevelConfig {
	return []LevelConfig{
		{Name: "INFO", Window: time.Minute, ThresholdPercent: decimal.RequireFromString("0.05")},
		{Name: "MINOR", Window: time.Minute, ThresholdPercent: decimal.RequireFromString("0.10")},
		{Name: "MODERATE", Window: 5 * time.Minute, ThresholdPercent: decimal.RequireFromString("0.25")},
		{Name: "MAJOR", Window: 5 * time.Minute, ThresholdPercent: decimal.RequireFromString("0.50")},
		{Name: "CRITICAL", Window: 15 * time.Minute, ThresholdPercent: decimal.RequireFromString("1.00")},
	}
}

// NewLevels validates and freezes the severity configuration.
func NewLevels(configs []LevelConfig) (*Levels, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("alerting: at least one severity level must be configured")
	}
	for i, cfg := range configs {
		if cfg.Name == "" {
			return nil, fmt.Errorf("alerting: level %d has no name", i)
		}
		if cfg.Window <= 0 {
			return nil, fmt.Errorf("alerting: level %s window must be > 0", cfg.Name)
		}
		if cfg.ThresholdPercent.IsNegative() {
			return nil, fmt.Errorf("alerting: level %s threshold cannot be negative", cfg.Name)
		}
	}
	frozen := make([]LevelConfig, len(configs))
	copy(frozen, configs)
	return &Levels{configs: frozen}, nil
}

// Count returns the number of configured tiers.
func (l *Levels) Count() int {
	return len(l.configs)
}

// Config returns the configuration for a level.
func (l *Levels) Config(level Level) LevelConfig {
	return l.configs[level]
}

// Name resolves a level's label, or "?" when out of range.
func (l *Levels) Name(level Level) string {
	if int(level) < 0 || int(level) >= len(l.configs) {
		return "?"
	}
	return l.configs[level].Name
}

// ByName resolves a label back to its level ordinal.
func (l *Levels) ByName(name string) (Level, bool) {
	for i, cfg := range l.configs {
		if cfg.Name == name {
			return Level(i), true
		}
	}
	return 0, false
}

package alerting

import (
	"fmt"
	"sync"
	"time"
)

// GateConfig sets the minimum notifiable severity and the per-level
// cooldown durations. Every configured level must have a cooldown entry.
type GateConfig struct {
	MinLevel  Level
	Cooldowns map[Level]time.Duration
}

// Gate throttles level-alert notifications. It suppresses repeats of the
// same or lower severity inside the level's cooldown, while an escalation
// (strictly higher severity than the last sent) always passes.
type Gate struct {
	cfg GateConfig
	now func() time.Time

	mu              sync.Mutex
	lastSentAt      time.Time
	lastSentLevel   Level
	hasSent         bool
	lastSentByLevel map[Level]time.Time
}

// NewGate validates the gate configuration against the level set.
func NewGate(cfg GateConfig, levels *Levels) (*Gate, error) {
	if int(cfg.MinLevel) < 0 || int(cfg.MinLevel) >= levels.Count() {
		return nil, fmt.Errorf("alerting: min level %d outside configured levels", cfg.MinLevel)
	}
	for i := 0; i < levels.Count(); i++ {
		if _, ok := cfg.Cooldowns[Level(i)]; !ok {
			return nil, fmt.Errorf("alerting: cooldown for level %s not configured", levels.Name(Level(i)))
		}
	}
	return &Gate{
		cfg:             cfg,
		now:             time.Now,
		lastSentByLevel: make(map[Level]time.Time),
	}, nil
}

// Decide reports whether the event should be delivered now. A true result
// atomically records the send; a false result leaves state untouched.
func (g *Gate) Decide(event AlertEvent) bool {
	if event.Level < g.cfg.MinLevel {
		return false
	}

	now := event.AlertTime
	if now.IsZero() {
		now = g.now()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.hasSent || event.Level > g.lastSentLevel {
		g.record(event.Level, now)
		return true
	}

	cooldown := g.cfg.Cooldowns[event.Level]
	if cooldown <= 0 {
		g.record(event.Level, now)
		return true
	}

	baseline, ok := g.lastSentByLevel[event.Level]
	if !ok {
		baseline = g.lastSentAt
	}
	if now.Sub(baseline) >= cooldown {
		g.record(event.Level, now)
		return true
	}
	return false
}

func (g *Gate) record(level Level, now time.Time) {
	g.lastSentAt = now
	g.lastSentLevel = level
	g.hasSent = true
	g.lastSentByLevel[level] = now
}

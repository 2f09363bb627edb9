package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xbleey/gold-price-alert/internal/history"
)

type staticThresholdSource struct {
	value decimal.Decimal
	ok    bool
	err   error
}

func (s *staticThresholdSource) Current(ctx context.Context) (decimal.Decimal, bool, error) {
	return s.value, s.ok, s.err
}

func crossingHistory(base time.Time, prices ...string) *history.History {
	h := history.New(history.Options{Window: time.Hour})
	for i, price := range prices {
		h.Append(history.Sample{Time: base.Add(time.Duration(i) * time.Minute), Price: decimal.RequireFromString(price)})
	}
	return h
}

func lastSample(h *history.History) history.Sample {
	recent := h.Recent(1)
	return recent[0]
}

func TestCrossingDetectorUp(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	h := crossingHistory(base, "99", "101")
	source := &staticThresholdSource{value: decimal.RequireFromString("100"), ok: true}
	detector := NewCrossingDetector(h, source, testLogger())

	event, ok := detector.Evaluate(context.Background(), lastSample(h))
	if !ok {
		t.Fatal("99 -> 101 穿越 100 应触发")
	}
	if event.Direction != DirectionUp {
		t.Fatalf("方向应为 UP, 实际 %s", event.Direction)
	}
	if event.Price.String() != "101" {
		t.Fatalf("价格不正确: %s", event.Price)
	}
}

func TestCrossingDetectorDown(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	h := crossingHistory(base, "101", "99")
	source := &staticThresholdSource{value: decimal.RequireFromString("100"), ok: true}
	detector := NewCrossingDetector(h, source, testLogger())

	event, ok := detector.Evaluate(context.Background(), lastSample(h))
	if !ok {
		t.Fatal("101 -> 99 穿越 100 应触发")
	}
	if event.Direction != DirectionDown {
		t.Fatalf("方向应为 DOWN, 实际 %s", event.Direction)
	}
}

func TestCrossingDetectorExactThresholdIsAbove(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	source := &staticThresholdSource{value: decimal.RequireFromString("100"), ok: true}

	// 99 -> 100: 到达阈值即视为在上方, 触发 UP。
	h := crossingHistory(base, "99", "100")
	detector := NewCrossingDetector(h, source, testLogger())
	event, ok := detector.Evaluate(context.Background(), lastSample(h))
	if !ok || event.Direction != DirectionUp {
		t.Fatalf("99 -> 100 应触发 UP, ok=%v direction=%s", ok, event.Direction)
	}

	// 100 -> 101: 始终不低于阈值, 不构成穿越。
	h = crossingHistory(base, "100", "101")
	detector = NewCrossingDetector(h, source, testLogger())
	if _, ok := detector.Evaluate(context.Background(), lastSample(h)); ok {
		t.Fatal("100 -> 101 不应触发")
	}
}

func TestCrossingDetectorNoCrossing(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	h := crossingHistory(base, "101", "102")
	source := &staticThresholdSource{value: decimal.RequireFromString("100"), ok: true}
	detector := NewCrossingDetector(h, source, testLogger())

	if _, ok := detector.Evaluate(context.Background(), lastSample(h)); ok {
		t.Fatal("同侧波动不应触发")
	}
}

func TestCrossingDetectorNoThreshold(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	h := crossingHistory(base, "99", "101")
	detector := NewCrossingDetector(h, &staticThresholdSource{ok: false}, testLogger())

	if _, ok := detector.Evaluate(context.Background(), lastSample(h)); ok {
		t.Fatal("未设置阈值时不应触发")
	}
}

func TestCrossingDetectorSingleSample(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	h := crossingHistory(base, "101")
	source := &staticThresholdSource{value: decimal.RequireFromString("100"), ok: true}
	detector := NewCrossingDetector(h, source, testLogger())

	if _, ok := detector.Evaluate(context.Background(), lastSample(h)); ok {
		t.Fatal("只有一个样本时不应触发")
	}
}

func TestCrossingDetectorSourceError(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	h := crossingHistory(base, "99", "101")
	source := &staticThresholdSource{err: errors.New("redis down")}
	detector := NewCrossingDetector(h, source, testLogger())

	if _, ok := detector.Evaluate(context.Background(), lastSample(h)); ok {
		t.Fatal("阈值读取失败时不应触发")
	}
}

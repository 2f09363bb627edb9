package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type recordingThresholdNotifier struct {
	mu     sync.Mutex
	events []ThresholdAlertEvent
	err    error
}

func (r *recordingThresholdNotifier) NotifyThresholdAlert(ctx context.Context, event ThresholdAlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func TestBurstSchedulerFansOut(t *testing.T) {
	notifier := &recordingThresholdNotifier{}
	delays := []time.Duration{0, time.Minute, 3 * time.Minute}
	burst := NewBurstScheduler(delays, notifier, testLogger())

	var scheduled []time.Duration
	burst.afterFunc = func(d time.Duration, f func()) *time.Timer {
		scheduled = append(scheduled, d)
		f()
		return nil
	}

	event := ThresholdAlertEvent{
		Threshold: decimal.RequireFromString("100"),
		Price:     decimal.RequireFromString("101"),
		Direction: DirectionUp,
		AlertTime: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}
	burst.Schedule(event)

	if len(scheduled) != 3 {
		t.Fatalf("应安排 3 次发送, 实际 %d", len(scheduled))
	}
	for i, delay := range delays {
		if scheduled[i] != delay {
			t.Fatalf("第 %d 次延迟应为 %s, 实际 %s", i+1, delay, scheduled[i])
		}
	}
	if len(notifier.events) != 3 {
		t.Fatalf("应发送 3 次, 实际 %d", len(notifier.events))
	}
	for _, got := range notifier.events {
		if got.Price.String() != "101" || got.Direction != DirectionUp {
			t.Fatalf("每次发送应携带同一事件: %+v", got)
		}
	}
}

func TestBurstSchedulerDefaultsDelays(t *testing.T) {
	burst := NewBurstScheduler(nil, &recordingThresholdNotifier{}, testLogger())
	if len(burst.delays) != len(DefaultBurstDelays) {
		t.Fatalf("空延迟序列应回退到默认值, 实际 %d", len(burst.delays))
	}
}

func TestBurstSchedulerToleratesSendFailure(t *testing.T) {
	notifier := &recordingThresholdNotifier{err: errors.New("telegram down")}
	burst := NewBurstScheduler([]time.Duration{0, time.Minute}, notifier, testLogger())
	burst.afterFunc = func(d time.Duration, f func()) *time.Timer {
		f()
		return nil
	}

	burst.Schedule(ThresholdAlertEvent{Threshold: decimal.RequireFromString("100")})

	// 发送失败不影响后续成员。
	if len(notifier.events) != 2 {
		t.Fatalf("失败后仍应尝试所有发送, 实际 %d", len(notifier.events))
	}
}

package alerting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xbleey/gold-price-alert/internal/history"
)

func mustLevels(t *testing.T, configs []LevelConfig) *Levels {
	t.Helper()
	levels, err := NewLevels(configs)
	if err != nil {
		t.Fatalf("构建告警级别失败: %v", err)
	}
	return levels
}

func TestEvaluatorFiresOnThreshold(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	h := history.New(history.Options{Window: time.Hour})
	h.Append(history.Sample{Time: base, Price: decimal.RequireFromString("100")})

	levels := mustLevels(t, []LevelConfig{
		{Name: "MINOR", Window: time.Minute, ThresholdPercent: decimal.RequireFromString("0.10")},
	})
	evaluator := NewEvaluator(h, levels, testLogger())

	latest := history.Sample{Time: base.Add(time.Minute), Price: decimal.RequireFromString("101")}
	h.Append(latest)

	event, ok := evaluator.Evaluate(latest)
	if !ok {
		t.Fatal("1% 涨幅应触发告警")
	}
	if event.LevelName != "MINOR" {
		t.Fatalf("level 不正确: %s", event.LevelName)
	}
	if event.ChangePercent.StringFixed(4) != "1.0000" {
		t.Fatalf("涨幅应为 1.0000%%, 实际 %s", event.ChangePercent.StringFixed(4))
	}
	if event.BaselinePrice.String() != "100" {
		t.Fatalf("基准价不正确: %s", event.BaselinePrice)
	}
}

func TestEvaluatorBelowThreshold(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	h := history.New(history.Options{Window: time.Hour})
	h.Append(history.Sample{Time: base, Price: decimal.RequireFromString("100")})

	levels := mustLevels(t, []LevelConfig{
		{Name: "MINOR", Window: time.Minute, ThresholdPercent: decimal.RequireFromString("0.10")},
	})
	evaluator := NewEvaluator(h, levels, testLogger())

	latest := history.Sample{Time: base.Add(time.Minute), Price: decimal.RequireFromString("100.05")}
	h.Append(latest)

	if _, ok := evaluator.Evaluate(latest); ok {
		t.Fatal("0.05% 涨幅不应触发 0.10% 阈值")
	}
}

func TestEvaluatorSkipsLevelsWithoutBaseline(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	h := history.New(history.Options{Window: time.Hour})

	levels := mustLevels(t, DefaultLevelConfigs())
	evaluator := NewEvaluator(h, levels, testLogger())

	latest := history.Sample{Time: base, Price: decimal.RequireFromString("100")}
	h.Append(latest)

	if _, ok := evaluator.Evaluate(latest); ok {
		t.Fatal("没有基准样本时不应触发告警")
	}
}

func TestEvaluatorNegativeChangeUsesMagnitude(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	h := history.New(history.Options{Window: time.Hour})
	h.Append(history.Sample{Time: base, Price: decimal.RequireFromString("100")})

	levels := mustLevels(t, []LevelConfig{
		{Name: "MINOR", Window: time.Minute, ThresholdPercent: decimal.RequireFromString("0.10")},
	})
	evaluator := NewEvaluator(h, levels, testLogger())

	latest := history.Sample{Time: base.Add(time.Minute), Price: decimal.RequireFromString("99")}
	h.Append(latest)

	event, ok := evaluator.Evaluate(latest)
	if !ok {
		t.Fatal("1% 跌幅应触发告警")
	}
	if event.ChangePercent.Sign() >= 0 {
		t.Fatalf("跌幅应保留负号, 实际 %s", event.ChangePercent)
	}
}

func TestEvaluatorBestCandidateByMagnitude(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	h := history.New(history.Options{Window: time.Hour})
	// 15 分钟前价格更低, CRITICAL 窗口的变化幅度最大。
	h.Append(history.Sample{Time: base, Price: decimal.RequireFromString("98")})
	h.Append(history.Sample{Time: base.Add(14 * time.Minute), Price: decimal.RequireFromString("99.8")})

	levels := mustLevels(t, DefaultLevelConfigs())
	evaluator := NewEvaluator(h, levels, testLogger())

	latest := history.Sample{Time: base.Add(15 * time.Minute), Price: decimal.RequireFromString("100")}
	h.Append(latest)

	event, ok := evaluator.Evaluate(latest)
	if !ok {
		t.Fatal("应触发告警")
	}
	if event.LevelName != "CRITICAL" {
		t.Fatalf("幅度最大的窗口应胜出, 实际 %s", event.LevelName)
	}
}

func TestEvaluatorTieGoesToHigherSeverity(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	h := history.New(history.Options{Window: time.Hour})
	// 两个级别共用同一基准样本, 变化幅度完全一致。
	h.Append(history.Sample{Time: base, Price: decimal.RequireFromString("100")})

	levels := mustLevels(t, []LevelConfig{
		{Name: "INFO", Window: time.Minute, ThresholdPercent: decimal.RequireFromString("0.05")},
		{Name: "MINOR", Window: time.Minute, ThresholdPercent: decimal.RequireFromString("0.10")},
	})
	evaluator := NewEvaluator(h, levels, testLogger())

	latest := history.Sample{Time: base.Add(time.Minute), Price: decimal.RequireFromString("100.2")}
	h.Append(latest)

	event, ok := evaluator.Evaluate(latest)
	if !ok {
		t.Fatal("应触发告警")
	}
	if event.LevelName != "MINOR" {
		t.Fatalf("幅度相同应选更高级别, 实际 %s", event.LevelName)
	}
}

func TestEvaluatorSkipsNonPositiveBaseline(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	h := history.New(history.Options{Window: time.Hour})
	h.Append(history.Sample{Time: base, Price: decimal.Zero})

	levels := mustLevels(t, []LevelConfig{
		{Name: "MINOR", Window: time.Minute, ThresholdPercent: decimal.RequireFromString("0.10")},
	})
	evaluator := NewEvaluator(h, levels, testLogger())

	latest := history.Sample{Time: base.Add(time.Minute), Price: decimal.RequireFromString("100")}
	h.Append(latest)

	if _, ok := evaluator.Evaluate(latest); ok {
		t.Fatal("基准价为 0 时不应计算涨跌幅")
	}
}

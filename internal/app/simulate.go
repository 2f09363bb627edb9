package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xbleey/gold-price-alert/internal/alerting"
	"github.com/xbleey/gold-price-alert/internal/fetcher"
	"github.com/xbleey/gold-price-alert/internal/history"
	"github.com/xbleey/gold-price-alert/internal/service"
)

// SimulateAlert 使用给定的基准价/最新价模拟一次完整的告警流程。
func (a *App) SimulateAlert(ctx context.Context, baseline, latest decimal.Decimal) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	levels, gateCfg, err := a.Config.BuildAlerting()
	if err != nil {
		return err
	}
	gate, err := alerting.NewGate(gateCfg, levels)
	if err != nil {
		return err
	}

	var maxWindow time.Duration
	for i := 0; i < levels.Count(); i++ {
		if window := levels.Config(alerting.Level(i)).Window; window > maxWindow {
			maxWindow = window
		}
	}

	now := time.Now().UTC()
	hist := history.New(history.Options{Window: maxWindow + time.Minute})
	hist.Append(history.Sample{Time: now.Add(-maxWindow), Price: baseline})

	evaluator := alerting.NewEvaluator(hist, levels, a.Logger)

	svc := service.New(service.Options{
		Fetcher:       &staticPriceFetcher{price: latest, now: now},
		History:       hist,
		Evaluator:     evaluator,
		Gate:          gate,
		Notifier:      notifier,
		AlertsEnabled: true,
	}, a.Logger)

	_, err = svc.FetchOnce(ctx)
	return err
}

type staticPriceFetcher struct {
	price decimal.Decimal
	now   time.Time
}

func (s *staticPriceFetcher) FetchPrice(ctx context.Context) (fetcher.Snapshot, error) {
	return fetcher.Snapshot{
		FetchedAt:         s.now,
		Name:              "simulated gold",
		Price:             s.price,
		Symbol:            "XAU",
		UpdatedAt:         s.now,
		UpdatedAtReadable: s.now.Format(time.DateTime),
	}, nil
}

var _ fetcher.PriceFetcher = (*staticPriceFetcher)(nil)

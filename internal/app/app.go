package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/xbleey/gold-price-alert/internal/alerting"
	"github.com/xbleey/gold-price-alert/internal/config"
	"github.com/xbleey/gold-price-alert/internal/fetcher"
	"github.com/xbleey/gold-price-alert/internal/history"
	"github.com/xbleey/gold-price-alert/internal/httpapi"
	"github.com/xbleey/gold-price-alert/internal/scheduler"
	"github.com/xbleey/gold-price-alert/internal/service"
	"github.com/xbleey/gold-price-alert/internal/storage"
	"github.com/xbleey/gold-price-alert/internal/threshold"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) openRedis(ctx context.Context) (*redis.Client, func(), error) {
	if a.Config.Redis.Addr == "" {
		return nil, nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	closer := func() {
		_ = client.Close()
	}
	return client, closer, nil
}

// Run executes the long-running monitoring service and management API.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	redisClient, closeRedis, err := a.openRedis(ctx)
	if err != nil {
		return err
	}
	if closeRedis != nil {
		defer closeRedis()
	}

	levels, gateCfg, err := a.Config.BuildAlerting()
	if err != nil {
		return err
	}
	gate, err := alerting.NewGate(gateCfg, levels)
	if err != nil {
		return err
	}

	hist := history.New(history.Options{
		Window:   a.Config.History.Window,
		Capacity: a.Config.History.Capacity,
	})

	notifier := a.newNotifier()
	effectiveNotifier := notifier
	if effectiveNotifier == nil {
		effectiveNotifier = alerting.NopNotifier{}
	}

	var cache threshold.Cache
	if redisClient != nil {
		cache = threshold.NewRedisCache(redisClient)
	}
	var thresholdHistory storage.ThresholdHistoryStore
	var snapshots storage.SnapshotStore
	var alerts storage.AlertHistoryStore
	if store != nil {
		thresholdHistory = store
		snapshots = store
		alerts = store
	}
	thresholds := threshold.New(cache, thresholdHistory, a.Logger)

	goldAPI := fetcher.NewGoldAPI(fetcher.GoldAPIOptions{
		URL:       a.Config.Gold.APIURL,
		Timeout:   a.Config.Gold.RequestTimeout,
		UserAgent: a.Config.Gold.UserAgent,
	}, a.Logger)
	monitor := fetcher.NewStatusMonitor(effectiveNotifier, a.Config.Gold.APIURL, a.Logger)

	evaluator := alerting.NewEvaluator(hist, levels, a.Logger)
	crossing := alerting.NewCrossingDetector(hist, thresholds, a.Logger)
	burst := alerting.NewBurstScheduler(a.Config.Alerting.BurstDelays, effectiveNotifier, a.Logger)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Gold.FetchInterval,
		StartupDelay: a.Config.Gold.StartupDelay,
	}, a.Logger)

	svc := service.New(service.Options{
		Scheduler:       sched,
		Fetcher:         goldAPI,
		Monitor:         monitor,
		History:         hist,
		Evaluator:       evaluator,
		Gate:            gate,
		Crossing:        crossing,
		Burst:           burst,
		Thresholds:      thresholds,
		Snapshots:       snapshots,
		Alerts:          alerts,
		Notifier:        notifier,
		AlertsEnabled:   a.Config.Alerting.Enabled && notifier != nil,
		TradingDaysOnly: a.Config.Gold.TradingDaysOnly,
	}, a.Logger)

	var httpServer *httpapi.Server
	httpErr := make(chan error, 1)
	if a.Config.HTTP.Enabled {
		var dbPinger, redisPinger httpapi.Pinger
		if store != nil {
			dbPinger = store
		}
		if redisClient != nil {
			client := redisClient
			redisPinger = httpapi.PingerFunc(func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			})
		}
		handler := httpapi.NewHandler(svc, hist, thresholds, alerts, dbPinger, redisPinger, a.Logger)
		httpServer = httpapi.NewServer(a.Config.HTTP.Addr, handler, a.Logger)
		go func() {
			httpErr <- httpServer.Start()
		}()
	}

	a.Logger.Info().Msg("starting monitoring service")
	runErr := make(chan error, 1)
	go func() {
		runErr <- svc.Run(ctx)
	}()

	select {
	case err = <-runErr:
	case err = <-httpErr:
		cancel()
		<-runErr
	}

	if httpServer != nil {
		if shutdownErr := httpServer.Shutdown(context.Background()); shutdownErr != nil {
			a.Logger.Warn().Err(shutdownErr).Msg("http server shutdown failed")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// ExportOptions hold parameters for exporting historical snapshots.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/xbleey/gold-price-alert/internal/alerting"
	"github.com/xbleey/gold-price-alert/internal/logging"
	"github.com/xbleey/gold-price-alert/internal/storage"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Gold     GoldConfig     `mapstructure:"gold"`
	History  HistoryConfig  `mapstructure:"history"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Database storage.Config `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// GoldConfig covers the upstream price API and sampling cadence.
type GoldConfig struct {
	APIURL          string        `mapstructure:"api_url"`
	FetchInterval   time.Duration `mapstructure:"fetch_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	TradingDaysOnly bool          `mapstructure:"trading_days_only"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// HistoryConfig bounds the in-memory sample window.
type HistoryConfig struct {
	Window   time.Duration `mapstructure:"window"`
	Capacity int           `mapstructure:"capacity"`
}

// LevelSpec is one configured severity tier.
type LevelSpec struct {
	Name         string        `mapstructure:"name"`
	Window       time.Duration `mapstructure:"window"`
	ThresholdPct float64       `mapstructure:"threshold_pct"`
}

// AlertingConfig defines severity levels, throttling, and routing.
type AlertingConfig struct {
	Enabled         bool                     `mapstructure:"enabled"`
	Levels          []LevelSpec              `mapstructure:"levels"`
	MinLevel        string                   `mapstructure:"min_level"`
	Cooldowns       map[string]time.Duration `mapstructure:"cooldowns"`
	DefaultCooldown time.Duration            `mapstructure:"default_cooldown"`
	BurstDelays     []time.Duration          `mapstructure:"burst_delays"`
	Telegram        TelegramConfig           `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// RedisConfig covers the threshold cache connection.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HTTPConfig governs the management API listener.
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GOLDALERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gold-price-alert")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("gold.fetch_interval", "20s")
	v.SetDefault("gold.request_timeout", "10s")
	v.SetDefault("gold.user_agent", "gold-price-alert/1.0")
	v.SetDefault("gold.trading_days_only", true)
	v.SetDefault("gold.startup_delay", "0s")

	v.SetDefault("history.window", "2h")
	v.SetDefault("history.capacity", 0)

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.min_level", "MINOR")
	v.SetDefault("alerting.default_cooldown", "30m")
	v.SetDefault("alerting.burst_delays", []string{"0s", "1m", "3m", "6m", "10m"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.addr", ":8080")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs sanity checks the process must not start without.
func (c *Config) Validate() error {
	if c.Gold.FetchInterval <= 0 {
		return fmt.Errorf("gold.fetch_interval must be greater than zero")
	}
	if c.History.Window <= 0 && c.History.Capacity <= 0 {
		return fmt.Errorf("history.window or history.capacity must be set")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	for _, delay := range c.Alerting.BurstDelays {
		if delay < 0 {
			return fmt.Errorf("alerting.burst_delays cannot contain negative values")
		}
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	if _, _, err := c.BuildAlerting(); err != nil {
		return err
	}
	return nil
}

// BuildAlerting translates the configured tiers into the validated level
// set and gate configuration. An empty level list falls back to the
// built-in tiers; a partially filled cooldown map is rejected.
func (c *Config) BuildAlerting() (*alerting.Levels, alerting.GateConfig, error) {
	configs := alerting.DefaultLevelConfigs()
	if len(c.Alerting.Levels) > 0 {
		configs = make([]alerting.LevelConfig, 0, len(c.Alerting.Levels))
		for _, spec := range c.Alerting.Levels {
			configs = append(configs, alerting.LevelConfig{
				Name:             spec.Name,
				Window:           spec.Window,
				ThresholdPercent: decimal.NewFromFloat(spec.ThresholdPct),
			})
		}
	}

	levels, err := alerting.NewLevels(configs)
	if err != nil {
		return nil, alerting.GateConfig{}, err
	}

	minLevel, ok := levels.ByName(c.Alerting.MinLevel)
	if !ok {
		return nil, alerting.GateConfig{}, fmt.Errorf("alerting.min_level %q is not a configured level", c.Alerting.MinLevel)
	}

	cooldowns := make(map[alerting.Level]time.Duration, levels.Count())
	if len(c.Alerting.Cooldowns) > 0 {
		for i := 0; i < levels.Count(); i++ {
			level := alerting.Level(i)
			cooldown, ok := c.Alerting.Cooldowns[levels.Name(level)]
			if !ok {
				return nil, alerting.GateConfig{}, fmt.Errorf("alerting.cooldowns.%s 必须配置", levels.Name(level))
			}
			cooldowns[level] = cooldown
		}
	} else {
		for i := 0; i < levels.Count(); i++ {
			cooldowns[alerting.Level(i)] = c.Alerting.DefaultCooldown
		}
	}

	return levels, alerting.GateConfig{MinLevel: minLevel, Cooldowns: cooldowns}, nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xbleey/gold-price-alert/internal/alerting"
)

func baseConfig() *Config {
	return &Config{
		Gold: GoldConfig{
			APIURL:        "https://api.example.com/gold",
			FetchInterval: 20 * time.Second,
		},
		History: HistoryConfig{Window: 2 * time.Hour},
		Alerting: AlertingConfig{
			Enabled:         true,
			MinLevel:        "MINOR",
			DefaultCooldown: 30 * time.Minute,
		},
		Export: ExportConfig{MaxDataPoints: 1000},
	}
}

func TestBuildAlertingDefaults(t *testing.T) {
	cfg := baseConfig()

	levels, gateCfg, err := cfg.BuildAlerting()
	if err != nil {
		t.Fatalf("BuildAlerting failed: %v", err)
	}
	if levels.Count() != 5 {
		t.Fatalf("默认应有 5 个级别, 实际 %d", levels.Count())
	}
	minName := levels.Name(gateCfg.MinLevel)
	if minName != "MINOR" {
		t.Fatalf("最低级别应为 MINOR, 实际 %s", minName)
	}
	for i := 0; i < levels.Count(); i++ {
		if gateCfg.Cooldowns[alerting.Level(i)] != 30*time.Minute {
			t.Fatalf("级别 %s 冷却应为默认值", levels.Name(alerting.Level(i)))
		}
	}
}

func TestBuildAlertingCustomLevels(t *testing.T) {
	cfg := baseConfig()
	cfg.Alerting.Levels = []LevelSpec{
		{Name: "LOW", Window: time.Minute, ThresholdPct: 0.2},
		{Name: "HIGH", Window: 5 * time.Minute, ThresholdPct: 1.0},
	}
	cfg.Alerting.MinLevel = "LOW"

	levels, _, err := cfg.BuildAlerting()
	if err != nil {
		t.Fatalf("BuildAlerting failed: %v", err)
	}
	if levels.Count() != 2 {
		t.Fatalf("应有 2 个级别, 实际 %d", levels.Count())
	}
	if levels.Config(1).Name != "HIGH" {
		t.Fatalf("级别顺序不正确: %s", levels.Config(1).Name)
	}
}

func TestBuildAlertingPartialCooldownsRejected(t *testing.T) {
	cfg := baseConfig()
	cfg.Alerting.Cooldowns = map[string]time.Duration{"MINOR": 10 * time.Minute}

	if _, _, err := cfg.BuildAlerting(); err == nil {
		t.Fatal("不完整的冷却配置应报错")
	}
}

func TestBuildAlertingUnknownMinLevel(t *testing.T) {
	cfg := baseConfig()
	cfg.Alerting.MinLevel = "SEVERE"

	if _, _, err := cfg.BuildAlerting(); err == nil {
		t.Fatal("未知的最低级别应报错")
	}
}

func TestValidateTelegram(t *testing.T) {
	cfg := baseConfig()
	cfg.Alerting.Telegram = TelegramConfig{Enabled: true}

	if err := cfg.Validate(); err == nil {
		t.Fatal("缺少 bot_token 时应报错")
	}

	cfg.Alerting.Telegram.BotToken = "token"
	if err := cfg.Validate(); err == nil {
		t.Fatal("缺少 chat_id 时应报错")
	}

	cfg.Alerting.Telegram.ChatID = "chat"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("完整的 telegram 配置应通过: %v", err)
	}
}

func TestValidateRejectsNegativeBurstDelay(t *testing.T) {
	cfg := baseConfig()
	cfg.Alerting.BurstDelays = []time.Duration{0, -time.Minute}

	if err := cfg.Validate(); err == nil {
		t.Fatal("负的提醒延迟应报错")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
gold:
  api_url: https://api.example.com/gold
  fetch_interval: 30s
history:
  window: 1h
alerting:
  min_level: MODERATE
  default_cooldown: 15m
http:
  addr: ":9090"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Gold.FetchInterval != 30*time.Second {
		t.Fatalf("fetch_interval 不正确: %s", cfg.Gold.FetchInterval)
	}
	if cfg.Alerting.MinLevel != "MODERATE" {
		t.Fatalf("min_level 不正确: %s", cfg.Alerting.MinLevel)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("http.addr 不正确: %s", cfg.HTTP.Addr)
	}
	// 未显式配置的键应取默认值。
	if cfg.Gold.UserAgent == "" {
		t.Fatal("user_agent 默认值缺失")
	}
	if len(cfg.Alerting.BurstDelays) != 5 {
		t.Fatalf("burst_delays 默认应有 5 项, 实际 %d", len(cfg.Alerting.BurstDelays))
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := baseConfig()
	if got := cfg.ResolveMaxPoints(0); got != 1000 {
		t.Fatalf("应取配置默认值, 实际 %d", got)
	}
	if got := cfg.ResolveMaxPoints(50); got != 50 {
		t.Fatalf("应取命令行覆盖值, 实际 %d", got)
	}
}

package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// APIErrorMessage notifies that the upstream price API is failing.
type APIErrorMessage struct {
	OccurredAt time.Time
	APIURL     string
	Detail     string
	Downtime   time.Duration
}

// APIResumeMessage notifies that the upstream price API recovered.
type APIResumeMessage struct {
	ResumedAt      time.Time
	FirstFailureAt time.Time
	Downtime       time.Duration
	APIURL         string
}

// Notifier 定义告警输送接口。
type Notifier interface {
	NotifyAlert(ctx context.Context, event AlertEvent) error
	NotifyThresholdAlert(ctx context.Context, event ThresholdAlertEvent) error
	NotifyAPIError(ctx context.Context, msg APIErrorMessage) error
	NotifyAPIResume(ctx context.Context, msg APIResumeMessage) error
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) NotifyAlert(context.Context, AlertEvent) error                   { return nil }
func (NopNotifier) NotifyThresholdAlert(context.Context, ThresholdAlertEvent) error { return nil }
func (NopNotifier) NotifyAPIError(context.Context, APIErrorMessage) error           { return nil }
func (NopNotifier) NotifyAPIResume(context.Context, APIResumeMessage) error         { return nil }

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// NotifyAlert 推送价格波动告警。
func (n *TelegramNotifier) NotifyAlert(ctx context.Context, event AlertEvent) error {
	if err := n.send(ctx, renderAlert(event)); err != nil {
		return err
	}
	n.logger.Info().
		Str("level", event.LevelName).
		Str("change_pct", event.ChangePercent.StringFixed(4)).
		Msg("告警已发送 (Telegram)")
	return nil
}

// NotifyThresholdAlert 推送手动阈值穿越提醒。
func (n *TelegramNotifier) NotifyThresholdAlert(ctx context.Context, event ThresholdAlertEvent) error {
	if err := n.send(ctx, renderThresholdAlert(event)); err != nil {
		return err
	}
	n.logger.Info().
		Str("direction", string(event.Direction)).
		Str("threshold", event.Threshold.String()).
		Msg("阈值提醒已发送 (Telegram)")
	return nil
}

// NotifyAPIError 推送行情接口故障通知。
func (n *TelegramNotifier) NotifyAPIError(ctx context.Context, msg APIErrorMessage) error {
	return n.send(ctx, renderAPIError(msg))
}

// NotifyAPIResume 推送行情接口恢复通知。
func (n *TelegramNotifier) NotifyAPIResume(ctx context.Context, msg APIResumeMessage) error {
	return n.send(ctx, renderAPIResume(msg))
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}
	return nil
}

func directionTag(event AlertEvent) string {
	switch event.ChangePercent.Sign() {
	case 1:
		return "[↑]"
	case -1:
		return "[↓]"
	default:
		return "[?]"
	}
}

func renderAlert(event AlertEvent) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[Gold Price Alert %s] %s\n", directionTag(event), event.LevelName))
	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", event.AlertTime.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Window: %s\n", event.Window))
	builder.WriteString(fmt.Sprintf("Change: %s%% (threshold %s%%)\n",
		event.ChangePercent.StringFixed(4), event.ThresholdPercent.StringFixed(4)))
	builder.WriteString(fmt.Sprintf("Price: %s -> %s\n",
		event.BaselinePrice.String(), event.LatestPrice.String()))
	return builder.String()
}

func renderThresholdAlert(event ThresholdAlertEvent) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[Gold Price Alert %s %s]\n",
		event.Direction.SubjectTag(), event.Threshold.String()))
	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", event.AlertTime.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Price: %s\n", event.Price.String()))
	builder.WriteString(fmt.Sprintf("Threshold: %s\n", event.Threshold.String()))
	return builder.String()
}

func renderAPIError(msg APIErrorMessage) string {
	builder := strings.Builder{}
	builder.WriteString("[Gold Price API ERROR]\n")
	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", msg.OccurredAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("API: %s\n", msg.APIURL))
	builder.WriteString(fmt.Sprintf("Downtime: %s\n", msg.Downtime))
	if msg.Detail != "" {
		builder.WriteString(fmt.Sprintf("Detail: %s\n", msg.Detail))
	}
	return builder.String()
}

func renderAPIResume(msg APIResumeMessage) string {
	builder := strings.Builder{}
	builder.WriteString("[Gold Price API RESUME]\n")
	builder.WriteString(fmt.Sprintf("Resumed: %s UTC\n", msg.ResumedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("First failure: %s UTC\n", msg.FirstFailureAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Downtime: %s\n", msg.Downtime))
	builder.WriteString(fmt.Sprintf("API: %s\n", msg.APIURL))
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
var _ Notifier = NopNotifier{}

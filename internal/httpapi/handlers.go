package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/xbleey/gold-price-alert/internal/fetcher"
	"github.com/xbleey/gold-price-alert/internal/history"
	"github.com/xbleey/gold-price-alert/internal/storage"
	"github.com/xbleey/gold-price-alert/internal/threshold"
)

// Pinger verifies connectivity of a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a plain function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// FetchTrigger runs one ingestion cycle on demand.
type FetchTrigger interface {
	FetchOnce(ctx context.Context) (fetcher.Snapshot, error)
}

// Handler serves the management endpoints.
type Handler struct {
	fetch      FetchTrigger
	history    history.Store
	thresholds *threshold.Store
	alerts     storage.AlertHistoryStore
	db         Pinger
	redis      Pinger
	logger     zerolog.Logger
}

// NewHandler wires the management API dependencies. alerts, db, and redis
// may be nil when the corresponding backends are not configured.
func NewHandler(fetch FetchTrigger, hist history.Store, thresholds *threshold.Store, alerts storage.AlertHistoryStore, db, redis Pinger, logger zerolog.Logger) *Handler {
	return &Handler{
		fetch:      fetch,
		history:    hist,
		thresholds: thresholds,
		alerts:     alerts,
		db:         db,
		redis:      redis,
		logger:     logger.With().Str("component", "http_handler").Logger(),
	}
}

// RegisterRoutes mounts all endpoints on the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/price", h.TriggerFetch)
	e.GET("/history", h.History)
	e.GET("/threshold", h.GetThreshold)
	e.POST("/threshold", h.SetThreshold)
	e.DELETE("/threshold", h.ClearThreshold)
	e.GET("/alert/list", h.ListAlerts)
	e.GET("/health", h.Readiness)
	e.GET("/health/live", h.Liveness)
	e.GET("/health/ready", h.Readiness)
}

// TriggerFetch runs one fetch cycle immediately and reports the outcome.
func (h *Handler) TriggerFetch(c echo.Context) error {
	snapshot, err := h.fetch.FetchOnce(c.Request().Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("manual fetch failed")
		return c.JSON(http.StatusBadGateway, echo.Map{"status": "failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "ok",
		"fetchedAt": snapshot.FetchedAt.UTC().Format(time.RFC3339),
		"price":     snapshot.Price.String(),
		"symbol":    snapshot.Symbol,
	})
}

type samplePayload struct {
	Time  time.Time `json:"time"`
	Price string    `json:"price"`
}

// History returns the most recent in-memory samples, oldest first.
// length=all dumps the full retained window.
func (h *Handler) History(c echo.Context) error {
	var samples []history.Sample

	raw := c.QueryParam("length")
	switch {
	case strings.EqualFold(raw, "all"):
		samples = h.history.All()
	case raw == "":
		samples = h.history.Recent(100)
	default:
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "length must be a positive integer"})
		}
		samples = h.history.Recent(parsed)
	}

	payload := make([]samplePayload, len(samples))
	for i, sample := range samples {
		payload[i] = samplePayload{Time: sample.Time.UTC(), Price: sample.Price.String()}
	}
	return c.JSON(http.StatusOK, payload)
}

// GetThreshold reports the currently armed manual threshold.
func (h *Handler) GetThreshold(c echo.Context) error {
	value, ok, err := h.thresholds.Current(c.Request().Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read threshold")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error"})
	}
	if !ok {
		return c.JSON(http.StatusOK, echo.Map{"status": "not_set", "threshold": nil})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "threshold": value.String()})
}

// SetThreshold arms the manual threshold with the given value.
func (h *Handler) SetThreshold(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("value"))
	if raw == "" {
		raw = strings.TrimSpace(c.FormValue("value"))
	}
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "value is required"})
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "value must be a decimal number"})
	}

	saved, err := h.thresholds.Set(c.Request().Context(), value)
	if err != nil {
		if errors.Is(err, threshold.ErrNegativeThreshold) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		if errors.Is(err, threshold.ErrNoBackend) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
		}
		h.logger.Error().Err(err).Msg("failed to set threshold")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "threshold": saved.String()})
}

// ClearThreshold disarms the manual threshold.
func (h *Handler) ClearThreshold(c echo.Context) error {
	if err := h.thresholds.Clear(c.Request().Context()); err != nil {
		h.logger.Error().Err(err).Msg("failed to clear threshold")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "cleared"})
}

// ListAlerts returns one page of fired alert history.
func (h *Handler) ListAlerts(c echo.Context) error {
	if h.alerts == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "alert history store not configured"})
	}

	pageNum := parseInt64(c.QueryParam("pageNum"), 1)
	pageSize := parseInt64(c.QueryParam("pageSize"), 20)
	levels := normalizeLevels(c.QueryParams()["alertLevel"])

	page, err := h.alerts.ListAlertsPage(c.Request().Context(), pageNum, pageSize, levels)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list alerts")
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"current":  page.Current,
		"pageSize": page.PageSize,
		"total":    page.Total,
		"pages":    page.Pages,
		"records":  page.Records,
	})
}

// Liveness reports plain process health.
func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "UP",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness checks the configured backing stores. Missing backends are
// reported as skipped, not failures.
func (h *Handler) Readiness(c echo.Context) error {
	checks := map[string]echo.Map{}
	ready := true

	ready = h.check(c.Request().Context(), "database", h.db, checks) && ready
	ready = h.check(c.Request().Context(), "redis", h.redis, checks) && ready

	status := "UP"
	code := http.StatusOK
	if !ready {
		status = "DOWN"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, echo.Map{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (h *Handler) check(ctx context.Context, name string, pinger Pinger, checks map[string]echo.Map) bool {
	if pinger == nil {
		checks[name] = echo.Map{"status": "SKIPPED"}
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pinger.Ping(ctx); err != nil {
		checks[name] = echo.Map{"status": "DOWN", "message": err.Error()}
		return false
	}
	checks[name] = echo.Map{"status": "UP"}
	return true
}

func parseInt64(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func normalizeLevels(values []string) []string {
	seen := map[string]struct{}{}
	var levels []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if _, ok := seen[trimmed]; ok {
				continue
			}
			seen[trimmed] = struct{}{}
			levels = append(levels, trimmed)
		}
	}
	return levels
}

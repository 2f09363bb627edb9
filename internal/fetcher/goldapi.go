package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// GoldAPIOptions parameterise the gold price API client.
type GoldAPIOptions struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// GoldAPI fetches spot prices from the configured JSON endpoint.
type GoldAPI struct {
	opts   GoldAPIOptions
	logger zerolog.Logger
	client *http.Client
	now    func() time.Time
}

// NewGoldAPI constructs a gold price API client.
func NewGoldAPI(opts GoldAPIOptions, logger zerolog.Logger) *GoldAPI {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &GoldAPI{
		opts:   opts,
		logger: logger.With().Str("component", "gold_api").Logger(),
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

type apiResponse struct {
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Symbol            string          `json:"symbol"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	UpdatedAtReadable string          `json:"updatedAtReadable"`
}

// FetchPrice retrieves and decodes the current price observation.
func (g *GoldAPI) FetchPrice(ctx context.Context) (Snapshot, error) {
	if g.opts.URL == "" {
		return Snapshot{}, errors.New("gold api url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.opts.URL, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("create gold api request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(g.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("send gold api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if len(payload) > 0 {
			return Snapshot{}, fmt.Errorf("gold api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
		}
		return Snapshot{}, fmt.Errorf("gold api error (%d)", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Snapshot{}, fmt.Errorf("decode gold api response: %w", err)
	}

	if payload.Price.Sign() <= 0 {
		return Snapshot{}, fmt.Errorf("gold api returned non-positive price %s", payload.Price.String())
	}

	snapshot := Snapshot{
		FetchedAt:         g.now().UTC(),
		Name:              payload.Name,
		Price:             payload.Price,
		Symbol:            payload.Symbol,
		UpdatedAt:         payload.UpdatedAt,
		UpdatedAtReadable: payload.UpdatedAtReadable,
	}

	g.logger.Debug().
		Str("price", snapshot.Price.String()).
		Str("symbol", snapshot.Symbol).
		Time("updated_at", snapshot.UpdatedAt).
		Msg("fetched gold price")

	return snapshot, nil
}

var _ PriceFetcher = (*GoldAPI)(nil)

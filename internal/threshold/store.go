package threshold

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/xbleey/gold-price-alert/internal/storage"
)

const cacheKey = "gold:alert:threshold"

// ErrNegativeThreshold rejects attempts to arm a negative threshold.
var ErrNegativeThreshold = errors.New("threshold: value must be >= 0")

// ErrNoBackend is returned when the store has neither a cache nor a history
// backend, so an armed threshold would have nowhere to live.
var ErrNoBackend = errors.New("threshold: no cache or history backend configured")

// Cache is the subset of cache operations the store needs. Redis failures
// are tolerated; the Postgres history rows stay authoritative.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error
}

// RedisCache adapts a go-redis client to the Cache interface.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an existing redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, key, value, 0).Err()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Store owns the manual threshold lifecycle: a single PENDING row in
// Postgres is the armed threshold, fronted by a Redis read-through cache.
type Store struct {
	cache   Cache
	history storage.ThresholdHistoryStore
	logger  zerolog.Logger
	now     func() time.Time
}

// New constructs a threshold store. cache may be nil when Redis is not
// configured; every read then goes to the history store.
func New(cache Cache, history storage.ThresholdHistoryStore, logger zerolog.Logger) *Store {
	return &Store{
		cache:   cache,
		history: history,
		logger:  logger.With().Str("component", "threshold_store").Logger(),
		now:     time.Now,
	}
}

// Current returns the armed threshold, preferring the cache and falling
// back to the latest PENDING history row (re-warming the cache on a hit).
func (s *Store) Current(ctx context.Context) (decimal.Decimal, bool, error) {
	if value, ok := s.readCache(ctx); ok {
		return value, true, nil
	}
	if s.history == nil {
		return decimal.Decimal{}, false, nil
	}

	record, found, err := s.history.FindLatestPending(ctx)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("find pending threshold: %w", err)
	}
	if !found {
		return decimal.Decimal{}, false, nil
	}
	s.writeCache(ctx, record.Threshold)
	return record.Threshold, true, nil
}

// Set arms the threshold: the existing PENDING row is re-used if present,
// otherwise a new lifecycle row is started.
func (s *Store) Set(ctx context.Context, value decimal.Decimal) (decimal.Decimal, error) {
	if value.IsNegative() {
		return decimal.Decimal{}, ErrNegativeThreshold
	}
	if s.cache == nil && s.history == nil {
		return decimal.Decimal{}, ErrNoBackend
	}

	if s.history == nil {
		s.writeCache(ctx, value)
		return value, nil
	}

	now := s.now().UTC()
	latest, found, err := s.history.FindLatest(ctx)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("find latest threshold: %w", err)
	}

	record := storage.ThresholdHistory{
		Threshold: value,
		SetAt:     now,
		Status:    storage.ThresholdStatusPending,
	}
	if found && latest.IsPending() {
		record.ID = latest.ID
		if err := s.history.UpdateThreshold(ctx, record); err != nil {
			return decimal.Decimal{}, err
		}
	} else {
		if _, err := s.history.SaveThreshold(ctx, record); err != nil {
			return decimal.Decimal{}, err
		}
	}

	s.writeCache(ctx, value)
	return value, nil
}

// MarkTriggered transitions the armed threshold to TRIGGERED and drops the
// cache so the detector stops firing until a new threshold is set.
func (s *Store) MarkTriggered(ctx context.Context, triggeredAt time.Time, price decimal.Decimal) (bool, error) {
	if s.history == nil {
		s.dropCache(ctx)
		return true, nil
	}
	active, found, err := s.history.FindLatestPending(ctx)
	if err != nil {
		return false, fmt.Errorf("find pending threshold: %w", err)
	}
	if !found {
		return false, nil
	}
	updated, err := s.history.MarkTriggered(ctx, active.ID, triggeredAt, price)
	if err != nil {
		return false, err
	}
	if updated {
		s.dropCache(ctx)
	}
	return updated, nil
}

// Clear disarms the threshold.
func (s *Store) Clear(ctx context.Context) error {
	if s.history == nil {
		s.dropCache(ctx)
		return nil
	}
	active, found, err := s.history.FindLatestPending(ctx)
	if err != nil {
		return fmt.Errorf("find pending threshold: %w", err)
	}
	if found {
		if err := s.history.MarkCleared(ctx, active.ID); err != nil {
			return err
		}
	}
	s.dropCache(ctx)
	return nil
}

func (s *Store) readCache(ctx context.Context) (decimal.Decimal, bool) {
	if s.cache == nil {
		return decimal.Decimal{}, false
	}
	raw, ok, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read threshold from redis")
		return decimal.Decimal{}, false
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return decimal.Decimal{}, false
	}
	value, convErr := decimal.NewFromString(strings.TrimSpace(raw))
	if convErr != nil {
		s.logger.Warn().Err(convErr).Str("raw", raw).Msg("discarding malformed cached threshold")
		return decimal.Decimal{}, false
	}
	return value, true
}

func (s *Store) writeCache(ctx context.Context, value decimal.Decimal) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, value.String()); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache threshold to redis")
	}
}

func (s *Store) dropCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear threshold from redis")
	}
}

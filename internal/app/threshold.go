package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/xbleey/gold-price-alert/internal/threshold"
)

func (a *App) openThresholdStore(ctx context.Context) (*threshold.Store, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New("database not configured; cannot manage threshold")
	}

	redisClient, closeRedis, err := a.openRedis(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("redis unavailable; threshold cache disabled")
	}

	var cache threshold.Cache
	if redisClient != nil {
		cache = threshold.NewRedisCache(redisClient)
	}

	closer := func() {
		if closeRedis != nil {
			closeRedis()
		}
		if closeStore != nil {
			closeStore()
		}
	}
	return threshold.New(cache, store, a.Logger), closer, nil
}

// ShowThreshold prints the currently armed threshold, if any.
func (a *App) ShowThreshold(ctx context.Context) error {
	store, closer, err := a.openThresholdStore(ctx)
	if err != nil {
		return err
	}
	defer closer()

	value, found, err := store.Current(ctx)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(os.Stdout, "no threshold armed")
		return nil
	}
	fmt.Fprintf(os.Stdout, "threshold: %s\n", value.String())
	return nil
}

// SetThreshold arms a manual crossing threshold.
func (a *App) SetThreshold(ctx context.Context, value decimal.Decimal) error {
	store, closer, err := a.openThresholdStore(ctx)
	if err != nil {
		return err
	}
	defer closer()

	applied, err := store.Set(ctx, value)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "threshold armed: %s\n", applied.String())
	return nil
}

// ClearThreshold disarms the manual crossing threshold.
func (a *App) ClearThreshold(ctx context.Context) error {
	store, closer, err := a.openThresholdStore(ctx)
	if err != nil {
		return err
	}
	defer closer()

	if err := store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "threshold cleared")
	return nil
}

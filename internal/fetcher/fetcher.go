package fetcher

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is one observation returned by the gold price API.
type Snapshot struct {
	FetchedAt         time.Time
	Name              string
	Price             decimal.Decimal
	Symbol            string
	UpdatedAt         time.Time
	UpdatedAtReadable string
}

// PriceFetcher retrieves the current gold price from the upstream API.
type PriceFetcher interface {
	FetchPrice(ctx context.Context) (Snapshot, error)
}

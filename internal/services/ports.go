// Package services holds the business logic on top of storage: basket
// lifecycle, catalog ingestion, and the inflation engine.
package services

import (
	"context"
	"time"

	"basketcase/internal/core"
)

// BasketSource reads baskets and their items.
type BasketSource interface {
	GetBasket(ctx context.Context, id int64) (core.Basket, error)
	ListItems(ctx context.Context, basketID int64) ([]core.BasketItem, error)
}

// PriceSource answers the two price-ledger queries the engine needs.
// Both return core.ErrMissingPriceData when no observation falls in the
// requested window.
type PriceSource interface {
	BasePrice(ctx context.Context, productID, storeID string, onOrAfter time.Time) (core.PriceObservation, error)
	LatestPrice(ctx context.Context, productID, storeID string, asOf time.Time) (core.PriceObservation, error)
}

// CategorySource maps products to their direct category. A nil category
// with a nil error means the product is uncategorized.
type CategorySource interface {
	CategoryOf(ctx context.Context, productID string) (*core.Category, error)
}

// IndexStore appends the rows of one calculation atomically.
type IndexStore interface {
	AppendIndices(ctx context.Context, rows []core.InflationIndex) error
}

// Package worker implements price ingestion: the scheduler enumerates the
// (product, store) pairs of all baskets on a recurring cadence, and the
// refresh worker fetches each price and appends it to the ledger.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"basketcase/internal/amqp"
	"basketcase/internal/core"
	"basketcase/internal/kroger"
	"basketcase/internal/storage"
)

// PriceFetcher is the slice of the Kroger client the worker needs.
type PriceFetcher interface {
	ProductPrice(ctx context.Context, productID, locationID string) (kroger.PriceQuote, error)
}

// RefreshWorker turns refresh messages into price observations.
type RefreshWorker struct {
	storage *storage.SQLiteRepository
	api     PriceFetcher
}

func NewRefreshWorker(db *storage.SQLiteRepository, api PriceFetcher) *RefreshWorker {
	return &RefreshWorker{storage: db, api: api}
}

// HandleRefreshMessage fetches the current price for one (product, store)
// pair and appends it to the ledger. Failures are recorded in the error log
// and returned so the delivery is requeued.
func (w *RefreshWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.PriceRefreshMessage) error {
	if err := w.Refresh(ctx, msg.ProductID, msg.StoreID); err != nil {
		if logErr := w.storage.LogError(ctx, "ERROR", "worker",
			fmt.Sprintf("refresh price for product %s at store %s", msg.ProductID, msg.StoreID),
			err.Error()); logErr != nil {
			slog.ErrorContext(ctx, "Failed to write error log", "error", logErr)
		}
		return err
	}
	return nil
}

// Refresh fetches and records one price observation.
func (w *RefreshWorker) Refresh(ctx context.Context, productID, storeID string) error {
	quote, err := w.api.ProductPrice(ctx, productID, storeID)
	if err != nil {
		return fmt.Errorf("fetch price: %w", err)
	}

	obs := core.PriceObservation{
		ProductID:  productID,
		StoreID:    storeID,
		Price:      quote.Regular,
		PromoPrice: quote.Promo,
		CapturedAt: time.Now().UTC(),
	}
	if err := w.storage.RecordPrice(ctx, obs); err != nil {
		return fmt.Errorf("record price: %w", err)
	}

	slog.InfoContext(ctx, "Price recorded",
		"product_id", productID,
		"store_id", storeID,
		"price", quote.Regular.String(),
		"promo", quote.Promo != nil)
	return nil
}

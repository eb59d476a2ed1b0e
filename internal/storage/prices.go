package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"basketcase/internal/core"

	"github.com/shopspring/decimal"
)

// RecordPrice appends one observation to the price ledger. Observations are
// never updated or deleted.
func (r *SQLiteRepository) RecordPrice(ctx context.Context, obs core.PriceObservation) error {
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("validate observation: %w", err)
	}
	var promo any
	if obs.PromoPrice != nil {
		promo = obs.PromoPrice.String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO price_history (product_id, store_id, price, promo_price, captured_at)
		VALUES (?, ?, ?, ?, ?)`,
		obs.ProductID, obs.StoreID, obs.Price.String(), promo, formatTime(obs.CapturedAt))
	if err != nil {
		return fmt.Errorf("record price: %w", err)
	}
	return nil
}

// LatestPrice returns the most recent observation captured at or before
// asOf. Ties on captured_at are broken by insertion order, latest first.
func (r *SQLiteRepository) LatestPrice(ctx context.Context, productID, storeID string, asOf time.Time) (core.PriceObservation, error) {
	return r.queryPrice(ctx, `
		SELECT id, product_id, store_id, price, promo_price, captured_at
		FROM price_history
		WHERE product_id = ? AND store_id = ? AND captured_at <= ?
		ORDER BY captured_at DESC, id DESC
		LIMIT 1`, productID, storeID, formatTime(asOf))
}

// BasePrice returns the earliest observation captured at or after the given
// time. The inflation engine calls this with the basket's creation time, so
// observations predating the basket never anchor its base.
func (r *SQLiteRepository) BasePrice(ctx context.Context, productID, storeID string, onOrAfter time.Time) (core.PriceObservation, error) {
	return r.queryPrice(ctx, `
		SELECT id, product_id, store_id, price, promo_price, captured_at
		FROM price_history
		WHERE product_id = ? AND store_id = ? AND captured_at >= ?
		ORDER BY captured_at ASC, id ASC
		LIMIT 1`, productID, storeID, formatTime(onOrAfter))
}

func (r *SQLiteRepository) queryPrice(ctx context.Context, query string, args ...any) (core.PriceObservation, error) {
	var (
		obs      core.PriceObservation
		price    string
		promo    sql.NullString
		captured string
	)
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&obs.ID, &obs.ProductID, &obs.StoreID, &price, &promo, &captured)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PriceObservation{}, core.ErrMissingPriceData
	}
	if err != nil {
		return core.PriceObservation{}, fmt.Errorf("query price: %w", err)
	}
	if obs.Price, err = decimal.NewFromString(price); err != nil {
		return core.PriceObservation{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	if promo.Valid {
		p, err := decimal.NewFromString(promo.String)
		if err != nil {
			return core.PriceObservation{}, fmt.Errorf("parse promo price %q: %w", promo.String, err)
		}
		obs.PromoPrice = &p
	}
	if obs.CapturedAt, err = parseTime(captured); err != nil {
		return core.PriceObservation{}, err
	}
	return obs, nil
}

// PriceTarget is one (product, store) pair the scheduler refreshes.
type PriceTarget struct {
	ProductID string
	StoreID   string
}

// ActivePriceTargets returns the distinct (product, store) pairs across all
// baskets, i.e. everything the weekly refresh job needs to re-price.
func (r *SQLiteRepository) ActivePriceTargets(ctx context.Context) ([]PriceTarget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT bi.product_id, b.store_id
		FROM basket_items bi
		JOIN baskets b ON b.id = bi.basket_id
		ORDER BY b.store_id, bi.product_id`)
	if err != nil {
		return nil, fmt.Errorf("list active price targets: %w", err)
	}
	defer rows.Close()

	var targets []PriceTarget
	for rows.Next() {
		var t PriceTarget
		if err := rows.Scan(&t.ProductID, &t.StoreID); err != nil {
			return nil, fmt.Errorf("scan price target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

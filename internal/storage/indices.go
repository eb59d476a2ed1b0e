package storage

import (
	"context"
	"database/sql"
	"fmt"

	"basketcase/internal/core"

	"github.com/shopspring/decimal"
)

// AppendIndices appends all index rows of one calculation in a single
// transaction: either the whole-basket row and every category row land, or
// none do. Rows are never updated or deleted.
func (r *SQLiteRepository) AppendIndices(ctx context.Context, rows []core.InflationIndex) error {
	if len(rows) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, row := range rows {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO inflation_indices (basket_id, category_id, base_date, current_index, calculated_at)
				VALUES (?, ?, ?, ?, ?)`,
				row.BasketID, nullInt64(row.CategoryID), formatTime(row.BaseDate),
				row.Value.String(), formatTime(row.CalculatedAt)); err != nil {
				return fmt.Errorf("insert inflation index: %w", err)
			}
		}
		return nil
	})
}

// IndexHistory returns all index rows for a basket, oldest calculation
// first, whole-basket rows before category rows within one calculation.
func (r *SQLiteRepository) IndexHistory(ctx context.Context, basketID int64) ([]core.InflationIndex, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, basket_id, category_id, base_date, current_index, calculated_at
		FROM inflation_indices
		WHERE basket_id = ?
		ORDER BY calculated_at, category_id IS NOT NULL, category_id`, basketID)
	if err != nil {
		return nil, fmt.Errorf("list index history: %w", err)
	}
	defer rows.Close()

	var history []core.InflationIndex
	for rows.Next() {
		var (
			idx              core.InflationIndex
			categoryID       sql.NullInt64
			value            string
			baseDate, calcAt string
		)
		if err := rows.Scan(&idx.ID, &idx.BasketID, &categoryID, &baseDate, &value, &calcAt); err != nil {
			return nil, fmt.Errorf("scan inflation index: %w", err)
		}
		if categoryID.Valid {
			id := categoryID.Int64
			idx.CategoryID = &id
		}
		if idx.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("parse index value %q: %w", value, err)
		}
		if idx.BaseDate, err = parseTime(baseDate); err != nil {
			return nil, err
		}
		if idx.CalculatedAt, err = parseTime(calcAt); err != nil {
			return nil, err
		}
		history = append(history, idx)
	}
	return history, rows.Err()
}

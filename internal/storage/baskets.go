package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"basketcase/internal/core"
)

// CreateBasket creates a template basket with an optional initial item list,
// all in one transaction. The basket is pinned to storeID for life.
func (r *SQLiteRepository) CreateBasket(ctx context.Context, name, storeID string, items []core.BasketItem) (core.Basket, error) {
	basket := core.Basket{Name: name, StoreID: storeID, IsTemplate: true}
	if err := basket.Validate(); err != nil {
		return core.Basket{}, fmt.Errorf("validate basket: %w", err)
	}
	if len(items) > core.MaxBasketItems {
		return core.Basket{}, core.ErrBasketTooLarge
	}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return core.Basket{}, err
		}
		if seen[item.ProductID] {
			return core.Basket{}, fmt.Errorf("product %s: %w", item.ProductID, core.ErrDuplicateItem)
		}
		seen[item.ProductID] = true
	}

	now := time.Now()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO baskets (name, store_id, created_at, is_template, parent_basket_id)
			VALUES (?, ?, ?, 1, NULL)`,
			name, storeID, formatTime(now))
		if err != nil {
			return fmt.Errorf("insert basket: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("basket id: %w", err)
		}
		basket.ID = id
		for _, item := range items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO basket_items (basket_id, product_id, quantity, added_at)
				VALUES (?, ?, ?, ?)`,
				id, item.ProductID, item.Quantity, formatTime(now)); err != nil {
				return fmt.Errorf("insert basket item %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return core.Basket{}, err
	}
	basket.CreatedAt = now.UTC()

	slog.InfoContext(ctx, "Basket created",
		"basket_id", basket.ID,
		"name", basket.Name,
		"store_id", basket.StoreID,
		"items", len(items))
	return basket, nil
}

func (r *SQLiteRepository) GetBasket(ctx context.Context, id int64) (core.Basket, error) {
	return scanBasket(r.db.QueryRowContext(ctx, `
		SELECT id, name, store_id, created_at, is_template, parent_basket_id
		FROM baskets WHERE id = ?`, id))
}

func (r *SQLiteRepository) ListBaskets(ctx context.Context) ([]core.Basket, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, store_id, created_at, is_template, parent_basket_id
		FROM baskets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list baskets: %w", err)
	}
	defer rows.Close()

	var baskets []core.Basket
	for rows.Next() {
		var (
			b        core.Basket
			created  string
			template int64
			parent   sql.NullInt64
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.StoreID, &created, &template, &parent); err != nil {
			return nil, fmt.Errorf("scan basket: %w", err)
		}
		b.IsTemplate = template != 0
		if parent.Valid {
			p := parent.Int64
			b.ParentID = &p
		}
		if b.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		baskets = append(baskets, b)
	}
	return baskets, rows.Err()
}

// ListItems returns the items of a basket in insertion order.
func (r *SQLiteRepository) ListItems(ctx context.Context, basketID int64) ([]core.BasketItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT basket_id, product_id, quantity, added_at
		FROM basket_items WHERE basket_id = ?
		ORDER BY added_at, product_id`, basketID)
	if err != nil {
		return nil, fmt.Errorf("list basket items: %w", err)
	}
	defer rows.Close()

	var items []core.BasketItem
	for rows.Next() {
		var (
			item  core.BasketItem
			added string
		)
		if err := rows.Scan(&item.BasketID, &item.ProductID, &item.Quantity, &added); err != nil {
			return nil, fmt.Errorf("scan basket item: %w", err)
		}
		if item.AddedAt, err = parseTime(added); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// AddItem adds a product to a template basket. Saved baskets are immutable;
// the item count cap and per-product uniqueness are enforced here, inside
// the transaction, so a failed call leaves the item set unchanged.
func (r *SQLiteRepository) AddItem(ctx context.Context, basketID int64, productID string, quantity int64) error {
	item := core.BasketItem{BasketID: basketID, ProductID: productID, Quantity: quantity}
	if err := item.Validate(); err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		basket, err := getBasketTx(ctx, tx, basketID)
		if err != nil {
			return err
		}
		if !basket.IsTemplate {
			return core.ErrBasketImmutable
		}
		var exists int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM basket_items WHERE basket_id = ? AND product_id = ?`,
			basketID, productID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check duplicate item: %w", err)
		}
		if exists > 0 {
			return fmt.Errorf("product %s: %w", productID, core.ErrDuplicateItem)
		}
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM basket_items WHERE basket_id = ?`, basketID).Scan(&count); err != nil {
			return fmt.Errorf("count basket items: %w", err)
		}
		if count >= core.MaxBasketItems {
			return core.ErrBasketTooLarge
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO basket_items (basket_id, product_id, quantity, added_at)
			VALUES (?, ?, ?, ?)`,
			basketID, productID, quantity, formatTime(time.Now())); err != nil {
			return fmt.Errorf("insert basket item: %w", err)
		}
		return nil
	})
}

// UpdateQuantity changes an item's quantity on a template basket.
func (r *SQLiteRepository) UpdateQuantity(ctx context.Context, basketID int64, productID string, quantity int64) error {
	if quantity < 1 {
		return core.ErrInvalidQuantity
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		basket, err := getBasketTx(ctx, tx, basketID)
		if err != nil {
			return err
		}
		if !basket.IsTemplate {
			return core.ErrBasketImmutable
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE basket_items SET quantity = ? WHERE basket_id = ? AND product_id = ?`,
			quantity, basketID, productID)
		if err != nil {
			return fmt.Errorf("update quantity: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update quantity: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("product %s in basket %d: %w", productID, basketID, core.ErrNotFound)
		}
		return nil
	})
}

// RemoveItem removes a product from a template basket.
func (r *SQLiteRepository) RemoveItem(ctx context.Context, basketID int64, productID string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		basket, err := getBasketTx(ctx, tx, basketID)
		if err != nil {
			return err
		}
		if !basket.IsTemplate {
			return core.ErrBasketImmutable
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM basket_items WHERE basket_id = ? AND product_id = ?`,
			basketID, productID)
		if err != nil {
			return fmt.Errorf("remove basket item: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("remove basket item: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("product %s in basket %d: %w", productID, basketID, core.ErrNotFound)
		}
		return nil
	})
}

// SaveBasket transitions a template to immutable. Saving an already-saved
// basket is a no-op.
func (r *SQLiteRepository) SaveBasket(ctx context.Context, basketID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE baskets SET is_template = 0 WHERE id = ?`, basketID)
	if err != nil {
		return fmt.Errorf("save basket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save basket: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("basket %d: %w", basketID, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Basket saved", "basket_id", basketID)
	return nil
}

// CloneBasket copies a basket's items and store into a new template basket
// whose parent reference points at the source. Basket row and item rows
// commit atomically.
func (r *SQLiteRepository) CloneBasket(ctx context.Context, basketID int64, newName string) (core.Basket, error) {
	clone := core.Basket{Name: newName, IsTemplate: true}
	if newName == "" {
		return core.Basket{}, core.ErrEmptyName
	}

	now := time.Now()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		source, err := getBasketTx(ctx, tx, basketID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("basket %d: %w", basketID, core.ErrSourceNotFound)
			}
			return err
		}
		clone.StoreID = source.StoreID
		clone.ParentID = &source.ID

		res, err := tx.ExecContext(ctx, `
			INSERT INTO baskets (name, store_id, created_at, is_template, parent_basket_id)
			VALUES (?, ?, ?, 1, ?)`,
			newName, source.StoreID, formatTime(now), source.ID)
		if err != nil {
			return fmt.Errorf("insert clone: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("clone id: %w", err)
		}
		clone.ID = id

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO basket_items (basket_id, product_id, quantity, added_at)
			SELECT ?, product_id, quantity, ?
			FROM basket_items WHERE basket_id = ?`,
			id, formatTime(now), basketID); err != nil {
			return fmt.Errorf("copy basket items: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Basket{}, err
	}
	clone.CreatedAt = now.UTC()

	slog.InfoContext(ctx, "Basket cloned",
		"source_id", basketID,
		"clone_id", clone.ID,
		"name", newName)
	return clone, nil
}

func getBasketTx(ctx context.Context, tx *sql.Tx, id int64) (core.Basket, error) {
	return scanBasket(tx.QueryRowContext(ctx, `
		SELECT id, name, store_id, created_at, is_template, parent_basket_id
		FROM baskets WHERE id = ?`, id))
}

func scanBasket(row *sql.Row) (core.Basket, error) {
	var (
		b        core.Basket
		created  string
		template int64
		parent   sql.NullInt64
	)
	err := row.Scan(&b.ID, &b.Name, &b.StoreID, &created, &template, &parent)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Basket{}, fmt.Errorf("basket: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.Basket{}, fmt.Errorf("get basket: %w", err)
	}
	b.IsTemplate = template != 0
	if parent.Valid {
		p := parent.Int64
		b.ParentID = &p
	}
	if b.CreatedAt, err = parseTime(created); err != nil {
		return core.Basket{}, err
	}
	return b, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"basketcase/internal/core"
)

// UpsertStore inserts or refreshes a store. Identity is immutable;
// descriptive fields and last_updated are overwritten on conflict.
func (r *SQLiteRepository) UpsertStore(ctx context.Context, s core.Store) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validate store: %w", err)
	}
	now := formatTime(time.Now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stores (store_id, name, address, postal_code, latitude, longitude, hours, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(store_id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			postal_code = excluded.postal_code,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			hours = excluded.hours,
			last_updated = excluded.last_updated`,
		s.ID, s.Name, s.Address, s.PostalCode, s.Latitude, s.Longitude, nullString(s.Hours), now, now)
	if err != nil {
		return fmt.Errorf("upsert store: %w", err)
	}
	return nil
}

// UpsertProduct inserts or refreshes a product.
func (r *SQLiteRepository) UpsertProduct(ctx context.Context, p core.Product) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validate product: %w", err)
	}
	now := formatTime(time.Now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (product_id, upc, name, brand, category_id, description, size, image_url, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			upc = excluded.upc,
			name = excluded.name,
			brand = excluded.brand,
			category_id = excluded.category_id,
			description = excluded.description,
			size = excluded.size,
			image_url = excluded.image_url,
			last_updated = excluded.last_updated`,
		p.ID, nullString(p.UPC), p.Name, nullString(p.Brand), nullInt64(p.CategoryID),
		nullString(p.Description), nullString(p.Size), nullString(p.ImageURL), now, now)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// UpsertCategory inserts or refreshes a category by its unique name and
// returns the stored row. Setting a parent that would close a cycle is
// rejected, so parent chains always terminate.
func (r *SQLiteRepository) UpsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("validate category: %w", err)
	}

	existing, err := r.categoryByName(ctx, c.Name)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return core.Category{}, err
	}

	if c.ParentID != nil && err == nil {
		chain, aErr := r.Ancestors(ctx, *c.ParentID)
		if aErr != nil {
			return core.Category{}, fmt.Errorf("check parent chain: %w", aErr)
		}
		for _, anc := range chain {
			if anc.ID == existing.ID {
				return core.Category{}, fmt.Errorf("category %q: parent chain would form a cycle", c.Name)
			}
		}
	}

	now := formatTime(time.Now())
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO categories (name, parent_id, created_at, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			parent_id = excluded.parent_id,
			last_updated = excluded.last_updated`,
		c.Name, nullInt64(c.ParentID), now, now)
	if err != nil {
		return core.Category{}, fmt.Errorf("upsert category: %w", err)
	}
	return r.categoryByName(ctx, c.Name)
}

func (r *SQLiteRepository) GetStore(ctx context.Context, storeID string) (core.Store, error) {
	var (
		s                core.Store
		hours            sql.NullString
		created, updated string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT store_id, name, address, postal_code, latitude, longitude, hours, created_at, last_updated
		FROM stores WHERE store_id = ?`, storeID).
		Scan(&s.ID, &s.Name, &s.Address, &s.PostalCode, &s.Latitude, &s.Longitude, &hours, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Store{}, fmt.Errorf("store %s: %w", storeID, core.ErrNotFound)
	}
	if err != nil {
		return core.Store{}, fmt.Errorf("get store: %w", err)
	}
	s.Hours = hours.String
	if s.CreatedAt, err = parseTime(created); err != nil {
		return core.Store{}, err
	}
	if s.LastUpdated, err = parseTime(updated); err != nil {
		return core.Store{}, err
	}
	return s, nil
}

func (r *SQLiteRepository) GetProduct(ctx context.Context, productID string) (core.Product, error) {
	var (
		p                           core.Product
		upc, brand, desc, size, img sql.NullString
		categoryID                  sql.NullInt64
		created, updated            string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT product_id, upc, name, brand, category_id, description, size, image_url, created_at, last_updated
		FROM products WHERE product_id = ?`, productID).
		Scan(&p.ID, &upc, &p.Name, &brand, &categoryID, &desc, &size, &img, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Product{}, fmt.Errorf("product %s: %w", productID, core.ErrNotFound)
	}
	if err != nil {
		return core.Product{}, fmt.Errorf("get product: %w", err)
	}
	p.UPC, p.Brand, p.Description, p.Size, p.ImageURL = upc.String, brand.String, desc.String, size.String, img.String
	if categoryID.Valid {
		id := categoryID.Int64
		p.CategoryID = &id
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return core.Product{}, err
	}
	if p.LastUpdated, err = parseTime(updated); err != nil {
		return core.Product{}, err
	}
	return p, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return r.scanCategory(r.db.QueryRowContext(ctx, `
		SELECT id, name, parent_id, created_at, last_updated FROM categories WHERE id = ?`, id))
}

func (r *SQLiteRepository) categoryByName(ctx context.Context, name string) (core.Category, error) {
	return r.scanCategory(r.db.QueryRowContext(ctx, `
		SELECT id, name, parent_id, created_at, last_updated FROM categories WHERE name = ?`, name))
}

func (r *SQLiteRepository) scanCategory(row *sql.Row) (core.Category, error) {
	var (
		c                core.Category
		parentID         sql.NullInt64
		created, updated string
	)
	err := row.Scan(&c.ID, &c.Name, &parentID, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	if parentID.Valid {
		id := parentID.Int64
		c.ParentID = &id
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return core.Category{}, err
	}
	if c.LastUpdated, err = parseTime(updated); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

// CategoryOf returns the direct category of a product, or nil when the
// product is uncategorized. The product itself must exist.
func (r *SQLiteRepository) CategoryOf(ctx context.Context, productID string) (*core.Category, error) {
	p, err := r.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.CategoryID == nil {
		return nil, nil
	}
	c, err := r.GetCategory(ctx, *p.CategoryID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Ancestors returns the chain from the given category up to its root,
// starting with the category itself. The visited guard makes the walk
// terminate even on corrupted parent links.
func (r *SQLiteRepository) Ancestors(ctx context.Context, categoryID int64) ([]core.Category, error) {
	var chain []core.Category
	visited := make(map[int64]bool)
	next := &categoryID
	for next != nil {
		if visited[*next] {
			return nil, fmt.Errorf("category %d: parent chain contains a cycle", categoryID)
		}
		visited[*next] = true
		c, err := r.GetCategory(ctx, *next)
		if err != nil {
			return nil, err
		}
		chain = append(chain, c)
		next = c.ParentID
	}
	return chain, nil
}

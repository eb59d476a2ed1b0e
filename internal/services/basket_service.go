package services

import (
	"context"
	"fmt"
	"log/slog"

	"basketcase/internal/core"
	"basketcase/internal/storage"
)

// BasketService is the basket lifecycle: create as template, mutate while
// template, save to freeze, clone to derive. Item invariants (cap, unique
// products, positive quantities, immutability after save) are enforced in
// storage inside the operation's transaction; this layer checks that
// referenced catalog rows exist so callers get ErrNotFound instead of a
// foreign key failure.
type BasketService struct {
	storage *storage.SQLiteRepository
}

func NewBasketService(db *storage.SQLiteRepository) *BasketService {
	return &BasketService{storage: db}
}

// Create makes a new template basket pinned to a store.
func (s *BasketService) Create(ctx context.Context, name, storeID string, items []core.BasketItem) (core.Basket, error) {
	if _, err := s.storage.GetStore(ctx, storeID); err != nil {
		return core.Basket{}, err
	}
	for _, item := range items {
		if _, err := s.storage.GetProduct(ctx, item.ProductID); err != nil {
			return core.Basket{}, err
		}
	}
	return s.storage.CreateBasket(ctx, name, storeID, items)
}

// AddItem adds a product to a template basket.
func (s *BasketService) AddItem(ctx context.Context, basketID int64, productID string, quantity int64) error {
	if _, err := s.storage.GetProduct(ctx, productID); err != nil {
		return err
	}
	if err := s.storage.AddItem(ctx, basketID, productID, quantity); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Item added to basket",
		"basket_id", basketID,
		"product_id", productID,
		"quantity", quantity)
	return nil
}

// SetQuantity changes an item's quantity on a template basket.
func (s *BasketService) SetQuantity(ctx context.Context, basketID int64, productID string, quantity int64) error {
	return s.storage.UpdateQuantity(ctx, basketID, productID, quantity)
}

// RemoveItem removes a product from a template basket.
func (s *BasketService) RemoveItem(ctx context.Context, basketID int64, productID string) error {
	return s.storage.RemoveItem(ctx, basketID, productID)
}

// Save freezes a basket; from then on only cloning can derive a changed copy.
func (s *BasketService) Save(ctx context.Context, basketID int64) error {
	return s.storage.SaveBasket(ctx, basketID)
}

// Clone copies a basket into a new template whose parent points at the source.
func (s *BasketService) Clone(ctx context.Context, basketID int64, newName string) (core.Basket, error) {
	return s.storage.CloneBasket(ctx, basketID, newName)
}

// Get returns a basket with its items.
func (s *BasketService) Get(ctx context.Context, basketID int64) (core.Basket, []core.BasketItem, error) {
	basket, err := s.storage.GetBasket(ctx, basketID)
	if err != nil {
		return core.Basket{}, nil, fmt.Errorf("basket %d: %w", basketID, err)
	}
	items, err := s.storage.ListItems(ctx, basketID)
	if err != nil {
		return core.Basket{}, nil, fmt.Errorf("basket %d items: %w", basketID, err)
	}
	return basket, items, nil
}

// List returns all baskets.
func (s *BasketService) List(ctx context.Context) ([]core.Basket, error) {
	return s.storage.ListBaskets(ctx)
}

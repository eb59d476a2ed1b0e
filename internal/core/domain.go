package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxBasketItems caps the number of distinct products in a basket.
const MaxBasketItems = 50

type (
	// Store is a physical store location. Identity is immutable; descriptive
	// fields are refreshed on re-fetch from the locations API.
	Store struct {
		ID          string
		Name        string
		Address     string
		PostalCode  string
		Latitude    float64
		Longitude   float64
		Hours       string
		CreatedAt   time.Time
		LastUpdated time.Time
	}

	// Category is a node in the category forest. ParentID is nil for roots.
	Category struct {
		ID          int64
		Name        string
		ParentID    *int64
		CreatedAt   time.Time
		LastUpdated time.Time
	}

	// Product is a catalog entry keyed by the vendor product ID.
	Product struct {
		ID          string
		UPC         string // optional, unique when present
		Name        string
		Brand       string
		CategoryID  *int64
		Description string
		Size        string
		ImageURL    string
		CreatedAt   time.Time
		LastUpdated time.Time
	}

	// Basket is a store-pinned collection of products. A basket starts as a
	// template (mutable) and becomes immutable once saved; ParentID records
	// the basket it was cloned from.
	Basket struct {
		ID         int64
		Name       string
		StoreID    string
		CreatedAt  time.Time
		IsTemplate bool
		ParentID   *int64
	}

	// BasketItem associates a product and quantity with a basket.
	BasketItem struct {
		BasketID  int64
		ProductID string
		Quantity  int64
		AddedAt   time.Time
	}

	// PriceObservation is one row of the append-only price ledger.
	PriceObservation struct {
		ID         int64
		ProductID  string
		StoreID    string
		Price      decimal.Decimal
		PromoPrice *decimal.Decimal
		CapturedAt time.Time
	}

	// InflationIndex is one computed index value. CategoryID is nil for the
	// whole-basket row. Rows are append-only; recalculations add new rows.
	InflationIndex struct {
		ID           int64
		BasketID     int64
		CategoryID   *int64
		BaseDate     time.Time
		Value        decimal.Decimal
		CalculatedAt time.Time
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrMissingPriceData = errors.New("no price observation in requested window")
	ErrBasketTooLarge   = errors.New("basket is full (max 50 items)")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrDuplicateItem    = errors.New("product already in basket")
	ErrBasketImmutable  = errors.New("basket is saved and cannot be modified")
	ErrEmptyBasket      = errors.New("basket has no items")
	ErrInsufficientData = errors.New("insufficient price data for calculation")
	ErrSourceNotFound   = errors.New("source basket not found")

	ErrEmptyName      = errors.New("empty name")
	ErrEmptyStoreID   = errors.New("empty store id")
	ErrEmptyProductID = errors.New("empty product id")
	ErrInvalidPrice   = errors.New("price must be positive")
	ErrInvalidPromo   = errors.New("promo price must be positive and not exceed the regular price")
)

func (s Store) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrEmptyStoreID
	}
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyProductID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (b Basket) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(b.StoreID) == "" {
		return ErrEmptyStoreID
	}
	return nil
}

func (i BasketItem) Validate() error {
	if strings.TrimSpace(i.ProductID) == "" {
		return ErrEmptyProductID
	}
	if i.Quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}

func (o PriceObservation) Validate() error {
	if strings.TrimSpace(o.ProductID) == "" {
		return ErrEmptyProductID
	}
	if strings.TrimSpace(o.StoreID) == "" {
		return ErrEmptyStoreID
	}
	if !o.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if o.PromoPrice != nil {
		if !o.PromoPrice.IsPositive() || o.PromoPrice.GreaterThan(o.Price) {
			return ErrInvalidPromo
		}
	}
	if o.CapturedAt.IsZero() {
		return errors.New("captured-at cannot be zero")
	}
	return nil
}

package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// InflationReport is the result of one inflation calculation. Excluded lists
// the basket items that were skipped for missing price data; they are
// warnings, not failures.
type InflationReport struct {
	BasketID     int64
	BasketName   string
	StoreID      string
	BaseDate     time.Time
	CalculatedAt time.Time
	Percentage   decimal.Decimal
	IndexValue   decimal.Decimal
	ItemsTotal   int
	ItemsUsed    int
	Categories   []CategoryInflation
	Excluded     []ExcludedItem
}

// CategoryInflation is the index for the items of one direct category.
type CategoryInflation struct {
	CategoryID int64
	Name       string
	Percentage decimal.Decimal
	IndexValue decimal.Decimal
}

// ExcludedItem records why a basket item did not contribute to the index.
type ExcludedItem struct {
	ProductID string
	Reason    string
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"basketcase/internal/cache"
	"basketcase/internal/core"

	"github.com/shopspring/decimal"
)

// InflationService computes the basket-weighted inflation index. Each
// calculation runs Validate, Collect, Aggregate, Persist, Report: items
// missing price data are excluded with a warning, every included item
// contributes proportionally to its quantity, and the resulting rows are
// appended to the index history in one transaction.
type InflationService struct {
	baskets    BasketSource
	prices     PriceSource
	categories CategorySource
	indices    IndexStore
	catCache   *cache.LRUCache[*core.Category]
}

func NewInflationService(baskets BasketSource, prices PriceSource, categories CategorySource, indices IndexStore) *InflationService {
	return &InflationService{
		baskets:    baskets,
		prices:     prices,
		categories: categories,
		indices:    indices,
		catCache:   cache.NewLRUCache[*core.Category](256, 5*time.Minute),
	}
}

// collectedItem is one basket item with both prices resolved.
type collectedItem struct {
	item     core.BasketItem
	base     core.PriceObservation
	current  core.PriceObservation
	category *core.Category
}

// Calculate computes the inflation report for a basket as of the given
// time (zero means now). The base price of every item is the first
// observation at or after the basket's creation, at the basket's store.
func (s *InflationService) Calculate(ctx context.Context, basketID int64, asOf time.Time) (core.InflationReport, error) {
	// Validate.
	basket, err := s.baskets.GetBasket(ctx, basketID)
	if err != nil {
		return core.InflationReport{}, fmt.Errorf("basket %d: %w", basketID, err)
	}
	items, err := s.baskets.ListItems(ctx, basketID)
	if err != nil {
		return core.InflationReport{}, fmt.Errorf("basket %d items: %w", basketID, err)
	}
	if len(items) == 0 {
		return core.InflationReport{}, fmt.Errorf("basket %d: %w", basketID, core.ErrEmptyBasket)
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	// Collect.
	var (
		included []collectedItem
		excluded []core.ExcludedItem
	)
	for _, item := range items {
		base, err := s.prices.BasePrice(ctx, item.ProductID, basket.StoreID, basket.CreatedAt)
		if errors.Is(err, core.ErrMissingPriceData) {
			excluded = append(excluded, core.ExcludedItem{ProductID: item.ProductID, Reason: "no base price since basket creation"})
			continue
		}
		if err != nil {
			return core.InflationReport{}, fmt.Errorf("base price for %s: %w", item.ProductID, err)
		}
		current, err := s.prices.LatestPrice(ctx, item.ProductID, basket.StoreID, asOf)
		if errors.Is(err, core.ErrMissingPriceData) {
			excluded = append(excluded, core.ExcludedItem{ProductID: item.ProductID, Reason: "no current price at calculation date"})
			continue
		}
		if err != nil {
			return core.InflationReport{}, fmt.Errorf("latest price for %s: %w", item.ProductID, err)
		}
		category, err := s.categoryOf(ctx, item.ProductID)
		if err != nil {
			return core.InflationReport{}, fmt.Errorf("category of %s: %w", item.ProductID, err)
		}
		included = append(included, collectedItem{item: item, base: base, current: current, category: category})
	}
	if len(included) == 0 {
		return core.InflationReport{}, fmt.Errorf("basket %d: all items missing price data: %w", basketID, core.ErrInsufficientData)
	}

	// Aggregate: quantity-weighted totals over the base basket.
	baseTotal, currentTotal := weightedTotals(included)
	if baseTotal.IsZero() {
		return core.InflationReport{}, fmt.Errorf("basket %d: base total is zero: %w", basketID, core.ErrInsufficientData)
	}

	calculatedAt := time.Now().UTC()
	report := core.InflationReport{
		BasketID:     basket.ID,
		BasketName:   basket.Name,
		StoreID:      basket.StoreID,
		BaseDate:     basket.CreatedAt,
		CalculatedAt: calculatedAt,
		Percentage:   core.InflationPercentage(baseTotal, currentTotal),
		IndexValue:   core.IndexValue(baseTotal, currentTotal),
		ItemsTotal:   len(items),
		ItemsUsed:    len(included),
		Excluded:     excluded,
	}
	report.Categories = categoryBreakdown(included)

	// Persist: one row per category plus the whole-basket row, atomically.
	rows := make([]core.InflationIndex, 0, len(report.Categories)+1)
	rows = append(rows, core.InflationIndex{
		BasketID:     basket.ID,
		BaseDate:     basket.CreatedAt,
		Value:        report.IndexValue,
		CalculatedAt: calculatedAt,
	})
	for _, c := range report.Categories {
		id := c.CategoryID
		rows = append(rows, core.InflationIndex{
			BasketID:     basket.ID,
			CategoryID:   &id,
			BaseDate:     basket.CreatedAt,
			Value:        c.IndexValue,
			CalculatedAt: calculatedAt,
		})
	}
	if err := s.indices.AppendIndices(ctx, rows); err != nil {
		return core.InflationReport{}, fmt.Errorf("persist indices: %w", err)
	}

	slog.InfoContext(ctx, "Inflation calculated",
		"basket_id", basket.ID,
		"percentage", report.Percentage.String(),
		"index", report.IndexValue.String(),
		"items_used", report.ItemsUsed,
		"items_excluded", len(excluded),
		"categories", len(report.Categories))
	return report, nil
}

// weightedTotals sums effective price times quantity over the included
// items, for base and current observations. Totals stay exact; rounding
// happens once at report time.
func weightedTotals(included []collectedItem) (base, current decimal.Decimal) {
	for _, line := range included {
		qty := decimal.NewFromInt(line.item.Quantity)
		base = base.Add(line.base.Effective().Mul(qty))
		current = current.Add(line.current.Effective().Mul(qty))
	}
	return base, current
}

// categoryBreakdown applies the weighted formula per direct category.
// Uncategorized items count toward the whole basket only. Groups whose base
// total is zero get no row. Results are ordered by category name.
func categoryBreakdown(included []collectedItem) []core.CategoryInflation {
	type group struct {
		category *core.Category
		items    []collectedItem
	}
	groups := make(map[int64]*group)
	for _, line := range included {
		if line.category == nil {
			continue
		}
		g, ok := groups[line.category.ID]
		if !ok {
			g = &group{category: line.category}
			groups[line.category.ID] = g
		}
		g.items = append(g.items, line)
	}

	results := make([]core.CategoryInflation, 0, len(groups))
	for _, g := range groups {
		base, current := weightedTotals(g.items)
		if base.IsZero() {
			continue
		}
		results = append(results, core.CategoryInflation{
			CategoryID: g.category.ID,
			Name:       g.category.Name,
			Percentage: core.InflationPercentage(base, current),
			IndexValue: core.IndexValue(base, current),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

func (s *InflationService) categoryOf(ctx context.Context, productID string) (*core.Category, error) {
	if c, ok := s.catCache.Get(productID); ok {
		return c, nil
	}
	c, err := s.categories.CategoryOf(ctx, productID)
	if err != nil {
		return nil, err
	}
	s.catCache.Set(productID, c)
	return c, nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"

	"basketcase/internal/core"
	"basketcase/internal/kroger"
	"basketcase/internal/storage"
)

// CatalogService keeps the local catalog fresh from the Kroger API: stores,
// products and their categories are upserted on every fetch so descriptive
// fields follow the remote catalog while identities stay stable.
type CatalogService struct {
	storage *storage.SQLiteRepository
	api     *kroger.Client
}

func NewCatalogService(db *storage.SQLiteRepository, api *kroger.Client) *CatalogService {
	return &CatalogService{storage: db, api: api}
}

// FindNearbyStores fetches stores near a postal code and upserts them.
func (s *CatalogService) FindNearbyStores(ctx context.Context, postalCode string, limit int) ([]core.Store, error) {
	locations, err := s.api.FindStores(ctx, postalCode, limit)
	if err != nil {
		return nil, fmt.Errorf("find stores: %w", err)
	}

	stores := make([]core.Store, 0, len(locations))
	for _, loc := range locations {
		store := core.Store{
			ID:         loc.LocationID,
			Name:       loc.Name,
			Address:    loc.Address.AddressLine1,
			PostalCode: loc.Address.ZipCode,
			Latitude:   loc.Geo.Latitude,
			Longitude:  loc.Geo.Longitude,
			Hours:      loc.Hours.Operating,
		}
		if err := s.storage.UpsertStore(ctx, store); err != nil {
			return nil, fmt.Errorf("upsert store %s: %w", store.ID, err)
		}
		stores = append(stores, store)
	}

	slog.InfoContext(ctx, "Stores refreshed", "postal_code", postalCode, "count", len(stores))
	return stores, nil
}

// SearchProducts searches the remote catalog at a store and upserts the
// results, including their direct categories.
func (s *CatalogService) SearchProducts(ctx context.Context, term, storeID string, limit int) ([]core.Product, error) {
	results, err := s.api.SearchProducts(ctx, term, storeID, limit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	products := make([]core.Product, 0, len(results))
	for _, res := range results {
		product := core.Product{
			ID:       res.ProductID,
			UPC:      res.UPC,
			Name:     res.Description,
			Brand:    res.Brand,
			Size:     res.Size(),
			ImageURL: res.URL(),
		}
		if len(res.Categories) > 0 {
			category, err := s.storage.UpsertCategory(ctx, core.Category{Name: res.Categories[0]})
			if err != nil {
				return nil, fmt.Errorf("upsert category %q: %w", res.Categories[0], err)
			}
			product.CategoryID = &category.ID
		}
		if err := s.storage.UpsertProduct(ctx, product); err != nil {
			return nil, fmt.Errorf("upsert product %s: %w", product.ID, err)
		}
		products = append(products, product)
	}

	slog.InfoContext(ctx, "Products refreshed",
		"term", term,
		"store_id", storeID,
		"count", len(products))
	return products, nil
}

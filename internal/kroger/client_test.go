package kroger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// newTestAPI stands up a fake API serving the token endpoint plus the given
// handlers, and returns a client pointed at it.
func newTestAPI(t *testing.T, handlers map[string]http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var tokenRequests int32

	mux := http.NewServeMux()
	mux.HandleFunc("/connect/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenRequests, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-id" || pass != "test-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "bearer",
			"expires_in":   1800,
		})
	})
	for path, h := range handlers {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer test-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			h(w, r)
		})
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), srv.URL, "test-id", "test-secret")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, &tokenRequests
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(context.Background(), "", "", "secret"); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("missing id: err = %v, want ErrMissingCredentials", err)
	}
	if _, err := NewClient(context.Background(), "", "id", ""); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("missing secret: err = %v, want ErrMissingCredentials", err)
	}
}

func TestFindStores(t *testing.T) {
	client, tokens := newTestAPI(t, map[string]http.HandlerFunc{
		"/locations": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("filter.zipCode.near"); got != "45202" {
				t.Errorf("zip filter = %q, want 45202", got)
			}
			if got := r.URL.Query().Get("filter.limit"); got != "5" {
				t.Errorf("limit filter = %q, want 5", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{
					"locationId": "01400441",
					"name":       "Kroger Downtown",
					"address": map[string]any{
						"addressLine1": "100 Main St",
						"city":         "Cincinnati",
						"state":        "OH",
						"zipCode":      "45202",
					},
					"geolocation": map[string]any{"latitude": 39.1, "longitude": -84.5},
					"hours":       map[string]any{"operating": "6am-11pm"},
				}},
			})
		},
	})

	stores, err := client.FindStores(context.Background(), "45202", 5)
	if err != nil {
		t.Fatalf("FindStores: %v", err)
	}
	if len(stores) != 1 {
		t.Fatalf("stores = %d, want 1", len(stores))
	}
	s := stores[0]
	if s.LocationID != "01400441" || s.Name != "Kroger Downtown" || s.Address.ZipCode != "45202" {
		t.Errorf("store = %+v", s)
	}

	// A second call must reuse the cached token.
	if _, err := client.FindStores(context.Background(), "45202", 5); err != nil {
		t.Fatalf("second FindStores: %v", err)
	}
	if got := atomic.LoadInt32(tokens); got != 1 {
		t.Errorf("token requests = %d, want 1 (token should be cached)", got)
	}
}

func TestSearchProductsValidation(t *testing.T) {
	client, _ := newTestAPI(t, nil)

	if _, err := client.SearchProducts(context.Background(), "ab", "01400441", 10); !errors.Is(err, ErrInvalidSearchTerm) {
		t.Errorf("short term: err = %v, want ErrInvalidSearchTerm", err)
	}
	if _, err := client.SearchProducts(context.Background(), "milk", "bad", 10); !errors.Is(err, ErrInvalidLocationID) {
		t.Errorf("bad location: err = %v, want ErrInvalidLocationID", err)
	}
}

func TestSearchProducts(t *testing.T) {
	client, _ := newTestAPI(t, map[string]http.HandlerFunc{
		"/products": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{
					"productId":   "0001111041700",
					"upc":         "0001111041700",
					"description": "Whole Milk",
					"brand":       "Kroger",
					"categories":  []string{"Dairy"},
					"items": []map[string]any{
						{"size": "1 gal", "price": map[string]any{"regular": 3.49, "promo": 0}},
					},
				}},
			})
		},
	})

	products, err := client.SearchProducts(context.Background(), "milk", "01400441", 10)
	if err != nil {
		t.Fatalf("SearchProducts: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1", len(products))
	}
	p := products[0]
	if p.ProductID != "0001111041700" || p.Description != "Whole Milk" {
		t.Errorf("product = %+v", p)
	}
	if p.Size() != "1 gal" {
		t.Errorf("size = %q, want 1 gal", p.Size())
	}
	if len(p.Categories) != 1 || p.Categories[0] != "Dairy" {
		t.Errorf("categories = %v, want [Dairy]", p.Categories)
	}
}

func TestProductPrice(t *testing.T) {
	client, _ := newTestAPI(t, map[string]http.HandlerFunc{
		"/products/0001111041700": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{
					"productId": "0001111041700",
					"items": []map[string]any{
						{"size": "1 gal", "price": map[string]any{"regular": 3.49, "promo": 2.99}},
					},
				}},
			})
		},
	})

	quote, err := client.ProductPrice(context.Background(), "0001111041700", "01400441")
	if err != nil {
		t.Fatalf("ProductPrice: %v", err)
	}
	if quote.Regular.String() != "3.49" {
		t.Errorf("regular = %s, want 3.49", quote.Regular)
	}
	if quote.Promo == nil || quote.Promo.String() != "2.99" {
		t.Errorf("promo = %v, want 2.99", quote.Promo)
	}
}

func TestProductPriceNoPromo(t *testing.T) {
	client, _ := newTestAPI(t, map[string]http.HandlerFunc{
		"/products/p1": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{
					"productId": "p1",
					"items": []map[string]any{
						{"price": map[string]any{"regular": 1.99}},
					},
				}},
			})
		},
	})

	quote, err := client.ProductPrice(context.Background(), "p1", "01400441")
	if err != nil {
		t.Fatalf("ProductPrice: %v", err)
	}
	if quote.Promo != nil {
		t.Errorf("promo = %v, want nil when the API omits it", quote.Promo)
	}
}

func TestProductPriceMissing(t *testing.T) {
	client, _ := newTestAPI(t, map[string]http.HandlerFunc{
		"/products/p1": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{"productId": "p1", "items": []map[string]any{{"size": "12 oz"}}}},
			})
		},
	})

	if _, err := client.ProductPrice(context.Background(), "p1", "01400441"); !errors.Is(err, ErrNoPrice) {
		t.Errorf("err = %v, want ErrNoPrice", err)
	}
}

func TestErrorStatusSurfaced(t *testing.T) {
	client, _ := newTestAPI(t, map[string]http.HandlerFunc{
		"/locations": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
		},
	})

	if _, err := client.FindStores(context.Background(), "45202", 5); err == nil {
		t.Error("expected error on non-200 status")
	}
}

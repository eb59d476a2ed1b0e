// Package kroger is a client for the Kroger public API: store locations,
// product search, and product prices. Tokens come from the OAuth2 client
// credentials flow and are cached and refreshed by the token source.
package kroger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://api.kroger.com/v1"

	// maxStoreResults is the API's limit for location searches.
	maxStoreResults = 200

	locationIDLength   = 8
	minSearchTermLen   = 3
	defaultHTTPTimeout = 30 * time.Second
)

var (
	ErrMissingCredentials = errors.New("kroger client id and secret must be set")
	ErrInvalidSearchTerm  = errors.New("search term must be at least 3 characters")
	ErrInvalidLocationID  = errors.New("location id must be 8 characters")
	ErrNoPrice            = errors.New("no price returned for product")
)

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client against baseURL. The returned client owns an
// http.Client that injects and refreshes the bearer token.
func NewClient(ctx context.Context, baseURL, clientID, clientSecret string) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     baseURL + "/connect/oauth2/token",
		Scopes:       []string{"product.compact"},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	httpClient := cc.Client(ctx)
	httpClient.Timeout = defaultHTTPTimeout
	return &Client{baseURL: baseURL, http: httpClient}, nil
}

// FindStores returns stores near a postal code. limit is capped at the
// API maximum of 200.
func (c *Client) FindStores(ctx context.Context, postalCode string, limit int) ([]Location, error) {
	if limit > maxStoreResults {
		limit = maxStoreResults
	}
	q := url.Values{}
	q.Set("filter.zipCode.near", postalCode)
	q.Set("filter.limit", strconv.Itoa(limit))

	var resp locationsResponse
	if err := c.get(ctx, "/locations", q, &resp); err != nil {
		return nil, fmt.Errorf("find stores near %s: %w", postalCode, err)
	}
	slog.DebugContext(ctx, "Found stores", "postal_code", postalCode, "count", len(resp.Data))
	return resp.Data, nil
}

// SearchProducts searches products at a location. The API requires a term
// of at least 3 characters and an 8-character location id.
func (c *Client) SearchProducts(ctx context.Context, term, locationID string, limit int) ([]ProductResult, error) {
	if len(term) < minSearchTermLen {
		return nil, ErrInvalidSearchTerm
	}
	if len(locationID) != locationIDLength {
		return nil, ErrInvalidLocationID
	}
	q := url.Values{}
	q.Set("filter.term", term)
	q.Set("filter.locationId", locationID)
	q.Set("filter.limit", strconv.Itoa(limit))

	var resp productsResponse
	if err := c.get(ctx, "/products", q, &resp); err != nil {
		return nil, fmt.Errorf("search products %q at %s: %w", term, locationID, err)
	}
	slog.DebugContext(ctx, "Found products", "term", term, "location_id", locationID, "count", len(resp.Data))
	return resp.Data, nil
}

// ProductPrice fetches the current price of one product at one location.
func (c *Client) ProductPrice(ctx context.Context, productID, locationID string) (PriceQuote, error) {
	if len(locationID) != locationIDLength {
		return PriceQuote{}, ErrInvalidLocationID
	}
	q := url.Values{}
	q.Set("filter.locationId", locationID)

	var resp productsResponse
	if err := c.get(ctx, "/products/"+url.PathEscape(productID), q, &resp); err != nil {
		return PriceQuote{}, fmt.Errorf("price for %s at %s: %w", productID, locationID, err)
	}
	for _, p := range resp.Data {
		for _, item := range p.Items {
			if item.Price == nil || item.Price.Regular.IsZero() {
				continue
			}
			return PriceQuote{
				ProductID: p.ProductID,
				Regular:   item.Price.Regular,
				Promo:     item.Price.promoOrNil(),
			}, nil
		}
	}
	return PriceQuote{}, fmt.Errorf("product %s at %s: %w", productID, locationID, ErrNoPrice)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("request %s: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

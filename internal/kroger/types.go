package kroger

import "github.com/shopspring/decimal"

// Location is one store as returned by the locations endpoint.
type Location struct {
	LocationID string  `json:"locationId"`
	Name       string  `json:"name"`
	Address    Address `json:"address"`
	Geo        Geo     `json:"geolocation"`
	Hours      Hours   `json:"hours"`
}

type Address struct {
	AddressLine1 string `json:"addressLine1"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
}

type Geo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Hours struct {
	Operating string `json:"operating"`
}

type locationsResponse struct {
	Data []Location `json:"data"`
}

// ProductResult is one product as returned by the products endpoint.
type ProductResult struct {
	ProductID   string        `json:"productId"`
	UPC         string        `json:"upc"`
	Description string        `json:"description"`
	Brand       string        `json:"brand"`
	Categories  []string      `json:"categories"`
	Items       []ProductItem `json:"items"`
	Images      []Image       `json:"images"`
}

type productsResponse struct {
	Data []ProductResult `json:"data"`
}

type ProductItem struct {
	Size  string `json:"size"`
	Price *Price `json:"price,omitempty"`
}

// Price carries the regular price and an optional promo. The API omits or
// zeroes "promo" when no promotion is running.
type Price struct {
	Regular decimal.Decimal `json:"regular"`
	Promo   decimal.Decimal `json:"promo"`
}

func (p *Price) promoOrNil() *decimal.Decimal {
	if p == nil || p.Promo.IsZero() {
		return nil
	}
	promo := p.Promo
	return &promo
}

type Image struct {
	Perspective string      `json:"perspective"`
	Sizes       []ImageSize `json:"sizes"`
}

type ImageSize struct {
	Size string `json:"size"`
	URL  string `json:"url"`
}

// URL returns the first image URL, or empty when none.
func (p ProductResult) URL() string {
	for _, img := range p.Images {
		for _, s := range img.Sizes {
			if s.URL != "" {
				return s.URL
			}
		}
	}
	return ""
}

// Size returns the first item size, or empty when none.
func (p ProductResult) Size() string {
	for _, item := range p.Items {
		if item.Size != "" {
			return item.Size
		}
	}
	return ""
}

// PriceQuote is one resolved price for a product at a location.
type PriceQuote struct {
	ProductID string
	Regular   decimal.Decimal
	Promo     *decimal.Decimal
}

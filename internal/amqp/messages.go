package amqp

import (
	"encoding/json"
	"time"
)

// PriceRefreshMessage asks the price worker to re-price one product at one
// store. It carries only the identifiers; the worker fetches the price from
// the API and appends the observation itself.
type PriceRefreshMessage struct {
	ProductID   string    `json:"product_id"`
	StoreID     string    `json:"store_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewPriceRefreshMessage creates a refresh message for one (product, store) pair.
func NewPriceRefreshMessage(productID, storeID string) *PriceRefreshMessage {
	return &PriceRefreshMessage{
		ProductID:   productID,
		StoreID:     storeID,
		RequestedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *PriceRefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PriceRefreshMessageFromJSON creates a message from JSON bytes.
func PriceRefreshMessageFromJSON(data []byte) (*PriceRefreshMessage, error) {
	var msg PriceRefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package events

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductFact es la instantánea de producto publicada en product-events.
type ProductFact struct {
	ID            uuid.UUID       `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Active        bool            `json:"active"`
}

func (f ProductFact) PartitionKey() string { return f.SKU }

package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Contratos de integración del contexto de pedidos.
// Son estructuras planas para intercambio entre contextos, NO entidades.

type OrderItemFact struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type AddressFact struct {
	FullName     string `json:"full_name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zip_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone,omitempty"`
}

// OrderFact es la instantánea de un pedido que viaja en los eventos
// ORDER_*. El consumidor reconstruye lo que necesita a partir de ella,
// nunca hace un join síncrono contra el servicio de pedidos.
type OrderFact struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"order_number"`
	CustomerID      string          `json:"customer_id"`
	CustomerEmail   string          `json:"customer_email"`
	Status          string          `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Items           []OrderItemFact `json:"items"`
	ShippingAddress *AddressFact    `json:"shipping_address,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PartitionKey: los hechos de un mismo pedido comparten partición.
func (f OrderFact) PartitionKey() string { return f.OrderNumber }

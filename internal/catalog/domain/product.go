package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	sharedBus "github.com/davicafu/tiendalab/internal/shared/infra/platform/bus"
)

// Product es el agregado de catálogo.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PartitionKey: los hechos de un mismo producto comparten partición.
func (p *Product) PartitionKey() string {
	return p.SKU
}

var _ sharedBus.Keyer = (*Product)(nil)

func NewProduct(sku, name, description string, price decimal.Decimal, stock int) (*Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" || strings.TrimSpace(name) == "" {
		return nil, ErrInvalidProduct
	}
	if price.IsNegative() || stock < 0 {
		return nil, ErrInvalidProduct
	}

	now := time.Now().UTC()
	return &Product{
		ID:            uuid.New(),
		SKU:           sku,
		Name:          name,
		Description:   description,
		Price:         price,
		StockQuantity: stock,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// DecreaseStock descuenta unidades; nunca deja el stock en negativo.
func (p *Product) DecreaseStock(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > p.StockQuantity {
		return ErrInsufficientStock
	}
	p.StockQuantity -= qty
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// IncreaseStock repone unidades.
func (p *Product) IncreaseStock(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	p.StockQuantity += qty
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateDetails muta nombre, descripción y precio en una sola operación.
func (p *Product) UpdateDetails(name, description string, price decimal.Decimal) error {
	if strings.TrimSpace(name) == "" || price.IsNegative() {
		return ErrInvalidProduct
	}
	p.Name = name
	p.Description = description
	p.Price = price
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Deactivate retira el producto de la venta sin borrarlo.
func (p *Product) Deactivate() {
	p.Active = false
	p.UpdatedAt = time.Now().UTC()
}

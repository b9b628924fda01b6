package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
)

// ---------- Errores de dominio ----------
var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductAlreadyExists = errors.New("product with that sku already exists")
	ErrInvalidProduct       = errors.New("invalid product data")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInsufficientStock    = errors.New("insufficient stock")
)

// ---------- Interfaces (Ports) ----------

// ProductRepository define las operaciones persistentes para Product.
// Las mutaciones llevan su hecho outbox en la misma transacción.
type ProductRepository interface {
	Create(ctx context.Context, p *Product, evt sharedDomain.OutboxEvent) error
	Update(ctx context.Context, p *Product, evt sharedDomain.OutboxEvent) error
	Delete(ctx context.Context, id uuid.UUID, evt sharedDomain.OutboxEvent) error

	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	ListActive(ctx context.Context, limit, offset int) ([]*Product, error)
}

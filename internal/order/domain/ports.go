package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
)

// ---------- Errores de dominio ----------
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists")
	ErrInvalidOrder       = errors.New("invalid order")
	ErrEmptyOrder         = errors.New("order must contain at least one item")
	ErrInvalidTransition  = errors.New("invalid order status transition")
)

// ---------- Interfaces (Ports) ----------

// OrderRepository define las operaciones persistentes para Order.
// Los métodos que mutan estado reciben el OutboxEvent del hecho asociado
// y deben confirmarlo en la misma transacción que el agregado.
type OrderRepository interface {
	// Debe devolver ErrOrderAlreadyExists si el número de pedido ya existe.
	Create(ctx context.Context, o *Order, evt sharedDomain.OutboxEvent) error

	// Debe devolver ErrOrderNotFound si no existe.
	Update(ctx context.Context, o *Order, evt sharedDomain.OutboxEvent) error

	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*Order, error)
	ListByStatus(ctx context.Context, status OrderStatus, limit, offset int) ([]*Order, error)

	// NextSequence devuelve el siguiente valor del contador atómico de
	// numeración para el año dado. Nunca se deriva de un recuento de filas.
	NextSequence(ctx context.Context, year int) (int64, error)
}

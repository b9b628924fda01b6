package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
)

// ---------- Errores de dominio ----------
var (
	ErrInvoiceNotFound         = errors.New("invoice not found")
	ErrInvoiceAlreadyExists    = errors.New("invoice already exists for order")
	ErrInvoicePaid             = errors.New("operation not allowed on paid invoice")
	ErrInvalidDiscount         = errors.New("invalid discount amount")
	ErrInvalidStatusTransition = errors.New("invalid invoice status transition")
)

// ---------- Interfaces (Ports) ----------

// InvoiceRepository define las operaciones persistentes para Invoice.
// Create debe devolver ErrInvoiceAlreadyExists si ya hay factura para el
// mismo pedido: esa señal tipada es la guarda de idempotencia frente a
// re-entregas, nunca se compara texto de error.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice, evt sharedDomain.OutboxEvent) error
	Update(ctx context.Context, inv *Invoice, evt sharedDomain.OutboxEvent) error

	// Save persiste el agregado sin emitir ningún hecho (mutaciones que no
	// forman parte del vocabulario de eventos, como el descuento).
	Save(ctx context.Context, inv *Invoice) error

	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Invoice, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*Invoice, error)
	ListByStatus(ctx context.Context, status InvoiceStatus, limit, offset int) ([]*Invoice, error)

	// ListOverdue devuelve facturas no terminales con vencimiento anterior a now.
	ListOverdue(ctx context.Context, now time.Time) ([]*Invoice, error)

	// Revenue suma el total de las facturas PAID emitidas en [start, end].
	// Sin filas coincidentes devuelve cero, nunca un valor ausente.
	Revenue(ctx context.Context, start, end time.Time) (decimal.Decimal, error)

	// NextSequence es el contador atómico de numeración de facturas.
	NextSequence(ctx context.Context, year int) (int64, error)
}

// RevenueAnalytics es un sumidero opcional de analítica (ClickHouse):
// registra facturas pagadas para informes. Los fallos se registran y no
// afectan a la operación de dominio.
type RevenueAnalytics interface {
	LogPaidInvoices(ctx context.Context, invoices []*Invoice) error
}

// CacheKeyByNumber forma una key consistente para la caché de lecturas.
func CacheKeyByNumber(invoiceNumber string) string {
	return fmt.Sprintf("invoice:number:%s", invoiceNumber)
}

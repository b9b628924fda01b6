package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	sharedBus "github.com/davicafu/tiendalab/internal/shared/infra/platform/bus"
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "DRAFT"
	InvoiceIssued    InvoiceStatus = "ISSUED"
	InvoiceSent      InvoiceStatus = "SENT"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
	InvoiceRefunded  InvoiceStatus = "REFUNDED"

	// InvoiceOverdue es un estado derivado: se calcula en lectura con
	// IsOverdue, nunca se almacena ni es destino de una transición.
	InvoiceOverdue InvoiceStatus = "OVERDUE"
)

// invoiceTransitions es la tabla explícita (estado actual → destinos
// permitidos). CANCELLED y REFUNDED son terminales. PAID solo admite el
// reembolso; nunca se cancela en silencio.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft:     {InvoiceIssued, InvoiceCancelled},
	InvoiceIssued:    {InvoiceSent, InvoicePaid, InvoiceCancelled},
	InvoiceSent:      {InvoicePaid, InvoiceCancelled},
	InvoicePaid:      {InvoiceRefunded},
	InvoiceCancelled: {},
	InvoiceRefunded:  {},
}

func (s InvoiceStatus) CanTransition(to InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Invoice es el agregado de factura. Depende causalmente del pedido
// (se reconstruye desde la instantánea del hecho ORDER_CONFIRMED), pero no
// lo referencia en vivo: los datos del cliente son copia, no join.
type Invoice struct {
	ID             uuid.UUID       `json:"id"`
	InvoiceNumber  string          `json:"invoice_number"`
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	CustomerID     string          `json:"customer_id"`
	CustomerName   string          `json:"customer_name"`
	CustomerEmail  string          `json:"customer_email"`
	CustomerAddr   string          `json:"customer_address"`
	IssueDate      time.Time       `json:"issue_date"`
	DueDate        time.Time       `json:"due_date"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         InvoiceStatus   `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
}

func (i *Invoice) PartitionKey() string {
	return i.InvoiceNumber
}

var _ sharedBus.Keyer = (*Invoice)(nil)

// CalculateAmounts recalcula impuesto y total de forma determinista:
//
//	tax   = round_half_up((subtotal − discount) × taxRate, 2)
//	total = (subtotal − discount) + tax
//
// Es una función explícita que el servicio invoca tras cada mutación de
// subtotal, descuento o tipo impositivo; nunca un hook de persistencia.
// Con entradas iguales produce salidas idénticas (idempotente).
func (i *Invoice) CalculateAmounts() {
	base := i.Subtotal.Sub(i.DiscountAmount)
	// decimal.Round redondea al más cercano con empates lejos de cero,
	// que para importes no negativos equivale a half-up.
	i.TaxAmount = base.Mul(i.TaxRate).Round(2)
	i.TotalAmount = base.Add(i.TaxAmount).Round(2)
}

// UpdateStatus aplica una transición validada contra la tabla.
// PAID estampa el momento del pago.
func (i *Invoice) UpdateStatus(newStatus InvoiceStatus) error {
	if !i.Status.CanTransition(newStatus) {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	i.Status = newStatus
	i.UpdatedAt = now
	if newStatus == InvoicePaid {
		i.PaidAt = &now
	}
	return nil
}

// ApplyDiscount fija el descuento y recalcula. Una factura pagada es
// inmutable respecto al descuento.
func (i *Invoice) ApplyDiscount(amount decimal.Decimal) error {
	if i.Status == InvoicePaid {
		return ErrInvoicePaid
	}
	if amount.IsNegative() || amount.GreaterThan(i.Subtotal) {
		return ErrInvalidDiscount
	}
	i.DiscountAmount = amount
	i.CalculateAmounts()
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// IsOverdue es el predicado del estado derivado OVERDUE: estado no
// terminal de cobro y fecha de vencimiento pasada. En el día exacto de
// vencimiento la factura aún no está vencida.
func (i *Invoice) IsOverdue(now time.Time) bool {
	switch i.Status {
	case InvoicePaid, InvoiceCancelled, InvoiceRefunded:
		return false
	}
	return now.After(i.DueDate)
}

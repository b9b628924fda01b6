package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(subtotal, rate string) *Invoice {
	now := time.Now().UTC()
	inv := &Invoice{
		InvoiceNumber:  "INV-2025-000001",
		OrderNumber:    "ORD-2025-000001",
		Subtotal:       decimal.RequireFromString(subtotal),
		TaxRate:        decimal.RequireFromString(rate),
		DiscountAmount: decimal.Zero,
		Status:         InvoiceIssued,
		IssueDate:      now,
		DueDate:        now.AddDate(0, 0, 30),
	}
	inv.CalculateAmounts()
	return inv
}

func TestCalculateAmounts(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		discount string
		rate     string
		wantTax  string
		wantTot  string
	}{
		{"caso base", "1000.00", "0", "0.20", "200.00", "1200.00"},
		{"con descuento", "1000.00", "100.00", "0.20", "180.00", "1080.00"},
		{"redondeo hacia arriba", "10.03", "0", "0.075", "0.75", "10.78"},
		{"empate redondea half-up", "10.25", "0", "0.10", "1.03", "11.28"},
		{"subtotal cero", "0.00", "0", "0.20", "0.00", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newTestInvoice(tt.subtotal, tt.rate)
			inv.DiscountAmount = decimal.RequireFromString(tt.discount)
			inv.CalculateAmounts()

			assert.True(t, inv.TaxAmount.Equal(decimal.RequireFromString(tt.wantTax)),
				"tax = %s", inv.TaxAmount)
			assert.True(t, inv.TotalAmount.Equal(decimal.RequireFromString(tt.wantTot)),
				"total = %s", inv.TotalAmount)
		})
	}
}

func TestCalculateAmounts_Idempotent(t *testing.T) {
	inv := newTestInvoice("1000.00", "0.21")
	tax := inv.TaxAmount
	total := inv.TotalAmount

	inv.CalculateAmounts()
	inv.CalculateAmounts()

	assert.True(t, inv.TaxAmount.Equal(tax))
	assert.True(t, inv.TotalAmount.Equal(total))
}

func TestInvoiceStatus_TransitionTable(t *testing.T) {
	all := []InvoiceStatus{InvoiceDraft, InvoiceIssued, InvoiceSent, InvoicePaid, InvoiceCancelled, InvoiceRefunded}
	legal := map[InvoiceStatus][]InvoiceStatus{
		InvoiceDraft:     {InvoiceIssued, InvoiceCancelled},
		InvoiceIssued:    {InvoiceSent, InvoicePaid, InvoiceCancelled},
		InvoiceSent:      {InvoicePaid, InvoiceCancelled},
		InvoicePaid:      {InvoiceRefunded},
		InvoiceCancelled: {},
		InvoiceRefunded:  {},
	}

	for from, allowed := range legal {
		allowedSet := make(map[InvoiceStatus]bool)
		for _, to := range allowed {
			allowedSet[to] = true
		}
		for _, to := range all {
			assert.Equal(t, allowedSet[to], from.CanTransition(to),
				"transición %s → %s", from, to)
		}
	}

	// OVERDUE nunca es destino de una transición: es derivado.
	for _, from := range all {
		assert.False(t, from.CanTransition(InvoiceOverdue))
	}
}

func TestUpdateStatus_PaidStampsPaidAt(t *testing.T) {
	inv := newTestInvoice("100.00", "0.20")
	require.NoError(t, inv.UpdateStatus(InvoicePaid))
	assert.NotNil(t, inv.PaidAt)

	// PAID solo admite reembolso.
	assert.ErrorIs(t, inv.UpdateStatus(InvoiceCancelled), ErrInvalidStatusTransition)
	require.NoError(t, inv.UpdateStatus(InvoiceRefunded))
}

func TestApplyDiscount(t *testing.T) {
	inv := newTestInvoice("1000.00", "0.20")

	require.NoError(t, inv.ApplyDiscount(decimal.RequireFromString("100.00")))
	assert.True(t, inv.TaxAmount.Equal(decimal.RequireFromString("180.00")))
	assert.True(t, inv.TotalAmount.Equal(decimal.RequireFromString("1080.00")))

	assert.ErrorIs(t, inv.ApplyDiscount(decimal.RequireFromString("-1")), ErrInvalidDiscount)
	assert.ErrorIs(t, inv.ApplyDiscount(decimal.RequireFromString("1000.01")), ErrInvalidDiscount)
}

func TestApplyDiscount_PaidInvoiceImmutable(t *testing.T) {
	inv := newTestInvoice("1000.00", "0.20")
	require.NoError(t, inv.UpdateStatus(InvoicePaid))

	err := inv.ApplyDiscount(decimal.RequireFromString("50.00"))
	assert.ErrorIs(t, err, ErrInvoicePaid)
	assert.True(t, inv.DiscountAmount.IsZero())
}

func TestIsOverdue(t *testing.T) {
	inv := newTestInvoice("100.00", "0.20")
	due := inv.DueDate

	// El día exacto de vencimiento aún no está vencida.
	assert.False(t, inv.IsOverdue(due))
	assert.True(t, inv.IsOverdue(due.Add(time.Second)))

	// Los estados terminales de cobro nunca vencen.
	require.NoError(t, inv.UpdateStatus(InvoicePaid))
	assert.False(t, inv.IsOverdue(due.Add(24*time.Hour)))

	cancelled := newTestInvoice("100.00", "0.20")
	require.NoError(t, cancelled.UpdateStatus(InvoiceCancelled))
	assert.False(t, cancelled.IsOverdue(due.Add(24*time.Hour)))
}

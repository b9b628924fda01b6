package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingDomain "github.com/davicafu/tiendalab/internal/billing/domain"
)

func newMiniredisCache(t *testing.T) *RedisInvoiceCache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisInvoiceCache(client, 5*time.Minute)
}

func sampleInvoice() *billingDomain.Invoice {
	now := time.Now().UTC().Truncate(time.Second)
	return &billingDomain.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-2025-000001",
		OrderNumber:   "ORD-2025-000001",
		CustomerID:    "cust-1",
		CustomerEmail: "cust@example.com",
		Status:        billingDomain.InvoiceIssued,
		Subtotal:      decimal.RequireFromString("1000.00"),
		TaxRate:       decimal.RequireFromString("0.20"),
		TaxAmount:     decimal.RequireFromString("200.00"),
		TotalAmount:   decimal.RequireFromString("1200.00"),
		IssueDate:     now,
		DueDate:       now.AddDate(0, 0, 30),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestRedisInvoiceCache_RoundTrip(t *testing.T) {
	c := newMiniredisCache(t)
	ctx := context.Background()
	inv := sampleInvoice()

	require.NoError(t, c.Set(ctx, "invoice:"+inv.InvoiceNumber, inv, 60))

	var got billingDomain.Invoice
	found, err := c.Get(ctx, "invoice:"+inv.InvoiceNumber, &got)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, inv.ID, got.ID)
	assert.Equal(t, inv.Status, got.Status)
	assert.True(t, inv.TotalAmount.Equal(got.TotalAmount))
	assert.True(t, inv.DueDate.Equal(got.DueDate))
}

func TestRedisInvoiceCache_MissAndDelete(t *testing.T) {
	c := newMiniredisCache(t)
	ctx := context.Background()

	var got billingDomain.Invoice
	found, err := c.Get(ctx, "invoice:nope", &got)
	require.NoError(t, err)
	assert.False(t, found)

	inv := sampleInvoice()
	require.NoError(t, c.Set(ctx, "invoice:x", inv, 0)) // ttl por defecto
	require.NoError(t, c.Delete(ctx, "invoice:x"))

	found, err = c.Get(ctx, "invoice:x", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

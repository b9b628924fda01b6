package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	billingApp "github.com/davicafu/tiendalab/internal/billing/application"
	billingDomain "github.com/davicafu/tiendalab/internal/billing/domain"
	billingSQLite "github.com/davicafu/tiendalab/internal/billing/infra/outbound/db/sqlite"
	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
	sharedSQLite "github.com/davicafu/tiendalab/internal/shared/infra/platform/db/sqlite"
	"github.com/davicafu/tiendalab/tests/mocks"
)

func setupInvoiceDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, billingSQLite.InitSQLite(db))
	return db
}

func newSQLiteInvoiceService(db *sql.DB) *billingApp.InvoiceService {
	return billingApp.NewInvoiceService(billingSQLite.NewInvoiceRepoSQLite(db), mocks.NewDummyCache(), nil,
		decimal.RequireFromString("0.20"), "INV", 30, zap.NewNop())
}

func confirmedFact(orderNumber string) sharedEvents.OrderFact {
	return sharedEvents.OrderFact{
		ID:            uuid.New(),
		OrderNumber:   orderNumber,
		CustomerID:    "cust-1",
		CustomerEmail: "cliente@example.com",
		Status:        "CONFIRMED",
		TotalAmount:   decimal.RequireFromString("1000.00"),
		CreatedAt:     time.Now().UTC(),
	}
}

func TestInvoiceSQLiteIntegration_CreateAndQuery(t *testing.T) {
	db := setupInvoiceDB(t)
	ctx := context.Background()
	service := newSQLiteInvoiceService(db)

	inv, err := service.CreateInvoiceFromOrderFact(ctx, confirmedFact("ORD-2025-000001"))
	require.NoError(t, err)

	got, err := service.GetInvoiceByOrderNumber(ctx, "ORD-2025-000001")
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber, got.InvoiceNumber)
	assert.Equal(t, billingDomain.InvoiceIssued, got.Status)
	assert.True(t, got.Subtotal.Equal(decimal.RequireFromString("1000.00")))
	assert.True(t, got.TaxAmount.Equal(decimal.RequireFromString("200.00")))
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("1200.00")))

	// La fila outbox viajó en la misma transacción que la factura.
	pending, err := sharedSQLite.NewOutboxRepoSQLite(db).FetchPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, billingDomain.InvoiceCreatedEvent, pending[0].EventType)
	assert.Equal(t, inv.InvoiceNumber, pending[0].AggregateID)
}

func TestInvoiceSQLiteIntegration_UniqueOrderNumber(t *testing.T) {
	db := setupInvoiceDB(t)
	ctx := context.Background()
	service := newSQLiteInvoiceService(db)

	_, err := service.CreateInvoiceFromOrderFact(ctx, confirmedFact("ORD-2025-000002"))
	require.NoError(t, err)

	// El índice único convierte la re-entrega en la señal tipada.
	_, err = service.CreateInvoiceFromOrderFact(ctx, confirmedFact("ORD-2025-000002"))
	assert.ErrorIs(t, err, billingDomain.ErrInvoiceAlreadyExists)

	pending, err := sharedSQLite.NewOutboxRepoSQLite(db).FetchPendingOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestInvoiceSQLiteIntegration_StatusAndRevenue(t *testing.T) {
	db := setupInvoiceDB(t)
	ctx := context.Background()
	service := newSQLiteInvoiceService(db)
	now := time.Now().UTC()

	inv, err := service.CreateInvoiceFromOrderFact(ctx, confirmedFact("ORD-2025-000003"))
	require.NoError(t, err)

	paid, err := service.UpdateInvoiceStatus(ctx, inv.ID, billingDomain.InvoicePaid)
	require.NoError(t, err)
	assert.NotNil(t, paid.PaidAt)

	total, err := service.TotalRevenue(ctx, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("1200.00")))

	// Pagada no aparece entre las vencidas.
	overdue, err := service.ListOverdueInvoices(ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)
}

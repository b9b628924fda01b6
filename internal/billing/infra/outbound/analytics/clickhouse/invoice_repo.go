package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	billingDomain "github.com/davicafu/tiendalab/internal/billing/domain"
)

// InvoiceAnalyticsRepo implementa RevenueAnalytics sobre ClickHouse.
// Es un sumidero de solo inserción: cada factura pagada deja una fila en
// invoices_log para informes de ingresos.
type InvoiceAnalyticsRepo struct {
	db *sql.DB
}

func NewInvoiceAnalyticsRepo(addr string, dbName string) (*InvoiceAnalyticsRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &InvoiceAnalyticsRepo{db: conn}, nil
}

var _ billingDomain.RevenueAnalytics = (*InvoiceAnalyticsRepo)(nil)

// Init crea la tabla de log si no existe.
func (r *InvoiceAnalyticsRepo) Init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS invoices_log (
			id UUID,
			invoice_number String,
			order_number String,
			customer_id String,
			total_amount Decimal(12, 2),
			issue_date DateTime,
			paid_at DateTime,
			event_time DateTime
		) ENGINE = MergeTree()
		ORDER BY (event_time, invoice_number)
	`)
	return err
}

// LogPaidInvoices inserta un lote de facturas pagadas. ClickHouse rinde
// mejor con lotes, así que todo el conjunto va en una transacción.
func (r *InvoiceAnalyticsRepo) LogPaidInvoices(ctx context.Context, invoices []*billingDomain.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO invoices_log (id, invoice_number, order_number, customer_id, total_amount, issue_date, paid_at, event_time)",
	)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	eventTime := time.Now().UTC()
	for _, inv := range invoices {
		paidAt := eventTime
		if inv.PaidAt != nil {
			paidAt = *inv.PaidAt
		}
		if _, err := stmt.ExecContext(ctx,
			inv.ID,
			inv.InvoiceNumber,
			inv.OrderNumber,
			inv.CustomerID,
			inv.TotalAmount,
			inv.IssueDate,
			paidAt,
			eventTime,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for invoice %s: %w", inv.InvoiceNumber, err)
		}
	}

	return tx.Commit()
}

// DailyRevenue agrega el importe pagado por día natural en [start, end].
func (r *InvoiceAnalyticsRepo) DailyRevenue(ctx context.Context, start, end time.Time) (map[time.Time]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			toStartOfDay(paid_at) AS day,
			toString(sum(total_amount)) AS revenue
		FROM invoices_log
		WHERE paid_at BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	revenue := make(map[time.Time]string)
	for rows.Next() {
		var day time.Time
		var amount string
		if err := rows.Scan(&day, &amount); err != nil {
			return nil, err
		}
		revenue[day] = amount
	}
	return revenue, rows.Err()
}

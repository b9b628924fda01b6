package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	billingDomain "github.com/davicafu/tiendalab/internal/billing/domain"
	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
	outboxPostgres "github.com/davicafu/tiendalab/internal/shared/infra/platform/db/postgres"
)

type InvoiceRepoPostgres struct {
	db *sql.DB
}

func NewInvoiceRepoPostgres(db *sql.DB) *InvoiceRepoPostgres {
	return &InvoiceRepoPostgres{db: db}
}

var _ billingDomain.InvoiceRepository = (*InvoiceRepoPostgres)(nil)

// InitPostgres crea las tablas de facturas y su contador de numeración.
func InitPostgres(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS invoices (
            id UUID PRIMARY KEY,
            invoice_number TEXT UNIQUE NOT NULL,
            order_id UUID NOT NULL,
            order_number TEXT UNIQUE NOT NULL,
            customer_id TEXT NOT NULL,
            customer_name TEXT NOT NULL,
            customer_email TEXT NOT NULL,
            customer_address TEXT NOT NULL DEFAULT '',
            issue_date TIMESTAMPTZ NOT NULL,
            due_date TIMESTAMPTZ NOT NULL,
            subtotal NUMERIC(12,2) NOT NULL,
            tax_rate NUMERIC(6,4) NOT NULL,
            tax_amount NUMERIC(12,2) NOT NULL,
            discount_amount NUMERIC(12,2) NOT NULL,
            total_amount NUMERIC(12,2) NOT NULL,
            status TEXT NOT NULL,
            notes TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL,
            paid_at TIMESTAMPTZ
        )
    `); err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS invoice_counters (
            year INTEGER PRIMARY KEY,
            seq BIGINT NOT NULL
        )
    `); err != nil {
		return err
	}

	return outboxPostgres.InitOutboxPostgres(ctx, db)
}

func (r *InvoiceRepoPostgres) NextSequence(ctx context.Context, year int) (int64, error) {
	var seq int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO invoice_counters (year, seq) VALUES ($1, 1)
		 ON CONFLICT (year) DO UPDATE SET seq = invoice_counters.seq + 1
		 RETURNING seq`, year,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to advance invoice counter: %w", err)
	}
	return seq, nil
}

func (r *InvoiceRepoPostgres) Create(ctx context.Context, inv *billingDomain.Invoice, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO invoices (id, invoice_number, order_id, order_number, customer_id,
		                       customer_name, customer_email, customer_address,
		                       issue_date, due_date, subtotal, tax_rate, tax_amount,
		                       discount_amount, total_amount, status, notes,
		                       created_at, updated_at, paid_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		inv.ID, inv.InvoiceNumber, inv.OrderID, inv.OrderNumber, inv.CustomerID,
		inv.CustomerName, inv.CustomerEmail, inv.CustomerAddr,
		inv.IssueDate, inv.DueDate, inv.Subtotal, inv.TaxRate, inv.TaxAmount,
		inv.DiscountAmount, inv.TotalAmount, string(inv.Status), inv.Notes,
		inv.CreatedAt, inv.UpdatedAt, inv.PaidAt,
	); err != nil {
		if isUniqueViolation(err) {
			err = billingDomain.ErrInvoiceAlreadyExists
		}
		return err
	}

	if err = outboxPostgres.InsertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *InvoiceRepoPostgres) Update(ctx context.Context, inv *billingDomain.Invoice, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = updateInvoiceTx(ctx, tx, inv); err != nil {
		return err
	}

	if err = outboxPostgres.InsertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *InvoiceRepoPostgres) Save(ctx context.Context, inv *billingDomain.Invoice) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = updateInvoiceTx(ctx, tx, inv); err != nil {
		return err
	}

	return tx.Commit()
}

func updateInvoiceTx(ctx context.Context, tx *sql.Tx, inv *billingDomain.Invoice) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE invoices SET status=$1, subtotal=$2, tax_rate=$3, tax_amount=$4, discount_amount=$5,
		        total_amount=$6, notes=$7, updated_at=$8, paid_at=$9
		 WHERE id=$10`,
		string(inv.Status), inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.DiscountAmount,
		inv.TotalAmount, inv.Notes, inv.UpdatedAt, inv.PaidAt,
		inv.ID,
	)
	if err != nil {
		return err
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return billingDomain.ErrInvoiceNotFound
	}
	return nil
}

func (r *InvoiceRepoPostgres) GetByID(ctx context.Context, id uuid.UUID) (*billingDomain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, selectInvoice+` WHERE id = $1`, id)
	return scanInvoice(row)
}

func (r *InvoiceRepoPostgres) GetByNumber(ctx context.Context, invoiceNumber string) (*billingDomain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, selectInvoice+` WHERE invoice_number = $1`, invoiceNumber)
	return scanInvoice(row)
}

func (r *InvoiceRepoPostgres) GetByOrderNumber(ctx context.Context, orderNumber string) (*billingDomain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, selectInvoice+` WHERE order_number = $1`, orderNumber)
	return scanInvoice(row)
}

func (r *InvoiceRepoPostgres) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*billingDomain.Invoice, error) {
	return r.list(ctx, `customer_id = $1`, customerID, limit, offset)
}

func (r *InvoiceRepoPostgres) ListByStatus(ctx context.Context, status billingDomain.InvoiceStatus, limit, offset int) ([]*billingDomain.Invoice, error) {
	return r.list(ctx, `status = $1`, string(status), limit, offset)
}

func (r *InvoiceRepoPostgres) ListOverdue(ctx context.Context, now time.Time) ([]*billingDomain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		selectInvoice+` WHERE status IN ($1,$2,$3) AND due_date < $4 ORDER BY due_date`,
		string(billingDomain.InvoiceDraft), string(billingDomain.InvoiceIssued), string(billingDomain.InvoiceSent),
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

// Revenue suma en el motor: NUMERIC es exacto en Postgres. COALESCE
// garantiza cero cuando no hay filas.
func (r *InvoiceRepoPostgres) Revenue(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_amount), 0) FROM invoices
		 WHERE status = $1 AND issue_date >= $2 AND issue_date <= $3`,
		string(billingDomain.InvoicePaid), start, end,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// ---------- helpers ----------

const selectInvoice = `SELECT id, invoice_number, order_id, order_number, customer_id,
       customer_name, customer_email, customer_address,
       issue_date, due_date, subtotal, tax_rate, tax_amount,
       discount_amount, total_amount, status, notes,
       created_at, updated_at, paid_at
  FROM invoices`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (*billingDomain.Invoice, error) {
	var inv billingDomain.Invoice
	var status string
	var paidAt sql.NullTime

	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.OrderID, &inv.OrderNumber, &inv.CustomerID,
		&inv.CustomerName, &inv.CustomerEmail, &inv.CustomerAddr,
		&inv.IssueDate, &inv.DueDate, &inv.Subtotal, &inv.TaxRate, &inv.TaxAmount,
		&inv.DiscountAmount, &inv.TotalAmount, &status, &inv.Notes,
		&inv.CreatedAt, &inv.UpdatedAt, &paidAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, billingDomain.ErrInvoiceNotFound
		}
		return nil, err
	}

	inv.Status = billingDomain.InvoiceStatus(status)
	if paidAt.Valid {
		t := paidAt.Time
		inv.PaidAt = &t
	}

	return &inv, nil
}

func (r *InvoiceRepoPostgres) list(ctx context.Context, cond string, arg interface{}, limit, offset int) ([]*billingDomain.Invoice, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		selectInvoice+` WHERE `+cond+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		arg, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func collectInvoices(rows *sql.Rows) ([]*billingDomain.Invoice, error) {
	var invoices []*billingDomain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	billingDomain "github.com/davicafu/tiendalab/internal/billing/domain"
	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
	outboxSQLite "github.com/davicafu/tiendalab/internal/shared/infra/platform/db/sqlite"
)

type InvoiceRepoSQLite struct {
	db *sql.DB
}

func NewInvoiceRepoSQLite(db *sql.DB) *InvoiceRepoSQLite {
	return &InvoiceRepoSQLite{db: db}
}

var _ billingDomain.InvoiceRepository = (*InvoiceRepoSQLite)(nil)

// InitSQLite crea las tablas de facturas y su contador de numeración. El
// índice único sobre order_number materializa la regla "una factura por
// pedido" en el propio almacén.
func InitSQLite(db *sql.DB) error {
	if _, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS invoices (
            id TEXT PRIMARY KEY,
            invoice_number TEXT UNIQUE NOT NULL,
            order_id TEXT NOT NULL,
            order_number TEXT UNIQUE NOT NULL,
            customer_id TEXT NOT NULL,
            customer_name TEXT NOT NULL,
            customer_email TEXT NOT NULL,
            customer_address TEXT NOT NULL DEFAULT '',
            issue_date DATETIME NOT NULL,
            due_date DATETIME NOT NULL,
            subtotal TEXT NOT NULL,
            tax_rate TEXT NOT NULL,
            tax_amount TEXT NOT NULL,
            discount_amount TEXT NOT NULL,
            total_amount TEXT NOT NULL,
            status TEXT NOT NULL,
            notes TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            paid_at DATETIME
        )
    `); err != nil {
		return err
	}

	if _, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS invoice_counters (
            year INTEGER PRIMARY KEY,
            seq INTEGER NOT NULL
        )
    `); err != nil {
		return err
	}

	return outboxSQLite.InitOutboxSQLite(db)
}

// NextSequence incrementa y devuelve el contador del año en una sola
// sentencia, atómica frente a creadores concurrentes.
func (r *InvoiceRepoSQLite) NextSequence(ctx context.Context, year int) (int64, error) {
	var seq int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO invoice_counters (year, seq) VALUES (?, 1)
		 ON CONFLICT(year) DO UPDATE SET seq = seq + 1
		 RETURNING seq`, year,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to advance invoice counter: %w", err)
	}
	return seq, nil
}

// Create inserta la factura y su hecho outbox en una transacción. La
// violación del índice único sobre order_number se traduce a la señal
// tipada ErrInvoiceAlreadyExists.
func (r *InvoiceRepoSQLite) Create(ctx context.Context, inv *billingDomain.Invoice, evt sharedDomain.OutboxEvent) error {
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
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		inv.ID.String(), inv.InvoiceNumber, inv.OrderID.String(), inv.OrderNumber, inv.CustomerID,
		inv.CustomerName, inv.CustomerEmail, inv.CustomerAddr,
		inv.IssueDate, inv.DueDate, inv.Subtotal.String(), inv.TaxRate.String(), inv.TaxAmount.String(),
		inv.DiscountAmount.String(), inv.TotalAmount.String(), string(inv.Status), inv.Notes,
		inv.CreatedAt, inv.UpdatedAt, inv.PaidAt,
	); err != nil {
		if isUniqueViolation(err) {
			err = billingDomain.ErrInvoiceAlreadyExists
		}
		return err
	}

	if err = outboxSQLite.InsertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// Update persiste una mutación y su hecho outbox en una transacción.
func (r *InvoiceRepoSQLite) Update(ctx context.Context, inv *billingDomain.Invoice, evt sharedDomain.OutboxEvent) error {
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

	if err = outboxSQLite.InsertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// Save persiste la factura sin emitir hecho alguno.
func (r *InvoiceRepoSQLite) Save(ctx context.Context, inv *billingDomain.Invoice) error {
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
		`UPDATE invoices SET status=?, subtotal=?, tax_rate=?, tax_amount=?, discount_amount=?,
		        total_amount=?, notes=?, updated_at=?, paid_at=?
		 WHERE id=?`,
		string(inv.Status), inv.Subtotal.String(), inv.TaxRate.String(), inv.TaxAmount.String(),
		inv.DiscountAmount.String(), inv.TotalAmount.String(), inv.Notes, inv.UpdatedAt, inv.PaidAt,
		inv.ID.String(),
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

func (r *InvoiceRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*billingDomain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, selectInvoice+` WHERE id = ?`, id.String())
	return scanInvoice(row)
}

func (r *InvoiceRepoSQLite) GetByNumber(ctx context.Context, invoiceNumber string) (*billingDomain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, selectInvoice+` WHERE invoice_number = ?`, invoiceNumber)
	return scanInvoice(row)
}

func (r *InvoiceRepoSQLite) GetByOrderNumber(ctx context.Context, orderNumber string) (*billingDomain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, selectInvoice+` WHERE order_number = ?`, orderNumber)
	return scanInvoice(row)
}

func (r *InvoiceRepoSQLite) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*billingDomain.Invoice, error) {
	return r.list(ctx, `customer_id = ?`, customerID, limit, offset)
}

func (r *InvoiceRepoSQLite) ListByStatus(ctx context.Context, status billingDomain.InvoiceStatus, limit, offset int) ([]*billingDomain.Invoice, error) {
	return r.list(ctx, `status = ?`, string(status), limit, offset)
}

// ListOverdue devuelve facturas de cobro pendiente con vencimiento
// anterior a now. El filtro de estado y el de fecha replican IsOverdue.
func (r *InvoiceRepoSQLite) ListOverdue(ctx context.Context, now time.Time) ([]*billingDomain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		selectInvoice+` WHERE status IN (?,?,?) AND due_date < ? ORDER BY due_date`,
		string(billingDomain.InvoiceDraft), string(billingDomain.InvoiceIssued), string(billingDomain.InvoiceSent),
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

// Revenue suma el total de las facturas PAID emitidas en [start, end].
// Los importes se guardan como texto decimal, así que la suma se hace en
// Go con precisión exacta en lugar de delegarla al motor.
func (r *InvoiceRepoSQLite) Revenue(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT total_amount FROM invoices
		 WHERE status = ? AND issue_date >= ? AND issue_date <= ?`,
		string(billingDomain.InvoicePaid), start, end,
	)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return decimal.Zero, err
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid total_amount in DB: %w", err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
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
	var idStr, orderIDStr, status string
	var subtotal, taxRate, taxAmount, discount, total string
	var paidAt sql.NullTime

	err := row.Scan(&idStr, &inv.InvoiceNumber, &orderIDStr, &inv.OrderNumber, &inv.CustomerID,
		&inv.CustomerName, &inv.CustomerEmail, &inv.CustomerAddr,
		&inv.IssueDate, &inv.DueDate, &subtotal, &taxRate, &taxAmount,
		&discount, &total, &status, &inv.Notes,
		&inv.CreatedAt, &inv.UpdatedAt, &paidAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, billingDomain.ErrInvoiceNotFound
		}
		return nil, err
	}

	if inv.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	if inv.OrderID, err = uuid.Parse(orderIDStr); err != nil {
		return nil, fmt.Errorf("invalid order UUID in DB: %w", err)
	}
	inv.Status = billingDomain.InvoiceStatus(status)

	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&inv.Subtotal, subtotal},
		{&inv.TaxRate, taxRate},
		{&inv.TaxAmount, taxAmount},
		{&inv.DiscountAmount, discount},
		{&inv.TotalAmount, total},
	} {
		if *field.dst, err = decimal.NewFromString(field.src); err != nil {
			return nil, fmt.Errorf("invalid decimal in DB: %w", err)
		}
	}

	if paidAt.Valid {
		t := paidAt.Time
		inv.PaidAt = &t
	}

	return &inv, nil
}

func (r *InvoiceRepoSQLite) list(ctx context.Context, cond string, arg interface{}, limit, offset int) ([]*billingDomain.Invoice, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		selectInvoice+` WHERE `+cond+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
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
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"

	orderDomain "github.com/davicafu/tiendalab/internal/order/domain"
	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
	outboxSQLite "github.com/davicafu/tiendalab/internal/shared/infra/platform/db/sqlite"
)

type OrderRepoSQLite struct {
	db *sql.DB
}

func NewOrderRepoSQLite(db *sql.DB) *OrderRepoSQLite {
	return &OrderRepoSQLite{db: db}
}

var _ orderDomain.OrderRepository = (*OrderRepoSQLite)(nil)

// InitSQLite crea las tablas de pedidos y su contador de numeración.
func InitSQLite(db *sql.DB) error {
	if _, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            order_number TEXT UNIQUE NOT NULL,
            customer_id TEXT NOT NULL,
            customer_email TEXT NOT NULL,
            status TEXT NOT NULL,
            total_amount TEXT NOT NULL,
            items TEXT NOT NULL,
            shipping_address TEXT,
            notes TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            confirmed_at DATETIME,
            shipped_at DATETIME,
            delivered_at DATETIME,
            cancelled_at DATETIME
        )
    `); err != nil {
		return err
	}

	// Contador atómico por año para la numeración de pedidos.
	if _, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS order_counters (
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
func (r *OrderRepoSQLite) NextSequence(ctx context.Context, year int) (int64, error) {
	var seq int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO order_counters (year, seq) VALUES (?, 1)
		 ON CONFLICT(year) DO UPDATE SET seq = seq + 1
		 RETURNING seq`, year,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to advance order counter: %w", err)
	}
	return seq, nil
}

// Create inserta el pedido y su hecho outbox en una transacción.
func (r *OrderRepoSQLite) Create(ctx context.Context, o *orderDomain.Order, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var exists int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM orders WHERE order_number = ?`, o.OrderNumber,
	).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		err = orderDomain.ErrOrderAlreadyExists
		return err
	}

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	addrJSON, err := marshalNullable(o.ShippingAddr)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, order_number, customer_id, customer_email, status, total_amount,
		                     items, shipping_address, notes, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		o.ID.String(), o.OrderNumber, o.CustomerID, o.CustomerEmail, string(o.Status),
		o.TotalAmount.String(), string(itemsJSON), addrJSON, o.Notes, o.CreatedAt, o.UpdatedAt,
	); err != nil {
		return err
	}

	if err = outboxSQLite.InsertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// Update persiste una transición de estado junto con su hecho outbox.
func (r *OrderRepoSQLite) Update(ctx context.Context, o *orderDomain.Order, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status=?, updated_at=?, confirmed_at=?, shipped_at=?, delivered_at=?, cancelled_at=?
		 WHERE id=?`,
		string(o.Status), o.UpdatedAt, o.ConfirmedAt, o.ShippedAt, o.DeliveredAt, o.CancelledAt,
		o.ID.String(),
	)
	if err != nil {
		return err
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = orderDomain.ErrOrderNotFound
		return err
	}

	if err = outboxSQLite.InsertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *OrderRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error) {
	row := r.db.QueryRowContext(ctx, selectOrder+` WHERE id = ?`, id.String())
	return scanOrder(row)
}

func (r *OrderRepoSQLite) GetByNumber(ctx context.Context, orderNumber string) (*orderDomain.Order, error) {
	row := r.db.QueryRowContext(ctx, selectOrder+` WHERE order_number = ?`, orderNumber)
	return scanOrder(row)
}

func (r *OrderRepoSQLite) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*orderDomain.Order, error) {
	return r.list(ctx, `customer_id = ?`, customerID, limit, offset)
}

func (r *OrderRepoSQLite) ListByStatus(ctx context.Context, status orderDomain.OrderStatus, limit, offset int) ([]*orderDomain.Order, error) {
	return r.list(ctx, `status = ?`, string(status), limit, offset)
}

// ---------- helpers ----------

const selectOrder = `SELECT id, order_number, customer_id, customer_email, status, total_amount,
       items, shipping_address, notes, created_at, updated_at,
       confirmed_at, shipped_at, delivered_at, cancelled_at
  FROM orders`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*orderDomain.Order, error) {
	var o orderDomain.Order
	var idStr, status, totalStr, itemsJSON string
	var addrJSON sql.NullString
	var confirmedAt, shippedAt, deliveredAt, cancelledAt sql.NullTime

	err := row.Scan(&idStr, &o.OrderNumber, &o.CustomerID, &o.CustomerEmail, &status, &totalStr,
		&itemsJSON, &addrJSON, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
		&confirmedAt, &shippedAt, &deliveredAt, &cancelledAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, orderDomain.ErrOrderNotFound
		}
		return nil, err
	}

	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	o.ID = parsedID
	o.Status = orderDomain.OrderStatus(status)

	if o.TotalAmount, err = decimal.NewFromString(totalStr); err != nil {
		return nil, fmt.Errorf("invalid total_amount in DB: %w", err)
	}
	if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
		return nil, fmt.Errorf("invalid items JSON in DB: %w", err)
	}
	if addrJSON.Valid && addrJSON.String != "" {
		var addr orderDomain.ShippingAddress
		if err := json.Unmarshal([]byte(addrJSON.String), &addr); err != nil {
			return nil, fmt.Errorf("invalid shipping_address JSON in DB: %w", err)
		}
		o.ShippingAddr = &addr
	}

	o.ConfirmedAt = nullableTime(confirmedAt)
	o.ShippedAt = nullableTime(shippedAt)
	o.DeliveredAt = nullableTime(deliveredAt)
	o.CancelledAt = nullableTime(cancelledAt)

	return &o, nil
}

func (r *OrderRepoSQLite) list(ctx context.Context, cond string, arg interface{}, limit, offset int) ([]*orderDomain.Order, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		selectOrder+` WHERE `+cond+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		arg, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*orderDomain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func marshalNullable(addr *orderDomain.ShippingAddress) (sql.NullString, error) {
	if addr == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(addr)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	catalogDomain "github.com/davicafu/tiendalab/internal/catalog/domain"
	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
	outboxSQLite "github.com/davicafu/tiendalab/internal/shared/infra/platform/db/sqlite"
)

type ProductRepoSQLite struct {
	db *sql.DB
}

func NewProductRepoSQLite(db *sql.DB) *ProductRepoSQLite {
	return &ProductRepoSQLite{db: db}
}

var _ catalogDomain.ProductRepository = (*ProductRepoSQLite)(nil)

// InitSQLite crea la tabla de productos.
func InitSQLite(db *sql.DB) error {
	if _, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS products (
            id TEXT PRIMARY KEY,
            sku TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            price TEXT NOT NULL,
            stock_quantity INTEGER NOT NULL,
            active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )
    `); err != nil {
		return err
	}

	return outboxSQLite.InitOutboxSQLite(db)
}

func (r *ProductRepoSQLite) Create(ctx context.Context, p *catalogDomain.Product, evt sharedDomain.OutboxEvent) error {
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
		`INSERT INTO products (id, sku, name, description, price, stock_quantity, active, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID.String(), p.SKU, p.Name, p.Description, p.Price.String(), p.StockQuantity, p.Active,
		p.CreatedAt, p.UpdatedAt,
	); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			err = catalogDomain.ErrProductAlreadyExists
		}
		return err
	}

	if err = outboxSQLite.InsertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *ProductRepoSQLite) Update(ctx context.Context, p *catalogDomain.Product, evt sharedDomain.OutboxEvent) error {
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
		`UPDATE products SET name=?, description=?, price=?, stock_quantity=?, active=?, updated_at=?
		 WHERE id=?`,
		p.Name, p.Description, p.Price.String(), p.StockQuantity, p.Active, p.UpdatedAt,
		p.ID.String(),
	)
	if err != nil {
		return err
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = catalogDomain.ErrProductNotFound
		return err
	}

	if err = outboxSQLite.InsertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *ProductRepoSQLite) Delete(ctx context.Context, id uuid.UUID, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id=?`, id.String())
	if err != nil {
		return err
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = catalogDomain.ErrProductNotFound
		return err
	}

	if err = outboxSQLite.InsertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *ProductRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*catalogDomain.Product, error) {
	row := r.db.QueryRowContext(ctx, selectProduct+` WHERE id = ?`, id.String())
	return scanProduct(row)
}

func (r *ProductRepoSQLite) GetBySKU(ctx context.Context, sku string) (*catalogDomain.Product, error) {
	row := r.db.QueryRowContext(ctx, selectProduct+` WHERE sku = ?`, sku)
	return scanProduct(row)
}

func (r *ProductRepoSQLite) ListActive(ctx context.Context, limit, offset int) ([]*catalogDomain.Product, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		selectProduct+` WHERE active = 1 ORDER BY name LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*catalogDomain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ---------- helpers ----------

const selectProduct = `SELECT id, sku, name, description, price, stock_quantity, active, created_at, updated_at
  FROM products`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*catalogDomain.Product, error) {
	var p catalogDomain.Product
	var idStr, priceStr string

	err := row.Scan(&idStr, &p.SKU, &p.Name, &p.Description, &priceStr, &p.StockQuantity, &p.Active,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, catalogDomain.ErrProductNotFound
		}
		return nil, err
	}

	if p.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	if p.Price, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("invalid price in DB: %w", err)
	}

	return &p, nil
}

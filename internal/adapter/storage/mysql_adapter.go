package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/example/inventory-core/internal/core/domain"
	"github.com/example/inventory-core/internal/port"
)

const mysqlErrDuplicateEntry = 1062

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) BeginTx(ctx context.Context) (port.Tx, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

// sqlTx unwraps the opaque transaction handle issued by BeginTx.
func sqlTx(tx port.Tx) (*sql.Tx, error) {
	t, ok := tx.(*sql.Tx)
	if !ok {
		return nil, fmt.Errorf("unexpected tx handle %T", tx)
	}
	return t, nil
}

const productColumns = `id, sku, name, description, price, stock_quantity, category_id, is_active, created_at, updated_at, version, attributes`

func scanProduct(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Product, error) {
	var (
		p          domain.Product
		desc       sql.NullString
		categoryID sql.NullString
		attrs      []byte
	)
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &desc, &p.Price, &p.StockQuantity,
		&categoryID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &p.Version, &attrs)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		p.Description = &desc.String
	}
	if categoryID.Valid {
		p.CategoryID = &categoryID.String
	}
	if len(attrs) > 0 {
		p.Attributes = json.RawMessage(attrs)
	}
	return &p, nil
}

func (m *MySQLAdapter) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	images, err := m.imagesForProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Images = images
	return p, nil
}

func (m *MySQLAdapter) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE sku = ?`, sku)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product by sku: %w", err)
	}
	return p, nil
}

func (m *MySQLAdapter) imagesForProduct(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, product_id, url, is_primary, display_order
		FROM product_images WHERE product_id = ? ORDER BY display_order`, productID)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	var images []domain.ProductImage
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.IsPrimary, &img.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// filterClause renders filter into a WHERE fragment and its arguments.
func filterClause(filter domain.ProductFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.SearchTerm != "" {
		pattern := "%" + strings.ToLower(filter.SearchTerm) + "%"
		conds = append(conds, `(LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(sku) LIKE ?)`)
		args = append(args, pattern, pattern, pattern)
	}
	if filter.CategoryID != nil {
		conds = append(conds, `category_id = ?`)
		args = append(args, *filter.CategoryID)
	}
	if filter.IsActive != nil {
		conds = append(conds, `is_active = ?`)
		args = append(args, *filter.IsActive)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (m *MySQLAdapter) List(ctx context.Context, filter domain.ProductFilter, page, pageSize int) ([]domain.Product, error) {
	where, args := filterClause(filter)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := m.db.QueryContext(ctx, `
		SELECT `+productColumns+` FROM products`+where+`
		ORDER BY name ASC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (m *MySQLAdapter) Count(ctx context.Context, filter domain.ProductFilter) (int, error) {
	where, args := filterClause(filter)

	var count int
	err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

func (m *MySQLAdapter) Insert(ctx context.Context, tx port.Tx, p *domain.Product) error {
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}

	var attrs interface{}
	if len(p.Attributes) > 0 {
		attrs = []byte(p.Attributes)
	}

	_, err = t.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SKU, p.Name, p.Description, p.Price, p.StockQuantity,
		p.CategoryID, p.IsActive, p.CreatedAt, p.UpdatedAt, p.Version, attrs,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return domain.ErrDuplicateSKU
		}
		return fmt.Errorf("insert product: %w", err)
	}

	for _, img := range p.Images {
		_, err = t.ExecContext(ctx, `
			INSERT INTO product_images (id, product_id, url, is_primary, display_order)
			VALUES (?, ?, ?, ?, ?)`,
			img.ID, img.ProductID, img.URL, img.IsPrimary, img.DisplayOrder,
		)
		if err != nil {
			return fmt.Errorf("insert image: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) UpdateWithVersion(ctx context.Context, tx port.Tx, p *domain.Product, expectedVersion int64) error {
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}

	var attrs interface{}
	if len(p.Attributes) > 0 {
		attrs = []byte(p.Attributes)
	}

	result, err := t.ExecContext(ctx, `
		UPDATE products
		SET sku = ?, name = ?, description = ?, price = ?, stock_quantity = ?,
		    category_id = ?, is_active = ?, updated_at = ?, version = ?, attributes = ?
		WHERE id = ? AND version = ?`,
		p.SKU, p.Name, p.Description, p.Price, p.StockQuantity,
		p.CategoryID, p.IsActive, p.UpdatedAt, p.Version, attrs,
		p.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

func (m *MySQLAdapter) Append(ctx context.Context, tx port.Tx, txn *domain.InventoryTransaction) error {
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}

	_, err = t.ExecContext(ctx, `
		INSERT INTO inventory_transactions (id, product_id, type, quantity, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.ProductID, txn.Type, txn.Quantity, txn.Reason, txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListByProduct(ctx context.Context, productID string) ([]domain.InventoryTransaction, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, product_id, type, quantity, reason, created_at
		FROM inventory_transactions WHERE product_id = ? ORDER BY created_at DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var txns []domain.InventoryTransaction
	for rows.Next() {
		var (
			txn    domain.InventoryTransaction
			reason sql.NullString
		)
		if err := rows.Scan(&txn.ID, &txn.ProductID, &txn.Type, &txn.Quantity, &reason, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if reason.Valid {
			txn.Reason = &reason.String
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

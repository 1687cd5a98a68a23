package port

import (
	"context"

	"github.com/example/inventory-core/internal/core/domain"
)

// Tx is an explicit store transaction handle. Each write operation owns
// exactly one; it is never shared or retained beyond that operation.
// Rollback after Commit is a no-op.
type Tx interface {
	Commit() error
	Rollback() error
}

type ProductRepository interface {
	// BeginTx opens a transaction grouping multiple writes into one
	// all-or-nothing unit
	BeginTx(ctx context.Context) (Tx, error)

	// GetByID loads a product with its images, nil when absent
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetBySKU loads a product by its unique SKU, nil when absent
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)

	// List returns one page of products matching filter, ordered by name
	List(ctx context.Context, filter domain.ProductFilter, page, pageSize int) ([]domain.Product, error)

	// Count returns the total number of products matching filter
	Count(ctx context.Context, filter domain.ProductFilter) (int, error)

	// Insert persists a new product and its images inside tx
	Insert(ctx context.Context, tx Tx, product *domain.Product) error

	// UpdateWithVersion writes product only if the stored version equals
	// expectedVersion, returning domain.ErrVersionConflict on mismatch
	UpdateWithVersion(ctx context.Context, tx Tx, product *domain.Product, expectedVersion int64) error
}

type LedgerRepository interface {
	// Append records a stock movement inside tx, always the same tx as the
	// stock mutation it accompanies
	Append(ctx context.Context, tx Tx, transaction *domain.InventoryTransaction) error

	// ListByProduct returns the movement history, newest first
	ListByProduct(ctx context.Context, productID string) ([]domain.InventoryTransaction, error)
}

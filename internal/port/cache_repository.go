package port

import (
	"context"

	"github.com/example/inventory-core/internal/core/domain"
)

// CacheRepository is the cache-aside façade. A miss is (nil, nil); errors
// mean the cache is unreachable and callers degrade to the store.
type CacheRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	SetProduct(ctx context.Context, product *domain.Product) error

	// ListKey builds the cache key for a list query, embedding the current
	// list generation
	ListKey(ctx context.Context, filter domain.ProductFilter, page, pageSize int) (string, error)
	GetProductList(ctx context.Context, key string) (*domain.ProductPage, error)
	SetProductList(ctx context.Context, key string, page *domain.ProductPage) error

	// InvalidateProduct drops the single-item entry
	InvalidateProduct(ctx context.Context, id string) error

	// InvalidateLists bumps the list generation, orphaning every cached
	// list result at once
	InvalidateLists(ctx context.Context) error
}

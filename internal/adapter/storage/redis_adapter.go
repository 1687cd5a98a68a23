package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/inventory-core/internal/core/domain"
)

const (
	productKeyPrefix = "product:"
	listKeyPrefix    = "products:list:"
	listGenKey       = "products:gen"

	// Item entries outlive list entries because list results churn under
	// any write touching the filter set.
	productTTL = 5 * time.Minute
	listTTL    = 2 * time.Minute
)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	data, err := r.client.Get(ctx, productKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RedisAdapter) SetProduct(ctx context.Context, p *domain.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, productKeyPrefix+p.ID, data, productTTL).Err()
}

// ListKey embeds the current list generation so that bumping the generation
// orphans every cached list result at once. Orphaned entries expire by TTL.
func (r *RedisAdapter) ListKey(ctx context.Context, filter domain.ProductFilter, page, pageSize int) (string, error) {
	gen, err := r.client.Get(ctx, listGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		gen = 0
	} else if err != nil {
		return "", err
	}

	categoryID := ""
	if filter.CategoryID != nil {
		categoryID = *filter.CategoryID
	}
	isActive := ""
	if filter.IsActive != nil {
		isActive = fmt.Sprintf("%t", *filter.IsActive)
	}
	return fmt.Sprintf("%s%d:%d:%d:%s:%s:%s",
		listKeyPrefix, gen, page, pageSize, filter.SearchTerm, categoryID, isActive), nil
}

func (r *RedisAdapter) GetProductList(ctx context.Context, key string) (*domain.ProductPage, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var page domain.ProductPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *RedisAdapter) SetProductList(ctx context.Context, key string, page *domain.ProductPage) error {
	data, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, listTTL).Err()
}

func (r *RedisAdapter) InvalidateProduct(ctx context.Context, id string) error {
	return r.client.Del(ctx, productKeyPrefix+id).Err()
}

func (r *RedisAdapter) InvalidateLists(ctx context.Context) error {
	return r.client.Incr(ctx, listGenKey).Err()
}

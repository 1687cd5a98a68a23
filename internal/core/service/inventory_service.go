package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/inventory-core/internal/core/domain"
	"github.com/example/inventory-core/internal/port"
)

// InventoryService keeps the product aggregate, the stock-movement ledger and
// the cache consistent under concurrent writers. It holds no locks of its
// own; every write is one store transaction and conflicts surface as
// domain.ErrVersionConflict.
type InventoryService struct {
	products port.ProductRepository
	ledger   port.LedgerRepository
	cache    port.CacheRepository
	logger   *zap.Logger
}

func NewInventoryService(products port.ProductRepository, ledger port.LedgerRepository, cache port.CacheRepository, logger *zap.Logger) *InventoryService {
	return &InventoryService{
		products: products,
		ledger:   ledger,
		cache:    cache,
		logger:   logger,
	}
}

type ImageInput struct {
	URL          string
	IsPrimary    bool
	DisplayOrder int
}

type CreateProductInput struct {
	SKU           string
	Name          string
	Description   *string
	Price         decimal.Decimal
	StockQuantity int
	CategoryID    *string
	Attributes    json.RawMessage
	Images        []ImageInput
}

type UpdateProductInput struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	CategoryID  *string
	IsActive    bool
	Attributes  json.RawMessage

	// ExpectedVersion enables optimistic concurrency control. When nil the
	// write proceeds against whatever version is currently stored
	// (last-writer-wins for that call).
	ExpectedVersion *int64
}

type AdjustInventoryInput struct {
	Type     domain.TransactionType
	Quantity int
	Reason   *string
}

type ListProductsInput struct {
	SearchTerm string
	CategoryID *string
	IsActive   *bool
	Page       int
	PageSize   int
}

func (s *InventoryService) CreateProduct(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := s.products.GetBySKU(ctx, in.SKU)
	if err != nil {
		return nil, fmt.Errorf("check sku: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateSKU
	}

	now := time.Now().UTC()
	p := &domain.Product{
		ID:            uuid.NewString(),
		SKU:           in.SKU,
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		CategoryID:    in.CategoryID,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       0,
		Attributes:    in.Attributes,
	}
	for _, img := range in.Images {
		p.Images = append(p.Images, domain.ProductImage{
			ID:           uuid.NewString(),
			ProductID:    p.ID,
			URL:          img.URL,
			IsPrimary:    img.IsPrimary,
			DisplayOrder: img.DisplayOrder,
		})
	}

	tx, err := s.products.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// The sku pre-check races with concurrent inserts; the unique index
	// turns the loser into ErrDuplicateSKU here.
	if err := s.products.Insert(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.invalidateLists(ctx)
	return s.freshRead(ctx, p.ID)
}

func (s *InventoryService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	cached, err := s.cache.GetProduct(ctx, id)
	if err != nil {
		s.logger.Warn("cache read failed, falling back to store",
			zap.String("product_id", id), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}

	if err := s.cache.SetProduct(ctx, p); err != nil {
		s.logger.Warn("cache populate failed", zap.String("product_id", id), zap.Error(err))
	}
	return p, nil
}

func (s *InventoryService) ListProducts(ctx context.Context, in ListProductsInput) (*domain.ProductPage, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	filter := domain.ProductFilter{
		SearchTerm: in.SearchTerm,
		CategoryID: in.CategoryID,
		IsActive:   in.IsActive,
	}

	key, err := s.cache.ListKey(ctx, filter, in.Page, in.PageSize)
	if err != nil {
		s.logger.Warn("cache unavailable for list key", zap.Error(err))
		key = ""
	}
	if key != "" {
		cached, err := s.cache.GetProductList(ctx, key)
		if err != nil {
			s.logger.Warn("cache read failed, falling back to store", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	items, err := s.products.List(ctx, filter, in.Page, in.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	count, err := s.products.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	page := &domain.ProductPage{
		Items:      items,
		TotalCount: count,
		Page:       in.Page,
		PageSize:   in.PageSize,
	}
	if key != "" {
		if err := s.cache.SetProductList(ctx, key, page); err != nil {
			s.logger.Warn("cache populate failed", zap.Error(err))
		}
	}
	return page, nil
}

func (s *InventoryService) UpdateProduct(ctx context.Context, id string, in UpdateProductInput) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	current, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}
	if in.ExpectedVersion != nil && *in.ExpectedVersion != current.Version {
		return nil, domain.ErrVersionConflict
	}

	// CAS against the version we actually observed, not the caller's: a
	// writer that committed between load and write still yields a conflict.
	observed := current.Version
	current.Name = in.Name
	current.Description = in.Description
	current.Price = in.Price
	current.CategoryID = in.CategoryID
	current.IsActive = in.IsActive
	current.Attributes = in.Attributes
	current.Version = observed + 1
	current.UpdatedAt = time.Now().UTC()

	if err := s.writeWithVersion(ctx, current, observed, nil); err != nil {
		return nil, err
	}

	s.invalidateProduct(ctx, id)
	s.invalidateLists(ctx)
	return s.freshRead(ctx, id)
}

func (s *InventoryService) AdjustInventory(ctx context.Context, id string, in AdjustInventoryInput) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	current, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}

	newStock := current.StockQuantity + in.Quantity
	if in.Type == domain.TransactionOutbound {
		newStock = current.StockQuantity - in.Quantity
	}
	if newStock < 0 {
		return nil, fmt.Errorf("%w: current stock %d, requested %d",
			domain.ErrInsufficientStock, current.StockQuantity, in.Quantity)
	}

	observed := current.Version
	current.StockQuantity = newStock
	current.Version = observed + 1
	current.UpdatedAt = time.Now().UTC()

	entry := &domain.InventoryTransaction{
		ID:        uuid.NewString(),
		ProductID: id,
		Type:      in.Type,
		Quantity:  in.Quantity,
		Reason:    in.Reason,
		CreatedAt: current.UpdatedAt,
	}

	if err := s.writeWithVersion(ctx, current, observed, entry); err != nil {
		return nil, err
	}

	s.invalidateProduct(ctx, id)
	s.invalidateLists(ctx)
	return s.freshRead(ctx, id)
}

func (s *InventoryService) DeleteProduct(ctx context.Context, id string) error {
	current, err := s.products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	if current == nil {
		return domain.ErrNotFound
	}

	observed := current.Version
	current.IsActive = false
	current.Version = observed + 1
	current.UpdatedAt = time.Now().UTC()

	if err := s.writeWithVersion(ctx, current, observed, nil); err != nil {
		return err
	}

	s.invalidateProduct(ctx, id)
	s.invalidateLists(ctx)
	return nil
}

func (s *InventoryService) GetInventoryStatus(ctx context.Context, id string) (*domain.InventoryStatus, error) {
	// Derived view, not authoritative state; serving it through the
	// cache-aside read path is fine.
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.InventoryStatus{
		ProductID:    p.ID,
		ProductName:  p.Name,
		SKU:          p.SKU,
		CurrentStock: p.StockQuantity,
		IsLowStock:   p.StockQuantity < domain.LowStockThreshold,
	}, nil
}

// ListTransactions returns the product's audit trail, newest first.
func (s *InventoryService) ListTransactions(ctx context.Context, productID string) ([]domain.InventoryTransaction, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return s.ledger.ListByProduct(ctx, productID)
}

// writeWithVersion runs one conditional product write, plus the ledger entry
// when present, inside a single transaction. Both commit or both roll back.
func (s *InventoryService) writeWithVersion(ctx context.Context, p *domain.Product, expectedVersion int64, entry *domain.InventoryTransaction) error {
	tx, err := s.products.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.products.UpdateWithVersion(ctx, tx, p, expectedVersion); err != nil {
		return err
	}
	if entry != nil {
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// freshRead bypasses the cache after a committed write so the caller always
// sees its own write. The write path never repopulates the cache.
func (s *InventoryService) freshRead(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload product: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *InventoryService) invalidateProduct(ctx context.Context, id string) {
	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		s.logger.Warn("cache invalidation failed, entry expires by ttl",
			zap.String("product_id", id), zap.Error(err))
	}
}

func (s *InventoryService) invalidateLists(ctx context.Context) {
	if err := s.cache.InvalidateLists(ctx); err != nil {
		s.logger.Warn("list invalidation failed, entries expire by ttl", zap.Error(err))
	}
}

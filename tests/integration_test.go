package tests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/inventory-core/internal/adapter/storage"
	"github.com/example/inventory-core/internal/core/domain"
	"github.com/example/inventory-core/internal/core/service"
)

type testEnv struct {
	redis     *redis.Client
	mysql     *sql.DB
	inventory *service.InventoryService
	cleanup   func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/inventory?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	ensureSchema(t, db)

	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)

	return &testEnv{
		redis:     rdb,
		mysql:     db,
		inventory: service.NewInventoryService(mysqlAdapter, mysqlAdapter, redisAdapter, zap.NewNop()),
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

func ensureSchema(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id CHAR(36) PRIMARY KEY,
			sku VARCHAR(100) NOT NULL UNIQUE,
			name VARCHAR(200) NOT NULL,
			description TEXT NULL,
			price DECIMAL(12,2) NOT NULL,
			stock_quantity INT NOT NULL,
			category_id CHAR(36) NULL,
			is_active BOOLEAN NOT NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			version BIGINT NOT NULL,
			attributes JSON NULL
		)`,
		`CREATE TABLE IF NOT EXISTS product_images (
			id CHAR(36) PRIMARY KEY,
			product_id CHAR(36) NOT NULL,
			url VARCHAR(500) NOT NULL,
			is_primary BOOLEAN NOT NULL,
			display_order INT NOT NULL,
			CONSTRAINT fk_images_product FOREIGN KEY (product_id)
				REFERENCES products(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_transactions (
			id CHAR(36) PRIMARY KEY,
			product_id CHAR(36) NOT NULL,
			type VARCHAR(16) NOT NULL,
			quantity INT NOT NULL,
			reason VARCHAR(500) NULL,
			created_at DATETIME(6) NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("schema setup failed: %v", err)
		}
	}
}

func (env *testEnv) createProduct(t *testing.T, stock int) *domain.Product {
	t.Helper()
	ctx := context.Background()

	p, err := env.inventory.CreateProduct(ctx, service.CreateProductInput{
		SKU:           fmt.Sprintf("ITG-%d", time.Now().UnixNano()),
		Name:          "integration test product",
		Price:         decimal.RequireFromString("49.99"),
		StockQuantity: stock,
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	t.Cleanup(func() {
		env.mysql.Exec(`DELETE FROM inventory_transactions WHERE product_id = ?`, p.ID)
		env.mysql.Exec(`DELETE FROM products WHERE id = ?`, p.ID)
		env.redis.Del(context.Background(), "product:"+p.ID)
	})
	return p
}

func TestIntegration_CreateAdjustStatusFlow(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	p := env.createProduct(t, 150)

	if p.Version != 0 {
		t.Errorf("expected version 0 on create, got %d", p.Version)
	}

	if _, err := env.inventory.AdjustInventory(ctx, p.ID, service.AdjustInventoryInput{
		Type: domain.TransactionOutbound, Quantity: 30,
	}); err != nil {
		t.Fatalf("AdjustInventory failed: %v", err)
	}

	status, err := env.inventory.GetInventoryStatus(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetInventoryStatus failed: %v", err)
	}
	if status.CurrentStock != 120 || status.IsLowStock {
		t.Errorf("expected stock 120 not low, got %d low=%t", status.CurrentStock, status.IsLowStock)
	}

	if _, err := env.inventory.AdjustInventory(ctx, p.ID, service.AdjustInventoryInput{
		Type: domain.TransactionOutbound, Quantity: 115,
	}); err != nil {
		t.Fatalf("AdjustInventory failed: %v", err)
	}

	status, err = env.inventory.GetInventoryStatus(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetInventoryStatus failed: %v", err)
	}
	if status.CurrentStock != 5 || !status.IsLowStock {
		t.Errorf("expected stock 5 low, got %d low=%t", status.CurrentStock, status.IsLowStock)
	}

	txns, err := env.inventory.ListTransactions(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(txns))
	}
	total := 0
	for _, txn := range txns {
		total += txn.SignedQuantity()
	}
	if total != -145 {
		t.Errorf("expected signed ledger sum -145, got %d", total)
	}
}

func TestIntegration_RejectedAdjustLeavesNoTrace(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	p := env.createProduct(t, 5)

	_, err := env.inventory.AdjustInventory(ctx, p.ID, service.AdjustInventoryInput{
		Type: domain.TransactionOutbound, Quantity: 9999,
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	got, err := env.inventory.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if got.StockQuantity != 5 || got.Version != 0 {
		t.Errorf("rejected adjust mutated state: stock %d version %d", got.StockQuantity, got.Version)
	}

	txns, err := env.inventory.ListTransactions(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(txns) != 0 {
		t.Errorf("rejected adjust left %d ledger entries", len(txns))
	}
}

func TestIntegration_ConcurrentAdjustments(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	p := env.createProduct(t, 10)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.inventory.AdjustInventory(ctx, p.ID, service.AdjustInventoryInput{
				Type: domain.TransactionOutbound, Quantity: 6,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var success, failed int
	for err := range errs {
		if err == nil {
			success++
		} else if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrVersionConflict) {
			failed++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 || failed != 1 {
		t.Fatalf("expected exactly one winner, got %d success / %d failed", success, failed)
	}

	got, err := env.inventory.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if got.StockQuantity != 4 {
		t.Errorf("expected final stock 4, got %d", got.StockQuantity)
	}

	txns, err := env.inventory.ListTransactions(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(txns) != 1 {
		t.Errorf("expected exactly 1 ledger entry, got %d", len(txns))
	}
}

func TestIntegration_UpdateConflictAndReadYourWrites(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	p := env.createProduct(t, 10)

	v0 := int64(0)
	if _, err := env.inventory.UpdateProduct(ctx, p.ID, service.UpdateProductInput{
		Name: "first writer", Price: decimal.NewFromInt(10), IsActive: true, ExpectedVersion: &v0,
	}); err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}

	_, err := env.inventory.UpdateProduct(ctx, p.ID, service.UpdateProductInput{
		Name: "stale writer", Price: decimal.NewFromInt(20), IsActive: true, ExpectedVersion: &v0,
	})
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	// The write invalidated the cache entry, so this read must hit the
	// store and observe the committed state.
	got, err := env.inventory.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if got.Name != "first writer" || got.Version != 1 {
		t.Errorf("expected 'first writer' v1, got %q v%d", got.Name, got.Version)
	}
}

func TestIntegration_SoftDeleteKeepsLedger(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	p := env.createProduct(t, 50)

	if _, err := env.inventory.AdjustInventory(ctx, p.ID, service.AdjustInventoryInput{
		Type: domain.TransactionOutbound, Quantity: 20,
	}); err != nil {
		t.Fatalf("AdjustInventory failed: %v", err)
	}
	if err := env.inventory.DeleteProduct(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProduct failed: %v", err)
	}

	got, err := env.inventory.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if got.IsActive {
		t.Error("expected product inactive after soft delete")
	}

	// The audit trail outlives the soft delete.
	txns, err := env.inventory.ListTransactions(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(txns) != 1 {
		t.Errorf("expected 1 ledger entry after soft delete, got %d", len(txns))
	}
}

package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/inventory-core/internal/adapter/handler"
	"github.com/example/inventory-core/internal/adapter/storage"
	"github.com/example/inventory-core/internal/core/service"
)

const (
	defaultHTTPAddr  = ":8080"
	defaultMySQLDSN  = "root:root@tcp(localhost:3306)/inventory?parseTime=true"
	defaultRedisAddr = "localhost:6379"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", getenv("MYSQL_DSN", defaultMySQLDSN))
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Redis. The cache is best effort: a dead Redis degrades reads to the
	// store, it never blocks startup correctness-wise, but we still ping so
	// misconfiguration is visible immediately.
	rdb := redis.NewClient(&redis.Options{
		Addr:     getenv("REDIS_ADDR", defaultRedisAddr),
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, serving from store only", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	// Adapters and service
	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)
	inventory := service.NewInventoryService(mysqlAdapter, mysqlAdapter, redisAdapter, logger)

	// HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(inventory).Register(mux)

	httpServer := &http.Server{
		Addr:    getenv("HTTP_ADDR", defaultHTTPAddr),
		Handler: mux,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("http server stopped")

	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}

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
	"golang.org/x/time/rate"

	"github.com/brunovmr/acai-delivery/internal/adapter/handler"
	"github.com/brunovmr/acai-delivery/internal/adapter/storage"
	"github.com/brunovmr/acai-delivery/internal/config"
	"github.com/brunovmr/acai-delivery/internal/core/cache"
	"github.com/brunovmr/acai-delivery/internal/core/service"
	"github.com/brunovmr/acai-delivery/internal/core/supervisor"
	"github.com/brunovmr/acai-delivery/internal/obs"
	"github.com/brunovmr/acai-delivery/internal/port"
)

func main() {
	cfg := config.Load()
	obs.InitLogger()
	obs.Logger.Info("service_starting", "backend", cfg.StoreBackend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		availStore port.AvailabilityStore
		orderRepo  port.OrderRepository
		idem       port.IdempotencyGuard
		audit      port.AuditLog
		closers    []func()
	)

	// The memory store always exists: it backs whatever the selected
	// backend does not cover (orders on redis/file, idempotency without
	// redis).
	mem := storage.NewMemoryStore()
	orderRepo, idem, audit = mem, mem, mem

	switch cfg.StoreBackend {
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			obs.Logger.Error("mysql_open_failed", "error", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		closers = append(closers, func() { db.Close() })

		ms := storage.NewMySQLStore(db)
		availStore, orderRepo, audit = ms, ms, ms

		// Order deduplication rides on Redis when it is reachable.
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			obs.Logger.Warn("redis_unreachable_using_memory_idempotency", "error", err)
			rdb.Close()
		} else {
			closers = append(closers, func() { rdb.Close() })
			idem = storage.NewRedisStore(rdb)
		}
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
		closers = append(closers, func() { rdb.Close() })
		rs := storage.NewRedisStore(rdb)
		availStore, idem = rs, rs
	case "file":
		fs, err := storage.NewFileStore(cfg.FileStoreDir)
		if err != nil {
			obs.Logger.Error("file_store_init_failed", "error", err)
			os.Exit(1)
		}
		availStore = fs
	case "memory":
		availStore = mem
	default:
		obs.Logger.Error("unknown_store_backend", "backend", cfg.StoreBackend)
		os.Exit(1)
	}

	c := cache.New()

	// The supervisor rehydrates the cache on every successful connect; the
	// hook captures the service variable assigned right after.
	var availabilitySvc *service.AvailabilityService
	sup := supervisor.New(availStore, supervisor.Config{
		BaseDelay:     cfg.RetryBaseDelay,
		MaxAttempts:   cfg.RetryMaxAttempts,
		ProbeInterval: cfg.ProbeInterval,
		OpTimeout:     cfg.StoreOpTimeout,
	}, func(ctx context.Context) error {
		return availabilitySvc.HydrateFromStore(ctx)
	})
	availabilitySvc = service.NewAvailabilityService(c, availStore, sup, audit, cfg.StoreOpTimeout)
	orderSvc := service.NewOrderService(orderRepo, idem, sup, cfg.DeliveryFeeCentavos, cfg.StoreOpTimeout)

	h := handler.NewHTTPHandler(availabilitySvc, orderSvc, sup)
	router := handler.NewRouter(h, cfg.AdminTokenDigest,
		rate.NewLimiter(rate.Limit(cfg.AdminRateLimit), cfg.AdminRateBurst))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Bind the port before the first store connect: the platform health
	// check must see the listener regardless of store readiness.
	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	sup.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	s := <-quit
	obs.Logger.Info("shutdown_signal", "signal", s.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}

	cancel()
	select {
	case <-sup.Done():
	case <-time.After(5 * time.Second):
		obs.Logger.Warn("supervisor_stop_timeout")
	}

	for _, closeFn := range closers {
		closeFn()
	}
	obs.Logger.Info("service_stopped")
}

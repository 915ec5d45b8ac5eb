package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/stockroom/internal/app"
	"github.com/odyssey-erp/stockroom/internal/inventory"
	"github.com/odyssey-erp/stockroom/internal/inventory/export"
	"github.com/odyssey-erp/stockroom/internal/observability"
	"github.com/odyssey-erp/stockroom/internal/orders"
	"github.com/odyssey-erp/stockroom/internal/platform/cache"
	"github.com/odyssey-erp/stockroom/internal/shared"
	"github.com/odyssey-erp/stockroom/internal/storage"
	"github.com/odyssey-erp/stockroom/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store, err := storage.Open(ctx, app.EffectiveStorage(cfg))
	if err != nil {
		logger.Error("open store", slog.String("driver", cfg.StoreDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("store close", slog.Any("error", err))
		}
	}()

	var redisClient *redis.Client
	if cfg.ViewCacheTTL > 0 {
		redisClient, err = cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("view cache disabled", slog.Any("error", err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
		}
	}

	auditLogger := shared.NewAuditLogger(logger)

	var notifier orders.Notifier
	if cfg.AutoOrderWebhookURL != "" {
		notifier = orders.NewWebhookNotifier(cfg.AutoOrderWebhookURL, cfg.WebhookTimeout)
	}
	catalog := orders.NewInventoryAdapter(nil)
	ordersService := orders.NewService(store, catalog, notifier, auditLogger, orders.ServiceConfig{
		Key:    cfg.StoreKey + ":orders",
		Logger: logger,
	})

	var trigger inventory.AutoOrderTrigger
	switch cfg.AutoOrderMode {
	case app.AutoOrderInline:
		trigger = ordersService
	case app.AutoOrderQueue:
		client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		trigger = client
	}

	inventoryService := inventory.NewService(store, auditLogger, trigger, inventory.ServiceConfig{
		Key:          cfg.StoreKey,
		RecentWindow: cfg.RecentWindow,
		Metrics:      inventory.NewMetrics(metrics.Registerer()),
		Logger:       logger,
	})
	catalog.Bind(inventoryService)

	diags, err := inventoryService.Load(ctx)
	if err != nil {
		logger.Error("load inventory", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("inventory loaded",
		slog.Int("items", len(inventoryService.Snapshot().Items())),
		slog.Int("suppliers", inventoryService.Snapshot().SupplierCount()),
		slog.Int("diagnostics", len(diags)))

	var inspector *asynq.Inspector
	if cfg.AutoOrderMode == app.AutoOrderQueue {
		inspector = asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		InventoryHandler: inventory.NewHandler(logger, inventoryService, cache.NewViewCache(redisClient, cfg.ViewCacheTTL), export.Formats()),
		OrdersHandler:    orders.NewHandler(logger, ordersService),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("store", cfg.StoreDriver),
			slog.String("auto_order", cfg.AutoOrderMode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/stockroom/internal/app"
	"github.com/odyssey-erp/stockroom/internal/inventory"
	jobmetrics "github.com/odyssey-erp/stockroom/internal/jobs"
	"github.com/odyssey-erp/stockroom/internal/orders"
	"github.com/odyssey-erp/stockroom/internal/shared"
	"github.com/odyssey-erp/stockroom/internal/storage"
	"github.com/odyssey-erp/stockroom/jobs"
)

// freshOrderer refreshes the inventory before each auto-order so the catalog
// sees items the API created after the worker started.
type freshOrderer struct {
	inventory *inventory.Service
	orders    *orders.Service
}

func (f freshOrderer) AutoOrder(ctx context.Context, supplierID, itemID string, quantity int) error {
	if _, err := f.inventory.Refresh(ctx); err != nil {
		return err
	}
	return f.orders.AutoOrder(ctx, supplierID, itemID, quantity)
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
	if cfg.StoreDriver == storage.DriverMemory {
		logger.Warn("worker uses an in-memory store; orders placed here are invisible to the API")
	}

	store, err := storage.Open(ctx, app.EffectiveStorage(cfg))
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("store close", slog.Any("error", err))
		}
	}()

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
	inventoryMetrics := inventory.NewMetrics(nil)
	inventoryService := inventory.NewService(store, auditLogger, nil, inventory.ServiceConfig{
		Key:          cfg.StoreKey,
		RecentWindow: cfg.RecentWindow,
		Metrics:      inventoryMetrics,
		Logger:       logger,
	})
	catalog.Bind(inventoryService)
	if _, err := inventoryService.Load(ctx); err != nil {
		logger.Error("load inventory", slog.Any("error", err))
		os.Exit(1)
	}

	jobMetrics := jobmetrics.NewMetrics(nil)
	autoOrderJob := jobs.NewAutoOrderJob(freshOrderer{inventory: inventoryService, orders: ordersService}, logger, jobMetrics)
	scanJob := jobs.NewLowStockScanJob(inventoryService, ordersService, inventoryMetrics, logger, jobMetrics)

	var cron []jobs.CronRegistration
	if cfg.LowStockScanCron != "" {
		scanTask, err := jobs.NewLowStockScanTask(time.Now().UTC())
		if err != nil {
			logger.Error("build low stock scan task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.LowStockScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAutoOrder, Handler: autoOrderJob.Handle},
			{Type: jobs.TaskLowStockScan, Handler: scanJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// job metrics live on the default registry
	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadTimeout: 5 * time.Second}
	if cfg.WorkerMetricsAddr != "" {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() { _ = metricsServer.Close() }()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

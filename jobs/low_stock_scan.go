package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/stockroom/internal/inventory"
	jobmetrics "github.com/odyssey-erp/stockroom/internal/jobs"
)

const (
	// TaskLowStockScan picks up store changes, refreshes stock gauges and
	// re-sends every outstanding reorder.
	TaskLowStockScan = "inventory:low-stock-scan"
)

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the scan.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// StockScanner is the inventory surface the scan reads.
type StockScanner interface {
	Refresh(ctx context.Context) (bool, error)
	Levels() map[inventory.StockStatus]int
	ReorderCandidates() []inventory.ReorderSignal
}

// LowStockScanJob walks the current inventory on a schedule.
type LowStockScanJob struct {
	Inventory StockScanner
	Orders    AutoOrderer
	Levels    *inventory.Metrics
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewLowStockScanJob initialises the scan handler. orders may be nil to only
// refresh gauges.
func NewLowStockScanJob(inv StockScanner, orders AutoOrderer, levels *inventory.Metrics, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &LowStockScanJob{Inventory: inv, Orders: orders, Levels: levels, Logger: logger, Metrics: metrics}
}

// Handle executes the scan. Individual dispatch failures are logged and the
// scan carries on; the run fails only when every dispatch failed.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Inventory == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.Metrics.Track(TaskLowStockScan)
	defer func() { err = tracker.End(err) }()

	if _, err := j.Inventory.Refresh(ctx); err != nil {
		return err
	}
	levels := j.Inventory.Levels()
	j.Levels.ObserveLevels(levels)
	logger := j.Logger.With(
		slog.Int("out", levels[inventory.StatusOut]),
		slog.Int("low", levels[inventory.StatusLow]),
	)

	candidates := j.Inventory.ReorderCandidates()
	if j.Orders == nil || len(candidates) == 0 {
		logger.Info("low stock scan complete", slog.Int("reorders", 0))
		return nil
	}
	var sent, failed int
	for _, sig := range candidates {
		if err := j.Orders.AutoOrder(ctx, sig.SupplierID, sig.ItemID, sig.Quantity); err != nil {
			failed++
			logger.Warn("reorder dispatch failed", slog.String("item_id", sig.ItemID), slog.Any("error", err))
			continue
		}
		sent++
	}
	j.Metrics.AddDispatched(TaskLowStockScan, sent)
	logger.Info("low stock scan complete", slog.Int("reorders", sent), slog.Int("failed", failed))
	if sent == 0 && failed > 0 {
		return errors.New("low stock scan: every reorder dispatch failed")
	}
	return nil
}

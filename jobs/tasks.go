package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/stockroom/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAutoOrder places or merges an auto-order for one item.
	TaskAutoOrder = "orders:auto"
)

// AutoOrderPayload is the reorder signal carried by TaskAutoOrder.
type AutoOrderPayload struct {
	SupplierID  string    `json:"supplier_id"`
	ItemID      string    `json:"item_id"`
	Quantity    int       `json:"quantity"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewAutoOrderTask constructs an Asynq task.
func NewAutoOrderTask(payload AutoOrderPayload) (*asynq.Task, error) {
	if payload.SupplierID == "" || payload.ItemID == "" || payload.Quantity <= 0 {
		return nil, errors.New("jobs: auto-order payload requires supplier, item and a positive quantity")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutoOrder, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// AutoOrderer places auto-orders; orders.Service satisfies it.
type AutoOrderer interface {
	AutoOrder(ctx context.Context, supplierID, itemID string, quantity int) error
}

// AutoOrderJob processes TaskAutoOrder tasks on the worker.
type AutoOrderJob struct {
	Orders  AutoOrderer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAutoOrderJob initialises the auto-order handler.
func NewAutoOrderJob(orders AutoOrderer, logger *slog.Logger, metrics *jobmetrics.Metrics) *AutoOrderJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoOrderJob{Orders: orders, Logger: logger, Metrics: metrics}
}

// Handle places the order. Malformed payloads are not retried.
func (j *AutoOrderJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Orders == nil {
		return errors.New("auto order: handler not configured")
	}
	var payload AutoOrderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("auto order: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskAutoOrder)
	defer func() { err = tracker.End(err) }()

	if err := j.Orders.AutoOrder(ctx, payload.SupplierID, payload.ItemID, payload.Quantity); err != nil {
		j.Logger.Error("auto order failed",
			slog.String("supplier_id", payload.SupplierID),
			slog.String("item_id", payload.ItemID),
			slog.Any("error", err))
		return err
	}
	j.Logger.Info("auto order placed",
		slog.String("supplier_id", payload.SupplierID),
		slog.String("item_id", payload.ItemID),
		slog.Int("quantity", payload.Quantity))
	j.Metrics.AddDispatched(TaskAutoOrder, 1)
	return nil
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockroom/internal/inventory"
	jobmetrics "github.com/odyssey-erp/stockroom/internal/jobs"
	"github.com/odyssey-erp/stockroom/internal/storage"
)

type call struct {
	supplierID, itemID string
	quantity           int
}

type fakeOrderer struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeOrderer) AutoOrder(_ context.Context, supplierID, itemID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{supplierID, itemID, quantity})
	return f.err
}

func TestNewAutoOrderTaskValidatesPayload(t *testing.T) {
	_, err := NewAutoOrderTask(AutoOrderPayload{SupplierID: "sysco", ItemID: "itm-1"})
	require.Error(t, err)
	_, err = NewAutoOrderTask(AutoOrderPayload{ItemID: "itm-1", Quantity: 2})
	require.Error(t, err)

	task, err := NewAutoOrderTask(AutoOrderPayload{SupplierID: "sysco", ItemID: "itm-1", Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, TaskAutoOrder, task.Type())

	var payload AutoOrderPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, 2, payload.Quantity)
}

func TestAutoOrderJobPlacesOrder(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	orders := &fakeOrderer{}
	job := NewAutoOrderJob(orders, nil, metrics)

	task, err := NewAutoOrderTask(AutoOrderPayload{SupplierID: "sysco", ItemID: "itm-1", Quantity: 5})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Equal(t, []call{{"sysco", "itm-1", 5}}, orders.calls)
	require.Equal(t, 1, testutil.CollectAndCount(reg, "stockroom_jobs_total"))
}

func TestAutoOrderJobSkipsRetryOnBadPayload(t *testing.T) {
	job := NewAutoOrderJob(&fakeOrderer{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskAutoOrder, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAutoOrderJobReturnsOrdererError(t *testing.T) {
	boom := errors.New("boom")
	job := NewAutoOrderJob(&fakeOrderer{err: boom}, nil, nil)
	task, err := NewAutoOrderTask(AutoOrderPayload{SupplierID: "sysco", ItemID: "itm-1", Quantity: 1})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestAutoOrderJobRequiresOrderer(t *testing.T) {
	var job *AutoOrderJob
	require.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskAutoOrder, nil)))
}

func stockLevel(t *testing.T, reg *prometheus.Registry, status inventory.StockStatus) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != "stockroom_inventory_items" {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status" && l.GetValue() == string(status) {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("no gauge for status %s", status)
	return 0
}

func newScanner(t *testing.T) *inventory.Service {
	t.Helper()
	svc := inventory.NewService(storage.NewMemory(), nil, nil, inventory.ServiceConfig{})
	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	return svc
}

func TestLowStockScanDispatchesCandidates(t *testing.T) {
	reg := prometheus.NewRegistry()
	levels := inventory.NewMetrics(reg)
	orders := &fakeOrderer{}
	job := NewLowStockScanJob(newScanner(t), orders, levels, nil, jobmetrics.NewMetrics(reg))

	task, err := NewLowStockScanTask(time.Now())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	// bundled dataset: six items sit below their fix count
	require.Len(t, orders.calls, 6)
	for _, c := range orders.calls {
		require.Positive(t, c.quantity)
	}
	require.Equal(t, 1.0, stockLevel(t, reg, inventory.StatusOut))
}

func TestLowStockScanIsRepeatable(t *testing.T) {
	orders := &fakeOrderer{}
	job := NewLowStockScanJob(newScanner(t), orders, nil, nil, nil)
	task, err := NewLowStockScanTask(time.Now())
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	first := append([]call(nil), orders.calls...)
	orders.calls = nil
	require.NoError(t, job.Handle(context.Background(), task))
	require.ElementsMatch(t, first, orders.calls)
}

func TestLowStockScanFailsWhenEveryDispatchFails(t *testing.T) {
	job := NewLowStockScanJob(newScanner(t), &fakeOrderer{err: errors.New("down")}, nil, nil, nil)
	task, err := NewLowStockScanTask(time.Now())
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))
}

func TestLowStockScanWithoutOrdersOnlyRefreshesLevels(t *testing.T) {
	reg := prometheus.NewRegistry()
	levels := inventory.NewMetrics(reg)
	job := NewLowStockScanJob(newScanner(t), nil, levels, nil, nil)
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskLowStockScan, nil)))
	require.Equal(t, 1.0, stockLevel(t, reg, inventory.StatusOut))
}

func TestHealthWithoutInspectorReportsIdleQueue(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, QueueDefault, body.Queue)
	require.Zero(t, body.Pending)
}

package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockroom/internal/shared"
	"github.com/odyssey-erp/stockroom/internal/storage"
)

type fakeTrigger struct {
	mu      sync.Mutex
	signals []ReorderSignal
	err     error
}

func (f *fakeTrigger) AutoOrder(_ context.Context, supplierID, itemID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, ReorderSignal{SupplierID: supplierID, ItemID: itemID, Quantity: quantity})
	return f.err
}

type fakeAudit struct {
	logs []shared.AuditLog
}

func (f *fakeAudit) Record(_ context.Context, log shared.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

type failingStore struct {
	storage.Store
	putErr error
}

func (f failingStore) Put(context.Context, string, []byte) error { return f.putErr }

type failingGetStore struct {
	storage.Store
}

func (failingGetStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func seedStore(t *testing.T, snap *Snapshot) *storage.Memory {
	t.Helper()
	store := storage.NewMemory()
	data, err := json.Marshal(snap.Document())
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), DefaultKey, data))
	return store
}

func newTestService(t *testing.T, store StatePort, trigger AutoOrderTrigger) (*Service, *fakeAudit, *Metrics) {
	t.Helper()
	audit := &fakeAudit{}
	metrics := NewMetrics(prometheus.NewRegistry())
	svc := NewService(store, audit, trigger, ServiceConfig{
		Metrics: metrics,
		Now:     func() time.Time { return editTime },
	})
	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	return svc, audit, metrics
}

func TestServiceLoadFallsBackToSeed(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, storage.NewMemory(), nil)
	require.Equal(t, 3, svc.Snapshot().SupplierCount())

	store := storage.NewMemory()
	require.NoError(t, store.Put(ctx, DefaultKey, []byte("{broken")))
	svc, _, _ = newTestService(t, store, nil)
	require.Equal(t, 3, svc.Snapshot().SupplierCount())

	svc = NewService(nil, nil, nil, ServiceConfig{})
	require.Zero(t, svc.Snapshot().SupplierCount())
	_, err := svc.Load(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, svc.Snapshot().Items())
}

func TestServiceLoadReportsDiagnostics(t *testing.T) {
	svc, _, metrics := newTestService(t, seedStore(t, fixture()), nil)
	require.Len(t, svc.Snapshot().Items(), 5)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.diagnostics.WithLabelValues(DiagOrphan)))
}

func TestServiceUpdatePersistsAndTriggers(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, fixture())
	trigger := &fakeTrigger{}
	svc, audit, metrics := newTestService(t, store, trigger)
	before := svc.Snapshot()

	item, err := svc.UpdateItem(ctx, "i2", FieldOnHandQty, 4)
	require.NoError(t, err)
	require.Equal(t, 6, item.OrderQuantity)
	require.Equal(t, []ReorderSignal{{SupplierID: "beta", ItemID: "i2", Quantity: 6}}, trigger.signals)
	require.Equal(t, before.Version()+1, svc.Snapshot().Version())

	data, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, 4, doc.Inventory[1].OnHandQty)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "inventory.item.update", audit.logs[0].Action)
	require.Equal(t, "i2", audit.logs[0].EntityID)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.mutations.WithLabelValues("update_item", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.autoOrders.WithLabelValues("ok")))

	// reaching par sends nothing
	_, err = svc.UpdateItem(ctx, "i2", FieldOnHandQty, 12)
	require.NoError(t, err)
	require.Len(t, trigger.signals, 1)
}

func TestServiceTriggerFailureDoesNotFailMutation(t *testing.T) {
	trigger := &fakeTrigger{err: errors.New("queue down")}
	svc, _, metrics := newTestService(t, seedStore(t, fixture()), trigger)

	_, err := svc.SetFixCount(context.Background(), "i3", 20)
	require.NoError(t, err)
	require.Len(t, trigger.signals, 1)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.autoOrders.WithLabelValues("error")))
}

func TestServiceFailedMutationKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, audit, metrics := newTestService(t, seedStore(t, fixture()), nil)
	before := svc.Snapshot()

	_, err := svc.AddItem(ctx, "missing-supplier", "X")
	require.ErrorIs(t, err, ErrSupplierNotFound)
	require.Same(t, before, svc.Snapshot())
	require.Empty(t, audit.logs)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.mutations.WithLabelValues("add_item", "error")))
}

func TestServicePersistFailureIsNotReturned(t *testing.T) {
	store := failingStore{Store: seedStore(t, fixture()), putErr: errors.New("disk full")}
	svc, _, metrics := newTestService(t, store, nil)

	item, err := svc.AddItem(context.Background(), "alpha", "Yeast")
	require.NoError(t, err)
	_, err = svc.Item(item.ID)
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.persistErrs))
}

func TestServiceSupplierLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, audit, _ := newTestService(t, seedStore(t, fixture()), nil)

	sup, err := svc.AddSupplier(ctx, "gamma", Supplier{Name: "Gamma Meats"})
	require.NoError(t, err)
	require.Equal(t, editTime, sup.CreatedAt)

	item, err := svc.AddItem(ctx, "gamma", "Brisket")
	require.NoError(t, err)

	sup, err = svc.UpdateSupplier(ctx, "gamma", Supplier{Name: "Gamma Butchery"})
	require.NoError(t, err)
	require.Equal(t, "Gamma Butchery", sup.Name)

	removed, err := svc.DeleteSupplier(ctx, "gamma")
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	_, err = svc.Item(item.ID)
	require.ErrorIs(t, err, ErrItemNotFound)
	_, err = svc.Supplier("gamma")
	require.ErrorIs(t, err, ErrSupplierNotFound)

	require.NoError(t, svc.DeleteItem(ctx, "i1"))
	require.ErrorIs(t, svc.DeleteItem(ctx, "i1"), ErrItemNotFound)

	actions := make([]string, 0, len(audit.logs))
	for _, l := range audit.logs {
		actions = append(actions, l.Action)
	}
	require.Equal(t, []string{
		"inventory.supplier.create",
		"inventory.item.create",
		"inventory.supplier.update",
		"inventory.supplier.delete",
		"inventory.item.delete",
	}, actions)
}

func TestServiceViewFallsBackOnInvalidCriteria(t *testing.T) {
	svc, _, _ := newTestService(t, seedStore(t, fixture()), nil)

	view := svc.View(context.Background(), Criteria{Statuses: []StockStatus{StatusLow}})
	require.False(t, view.Fallback)
	require.Equal(t, 1, view.Stats.Items)
	require.Equal(t, svc.Snapshot().Revision(), view.Revision)

	view = svc.View(context.Background(), Criteria{Statuses: []StockStatus{"critical"}})
	require.True(t, view.Fallback)
	require.True(t, view.Criteria.IsZero())
	require.Equal(t, 4, view.Stats.Items)
}

func TestServiceScanHelpers(t *testing.T) {
	svc, _, metrics := newTestService(t, seedStore(t, fixture()), nil)
	levels := svc.Levels()
	require.Equal(t, map[StockStatus]int{StatusOut: 1, StatusLow: 1, StatusMedium: 1, StatusGood: 2}, levels)
	metrics.ObserveLevels(levels)
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.stockLevels.WithLabelValues("good")))

	require.Equal(t, []ReorderSignal{{SupplierID: "beta", ItemID: "i2", Quantity: 7}}, svc.ReorderCandidates())

	c, err := svc.Preset(PresetRecentlyUpdated)
	require.NoError(t, err)
	require.Equal(t, editTime.Add(-24*time.Hour), c.UpdatedSince)
}

func TestServiceConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, seedStore(t, fixture()), nil)
	start := svc.Snapshot().Version()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = svc.UpdateItem(ctx, "i5", FieldToBuild, n)
			_ = svc.View(ctx, Criteria{})
		}(i)
	}
	wg.Wait()
	require.Equal(t, start+20, svc.Snapshot().Version())
}

func TestServiceRefreshOnlyReloadsChangedDocument(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, fixture())
	svc, _, metrics := newTestService(t, store, nil)
	orphans := metrics.diagnostics.WithLabelValues(DiagOrphan)
	require.Equal(t, 1.0, testutil.ToFloat64(orphans))

	changed, err := svc.Refresh(ctx)
	require.NoError(t, err)
	require.False(t, changed)

	// own writes are not reloaded
	_, err = svc.AddItem(ctx, "alpha", "Yeast")
	require.NoError(t, err)
	changed, err = svc.Refresh(ctx)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, 1.0, testutil.ToFloat64(orphans))

	other, err := svc.Snapshot().DeleteItem("i1")
	require.NoError(t, err)
	data, err := json.Marshal(other.Document())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, DefaultKey, data))

	changed, err = svc.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, changed)
	_, err = svc.Item("i1")
	require.ErrorIs(t, err, ErrItemNotFound)
	require.Equal(t, 2.0, testutil.ToFloat64(orphans))

	require.NoError(t, store.Put(ctx, DefaultKey, []byte("{broken")))
	changed, err = svc.Refresh(ctx)
	require.NoError(t, err)
	require.False(t, changed)
	require.Len(t, svc.Snapshot().Items(), len(other.Items()))

	_, err = NewService(failingGetStore{}, nil, nil, ServiceConfig{}).Refresh(ctx)
	require.Error(t, err)
}

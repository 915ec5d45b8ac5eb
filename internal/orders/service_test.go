package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockroom/internal/shared"
	"github.com/odyssey-erp/stockroom/internal/storage"
)

var orderTime = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

type fakeCatalog struct {
	suppliers map[string]CatalogSupplier
	items     map[string]CatalogItem
}

func (f *fakeCatalog) Supplier(_ context.Context, id string) (CatalogSupplier, error) {
	sup, ok := f.suppliers[id]
	if !ok {
		return CatalogSupplier{}, fmt.Errorf("supplier %q: %w", id, shared.ErrNotFound)
	}
	return sup, nil
}

func (f *fakeCatalog) Item(_ context.Context, id string) (CatalogItem, error) {
	item, ok := f.items[id]
	if !ok {
		return CatalogItem{}, fmt.Errorf("item %q: %w", id, shared.ErrNotFound)
	}
	return item, nil
}

type fakeNotifier struct {
	events []string
	orders []Order
}

func (f *fakeNotifier) Notify(_ context.Context, event string, order Order) error {
	f.events = append(f.events, event)
	f.orders = append(f.orders, order)
	return nil
}

func newCatalog() *fakeCatalog {
	return &fakeCatalog{
		suppliers: map[string]CatalogSupplier{
			"sysco":  {ID: "sysco", Name: "Sysco", LeadTimeDays: 2},
			"harbor": {ID: "harbor", Name: "Harbor", LeadTimeDays: 3},
		},
		items: map[string]CatalogItem{
			"flour":  {ID: "flour", Name: "Flour", SupplierID: "sysco", UnitCost: 18.5, OnHandQty: 4},
			"oil":    {ID: "oil", Name: "Oil", SupplierID: "sysco", UnitCost: 11.25, OnHandQty: 0},
			"salmon": {ID: "salmon", Name: "Salmon", SupplierID: "harbor", UnitCost: 12.9, OnHandQty: 2},
		},
	}
}

func newTestService(t *testing.T) (*Service, *fakeNotifier, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	notifier := &fakeNotifier{}
	svc := NewService(store, newCatalog(), notifier, shared.NewAuditLogger(nil), ServiceConfig{
		Now: func() time.Time { return orderTime },
	})
	return svc, notifier, store
}

func TestTriggerCreatesAndMergesAutoOrder(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newTestService(t)

	first, err := svc.Trigger(ctx, "sysco", "flour", 8)
	require.NoError(t, err)
	require.True(t, first.AutoOrder)
	require.Equal(t, StatusPending, first.Status)
	require.Equal(t, PriorityMedium, first.Priority)
	require.Equal(t, orderTime.AddDate(0, 0, 2), first.ExpectedDelivery)
	require.True(t, decimal.RequireFromString("148").Equal(first.TotalAmount))

	second, err := svc.Trigger(ctx, "sysco", "oil", 3)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, second.Lines, 2)
	require.Equal(t, PriorityHigh, second.Priority)
	require.True(t, decimal.RequireFromString("181.75").Equal(second.TotalAmount))

	// a later signal for the same item carries the new shortfall
	third, err := svc.Trigger(ctx, "sysco", "flour", 2)
	require.NoError(t, err)
	require.Len(t, third.Lines, 2)
	require.Equal(t, 2, third.Lines[0].Quantity)
	require.Equal(t, PriorityHigh, third.Priority)
	require.True(t, decimal.RequireFromString("70.75").Equal(third.TotalAmount))

	other, err := svc.Trigger(ctx, "harbor", "salmon", 5)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)

	list, page, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, 2, page.Total)
	require.Equal(t, []string{"order.auto_updated", "order.auto_updated", "order.auto_updated", "order.auto_updated"}, notifier.events)
}

func TestTriggerOpensNewOrderOnceProcessing(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	first, err := svc.Trigger(ctx, "sysco", "flour", 8)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, first.ID, StatusProcessing)
	require.NoError(t, err)

	next, err := svc.Trigger(ctx, "sysco", "flour", 8)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, next.ID)
}

func TestTriggerRejections(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newTestService(t)

	_, err := svc.Trigger(ctx, "sysco", "flour", 0)
	require.ErrorIs(t, err, ErrInvalidOrder)
	_, err = svc.Trigger(ctx, "nobody", "flour", 1)
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.Trigger(ctx, "sysco", "ghost", 1)
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.Trigger(ctx, "harbor", "flour", 1)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, notifier.events)
	require.NoError(t, svc.AutoOrder(ctx, "harbor", "salmon", 1))
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	order, err := svc.Trigger(ctx, "harbor", "salmon", 4)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, order.ID, StatusDelivered)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.ErrorIs(t, err, shared.ErrConflict)

	for _, next := range []Status{StatusProcessing, StatusShipped, StatusDelivered} {
		order, err = svc.UpdateStatus(ctx, order.ID, next)
		require.NoError(t, err)
		require.Equal(t, next, order.Status)
	}
	_, err = svc.UpdateStatus(ctx, order.ID, StatusCancelled)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.UpdateStatus(ctx, order.ID, "lost")
	require.ErrorIs(t, err, ErrInvalidOrder)
	_, err = svc.UpdateStatus(ctx, "missing", StatusCancelled)
	require.ErrorIs(t, err, ErrOrderNotFound)

	stored, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, stored.Status)
}

func TestStatusCancelFromAnyOpenState(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusProcessing, StatusShipped} {
		require.True(t, s.CanTransition(StatusCancelled), s)
		require.False(t, s.Terminal())
	}
	require.True(t, StatusDelivered.Terminal())
	require.False(t, StatusCancelled.CanTransition(StatusPending))
}

func TestCreateManualOrder(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newTestService(t)

	order, err := svc.Create(ctx, CreateInput{
		SupplierID: "sysco",
		Lines:      []LineInput{{ItemID: "flour", Quantity: 2}, {ItemID: "oil", Quantity: 1}, {ItemID: "flour", Quantity: 1}},
		Priority:   PriorityLow,
		Notes:      " weekend prep ",
	})
	require.NoError(t, err)
	require.False(t, order.AutoOrder)
	require.Equal(t, PriorityLow, order.Priority)
	require.Equal(t, "weekend prep", order.Notes)
	require.Len(t, order.Lines, 2)
	require.Equal(t, 3, order.Lines[0].Quantity)
	require.True(t, decimal.RequireFromString("66.75").Equal(order.TotalAmount))
	require.Empty(t, notifier.events)

	_, err = svc.Create(ctx, CreateInput{SupplierID: "sysco"})
	require.ErrorIs(t, err, ErrInvalidOrder)
	_, err = svc.Create(ctx, CreateInput{SupplierID: "sysco", Lines: []LineInput{{ItemID: "flour", Quantity: 0}}})
	require.ErrorIs(t, err, ErrInvalidOrder)
	_, err = svc.Create(ctx, CreateInput{SupplierID: "sysco", Lines: []LineInput{{ItemID: "salmon", Quantity: 1}}})
	require.ErrorIs(t, err, ErrInvalidOrder)
	_, err = svc.Create(ctx, CreateInput{SupplierID: "sysco", Lines: []LineInput{{ItemID: "flour", Quantity: 1}}, Priority: "urgent"})
	require.ErrorIs(t, err, ErrInvalidOrder)
}

func TestListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	clock := orderTime
	svc := NewService(store, newCatalog(), nil, nil, ServiceConfig{Now: func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}})
	var ids []string
	for i := 0; i < 5; i++ {
		o, err := svc.Create(ctx, CreateInput{SupplierID: "harbor", Lines: []LineInput{{ItemID: "salmon", Quantity: i + 1}}})
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}
	_, err := svc.UpdateStatus(ctx, ids[0], StatusCancelled)
	require.NoError(t, err)

	list, page, err := svc.List(ctx, ListFilter{Page: 1, PerPage: 2})
	require.NoError(t, err)
	require.Equal(t, 5, page.Total)
	require.Equal(t, 3, page.TotalPages)
	require.Equal(t, []string{ids[4], ids[3]}, []string{list[0].ID, list[1].ID})

	list, _, err = svc.List(ctx, ListFilter{Page: 3, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, ids[0], list[0].ID)

	list, _, err = svc.List(ctx, ListFilter{Status: StatusCancelled})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, _, err = svc.List(ctx, ListFilter{SupplierID: "sysco"})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestCorruptOrderBookSurfaces(t *testing.T) {
	ctx := context.Background()
	svc, _, store := newTestService(t)
	require.NoError(t, store.Put(ctx, "stockroom:orders", []byte("{oops")))
	_, _, err := svc.List(ctx, ListFilter{})
	require.Error(t, err)
	_, err = svc.Trigger(ctx, "sysco", "flour", 1)
	require.Error(t, err)
}

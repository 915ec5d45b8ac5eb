package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/odyssey-erp/stockroom/internal/inventory/seed"
	"github.com/odyssey-erp/stockroom/internal/shared"
)

// StatePort persists the store document under a key.
type StatePort interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// AutoOrderTrigger receives reorder signals after a committed mutation.
type AutoOrderTrigger interface {
	AutoOrder(ctx context.Context, supplierID, itemID string, quantity int) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	Key          string
	RecentWindow time.Duration
	Metrics      *Metrics
	Logger       *slog.Logger
	Now          func() time.Time
}

// Service owns the current snapshot. Reads are lock free; writers serialise,
// swap the snapshot and persist it before returning.
type Service struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]

	store   StatePort
	audit   AuditPort
	trigger AutoOrderTrigger
	key     string
	window  time.Duration
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time

	// loaded is the stored document last read or written, guarded by mu.
	loaded []byte
}

// DefaultKey is the storage key of the store document.
const DefaultKey = "stockroom"

// NewService builds Service. The snapshot is empty until Load runs.
func NewService(store StatePort, audit AuditPort, trigger AutoOrderTrigger, cfg ServiceConfig) *Service {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	svc := &Service{
		store:   store,
		audit:   audit,
		trigger: trigger,
		key:     cfg.Key,
		window:  cfg.RecentWindow,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With(slog.String("component", "inventory")),
		now:     cfg.Now,
	}
	svc.current.Store(NewSnapshot(nil, nil))
	return svc
}

// Load replaces the current snapshot with the persisted document. A missing
// or unreadable document falls back to the bundled dataset; that is logged,
// not returned.
func (s *Service) Load(ctx context.Context) ([]Diagnostic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		snap  *Snapshot
		diags []Diagnostic
	)
	data, err := s.fetch(ctx)
	if err == nil {
		snap, diags, err = DecodeDocument(data)
	}
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.WarnContext(ctx, "stored inventory unusable, loading defaults", slog.Any("error", err))
		} else {
			s.logger.InfoContext(ctx, "no stored inventory, loading defaults")
		}
		data = nil
		snap, diags, err = DecodeDocument(seed.Default())
		if err != nil {
			return nil, fmt.Errorf("inventory: decode bundled dataset: %w", err)
		}
	}
	s.report(ctx, diags)
	s.current.Store(snap)
	s.loaded = data
	return diags, nil
}

// Refresh swaps in the stored document when it differs from the one this
// service last read or wrote, and reports whether it did. Unlike Load, a
// missing or unusable document keeps the current snapshot. Only store
// failures are returned.
func (s *Service) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.fetch(ctx)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inventory: refresh: %w", err)
	}
	if bytes.Equal(data, s.loaded) {
		return false, nil
	}
	snap, diags, err := DecodeDocument(data)
	if err != nil {
		// remembered so the same broken document is reported once
		s.loaded = data
		s.logger.WarnContext(ctx, "stored inventory unusable, keeping current snapshot", slog.Any("error", err))
		return false, nil
	}
	s.report(ctx, diags)
	s.current.Store(snap)
	s.loaded = data
	return true, nil
}

func (s *Service) report(ctx context.Context, diags []Diagnostic) {
	for _, d := range diags {
		s.logger.WarnContext(ctx, "inventory record normalised", slog.String("diagnostic", d.String()))
	}
	s.metrics.diagnosed(diags)
}

func (s *Service) fetch(ctx context.Context) ([]byte, error) {
	if s.store == nil {
		return nil, shared.ErrNotFound
	}
	return s.store.Get(ctx, s.key)
}

// Snapshot returns the current snapshot.
func (s *Service) Snapshot() *Snapshot {
	return s.current.Load()
}

// View is a filtered, grouped projection with its totals.
type View struct {
	Groups   []Group  `json:"groups"`
	Stats    Stats    `json:"stats"`
	Criteria Criteria `json:"criteria"`
	Revision string   `json:"revision"`
	Fallback bool     `json:"fallback"`
}

// View runs the filter pipeline. Criteria that fail validation are logged
// and the unfiltered view is returned with Fallback set.
func (s *Service) View(ctx context.Context, c Criteria) View {
	snap := s.Snapshot()
	fallback := false
	if err := c.Validate(); err != nil {
		s.logger.WarnContext(ctx, "invalid inventory criteria, showing unfiltered view", slog.Any("error", err))
		c = Criteria{}
		fallback = true
	}
	grouped := Filter(snap, c)
	return View{
		Groups:   grouped.Groups,
		Stats:    ComputeStats(grouped),
		Criteria: c,
		Revision: snap.Revision(),
		Fallback: fallback,
	}
}

// Preset resolves a quick filter against the configured look-back window.
func (s *Service) Preset(name string) (Criteria, error) {
	return ApplyPreset(name, s.now(), s.window)
}

// Levels counts every item by stock status.
func (s *Service) Levels() map[StockStatus]int {
	out := make(map[StockStatus]int, len(StockStatuses))
	for _, item := range s.Snapshot().items {
		out[item.Status()]++
	}
	return out
}

// ReorderCandidates lists items that currently need restocking.
func (s *Service) ReorderCandidates() []ReorderSignal {
	var out []ReorderSignal
	for _, item := range s.Snapshot().items {
		if sig := reorderSignal(item); sig != nil {
			out = append(out, *sig)
		}
	}
	return out
}

// Item looks up an item in the current snapshot.
func (s *Service) Item(id string) (Item, error) {
	item, ok := s.Snapshot().Item(id)
	if !ok {
		return Item{}, fmt.Errorf("%w: %q", ErrItemNotFound, id)
	}
	return item, nil
}

// Supplier looks up a supplier in the current snapshot.
func (s *Service) Supplier(id string) (Supplier, error) {
	sup, ok := s.Snapshot().Supplier(id)
	if !ok {
		return Supplier{}, fmt.Errorf("%w: %q", ErrSupplierNotFound, id)
	}
	return sup, nil
}

// Suppliers lists suppliers ordered by name.
func (s *Service) Suppliers() []Supplier {
	return s.Snapshot().Suppliers()
}

// AddItem creates an item under an existing supplier.
func (s *Service) AddItem(ctx context.Context, supplierID, name string) (Item, error) {
	var item Item
	err := s.apply(ctx, "add_item", func(cur *Snapshot) (*Snapshot, error) {
		next, created, err := cur.AddItem(NewItem{SupplierID: supplierID, Name: name, At: s.now()})
		item = created
		return next, err
	})
	if err != nil {
		return Item{}, err
	}
	s.record(ctx, "inventory.item.create", "item", item.ID, map[string]any{"supplier_id": supplierID})
	return item, nil
}

// UpdateItem sets one field on an item and dispatches a reorder when the
// on-hand update leaves it below par.
func (s *Service) UpdateItem(ctx context.Context, id, field string, value any) (Item, error) {
	var change ItemChange
	err := s.apply(ctx, "update_item", func(cur *Snapshot) (*Snapshot, error) {
		next, ch, err := cur.UpdateItem(id, field, value, s.now())
		change = ch
		return next, err
	})
	if err != nil {
		return Item{}, err
	}
	s.record(ctx, "inventory.item.update", "item", id, map[string]any{"field": field})
	s.dispatch(ctx, change.Reorder)
	return change.Item, nil
}

// SetFixCount configures an item's par level.
func (s *Service) SetFixCount(ctx context.Context, id string, fixCount int) (Item, error) {
	var change ItemChange
	err := s.apply(ctx, "set_fix_count", func(cur *Snapshot) (*Snapshot, error) {
		next, ch, err := cur.SetFixCount(id, fixCount, s.now())
		change = ch
		return next, err
	})
	if err != nil {
		return Item{}, err
	}
	s.record(ctx, "inventory.item.fix_count", "item", id, map[string]any{"fix_count": change.Item.FixCount})
	s.dispatch(ctx, change.Reorder)
	return change.Item, nil
}

// DeleteItem removes an item.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	err := s.apply(ctx, "delete_item", func(cur *Snapshot) (*Snapshot, error) {
		return cur.DeleteItem(id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "inventory.item.delete", "item", id, nil)
	return nil
}

// AddSupplier registers a supplier.
func (s *Service) AddSupplier(ctx context.Context, id string, rec Supplier) (Supplier, error) {
	var out Supplier
	err := s.apply(ctx, "add_supplier", func(cur *Snapshot) (*Snapshot, error) {
		next, created, err := cur.AddSupplier(id, rec, s.now())
		out = created
		return next, err
	})
	if err != nil {
		return Supplier{}, err
	}
	s.record(ctx, "inventory.supplier.create", "supplier", out.ID, nil)
	return out, nil
}

// UpdateSupplier replaces a supplier's details.
func (s *Service) UpdateSupplier(ctx context.Context, id string, rec Supplier) (Supplier, error) {
	var out Supplier
	err := s.apply(ctx, "update_supplier", func(cur *Snapshot) (*Snapshot, error) {
		next, updated, err := cur.UpdateSupplier(id, rec, s.now())
		out = updated
		return next, err
	})
	if err != nil {
		return Supplier{}, err
	}
	s.record(ctx, "inventory.supplier.update", "supplier", id, nil)
	return out, nil
}

// DeleteSupplier removes a supplier and its items, returning how many items
// went with it.
func (s *Service) DeleteSupplier(ctx context.Context, id string) (int, error) {
	var removed int
	err := s.apply(ctx, "delete_supplier", func(cur *Snapshot) (*Snapshot, error) {
		next, n, err := cur.DeleteSupplier(id)
		removed = n
		return next, err
	})
	if err != nil {
		return 0, err
	}
	s.record(ctx, "inventory.supplier.delete", "supplier", id, map[string]any{"items_removed": removed})
	return removed, nil
}

func (s *Service) apply(ctx context.Context, op string, fn func(*Snapshot) (*Snapshot, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.current.Load())
	s.metrics.mutation(op, err)
	if err != nil {
		return err
	}
	s.current.Store(next)
	s.persist(ctx, next)
	return nil
}

func (s *Service) persist(ctx context.Context, snap *Snapshot) {
	if s.store == nil {
		return
	}
	data, err := json.Marshal(snap.Document())
	if err == nil {
		err = s.store.Put(ctx, s.key, data)
	}
	if err != nil {
		s.metrics.persistFailed()
		s.logger.ErrorContext(ctx, "persist inventory", slog.Uint64("version", snap.Version()), slog.Any("error", err))
		return
	}
	s.loaded = data
}

func (s *Service) record(ctx context.Context, action, entity, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: entity, EntityID: id, Meta: meta, At: s.now()}); err != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) dispatch(ctx context.Context, sig *ReorderSignal) {
	if sig == nil || s.trigger == nil {
		return
	}
	err := s.trigger.AutoOrder(ctx, sig.SupplierID, sig.ItemID, sig.Quantity)
	s.metrics.autoOrder(err)
	if err != nil {
		s.logger.ErrorContext(ctx, "auto-order dispatch failed",
			slog.String("supplier_id", sig.SupplierID),
			slog.String("item_id", sig.ItemID),
			slog.Int("quantity", sig.Quantity),
			slog.Any("error", err))
	}
}

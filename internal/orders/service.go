package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockroom/internal/shared"
	"github.com/odyssey-erp/stockroom/internal/storage"
)

// DocumentStore is the subset of storage.Store the service needs.
type DocumentStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Update(ctx context.Context, key string, fn storage.UpdateFunc) error
}

// CatalogSupplier carries the supplier terms used when placing orders.
type CatalogSupplier struct {
	ID           string
	Name         string
	LeadTimeDays int
}

// CatalogItem carries the item details copied onto order lines.
type CatalogItem struct {
	ID         string
	Name       string
	SupplierID string
	UnitCost   float64
	OnHandQty  int
}

// Catalog resolves suppliers and items.
type Catalog interface {
	Supplier(ctx context.Context, id string) (CatalogSupplier, error)
	Item(ctx context.Context, id string) (CatalogItem, error)
}

// Notifier is told about auto-orders after they are saved.
type Notifier interface {
	Notify(ctx context.Context, event string, order Order) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	Key    string
	Logger *slog.Logger
	Now    func() time.Time
}

// Service manages the order book.
type Service struct {
	store    DocumentStore
	catalog  Catalog
	notifier Notifier
	audit    AuditPort
	key      string
	logger   *slog.Logger
	now      func() time.Time
	validate *validator.Validate
}

// NewService builds Service. notifier and audit may be nil.
func NewService(store DocumentStore, catalog Catalog, notifier Notifier, audit AuditPort, cfg ServiceConfig) *Service {
	if cfg.Key == "" {
		cfg.Key = "stockroom:orders"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:    store,
		catalog:  catalog,
		notifier: notifier,
		audit:    audit,
		key:      cfg.Key,
		logger:   cfg.Logger.With(slog.String("component", "orders")),
		now:      cfg.Now,
		validate: validator.New(),
	}
}

// AutoOrder satisfies inventory.AutoOrderTrigger.
func (s *Service) AutoOrder(ctx context.Context, supplierID, itemID string, quantity int) error {
	_, err := s.Trigger(ctx, supplierID, itemID, quantity)
	return err
}

// Trigger records a reorder signal on the supplier's pending auto-order,
// creating one when none is open. A repeated signal for the same item
// replaces the line quantity since it carries the current shortfall.
func (s *Service) Trigger(ctx context.Context, supplierID, itemID string, quantity int) (Order, error) {
	if quantity <= 0 {
		return Order{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	sup, err := s.catalog.Supplier(ctx, supplierID)
	if err != nil {
		return Order{}, err
	}
	item, err := s.catalog.Item(ctx, itemID)
	if err != nil {
		return Order{}, err
	}
	if item.SupplierID != sup.ID {
		return Order{}, fmt.Errorf("%w: item %q is not supplied by %q", ErrInvalidOrder, itemID, supplierID)
	}
	priority := PriorityMedium
	if item.OnHandQty <= 0 {
		priority = PriorityHigh
	}
	line := Line{ItemID: item.ID, ItemName: item.Name, Quantity: quantity, UnitCost: decimal.NewFromFloat(item.UnitCost)}

	var out Order
	err = s.mutate(ctx, func(doc *document) error {
		now := s.now().UTC()
		for i := range doc.Orders {
			o := &doc.Orders[i]
			if !o.AutoOrder || o.Status != StatusPending || o.SupplierID != sup.ID {
				continue
			}
			if idx := o.lineIndex(item.ID); idx >= 0 {
				o.Lines[idx] = line
			} else {
				o.Lines = append(o.Lines, line)
			}
			if priority.rank() > o.Priority.rank() {
				o.Priority = priority
			}
			o.UpdatedAt = now
			o.recalculate()
			out = *o
			return nil
		}
		out = Order{
			ID:               uuid.NewString(),
			SupplierID:       sup.ID,
			Lines:            []Line{line},
			Status:           StatusPending,
			Priority:         priority,
			AutoOrder:        true,
			CreatedAt:        now,
			UpdatedAt:        now,
			ExpectedDelivery: now.AddDate(0, 0, sup.LeadTimeDays),
		}
		out.recalculate()
		doc.Orders = append(doc.Orders, out)
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.record(ctx, "orders.auto", out.ID, map[string]any{"item_id": itemID, "quantity": quantity})
	s.notify(ctx, "order.auto_updated", out)
	return out, nil
}

// LineInput is one requested line on a manual order.
type LineInput struct {
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

// CreateInput describes a manual order.
type CreateInput struct {
	SupplierID string      `json:"supplierId" validate:"required"`
	Lines      []LineInput `json:"lines" validate:"required,min=1,dive"`
	Priority   Priority    `json:"priority" validate:"omitempty,oneof=low medium high"`
	Notes      string      `json:"notes"`
}

// Create places a manual order.
func (s *Service) Create(ctx context.Context, in CreateInput) (Order, error) {
	if err := s.validate.Struct(in); err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	sup, err := s.catalog.Supplier(ctx, in.SupplierID)
	if err != nil {
		return Order{}, err
	}
	now := s.now().UTC()
	order := Order{
		ID:               uuid.NewString(),
		SupplierID:       sup.ID,
		Status:           StatusPending,
		Priority:         in.Priority,
		Notes:            strings.TrimSpace(in.Notes),
		CreatedAt:        now,
		UpdatedAt:        now,
		ExpectedDelivery: now.AddDate(0, 0, sup.LeadTimeDays),
	}
	if order.Priority == "" {
		order.Priority = PriorityMedium
	}
	for _, li := range in.Lines {
		item, err := s.catalog.Item(ctx, li.ItemID)
		if err != nil {
			return Order{}, err
		}
		if item.SupplierID != sup.ID {
			return Order{}, fmt.Errorf("%w: item %q is not supplied by %q", ErrInvalidOrder, li.ItemID, sup.ID)
		}
		if idx := order.lineIndex(item.ID); idx >= 0 {
			order.Lines[idx].Quantity += li.Quantity
			continue
		}
		order.Lines = append(order.Lines, Line{ItemID: item.ID, ItemName: item.Name, Quantity: li.Quantity, UnitCost: decimal.NewFromFloat(item.UnitCost)})
	}
	order.recalculate()
	if err := s.mutate(ctx, func(doc *document) error {
		doc.Orders = append(doc.Orders, order)
		return nil
	}); err != nil {
		return Order{}, err
	}
	s.record(ctx, "orders.create", order.ID, map[string]any{"supplier_id": sup.ID})
	return order, nil
}

// ListFilter narrows List. Zero values do not filter.
type ListFilter struct {
	Status     Status
	SupplierID string
	Page       int
	PerPage    int
}

// List returns orders newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, shared.Pagination, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	matched := make([]Order, 0, len(doc.Orders))
	for _, o := range doc.Orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.SupplierID != "" && o.SupplierID != f.SupplierID {
			continue
		}
		matched = append(matched, o)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	page := shared.NewPagination(f.Page, f.PerPage, len(matched))
	start, end := page.Bounds()
	return matched[start:end], page, nil
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return Order{}, err
	}
	for _, o := range doc.Orders {
		if o.ID == id {
			return o, nil
		}
	}
	return Order{}, fmt.Errorf("%w: %q", ErrOrderNotFound, id)
}

// UpdateStatus moves an order along its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id string, next Status) (Order, error) {
	if !next.Valid() {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, next)
	}
	var out Order
	err := s.mutate(ctx, func(doc *document) error {
		for i := range doc.Orders {
			o := &doc.Orders[i]
			if o.ID != id {
				continue
			}
			if !o.Status.CanTransition(next) {
				return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, next)
			}
			o.Status = next
			o.UpdatedAt = s.now().UTC()
			out = *o
			return nil
		}
		return fmt.Errorf("%w: %q", ErrOrderNotFound, id)
	})
	if err != nil {
		return Order{}, err
	}
	s.record(ctx, "orders.status", id, map[string]any{"status": string(next)})
	return out, nil
}

func (s *Service) load(ctx context.Context) (document, error) {
	data, err := s.store.Get(ctx, s.key)
	if errors.Is(err, shared.ErrNotFound) {
		return document{}, nil
	}
	if err != nil {
		return document{}, err
	}
	return decodeDocument(data)
}

func (s *Service) mutate(ctx context.Context, fn func(*document) error) error {
	return s.store.Update(ctx, s.key, func(current []byte) ([]byte, error) {
		doc, err := decodeDocument(current)
		if err != nil {
			return nil, err
		}
		if err := fn(&doc); err != nil {
			return nil, err
		}
		return json.Marshal(doc)
	})
}

func decodeDocument(data []byte) (document, error) {
	var doc document
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("orders: decode order book: %w", err)
	}
	return doc, nil
}

func (s *Service) record(ctx context.Context, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "order", EntityID: id, Meta: meta, At: s.now()}); err != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) notify(ctx context.Context, event string, order Order) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, order); err != nil {
		s.logger.WarnContext(ctx, "order webhook failed", slog.String("order_id", order.ID), slog.Any("error", err))
	}
}

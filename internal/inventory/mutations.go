package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item fields accepted by UpdateItem.
const (
	FieldName          = "name"
	FieldSupplierID    = "supplierId"
	FieldUOM           = "uom"
	FieldOnHandQty     = "onHandQty"
	FieldOrderQuantity = "orderQuantity"
	FieldCaseQty       = "caseQty"
	FieldToBuild       = "toBuild"
	FieldUnitCost      = "unitCost"
	FieldCasePrice     = "casePrice"
	FieldFixCount      = "fixCount"
)

// NewItem describes an item to append to the inventory.
type NewItem struct {
	ID         string
	SupplierID string
	Name       string
	At         time.Time
}

// ItemChange is the outcome of an item mutation. Reorder is set when the
// change left the item below its fix count.
type ItemChange struct {
	Item    Item
	Reorder *ReorderSignal
}

// AddItem appends a zeroed item owned by an existing supplier.
func (s *Snapshot) AddItem(in NewItem) (*Snapshot, Item, error) {
	if _, ok := s.suppliers[in.SupplierID]; !ok {
		return s, Item{}, fmt.Errorf("%w: %q", ErrSupplierNotFound, in.SupplierID)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return s, Item{}, ErrNameRequired
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	if s.itemIndex(id) >= 0 {
		id = uuid.NewString()
	}
	item := Item{
		ID:          id,
		Name:        name,
		SupplierID:  in.SupplierID,
		UOM:         DefaultUOM,
		CaseQty:     1,
		LastUpdated: stamp(in.At),
	}
	items := make([]Item, len(s.items), len(s.items)+1)
	copy(items, s.items)
	items = append(items, item)
	return s.next(s.cloneSuppliers(), items), item, nil
}

// UpdateItem sets one field on an item. Quantity fields are coerced to
// non-negative integers and amounts to non-negative numbers; anything that
// does not parse becomes 0. Setting onHandQty recomputes orderQuantity from
// the fix count.
func (s *Snapshot) UpdateItem(itemID, field string, value any, at time.Time) (*Snapshot, ItemChange, error) {
	idx := s.itemIndex(itemID)
	if idx < 0 {
		return s, ItemChange{}, fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	item := s.items[idx]
	var reorder bool
	switch field {
	case FieldName:
		name := strings.TrimSpace(coerceString(value))
		if name == "" {
			return s, ItemChange{}, ErrNameRequired
		}
		item.Name = name
	case FieldSupplierID:
		supplierID := strings.TrimSpace(coerceString(value))
		if _, ok := s.suppliers[supplierID]; !ok {
			return s, ItemChange{}, fmt.Errorf("%w: %q", ErrSupplierNotFound, supplierID)
		}
		item.SupplierID = supplierID
	case FieldUOM:
		item.UOM = strings.TrimSpace(coerceString(value))
		if item.UOM == "" {
			item.UOM = DefaultUOM
		}
	case FieldOnHandQty:
		item.OnHandQty = coerceCount(value)
		item.OrderQuantity = ReorderQuantity(item.FixCount, item.OnHandQty)
		reorder = true
	case FieldOrderQuantity:
		item.OrderQuantity = coerceCount(value)
	case FieldCaseQty:
		item.CaseQty = max(coerceCount(value), 1)
	case FieldToBuild:
		item.ToBuild = coerceCount(value)
	case FieldUnitCost:
		item.Pricing.UnitCost = coerceAmount(value)
	case FieldCasePrice:
		item.Pricing.CasePrice = coerceAmount(value)
	case FieldFixCount:
		return s, ItemChange{}, fmt.Errorf("%w: %s", ErrReadOnlyField, field)
	default:
		return s, ItemChange{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	item.LastUpdated = stamp(at)
	next := s.withItem(idx, item)
	change := ItemChange{Item: item}
	if reorder {
		change.Reorder = reorderSignal(item)
	}
	return next, change, nil
}

// SetFixCount changes an item's par level and recomputes its order quantity
// against the current on-hand count.
func (s *Snapshot) SetFixCount(itemID string, fixCount int, at time.Time) (*Snapshot, ItemChange, error) {
	idx := s.itemIndex(itemID)
	if idx < 0 {
		return s, ItemChange{}, fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	item := s.items[idx]
	item.FixCount = max(fixCount, 0)
	item.OrderQuantity = ReorderQuantity(item.FixCount, item.OnHandQty)
	item.LastUpdated = stamp(at)
	return s.withItem(idx, item), ItemChange{Item: item, Reorder: reorderSignal(item)}, nil
}

// DeleteItem removes an item.
func (s *Snapshot) DeleteItem(itemID string) (*Snapshot, error) {
	idx := s.itemIndex(itemID)
	if idx < 0 {
		return s, fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	items := make([]Item, 0, len(s.items)-1)
	items = append(items, s.items[:idx]...)
	items = append(items, s.items[idx+1:]...)
	return s.next(s.cloneSuppliers(), items), nil
}

// AddSupplier registers a new supplier. An empty id is generated.
func (s *Snapshot) AddSupplier(id string, rec Supplier, at time.Time) (*Snapshot, Supplier, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = strings.TrimSpace(rec.ID)
	}
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := s.suppliers[id]; exists {
		return s, Supplier{}, fmt.Errorf("%w: %q", ErrSupplierExists, id)
	}
	rec.ID = id
	rec = tidySupplier(rec)
	if err := validateSupplier(rec); err != nil {
		return s, Supplier{}, err
	}
	now := stamp(at)
	rec.CreatedAt = now
	rec.UpdatedAt = now
	suppliers := s.cloneSuppliers()
	suppliers[id] = rec
	return s.next(suppliers, s.Items()), cloneSupplier(rec), nil
}

// UpdateSupplier replaces a supplier's mutable fields. The id and creation
// time are kept from the stored record.
func (s *Snapshot) UpdateSupplier(id string, rec Supplier, at time.Time) (*Snapshot, Supplier, error) {
	current, ok := s.suppliers[id]
	if !ok {
		return s, Supplier{}, fmt.Errorf("%w: %q", ErrSupplierNotFound, id)
	}
	rec.ID = id
	rec = tidySupplier(rec)
	if err := validateSupplier(rec); err != nil {
		return s, Supplier{}, err
	}
	rec.CreatedAt = current.CreatedAt
	rec.UpdatedAt = stamp(at)
	suppliers := s.cloneSuppliers()
	suppliers[id] = rec
	return s.next(suppliers, s.Items()), cloneSupplier(rec), nil
}

// DeleteSupplier removes a supplier and every item it owns. It returns the
// number of items removed.
func (s *Snapshot) DeleteSupplier(id string) (*Snapshot, int, error) {
	if _, ok := s.suppliers[id]; !ok {
		return s, 0, fmt.Errorf("%w: %q", ErrSupplierNotFound, id)
	}
	suppliers := s.cloneSuppliers()
	delete(suppliers, id)
	items := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		if item.SupplierID != id {
			items = append(items, item)
		}
	}
	return s.next(suppliers, items), len(s.items) - len(items), nil
}

func (s *Snapshot) withItem(idx int, item Item) *Snapshot {
	items := s.Items()
	items[idx] = item
	return s.next(s.cloneSuppliers(), items)
}

func stamp(at time.Time) time.Time {
	if at.IsZero() {
		at = time.Now()
	}
	return at.UTC()
}

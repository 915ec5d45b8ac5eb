package inventory

import (
	"sort"

	"github.com/google/uuid"
)

// Snapshot is an immutable view of the whole store. Mutations never touch a
// snapshot in place; they return a successor with Version+1 and a fresh
// Revision.
type Snapshot struct {
	version   uint64
	revision  string
	suppliers map[string]Supplier
	items     []Item
}

// NewSnapshot builds a first-generation snapshot from already normalised
// records. Callers loading external data should use Normalize instead.
func NewSnapshot(suppliers map[string]Supplier, items []Item) *Snapshot {
	s := &Snapshot{
		revision:  uuid.NewString(),
		suppliers: make(map[string]Supplier, len(suppliers)),
		items:     make([]Item, len(items)),
	}
	for id, sup := range suppliers {
		s.suppliers[id] = cloneSupplier(sup)
	}
	copy(s.items, items)
	return s
}

// Version counts mutations since load.
func (s *Snapshot) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}

// Revision uniquely identifies this snapshot across processes.
func (s *Snapshot) Revision() string {
	if s == nil {
		return ""
	}
	return s.revision
}

// Supplier looks up a supplier by id.
func (s *Snapshot) Supplier(id string) (Supplier, bool) {
	if s == nil {
		return Supplier{}, false
	}
	sup, ok := s.suppliers[id]
	if !ok {
		return Supplier{}, false
	}
	return cloneSupplier(sup), true
}

// Suppliers returns all suppliers ordered by name then id.
func (s *Snapshot) Suppliers() []Supplier {
	if s == nil {
		return nil
	}
	out := make([]Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		out = append(out, cloneSupplier(sup))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SupplierCount returns the number of suppliers.
func (s *Snapshot) SupplierCount() int {
	if s == nil {
		return 0
	}
	return len(s.suppliers)
}

// Item looks up an item by id.
func (s *Snapshot) Item(id string) (Item, bool) {
	if idx := s.itemIndex(id); idx >= 0 {
		return s.items[idx], true
	}
	return Item{}, false
}

// Items returns a copy of the inventory list in stored order.
func (s *Snapshot) Items() []Item {
	if s == nil {
		return nil
	}
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Document returns a deep copy in persisted layout.
func (s *Snapshot) Document() Document {
	doc := Document{Suppliers: map[string]Supplier{}, Inventory: []Item{}}
	if s == nil {
		return doc
	}
	for id, sup := range s.suppliers {
		doc.Suppliers[id] = cloneSupplier(sup)
	}
	doc.Inventory = s.Items()
	return doc
}

func (s *Snapshot) itemIndex(id string) int {
	if s == nil || id == "" {
		return -1
	}
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// next builds the successor snapshot. Ownership of both arguments moves to
// the new snapshot.
func (s *Snapshot) next(suppliers map[string]Supplier, items []Item) *Snapshot {
	return &Snapshot{
		version:   s.Version() + 1,
		revision:  uuid.NewString(),
		suppliers: suppliers,
		items:     items,
	}
}

func (s *Snapshot) cloneSuppliers() map[string]Supplier {
	out := make(map[string]Supplier, len(s.suppliers))
	for id, sup := range s.suppliers {
		out[id] = sup
	}
	return out
}

func cloneSupplier(s Supplier) Supplier {
	if s.Business.DeliveryDays != nil {
		days := make([]string, len(s.Business.DeliveryDays))
		copy(days, s.Business.DeliveryDays)
		s.Business.DeliveryDays = days
	}
	return s
}

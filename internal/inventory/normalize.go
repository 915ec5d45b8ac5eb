package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Diagnostic kinds reported by normalisation.
const (
	DiagMalformed   = "malformed"
	DiagMissingID   = "missing_id"
	DiagDuplicateID = "duplicate_id"
	DiagOrphan      = "orphan"
	DiagClamped     = "clamped"
)

// Diagnostic describes one record that was repaired or quarantined while
// loading a document.
type Diagnostic struct {
	Kind    string `json:"kind"`
	Entity  string `json:"entity"`
	ID      string `json:"id,omitempty"`
	Index   int    `json:"index"`
	Detail  string `json:"detail,omitempty"`
	Dropped bool   `json:"dropped"`
}

func (d Diagnostic) String() string {
	action := "kept"
	if d.Dropped {
		action = "dropped"
	}
	return fmt.Sprintf("%s %s[%d] id=%q %s: %s", action, d.Entity, d.Index, d.ID, d.Kind, d.Detail)
}

// ErrMalformedDocument is returned when the payload is not a JSON object.
var ErrMalformedDocument = errors.New("inventory: malformed document")

type rawDocument struct {
	Suppliers map[string]json.RawMessage `json:"suppliers"`
	Inventory []json.RawMessage          `json:"inventory"`
}

// rawSupplier and rawItem accept stored records loosely: numbers may arrive
// as strings or fractions and timestamps as RFC 3339 or bare dates.
type rawSupplier struct {
	Name     string         `json:"name"`
	Contact  Contact        `json:"contact"`
	Status   SupplierStatus `json:"status"`
	Business struct {
		LeadTimeDays any      `json:"leadTimeDays"`
		MinimumOrder any      `json:"minimumOrder"`
		PaymentTerms string   `json:"paymentTerms"`
		DeliveryDays []string `json:"deliveryDays"`
		Notes        string   `json:"notes"`
	} `json:"business"`
	CreatedAt any `json:"createdAt"`
	UpdatedAt any `json:"updatedAt"`
}

type rawItem struct {
	ID            any `json:"id"`
	Name          any `json:"name"`
	SupplierID    any `json:"supplierId"`
	OnHandQty     any `json:"onHandQty"`
	OrderQuantity any `json:"orderQuantity"`
	UOM           any `json:"uom"`
	CaseQty       any `json:"caseQty"`
	FixCount      any `json:"fixCount"`
	ToBuild       any `json:"toBuild"`
	Pricing       struct {
		UnitCost  any `json:"unitCost"`
		CasePrice any `json:"casePrice"`
	} `json:"pricing"`
	LastUpdated any `json:"lastUpdated"`
}

func decodeRecord(msg json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	return dec.Decode(v)
}

// fieldReader converts loose values and remembers which fields it had to
// replace with zero or truncate.
type fieldReader struct {
	fixed []string
}

func (r *fieldReader) count(name string, v any) int {
	f, ok := looseNumber(v)
	whole := math.Trunc(f)
	if !ok || whole != f || math.Abs(whole) > math.MaxInt32 {
		r.fixed = append(r.fixed, name)
	}
	// sign survives so normalisation can report negatives
	return int(max(min(whole, math.MaxInt32), -math.MaxInt32))
}

func (r *fieldReader) amount(name string, v any) float64 {
	f, ok := looseNumber(v)
	if !ok {
		r.fixed = append(r.fixed, name)
	}
	return f
}

func (r *fieldReader) timestamp(name string, v any) time.Time {
	t, ok := looseTime(v)
	if !ok {
		r.fixed = append(r.fixed, name)
	}
	return t
}

func (rec rawSupplier) supplier() (Supplier, []string) {
	var r fieldReader
	sup := Supplier{
		Name:    rec.Name,
		Contact: rec.Contact,
		Status:  rec.Status,
		Business: BusinessInfo{
			LeadTimeDays: r.count("business.leadTimeDays", rec.Business.LeadTimeDays),
			MinimumOrder: r.amount("business.minimumOrder", rec.Business.MinimumOrder),
			PaymentTerms: rec.Business.PaymentTerms,
			DeliveryDays: rec.Business.DeliveryDays,
			Notes:        rec.Business.Notes,
		},
		CreatedAt: r.timestamp("createdAt", rec.CreatedAt),
		UpdatedAt: r.timestamp("updatedAt", rec.UpdatedAt),
	}
	return sup, r.fixed
}

func (rec rawItem) item() (Item, []string) {
	var r fieldReader
	item := Item{
		ID:            coerceString(rec.ID),
		Name:          coerceString(rec.Name),
		SupplierID:    coerceString(rec.SupplierID),
		OnHandQty:     r.count("onHandQty", rec.OnHandQty),
		OrderQuantity: r.count("orderQuantity", rec.OrderQuantity),
		UOM:           coerceString(rec.UOM),
		CaseQty:       r.count("caseQty", rec.CaseQty),
		FixCount:      r.count("fixCount", rec.FixCount),
		ToBuild:       r.count("toBuild", rec.ToBuild),
		Pricing: Pricing{
			UnitCost:  r.amount("pricing.unitCost", rec.Pricing.UnitCost),
			CasePrice: r.amount("pricing.casePrice", rec.Pricing.CasePrice),
		},
		LastUpdated: r.timestamp("lastUpdated", rec.LastUpdated),
	}
	return item, r.fixed
}

// DecodeDocument parses a persisted document record by record so one bad
// entry does not discard the rest.
func DecodeDocument(data []byte) (*Snapshot, []Diagnostic, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if raw.Suppliers == nil && raw.Inventory == nil {
		return nil, nil, fmt.Errorf("%w: no suppliers or inventory", ErrMalformedDocument)
	}

	var diags []Diagnostic
	doc := Document{Suppliers: make(map[string]Supplier, len(raw.Suppliers))}
	keys := make([]string, 0, len(raw.Suppliers))
	for k := range raw.Suppliers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, key := range keys {
		var rec rawSupplier
		if err := decodeRecord(raw.Suppliers[key], &rec); err != nil {
			diags = append(diags, Diagnostic{Kind: DiagMalformed, Entity: "supplier", ID: key, Index: i, Detail: err.Error(), Dropped: true})
			continue
		}
		sup, fixed := rec.supplier()
		if len(fixed) > 0 {
			diags = append(diags, Diagnostic{Kind: DiagClamped, Entity: "supplier", ID: key, Index: i, Detail: "unreadable " + strings.Join(fixed, ", ")})
		}
		doc.Suppliers[key] = sup
	}
	for i, msg := range raw.Inventory {
		var rec rawItem
		if err := decodeRecord(msg, &rec); err != nil {
			diags = append(diags, Diagnostic{Kind: DiagMalformed, Entity: "item", Index: i, Detail: err.Error(), Dropped: true})
			// keep index alignment for later diagnostics
			doc.Inventory = append(doc.Inventory, Item{})
			continue
		}
		item, fixed := rec.item()
		if len(fixed) > 0 {
			diags = append(diags, Diagnostic{Kind: DiagClamped, Entity: "item", ID: item.ID, Index: i, Detail: "unreadable " + strings.Join(fixed, ", ")})
		}
		doc.Inventory = append(doc.Inventory, item)
	}
	snap, more := normalize(doc, malformedIndexes(diags))
	return snap, append(diags, more...), nil
}

// Normalize applies defaults and quarantines records that would break
// derivation: blank or duplicate ids are dropped, negative numbers clamp to
// zero, orphans are kept and reported.
func Normalize(doc Document) (*Snapshot, []Diagnostic) {
	return normalize(doc, nil)
}

func normalize(doc Document, skip map[int]bool) (*Snapshot, []Diagnostic) {
	var diags []Diagnostic
	suppliers := make(map[string]Supplier, len(doc.Suppliers))
	keys := make([]string, 0, len(doc.Suppliers))
	for k := range doc.Suppliers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, key := range keys {
		id := strings.TrimSpace(key)
		if id == "" {
			diags = append(diags, Diagnostic{Kind: DiagMissingID, Entity: "supplier", Index: i, Detail: "empty map key", Dropped: true})
			continue
		}
		sup := doc.Suppliers[key]
		sup.ID = id
		if sup.Status == "" {
			sup.Status = SupplierActive
		}
		if sup.Business.LeadTimeDays < 0 || sup.Business.MinimumOrder < 0 {
			sup.Business.LeadTimeDays = max(sup.Business.LeadTimeDays, 0)
			sup.Business.MinimumOrder = max(sup.Business.MinimumOrder, 0)
			diags = append(diags, Diagnostic{Kind: DiagClamped, Entity: "supplier", ID: id, Index: i, Detail: "negative business terms"})
		}
		suppliers[id] = cloneSupplier(sup)
	}

	items := make([]Item, 0, len(doc.Inventory))
	seen := make(map[string]bool, len(doc.Inventory))
	for i, item := range doc.Inventory {
		if skip[i] {
			continue
		}
		item.ID = strings.TrimSpace(item.ID)
		switch {
		case item.ID == "":
			diags = append(diags, Diagnostic{Kind: DiagMissingID, Entity: "item", Index: i, Detail: item.Name, Dropped: true})
			continue
		case seen[item.ID]:
			diags = append(diags, Diagnostic{Kind: DiagDuplicateID, Entity: "item", ID: item.ID, Index: i, Detail: item.Name, Dropped: true})
			continue
		}
		seen[item.ID] = true
		if clampItem(&item) {
			diags = append(diags, Diagnostic{Kind: DiagClamped, Entity: "item", ID: item.ID, Index: i, Detail: "negative quantity or price"})
		}
		if strings.TrimSpace(item.UOM) == "" {
			item.UOM = DefaultUOM
		}
		if item.CaseQty < 1 {
			item.CaseQty = 1
		}
		if _, ok := suppliers[item.SupplierID]; !ok {
			diags = append(diags, Diagnostic{Kind: DiagOrphan, Entity: "item", ID: item.ID, Index: i, Detail: "supplier " + item.SupplierID})
		}
		items = append(items, item)
	}
	return NewSnapshot(suppliers, items), diags
}

func clampItem(item *Item) bool {
	var changed bool
	for _, p := range []*int{&item.OnHandQty, &item.OrderQuantity, &item.FixCount, &item.ToBuild} {
		if *p < 0 {
			*p = 0
			changed = true
		}
	}
	for _, p := range []*float64{&item.Pricing.UnitCost, &item.Pricing.CasePrice} {
		if *p < 0 {
			*p = 0
			changed = true
		}
	}
	return changed
}

func malformedIndexes(diags []Diagnostic) map[int]bool {
	out := make(map[int]bool)
	for _, d := range diags {
		if d.Entity == "item" && d.Kind == DiagMalformed {
			out[d.Index] = true
		}
	}
	return out
}

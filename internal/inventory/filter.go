package inventory

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Criteria narrows the inventory view. Empty lists do not filter.
type Criteria struct {
	Query        string        `json:"query,omitempty"`
	Suppliers    []string      `json:"suppliers,omitempty"`
	Statuses     []StockStatus `json:"statuses,omitempty"`
	UOMs         []string      `json:"uoms,omitempty"`
	UpdatedSince time.Time     `json:"updatedSince,omitzero"`
}

// Validate rejects statuses the classifier never produces.
func (c Criteria) Validate() error {
	for _, st := range c.Statuses {
		if !st.Valid() {
			return fmt.Errorf("%w: status %q", ErrInvalidCriteria, st)
		}
	}
	return nil
}

// IsZero reports whether the criteria filter nothing.
func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.Query) == "" && len(c.Suppliers) == 0 &&
		len(c.Statuses) == 0 && len(c.UOMs) == 0 && c.UpdatedSince.IsZero()
}

// Key is a stable identifier for the criteria, used for cache keys.
func (c Criteria) Key() string {
	statuses := make([]string, len(c.Statuses))
	for i, st := range c.Statuses {
		statuses[i] = string(st)
	}
	var since string
	if !c.UpdatedSince.IsZero() {
		since = c.UpdatedSince.UTC().Format(time.RFC3339)
	}
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(c.Query)),
		joinSorted(c.Suppliers),
		joinSorted(statuses),
		joinSorted(c.UOMs),
		since,
	}, "|")
}

// Filter runs the search pipeline over a snapshot: text search, supplier,
// status and unit allowlists, the updated-since cut-off, then grouping.
func Filter(s *Snapshot, c Criteria) GroupedView {
	if s == nil {
		return GroupedView{Groups: []Group{}}
	}
	lower := cases.Lower(language.Und)
	query := lower.String(strings.TrimSpace(c.Query))

	kept := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		sup, ok := s.suppliers[item.SupplierID]
		if !ok {
			continue
		}
		if query != "" &&
			!strings.Contains(lower.String(item.Name), query) &&
			!strings.Contains(lower.String(sup.Name), query) &&
			!strings.Contains(lower.String(item.Unit()), query) {
			continue
		}
		if len(c.Suppliers) > 0 && !slices.Contains(c.Suppliers, sup.Name) {
			continue
		}
		if len(c.Statuses) > 0 && !slices.Contains(c.Statuses, item.Status()) {
			continue
		}
		if len(c.UOMs) > 0 && !slices.Contains(c.UOMs, item.Unit()) {
			continue
		}
		if !c.UpdatedSince.IsZero() && item.LastUpdated.Before(c.UpdatedSince) {
			continue
		}
		kept = append(kept, item)
	}
	return GroupBySupplier(kept, s.suppliers)
}

func joinSorted(values []string) string {
	if len(values) == 0 {
		return ""
	}
	cp := slices.Clone(values)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}

package inventory

// Group holds the items of every supplier sharing one display name.
type Group struct {
	Supplier string `json:"supplier"`
	Items    []Item `json:"items"`
}

// GroupedView is an ordered list of supplier groups. Group order follows the
// first item encountered for each supplier name.
type GroupedView struct {
	Groups []Group `json:"groups"`
}

// Items flattens the view in group order.
func (v GroupedView) Items() []Item {
	var n int
	for _, g := range v.Groups {
		n += len(g.Items)
	}
	out := make([]Item, 0, n)
	for _, g := range v.Groups {
		out = append(out, g.Items...)
	}
	return out
}

// Len returns the number of items across all groups.
func (v GroupedView) Len() int {
	var n int
	for _, g := range v.Groups {
		n += len(g.Items)
	}
	return n
}

// GroupBySupplier partitions items by resolved supplier name. Items whose
// supplier is missing are dropped.
func GroupBySupplier(items []Item, suppliers map[string]Supplier) GroupedView {
	view := GroupedView{Groups: []Group{}}
	index := make(map[string]int)
	for _, item := range items {
		sup, ok := suppliers[item.SupplierID]
		if !ok {
			continue
		}
		pos, seen := index[sup.Name]
		if !seen {
			pos = len(view.Groups)
			index[sup.Name] = pos
			view.Groups = append(view.Groups, Group{Supplier: sup.Name})
		}
		view.Groups[pos].Items = append(view.Groups[pos].Items, item)
	}
	return view
}

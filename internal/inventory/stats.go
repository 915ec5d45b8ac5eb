package inventory

// Stats summarises a grouped view.
type Stats struct {
	Suppliers  int `json:"suppliers"`
	Items      int `json:"items"`
	OnHand     int `json:"onHand"`
	ToOrder    int `json:"toOrder"`
	ToBuild    int `json:"toBuild"`
	LowStock   int `json:"lowStock"`
	OutOfStock int `json:"outOfStock"`
}

// ComputeStats totals a view. An empty view yields all zeros.
func ComputeStats(view GroupedView) Stats {
	st := Stats{Suppliers: len(view.Groups)}
	for _, g := range view.Groups {
		for _, item := range g.Items {
			st.Items++
			st.OnHand += item.OnHandQty
			st.ToOrder += item.OrderQuantity
			st.ToBuild += item.ToBuild
			switch item.Status() {
			case StatusLow:
				st.LowStock++
			case StatusOut:
				st.OutOfStock++
			}
		}
	}
	return st
}

package inventory

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the inventory collectors. A nil *Metrics is a no-op.
type Metrics struct {
	mutations   *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	autoOrders  *prometheus.CounterVec
	persistErrs prometheus.Counter
	stockLevels *prometheus.GaugeVec
}

// NewMetrics registers inventory collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockroom_inventory_mutations_total",
			Help: "Inventory mutations by operation and result.",
		}, []string{"op", "result"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockroom_inventory_load_diagnostics_total",
			Help: "Records repaired or quarantined while loading the store.",
		}, []string{"kind"}),
		autoOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockroom_auto_order_triggers_total",
			Help: "Auto-order dispatches by result.",
		}, []string{"result"}),
		persistErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockroom_inventory_persist_failures_total",
			Help: "Snapshots that could not be written to the store.",
		}),
		stockLevels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stockroom_inventory_items",
			Help: "Items per stock status at the last scan.",
		}, []string{"status"}),
	}
	registerer.MustRegister(m.mutations, m.diagnostics, m.autoOrders, m.persistErrs, m.stockLevels)
	return m
}

func (m *Metrics) mutation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.mutations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) diagnosed(diags []Diagnostic) {
	if m == nil {
		return
	}
	for _, d := range diags {
		m.diagnostics.WithLabelValues(d.Kind).Inc()
	}
}

func (m *Metrics) autoOrder(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.autoOrders.WithLabelValues(result).Inc()
}

func (m *Metrics) persistFailed() {
	if m == nil {
		return
	}
	m.persistErrs.Inc()
}

// ObserveLevels records the per-status item counts of a snapshot.
func (m *Metrics) ObserveLevels(counts map[StockStatus]int) {
	if m == nil {
		return
	}
	for _, st := range StockStatuses {
		m.stockLevels.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
}

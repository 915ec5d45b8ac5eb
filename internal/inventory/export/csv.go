// Package export renders inventory views as downloadable files.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/odyssey-erp/stockroom/internal/inventory"
)

var header = []string{
	"Supplier", "Item ID", "Item", "Status", "On Hand", "Fix Count", "To Order",
	"To Build", "UOM", "Case Qty", "Unit Cost", "Case Price", "Last Updated",
}

// WriteViewCSV emits one row per item in group order.
func WriteViewCSV(w io.Writer, view inventory.GroupedView) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, g := range view.Groups {
		for _, item := range g.Items {
			if err := writer.Write(row(g.Supplier, item)); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteStatsCSV prints the view totals as metric/value pairs.
func WriteStatsCSV(w io.Writer, stats inventory.Stats) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	records := [][]string{
		{"Metric", "Value"},
		{"Suppliers", strconv.Itoa(stats.Suppliers)},
		{"Items", strconv.Itoa(stats.Items)},
		{"On Hand", strconv.Itoa(stats.OnHand)},
		{"To Order", strconv.Itoa(stats.ToOrder)},
		{"To Build", strconv.Itoa(stats.ToBuild)},
		{"Low Stock", strconv.Itoa(stats.LowStock)},
		{"Out of Stock", strconv.Itoa(stats.OutOfStock)},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func row(supplier string, item inventory.Item) []string {
	updated := ""
	if !item.LastUpdated.IsZero() {
		updated = item.LastUpdated.UTC().Format("2006-01-02T15:04:05Z")
	}
	return []string{
		supplier,
		item.ID,
		item.Name,
		string(item.Status()),
		strconv.Itoa(item.OnHandQty),
		strconv.Itoa(item.FixCount),
		strconv.Itoa(item.OrderQuantity),
		strconv.Itoa(item.ToBuild),
		item.Unit(),
		strconv.Itoa(item.CaseQty),
		formatFloat(item.Pricing.UnitCost),
		formatFloat(item.Pricing.CasePrice),
		updated,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

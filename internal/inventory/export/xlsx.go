package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/stockroom/internal/inventory"
)

// Sheet names used by WriteViewXLSX.
const (
	SheetInventory = "Inventory"
	SheetSummary   = "Summary"
)

// WriteViewXLSX writes the view to a workbook with an item sheet and a
// summary sheet.
func WriteViewXLSX(w io.Writer, view inventory.GroupedView, stats inventory.Stats) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetInventory); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(SheetInventory, "A1", &headerRow); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}
	rowNum := 2
	for _, g := range view.Groups {
		for _, item := range g.Items {
			values := []interface{}{
				g.Supplier,
				item.ID,
				item.Name,
				string(item.Status()),
				item.OnHandQty,
				item.FixCount,
				item.OrderQuantity,
				item.ToBuild,
				item.Unit(),
				item.CaseQty,
				item.Pricing.UnitCost,
				item.Pricing.CasePrice,
				item.LastUpdated.UTC(),
			}
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return fmt.Errorf("export: cell: %w", err)
			}
			if err := f.SetSheetRow(SheetInventory, cell, &values); err != nil {
				return fmt.Errorf("export: row %d: %w", rowNum, err)
			}
			rowNum++
		}
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("export: summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Metric", "Value"},
		{"Suppliers", stats.Suppliers},
		{"Items", stats.Items},
		{"On Hand", stats.OnHand},
		{"To Order", stats.ToOrder},
		{"To Build", stats.ToBuild},
		{"Low Stock", stats.LowStock},
		{"Out of Stock", stats.OutOfStock},
	}
	for i, values := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("export: cell: %w", err)
		}
		if err := f.SetSheetRow(SheetSummary, cell, &values); err != nil {
			return fmt.Errorf("export: summary row: %w", err)
		}
	}
	return f.Write(w)
}

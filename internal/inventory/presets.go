package inventory

import (
	"fmt"
	"time"
)

// Quick filter names.
const (
	PresetLowStock        = "low-stock"
	PresetOutOfStock      = "out-of-stock"
	PresetInStock         = "in-stock"
	PresetClear           = "clear"
	PresetRecentlyUpdated = "recently-updated"
)

// Presets lists the supported quick filters.
var Presets = []string{PresetLowStock, PresetOutOfStock, PresetInStock, PresetClear, PresetRecentlyUpdated}

// ApplyPreset returns the criteria for a quick filter. Every preset clears
// the query, supplier and unit filters. Recently updated keeps items touched
// within window of now.
func ApplyPreset(name string, now time.Time, window time.Duration) (Criteria, error) {
	switch name {
	case PresetLowStock:
		return Criteria{Statuses: []StockStatus{StatusLow}}, nil
	case PresetOutOfStock:
		return Criteria{Statuses: []StockStatus{StatusOut}}, nil
	case PresetInStock:
		return Criteria{Statuses: []StockStatus{StatusLow, StatusMedium, StatusGood}}, nil
	case PresetClear, "":
		return Criteria{}, nil
	case PresetRecentlyUpdated:
		if window <= 0 {
			window = 24 * time.Hour
		}
		return Criteria{UpdatedSince: now.Add(-window).UTC()}, nil
	default:
		return Criteria{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
}

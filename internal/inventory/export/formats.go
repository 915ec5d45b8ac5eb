package export

import (
	"bytes"

	"github.com/odyssey-erp/stockroom/internal/inventory"
)

// Content types of the supported downloads.
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Formats returns the exporters served under /export.{format}.
func Formats() map[string]inventory.Exporter {
	return map[string]inventory.Exporter{
		"csv": {
			ContentType: ContentTypeCSV,
			Filename:    "inventory.csv",
			Render: func(buf *bytes.Buffer, view inventory.GroupedView, _ inventory.Stats) error {
				return WriteViewCSV(buf, view)
			},
		},
		"xlsx": {
			ContentType: ContentTypeXLSX,
			Filename:    "inventory.xlsx",
			Render:      func(buf *bytes.Buffer, view inventory.GroupedView, stats inventory.Stats) error { return WriteViewXLSX(buf, view, stats) },
		},
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/odyssey-erp/stockroom/internal/inventory"
)

// Exit codes of the check command.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitRepaired  = 10
	ExitDropped   = 11
)

// CheckOptions defines available flags for the check command.
type CheckOptions struct {
	Path       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// CheckSummary describes the JSON response for check.
type CheckSummary struct {
	OK          bool                   `json:"ok"`
	Suppliers   int                    `json:"suppliers"`
	Items       int                    `json:"items"`
	Stats       inventory.Stats        `json:"stats"`
	Dropped     int                    `json:"dropped"`
	Diagnostics []inventory.Diagnostic `json:"diagnostics"`
}

// CheckCommand loads a store document the way the service does and reports
// every record normalisation touched. Repaired records exit with 10, dropped
// records with 11.
func CheckCommand(opts CheckOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Path == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "check: --file is required")
		return ExitFailure
	}
	data, err := os.ReadFile(opts.Path)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "check: %v\n", err)
		return ExitFailure
	}
	snap, diags, err := inventory.DecodeDocument(data)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "check: %v\n", err)
		return ExitFailure
	}
	summary := buildCheckSummary(snap, diags)
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "check: encode json: %v\n", err)
			return ExitFailure
		}
	} else {
		renderCheckHuman(opts.Stdout, opts.Path, summary)
	}
	switch {
	case summary.Dropped > 0:
		return ExitDropped
	case len(summary.Diagnostics) > 0:
		return ExitRepaired
	default:
		return ExitOK
	}
}

func buildCheckSummary(snap *inventory.Snapshot, diags []inventory.Diagnostic) CheckSummary {
	sorted := make([]inventory.Diagnostic, len(diags))
	copy(sorted, diags)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Entity != sorted[j].Entity {
			return sorted[i].Entity > sorted[j].Entity
		}
		return sorted[i].Index < sorted[j].Index
	})
	dropped := 0
	for _, d := range sorted {
		if d.Dropped {
			dropped++
		}
	}
	view := inventory.Filter(snap, inventory.Criteria{})
	return CheckSummary{
		OK:          len(sorted) == 0,
		Suppliers:   snap.SupplierCount(),
		Items:       len(snap.Items()),
		Stats:       inventory.ComputeStats(view),
		Dropped:     dropped,
		Diagnostics: sorted,
	}
}

func renderCheckHuman(out io.Writer, path string, s CheckSummary) {
	_, _ = fmt.Fprintf(out, "%s: %d supplier(s), %d item(s)\n", path, s.Suppliers, s.Items)
	_, _ = fmt.Fprintf(out, "On hand %d, to order %d, low %d, out %d\n", s.Stats.OnHand, s.Stats.ToOrder, s.Stats.LowStock, s.Stats.OutOfStock)
	if s.OK {
		_, _ = fmt.Fprintln(out, "No records needed repair.")
		return
	}
	_, _ = fmt.Fprintf(out, "%d record(s) touched, %d dropped:\n", len(s.Diagnostics), s.Dropped)
	for _, d := range s.Diagnostics {
		_, _ = fmt.Fprintf(out, " - %s\n", d)
	}
}

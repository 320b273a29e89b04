package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"mspro-labs/flat-watch/internal/aggregate"
)

// PrintSummary renders the per block/flat type take-up as a table on w.
func PrintSummary(w io.Writer, s aggregate.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Block", "Flat type", "Booked", "Available", "Total", "Take-up"})
	for _, bt := range s.ByBlock {
		t.AppendRow(table.Row{bt.Block, bt.FlatType, bt.Booked, bt.Available(), bt.Total, bt.PercentString()})
	}
	t.AppendSeparator()
	for _, ft := range s.ByFlatType {
		t.AppendRow(table.Row{"all", ft.FlatType, ft.Booked, ft.Available(), ft.Total, ft.PercentString()})
	}

	status := "OK"
	if !s.Healthy {
		status = "MISMATCH"
	}
	t.AppendFooter(table.Row{"", "Health check", "", "", "", status})
	t.Render()

	if !s.Healthy {
		fmt.Fprintf(w, "Retrieved %s, expected %s\n", formatCounts(s.Retrieved), formatCounts(s.Expected))
	}
}

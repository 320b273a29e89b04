package scraper

import "fmt"

// PageStructureError means the availability page no longer has the layout
// the parser expects. A run hitting it must stop.
type PageStructureError struct {
	Block    string
	FlatType string
	Reason   string
}

func (e *PageStructureError) Error() string {
	if e.Block == "" && e.FlatType == "" {
		return fmt.Sprintf("unexpected page structure: %s", e.Reason)
	}
	return fmt.Sprintf("unexpected page structure for %s %s: %s", e.Block, e.FlatType, e.Reason)
}

// MalformedUnitError means one table cell matched neither known unit layout.
type MalformedUnitError struct {
	Block    string
	FlatType string
	Fragment string
	Reason   string
}

func (e *MalformedUnitError) Error() string {
	where := ""
	if e.Block != "" || e.FlatType != "" {
		where = fmt.Sprintf(" in %s %s", e.Block, e.FlatType)
	}
	return fmt.Sprintf("malformed unit%s: %s (fragment: %q)", where, e.Reason, e.Fragment)
}

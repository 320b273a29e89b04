// Package report writes the unit collection and its health check to disk.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mspro-labs/flat-watch/internal/aggregate"
	"mspro-labs/flat-watch/internal/models"
)

const (
	okMarker   = "###OK###"
	failMarker = "###FAIL###"
)

// Paths of the three files produced per run.
type Paths struct {
	JSON string
	CSV  string
	Log  string
}

// DefaultPaths returns <dir>/<name>.json, .csv and .log.
func DefaultPaths(dir, name string) Paths {
	base := filepath.Join(dir, name)
	return Paths{JSON: base + ".json", CSV: base + ".csv", Log: base + ".log"}
}

// unitJSON fixes the field order of a serialized unit to alphabetical.
type unitJSON struct {
	Block    string `json:"block"`
	Booked   bool   `json:"booked"`
	Cost     string `json:"cost"`
	FlatType string `json:"flat_type"`
	Floor    string `json:"floor"`
	Size     string `json:"size"`
	Stack    string `json:"stack"`
	UnitNo   string `json:"unit_no"`
}

type document struct {
	GeneratedAt string     `json:"generated_at"`
	Units       []unitJSON `json:"units"`
}

var csvHeader = []string{"block", "flat_type", "unit_no", "floor", "stack", "status", "size", "cost"}

// WriteAll writes the JSON, CSV and log reports. Units must already be sorted.
func WriteAll(p Paths, units []models.Unit, s aggregate.Summary, now time.Time) error {
	if err := WriteJSON(p.JSON, units, now); err != nil {
		return err
	}
	if err := WriteCSV(p.CSV, units); err != nil {
		return err
	}
	return WriteLog(p.Log, s, now)
}

func WriteJSON(path string, units []models.Unit, now time.Time) error {
	return writeFile(path, func(w io.Writer) error {
		return EncodeJSON(w, units, now)
	})
}

func EncodeJSON(w io.Writer, units []models.Unit, now time.Time) error {
	doc := document{
		GeneratedAt: now.Format(time.RFC3339),
		Units:       make([]unitJSON, len(units)),
	}
	for i, u := range units {
		doc.Units[i] = unitJSON{
			Block:    u.Block,
			Booked:   u.Booked,
			Cost:     u.Cost,
			FlatType: u.FlatType,
			Floor:    u.Floor,
			Size:     u.Size,
			Stack:    u.Stack,
			UnitNo:   u.UnitNo,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func WriteCSV(path string, units []models.Unit) error {
	return writeFile(path, func(w io.Writer) error {
		return EncodeCSV(w, units)
	})
}

func EncodeCSV(w io.Writer, units []models.Unit) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, u := range units {
		row := []string{u.Block, u.FlatType, u.UnitNo, u.Floor, u.Stack, u.Status(), u.Size, u.Cost}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteLog(path string, s aggregate.Summary, now time.Time) error {
	return writeFile(path, func(w io.Writer) error {
		return EncodeLog(w, s, now)
	})
}

// EncodeLog renders the health check. Take-up percentages are only written
// when the retrieved counts match the expected ones.
func EncodeLog(w io.Writer, s aggregate.Summary, now time.Time) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Time: %s\n", now.Format("2006-01-02 15:04:05 -07:00"))
	if s.Healthy {
		b.WriteString(okMarker + "\n")
	} else {
		b.WriteString(failMarker + "\n")
	}
	b.WriteString("Health check\n")
	fmt.Fprintf(&b, "\tRetrieved: %s\n", formatCounts(s.Retrieved))
	fmt.Fprintf(&b, "\tExpected: %s\n", formatCounts(s.Expected))

	if !s.Healthy {
		b.WriteString("\n\tTotal retrieved flats did not match expected count.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	b.WriteString("\n\tData should be healthy\n")

	b.WriteString("\nTake up percentage\n")
	for _, ft := range s.ByFlatType {
		fmt.Fprintf(&b, "\t%s: %s\n", ft.FlatType, formatTally(ft.Tally))
	}

	b.WriteString("\nTake up percentage by block\n")
	for _, bt := range s.ByBlock {
		fmt.Fprintf(&b, "\t%s %s: %s\n", bt.Block, bt.FlatType, formatTally(bt.Tally))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatCounts(counts []aggregate.Count) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%s: %d", c.FlatType, c.Count)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatTally(t aggregate.Tally) string {
	return fmt.Sprintf("booked %d/%d = %s, available %d/%d = %s",
		t.Booked, t.Total, t.PercentString(),
		t.Available(), t.Total, t.AvailablePercentString())
}

// writeFile creates the parent directories, then the file, then hands it to fn.
func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir for %q: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file %q: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %q: %w", path, err)
	}
	return f.Close()
}

// Package aggregate groups parsed units and checks the totals against the
// counts published for the sales exercise.
package aggregate

import (
	"fmt"
	"sort"

	"mspro-labs/flat-watch/internal/models"
)

// Tally counts booked units out of a total.
type Tally struct {
	Booked int
	Total  int
}

func (t Tally) Available() int {
	return t.Total - t.Booked
}

// Percent returns booked/total as a percentage. ok is false when total is zero.
func (t Tally) Percent() (pct float64, ok bool) {
	if t.Total == 0 {
		return 0, false
	}
	return float64(t.Booked) / float64(t.Total) * 100, true
}

// AvailablePercent returns available/total as a percentage. ok is false when total is zero.
func (t Tally) AvailablePercent() (pct float64, ok bool) {
	if t.Total == 0 {
		return 0, false
	}
	return float64(t.Available()) / float64(t.Total) * 100, true
}

// PercentString formats Percent with two decimals, or "N/A" for an empty tally.
func (t Tally) PercentString() string {
	return formatPercent(t.Percent())
}

// AvailablePercentString is PercentString for the available share.
func (t Tally) AvailablePercentString() string {
	return formatPercent(t.AvailablePercent())
}

func formatPercent(pct float64, ok bool) string {
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// Count is one (flat type, number of units) pair of the health check.
type Count struct {
	FlatType string
	Count    int
}

type FlatTypeTally struct {
	FlatType string
	Tally
}

type BlockTally struct {
	Block    string
	FlatType string
	Tally
}

// Summary is everything the log report and console table need.
type Summary struct {
	ByFlatType []FlatTypeTally
	ByBlock    []BlockTally
	Retrieved  []Count
	Expected   []Count
	Healthy    bool
}

// SortUnits sorts in place by (block, flat type, stack, floor).
func SortUnits(units []models.Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].Less(units[j])
	})
}

// Summarize tallies the units per flat type and per block/flat type and runs
// the health check.
//
// flatTypes is the declared category order. ByFlatType follows it, with
// undeclared flat types seen in units appended in sorted order. The retrieved
// sequence keeps that order but only holds flat types present in expected,
// which must already be in the order the check compares against. An empty
// oracle never passes.
func Summarize(units []models.Unit, flatTypes []string, expected []Count) Summary {
	byFlat := make(map[string]*Tally)
	byBlock := make(map[[2]string]*Tally)
	var blockKeys [][2]string

	for _, u := range units {
		ft := byFlat[u.FlatType]
		if ft == nil {
			ft = &Tally{}
			byFlat[u.FlatType] = ft
		}
		key := [2]string{u.Block, u.FlatType}
		bt := byBlock[key]
		if bt == nil {
			bt = &Tally{}
			byBlock[key] = bt
			blockKeys = append(blockKeys, key)
		}
		ft.Total++
		bt.Total++
		if u.Booked {
			ft.Booked++
			bt.Booked++
		}
	}

	order := append([]string(nil), flatTypes...)
	declared := make(map[string]bool, len(flatTypes))
	for _, f := range flatTypes {
		declared[f] = true
	}
	var extra []string
	for f := range byFlat {
		if !declared[f] {
			extra = append(extra, f)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	s := Summary{Expected: expected}
	for _, f := range order {
		t := Tally{}
		if p := byFlat[f]; p != nil {
			t = *p
		}
		s.ByFlatType = append(s.ByFlatType, FlatTypeTally{FlatType: f, Tally: t})
	}
	s.Retrieved = retrieved(byFlat, order, expected)

	sort.Slice(blockKeys, func(i, j int) bool {
		if blockKeys[i][0] != blockKeys[j][0] {
			return blockKeys[i][0] < blockKeys[j][0]
		}
		return blockKeys[i][1] < blockKeys[j][1]
	})
	for _, k := range blockKeys {
		s.ByBlock = append(s.ByBlock, BlockTally{Block: k[0], FlatType: k[1], Tally: *byBlock[k]})
	}

	s.Healthy = len(expected) > 0 && Equal(s.Retrieved, s.Expected)
	return s
}

// retrieved counts only the flat types the oracle knows about, in the given
// order. Oracle keys missing from order follow in sorted order.
func retrieved(byFlat map[string]*Tally, order []string, expected []Count) []Count {
	inOracle := make(map[string]bool, len(expected))
	for _, c := range expected {
		inOracle[c.FlatType] = true
	}

	var out []Count
	listed := make(map[string]bool, len(order))
	add := func(f string) {
		n := 0
		if p := byFlat[f]; p != nil {
			n = p.Total
		}
		out = append(out, Count{FlatType: f, Count: n})
	}
	for _, f := range order {
		listed[f] = true
		if inOracle[f] {
			add(f)
		}
	}
	var missing []string
	for f := range inOracle {
		if !listed[f] {
			missing = append(missing, f)
		}
	}
	sort.Strings(missing)
	for _, f := range missing {
		add(f)
	}
	return out
}

// Equal compares two count sequences pairwise. Order matters.
func Equal(a, b []Count) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Overall sums the per flat type tallies.
func (s Summary) Overall() Tally {
	var t Tally
	for _, ft := range s.ByFlatType {
		t.Booked += ft.Booked
		t.Total += ft.Total
	}
	return t
}

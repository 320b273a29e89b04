package aggregate

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"mspro-labs/flat-watch/internal/models"
)

var flatTypes = []string{"3-Room", "4-Room", "5-Room"}

func sampleUnits() []models.Unit {
	return []models.Unit{
		{Block: "102B", FlatType: "4-Room", UnitNo: "A05-210", Floor: "05", Stack: "210", Booked: true},
		{Block: "101A", FlatType: "3-Room", UnitNo: "A03-101", Floor: "03", Stack: "101", Booked: false, Cost: "$200,000", Size: "65 sqm"},
		{Block: "101A", FlatType: "3-Room", UnitNo: "A02-101", Floor: "02", Stack: "101", Booked: true},
		{Block: "101A", FlatType: "4-Room", UnitNo: "A02-103", Floor: "02", Stack: "103", Booked: true},
		{Block: "102B", FlatType: "4-Room", UnitNo: "A06-210", Floor: "06", Stack: "210", Booked: false, Cost: "$300,000", Size: "90 sqm"},
	}
}

func TestSortUnits(t *testing.T) {
	units := sampleUnits()
	SortUnits(units)

	var got []string
	for _, u := range units {
		got = append(got, u.Block+" "+u.FlatType+" "+u.UnitNo)
	}
	want := []string{
		"101A 3-Room A02-101",
		"101A 3-Room A03-101",
		"101A 4-Room A02-103",
		"102B 4-Room A05-210",
		"102B 4-Room A06-210",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sorted order mismatch (-want +got):\n%s", diff)
	}

	again := append([]models.Unit(nil), units...)
	SortUnits(again)
	if diff := cmp.Diff(units, again); diff != "" {
		t.Errorf("sorting twice changed the order (-first +second):\n%s", diff)
	}
}

func TestSummarizeTallies(t *testing.T) {
	s := Summarize(sampleUnits(), flatTypes, []Count{{"3-Room", 2}, {"4-Room", 3}, {"5-Room", 0}})

	wantFlat := []FlatTypeTally{
		{FlatType: "3-Room", Tally: Tally{Booked: 1, Total: 2}},
		{FlatType: "4-Room", Tally: Tally{Booked: 2, Total: 3}},
		{FlatType: "5-Room", Tally: Tally{Booked: 0, Total: 0}},
	}
	if diff := cmp.Diff(wantFlat, s.ByFlatType); diff != "" {
		t.Errorf("ByFlatType mismatch (-want +got):\n%s", diff)
	}

	wantBlock := []BlockTally{
		{Block: "101A", FlatType: "3-Room", Tally: Tally{Booked: 1, Total: 2}},
		{Block: "101A", FlatType: "4-Room", Tally: Tally{Booked: 1, Total: 1}},
		{Block: "102B", FlatType: "4-Room", Tally: Tally{Booked: 1, Total: 2}},
	}
	if diff := cmp.Diff(wantBlock, s.ByBlock); diff != "" {
		t.Errorf("ByBlock mismatch (-want +got):\n%s", diff)
	}

	wantRetrieved := []Count{{"3-Room", 2}, {"4-Room", 3}, {"5-Room", 0}}
	if diff := cmp.Diff(wantRetrieved, s.Retrieved); diff != "" {
		t.Errorf("Retrieved mismatch (-want +got):\n%s", diff)
	}

	if got := s.Overall(); got != (Tally{Booked: 3, Total: 5}) {
		t.Errorf("Overall: got %+v", got)
	}
}

func TestSummarizeUndeclaredFlatTypeAppended(t *testing.T) {
	units := append(sampleUnits(), models.Unit{Block: "105A", FlatType: "Executive", UnitNo: "A01-500"})
	s := Summarize(units, flatTypes, nil)

	last := s.ByFlatType[len(s.ByFlatType)-1]
	if last.FlatType != "Executive" || last.Total != 1 {
		t.Errorf("last flat type tally: got %+v", last)
	}
}

func TestRetrievedOnlyCountsOracleFlatTypes(t *testing.T) {
	units := []models.Unit{
		{Block: "101A", FlatType: "3-Room", UnitNo: "A02-101", Floor: "02", Stack: "101"},
		{Block: "101A", FlatType: "Executive", UnitNo: "A02-501", Floor: "02", Stack: "501"},
	}
	s := Summarize(units, []string{"3-Room", "Executive"}, []Count{{"3-Room", 1}})

	if diff := cmp.Diff([]Count{{"3-Room", 1}}, s.Retrieved); diff != "" {
		t.Errorf("Retrieved mismatch (-want +got):\n%s", diff)
	}
	if !s.Healthy {
		t.Error("a flat type outside the oracle should not fail the health check")
	}
	if len(s.ByFlatType) != 2 {
		t.Errorf("ByFlatType should still tally every flat type, got %+v", s.ByFlatType)
	}
}

func TestRetrievedIncludesUnseenOracleFlatTypes(t *testing.T) {
	s := Summarize(sampleUnits(), []string{"3-Room", "4-Room"},
		[]Count{{"3-Room", 2}, {"4-Room", 3}, {"5-Room", 0}})

	want := []Count{{"3-Room", 2}, {"4-Room", 3}, {"5-Room", 0}}
	if diff := cmp.Diff(want, s.Retrieved); diff != "" {
		t.Errorf("Retrieved mismatch (-want +got):\n%s", diff)
	}
	if !s.Healthy {
		t.Error("oracle flat type with zero units should still match a zero count")
	}
}

func TestHealthCheck(t *testing.T) {
	testCases := []struct {
		name     string
		expected []Count
		healthy  bool
	}{
		{"exact match", []Count{{"3-Room", 2}, {"4-Room", 3}, {"5-Room", 0}}, true},
		{"one count off", []Count{{"3-Room", 2}, {"4-Room", 4}, {"5-Room", 0}}, false},
		{"same pairs reordered", []Count{{"4-Room", 3}, {"3-Room", 2}, {"5-Room", 0}}, false},
		{"oracle without a declared category", []Count{{"3-Room", 2}, {"4-Room", 3}}, true},
		{"oracle category never retrieved", []Count{{"3-Room", 2}, {"4-Room", 3}, {"5-Room", 0}, {"Executive", 4}}, false},
		{"empty oracle", nil, false},
	}

	for _, tc := range testCases {
		s := Summarize(sampleUnits(), flatTypes, tc.expected)
		if s.Healthy != tc.healthy {
			t.Errorf("%s: Healthy = %v, want %v", tc.name, s.Healthy, tc.healthy)
		}
	}
}

func TestTallyPercent(t *testing.T) {
	pct, ok := Tally{Booked: 1, Total: 4}.Percent()
	if !ok || pct != 25 {
		t.Errorf("Percent: got %v, %v; want 25, true", pct, ok)
	}
	avail, ok := Tally{Booked: 1, Total: 4}.AvailablePercent()
	if !ok || avail != 75 {
		t.Errorf("AvailablePercent: got %v, %v; want 75, true", avail, ok)
	}

	if _, ok := (Tally{}).Percent(); ok {
		t.Error("Percent of an empty tally should not be computable")
	}
	if _, ok := (Tally{}).AvailablePercent(); ok {
		t.Error("AvailablePercent of an empty tally should not be computable")
	}
}

func TestTallyPercentString(t *testing.T) {
	testCases := []struct {
		tally     Tally
		booked    string
		available string
	}{
		{Tally{Booked: 1, Total: 2}, "50.00%", "50.00%"},
		{Tally{Booked: 1, Total: 3}, "33.33%", "66.67%"},
		{Tally{}, "N/A", "N/A"},
	}

	for _, tc := range testCases {
		if got := tc.tally.PercentString(); got != tc.booked {
			t.Errorf("%+v.PercentString(): expected %q, got %q", tc.tally, tc.booked, got)
		}
		if got := tc.tally.AvailablePercentString(); got != tc.available {
			t.Errorf("%+v.AvailablePercentString(): expected %q, got %q", tc.tally, tc.available, got)
		}
	}
}

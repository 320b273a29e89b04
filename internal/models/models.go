package models

import "time"

const (
	StatusBooked    = "booked"
	StatusAvailable = "available"
)

// Unit holds the observed state of a single flat.
// Block and FlatType come from the query that returned it, not from the page.
type Unit struct {
	Block    string
	FlatType string
	UnitNo   string
	Floor    string
	Stack    string
	Booked   bool
	Cost     string
	Size     string
}

// Status is "booked" or "available".
func (u Unit) Status() string {
	if u.Booked {
		return StatusBooked
	}
	return StatusAvailable
}

// Less orders units by (block, flat type, stack, floor).
func (u Unit) Less(o Unit) bool {
	if u.Block != o.Block {
		return u.Block < o.Block
	}
	if u.FlatType != o.FlatType {
		return u.FlatType < o.FlatType
	}
	if u.Stack != o.Stack {
		return u.Stack < o.Stack
	}
	return u.Floor < o.Floor
}

// Run is one recorded scrape.
type Run struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  time.Time
	UnitCount   int
	BookedCount int
	Healthy     bool
}

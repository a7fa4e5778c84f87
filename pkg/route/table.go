package route

import (
	"fmt"
	"io"
)

// Entry is one resolved row of a routing table.
type Entry struct {
	Category Category
	Wanted   Destination
	Resolved Destination
}

// Table holds the wanted and resolved destination of every category.
// Tables are values; the zero value resolves every category to Host, so
// use NewTable for an empty table.
type Table struct {
	entries [categoryCount]Entry
}

// NewTable returns a table in which every category is unrouted.
func NewTable() Table {
	var t Table
	for c := Category(0); c < categoryCount; c++ {
		t.entries[c] = Entry{Category: c, Wanted: Unrouted, Resolved: Unrouted}
	}
	return t
}

// Set records the wanted and resolved destination of c.
func (t *Table) Set(c Category, wanted, resolved Destination) {
	if !c.Valid() {
		return
	}
	t.entries[c] = Entry{Category: c, Wanted: wanted, Resolved: resolved}
}

// Resolved returns the resolved destination of c.
func (t Table) Resolved(c Category) Destination {
	if !c.Valid() {
		return Unrouted
	}
	return t.entries[c].Resolved
}

// Wanted returns the wanted destination of c.
func (t Table) Wanted(c Category) Destination {
	if !c.Valid() {
		return Unrouted
	}
	return t.entries[c].Wanted
}

// Entries returns all rows in push order.
func (t Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries[:])
	return out
}

// Equal reports whether both tables resolve every category identically.
func (t Table) Equal(o Table) bool {
	return t.entries == o.entries
}

// WriteTo writes a human-readable rendering of the table.
func (t Table) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, e := range t.entries {
		n, err := fmt.Fprintf(w, "  %-12s wanted=%-9s resolved=%s\n", e.Category, e.Wanted, e.Resolved)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

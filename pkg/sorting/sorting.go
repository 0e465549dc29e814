// Package sorting orders sibling nodes by column. Each column carries a
// sort role: display columns compare their visible text, typed columns
// compare the auxiliary key behind it (byte sizes, timestamps), so "10 KB"
// lands after "2 KB" instead of before it.
package sorting

import (
	"strings"

	"github.com/modmill/modmill/pkg/model"
)

// Role selects the comparison key for a column.
type Role int

const (
	// RoleDisplay compares the column's display string (case-folded).
	RoleDisplay Role = iota
	// RoleTyped compares the node's SortKey for the column.
	RoleTyped
)

// RoleTable assigns roles by column index. It is static per view: the
// size/date-like columns are typed, everything else is display. Lookups
// for unlisted columns fall back to RoleDisplay rather than failing.
type RoleTable map[int]Role

// Role returns the role for a column, defaulting to RoleDisplay.
func (t RoleTable) Role(col int) Role {
	if r, ok := t[col]; ok {
		return r
	}
	return RoleDisplay
}

// Direction is the sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Toggle flips the direction.
func (d Direction) Toggle() Direction {
	if d == Ascending {
		return Descending
	}
	return Ascending
}

// Indicator returns the header arrow for the direction.
func (d Direction) Indicator() string {
	if d == Ascending {
		return "↑"
	}
	return "↓"
}

// Comparator orders nodes by one column under a role table. It carries no
// per-node state: the same comparator applied to the same siblings always
// yields the same order.
type Comparator struct {
	Column    int
	Table     RoleTable
	Direction Direction
}

// Compare returns a negative, zero or positive value ordering a before,
// equal to, or after b in the configured direction. Equal keys return 0 so
// a stable sort preserves their pre-sort order.
func (c Comparator) Compare(a, b *model.Node) int {
	r := c.compareAscending(a, b)
	if c.Direction == Descending {
		r = -r
	}
	return r
}

// Less adapts Compare for sort callbacks.
func (c Comparator) Less(a, b *model.Node) bool {
	return c.Compare(a, b) < 0
}

func (c Comparator) compareAscending(a, b *model.Node) int {
	if c.Table.Role(c.Column) == RoleTyped {
		ka, aok := a.SortKeyFor(c.Column)
		kb, bok := b.SortKeyFor(c.Column)
		switch {
		case aok && bok:
			return ka.Compare(kb)
		case aok:
			// Keyed rows sort ahead of unkeyed ones (categories usually
			// carry no size/date keys and gather at one end).
			return -1
		case bok:
			return 1
		}
		// Neither node has a key; fall through to the display text.
	}
	return compareFolded(a.Column(c.Column), b.Column(c.Column))
}

// compareFolded is a case-insensitive string compare that falls back to a
// case-sensitive tie-break so "a" and "A" still have a deterministic
// relative order.
func compareFolded(a, b string) int {
	if r := strings.Compare(strings.ToLower(a), strings.ToLower(b)); r != 0 {
		return r
	}
	return strings.Compare(a, b)
}

// SortSiblings stably reorders the children of parent by the comparator.
// Categories sort by the same rule as leaves; only the role table decides
// what is compared.
func SortSiblings(t *model.Tree, parent model.NodeID, c Comparator) {
	t.SortChildren(parent, c.Less)
}

// SortAll applies the comparator to every sibling list in the tree, the
// whole-view sort a column header click performs.
func SortAll(t *model.Tree, c Comparator) {
	SortSiblings(t, model.RootID, c)
	t.Walk(func(n *model.Node, _ int) bool {
		if n.HasChildren() {
			SortSiblings(t, n.ID, c)
		}
		return true
	})
}

// Package model holds the in-memory tree backing the mod and pack list
// views: nodes with per-column display values, typed alternate sort keys,
// and an ownership structure that is mutated only through explicit
// insert/remove/move operations.
package model

import "time"

// NodeID is an opaque, stable identifier for a node. IDs are unique within
// a single Tree and survive filtering and sorting, which never touch the
// tree structure.
type NodeID string

// Flags is a bitset of boolean node state. Filtering only ever consults
// FlagCategory; the remaining flags exist for row rendering (dimming
// disabled mods, warning icons for outdated ones) and are carried here so
// the renderer does not need a side table.
type Flags uint8

const (
	// FlagCategory marks an aggregation node: a mod category, a pack, or a
	// folder inside a pack. Category nodes may own children and are exempt
	// from flat-mode filtering.
	FlagCategory Flags = 1 << iota

	// FlagOutdated marks a mod whose installed version lags the remote one.
	FlagOutdated

	// FlagDisabled marks a mod excluded from the active load order.
	FlagDisabled

	// FlagMissing marks a mod referenced by a profile but absent on disk.
	FlagMissing
)

// Has reports whether all bits in mask are set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// sortKeyKind discriminates the SortKey union.
type sortKeyKind uint8

const (
	keyString sortKeyKind = iota
	keyInt
)

// SortKey is an auxiliary comparable value backing a human-formatted column,
// e.g. the raw byte count behind "2.4 MB" or the unix timestamp behind
// "3 days ago". A column with a typed sort role compares these instead of
// the display strings.
type SortKey struct {
	kind sortKeyKind
	num  int64
	str  string
}

// StringKey returns a SortKey that compares as a plain string.
func StringKey(s string) SortKey {
	return SortKey{kind: keyString, str: s}
}

// IntKey returns a SortKey that compares numerically.
func IntKey(v int64) SortKey {
	return SortKey{kind: keyInt, num: v}
}

// TimeKey returns a SortKey that compares by instant (stored as unix
// seconds, which is all the mod metadata carries).
func TimeKey(t time.Time) SortKey {
	return SortKey{kind: keyInt, num: t.Unix()}
}

// Compare returns -1, 0 or +1. Keys of different kinds order numeric
// before string so a partially keyed column still has a total order.
func (k SortKey) Compare(o SortKey) int {
	if k.kind != o.kind {
		if k.kind == keyInt {
			return -1
		}
		return 1
	}
	switch k.kind {
	case keyInt:
		switch {
		case k.num < o.num:
			return -1
		case k.num > o.num:
			return 1
		}
		return 0
	default:
		switch {
		case k.str < o.str:
			return -1
		case k.str > o.str:
			return 1
		}
		return 0
	}
}

// Node is a single row in a tree: an ordered set of per-column display
// strings plus typed metadata. Structure (parent, children) is owned by the
// Tree, not the node, so a Node cannot be re-linked behind the tree's back.
type Node struct {
	ID      NodeID
	Columns []string
	Flags   Flags

	sortKeys map[int]SortKey
	children []NodeID
}

// NewNode creates a detached node. It becomes part of a tree only through
// Tree.Insert.
func NewNode(id NodeID, flags Flags, columns ...string) *Node {
	return &Node{ID: id, Flags: flags, Columns: columns}
}

// IsCategory reports whether the node aggregates children (category, pack
// or folder).
func (n *Node) IsCategory() bool {
	return n.Flags.Has(FlagCategory)
}

// Column returns the display text for the given column, or "" when the
// node has fewer columns (short rows are valid, not an error).
func (n *Node) Column(col int) string {
	if col < 0 || col >= len(n.Columns) {
		return ""
	}
	return n.Columns[col]
}

// SetColumn replaces the display text for a column, growing the row if the
// node had fewer columns.
func (n *Node) SetColumn(col int, text string) {
	if col < 0 {
		return
	}
	for len(n.Columns) <= col {
		n.Columns = append(n.Columns, "")
	}
	n.Columns[col] = text
}

// SetSortKey attaches a typed sort key for a column.
func (n *Node) SetSortKey(col int, key SortKey) {
	if n.sortKeys == nil {
		n.sortKeys = make(map[int]SortKey, 2)
	}
	n.sortKeys[col] = key
}

// SortKeyFor returns the typed key for a column if one was set.
func (n *Node) SortKeyFor(col int) (SortKey, bool) {
	k, ok := n.sortKeys[col]
	return k, ok
}

// Children returns the ordered child IDs. The slice is the node's own;
// callers must not modify it.
func (n *Node) Children() []NodeID {
	return n.children
}

// HasChildren reports whether the node currently owns children.
func (n *Node) HasChildren() bool {
	return len(n.children) > 0
}

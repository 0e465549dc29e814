package model

import (
	"errors"
	"fmt"
)

// Common tree errors.
var (
	ErrNodeNotFound = errors.New("node not found")
	ErrDuplicateID  = errors.New("duplicate node id")
	ErrLeafParent   = errors.New("leaf nodes cannot own children")
	ErrInvalidMove  = errors.New("invalid move")
)

// RootID is the virtual parent of top-level nodes. It never appears in the
// tree itself; passing it as a parent targets the root level.
const RootID NodeID = ""

// Tree owns a hierarchy of nodes. All structural change goes through
// Insert, RemoveSubtree and MoveSubtree; each is all-or-nothing, so a
// filter or sort pass never observes a half-applied mutation.
type Tree struct {
	nodes  map[NodeID]*Node
	parent map[NodeID]NodeID
	roots  []NodeID
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{
		nodes:  make(map[NodeID]*Node),
		parent: make(map[NodeID]NodeID),
	}
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node with the given ID, or nil.
func (t *Tree) Node(id NodeID) *Node {
	return t.nodes[id]
}

// Contains reports whether the tree owns a node with the given ID.
func (t *Tree) Contains(id NodeID) bool {
	_, ok := t.nodes[id]
	return ok
}

// Parent returns the parent of a node. Top-level nodes report RootID.
// The second return is false when the node itself is unknown.
func (t *Tree) Parent(id NodeID) (NodeID, bool) {
	if _, ok := t.nodes[id]; !ok {
		return RootID, false
	}
	return t.parent[id], true
}

// Children returns the ordered child IDs under parent. RootID yields the
// top-level nodes. Unknown parents yield nil.
func (t *Tree) Children(parent NodeID) []NodeID {
	if parent == RootID {
		return t.roots
	}
	n := t.nodes[parent]
	if n == nil {
		return nil
	}
	return n.children
}

// childIndex returns the position of id among its siblings, or -1.
func (t *Tree) childIndex(id NodeID) int {
	siblings := t.Children(t.parent[id])
	for i, sib := range siblings {
		if sib == id {
			return i
		}
	}
	return -1
}

// ChildIndex returns the position of a node among its siblings, or -1 for
// unknown nodes. This is the insertion index a drop "above this row"
// proposes.
func (t *Tree) ChildIndex(id NodeID) int {
	if !t.Contains(id) {
		return -1
	}
	return t.childIndex(id)
}

// Insert adds a detached node under parent at the given index. Index is
// clamped to the valid range, matching how a view appends when the drop
// indicator sits past the last row. Only category nodes (or the root) may
// receive children.
func (t *Tree) Insert(parent NodeID, index int, n *Node) error {
	if n == nil {
		return fmt.Errorf("insert: %w", ErrNodeNotFound)
	}
	if _, exists := t.nodes[n.ID]; exists {
		return fmt.Errorf("insert %q: %w", n.ID, ErrDuplicateID)
	}
	if parent != RootID {
		p := t.nodes[parent]
		if p == nil {
			return fmt.Errorf("insert %q under %q: %w", n.ID, parent, ErrNodeNotFound)
		}
		if !p.IsCategory() {
			return fmt.Errorf("insert %q under %q: %w", n.ID, parent, ErrLeafParent)
		}
	}

	t.nodes[n.ID] = n
	t.parent[n.ID] = parent
	t.setChildren(parent, insertAt(t.Children(parent), index, n.ID))
	return nil
}

// RemoveSubtree detaches the node and everything below it.
func (t *Tree) RemoveSubtree(id NodeID) error {
	n := t.nodes[id]
	if n == nil {
		return fmt.Errorf("remove %q: %w", id, ErrNodeNotFound)
	}

	parent := t.parent[id]
	t.setChildren(parent, removeID(t.Children(parent), id))

	var drop func(NodeID)
	drop = func(id NodeID) {
		for _, child := range t.nodes[id].children {
			drop(child)
		}
		delete(t.nodes, id)
		delete(t.parent, id)
	}
	drop(id)
	return nil
}

// MoveSubtree re-parents a subtree to (newParent, index). The operation is
// all-or-nothing: every precondition is checked before anything changes, so
// a rejected move leaves the tree exactly as it was. Moving a node into its
// own subtree is refused.
func (t *Tree) MoveSubtree(id, newParent NodeID, index int) error {
	n := t.nodes[id]
	if n == nil {
		return fmt.Errorf("move %q: %w", id, ErrNodeNotFound)
	}
	if newParent != RootID {
		p := t.nodes[newParent]
		if p == nil {
			return fmt.Errorf("move %q to %q: %w", id, newParent, ErrNodeNotFound)
		}
		if !p.IsCategory() {
			return fmt.Errorf("move %q to %q: %w", id, newParent, ErrLeafParent)
		}
		if id == newParent || t.isDescendant(newParent, id) {
			return fmt.Errorf("move %q into own subtree: %w", id, ErrInvalidMove)
		}
	}

	oldParent := t.parent[id]

	// When moving within the same parent, compute the index against the
	// sibling list without the moved node, so "insert at row i" means the
	// same thing it does for a cross-parent move.
	siblings := removeID(t.Children(oldParent), id)
	if oldParent == newParent {
		t.setChildren(oldParent, insertAt(siblings, index, id))
		return nil
	}

	t.setChildren(oldParent, siblings)
	t.setChildren(newParent, insertAt(t.Children(newParent), index, id))
	t.parent[id] = newParent
	return nil
}

// SortChildren reorders the children of parent in place using the given
// comparison. The sort is stable: ties keep their pre-sort order.
func (t *Tree) SortChildren(parent NodeID, less func(a, b *Node) bool) {
	ids := t.Children(parent)
	if len(ids) <= 1 {
		return
	}
	sortStable(ids, func(a, b NodeID) bool {
		return less(t.nodes[a], t.nodes[b])
	})
}

// Walk visits the tree in display (pre-order) order. Returning false from
// fn prunes the subtree below the current node.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	var walk func(ids []NodeID, depth int)
	walk = func(ids []NodeID, depth int) {
		for _, id := range ids {
			n := t.nodes[id]
			if !fn(n, depth) {
				continue
			}
			walk(n.children, depth+1)
		}
	}
	walk(t.roots, 0)
}

// Leaves returns all leaf node IDs in display order. This is the flat load
// order the move authority validates against.
func (t *Tree) Leaves() []NodeID {
	var out []NodeID
	t.Walk(func(n *Node, _ int) bool {
		if !n.IsCategory() {
			out = append(out, n.ID)
		}
		return true
	})
	return out
}

// isDescendant reports whether id sits anywhere below ancestor.
func (t *Tree) isDescendant(id, ancestor NodeID) bool {
	for cur, ok := t.parent[id]; ok && cur != RootID; cur, ok = t.parent[cur] {
		if cur == ancestor {
			return true
		}
	}
	return false
}

func (t *Tree) setChildren(parent NodeID, ids []NodeID) {
	if parent == RootID {
		t.roots = ids
		return
	}
	t.nodes[parent].children = ids
}

func insertAt(ids []NodeID, index int, id NodeID) []NodeID {
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	out := make([]NodeID, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	out = append(out, ids[index:]...)
	return out
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	out := make([]NodeID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// sortStable is insertion sort: sibling lists are small and this keeps the
// package free of sort.SliceStable's reflection on the hot path.
func sortStable(ids []NodeID, less func(a, b NodeID) bool) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && less(ids[j], ids[j-1]); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

package testutil

import (
	"testing"

	"github.com/modmill/modmill/pkg/filter"
	"github.com/modmill/modmill/pkg/model"
)

// AssertTreeInvariants verifies the structural invariants every tree must
// hold: unique IDs, consistent parent links, and leaves without children.
func AssertTreeInvariants(t *testing.T, tr *model.Tree) {
	t.Helper()

	seen := make(map[model.NodeID]bool)
	count := 0
	tr.Walk(func(n *model.Node, depth int) bool {
		count++
		if seen[n.ID] {
			t.Errorf("duplicate node ID reachable from root: %s", n.ID)
		}
		seen[n.ID] = true

		for i, child := range tr.Children(n.ID) {
			parent, ok := tr.Parent(child)
			if !ok || parent != n.ID {
				t.Errorf("child %s of %s has parent link %q", child, n.ID, parent)
			}
			if idx := tr.ChildIndex(child); idx != i {
				t.Errorf("child %s has index %d, want %d", child, idx, i)
			}
		}
		if !n.IsCategory() && n.HasChildren() {
			t.Errorf("leaf %s has children", n.ID)
		}
		return true
	})

	if count != tr.Len() {
		t.Errorf("walk visited %d nodes, tree reports %d", count, tr.Len())
	}
}

// AssertVisible verifies visibility for a set of node IDs.
func AssertVisible(t *testing.T, vis filter.Visibility, want map[model.NodeID]bool) {
	t.Helper()
	for id, expected := range want {
		if got := vis.Visible(id); got != expected {
			t.Errorf("visibility of %s = %v, want %v", id, got, expected)
		}
	}
}

// AssertChildOrder verifies the exact child order under a parent.
func AssertChildOrder(t *testing.T, tr *model.Tree, parent model.NodeID, want ...model.NodeID) {
	t.Helper()
	got := tr.Children(parent)
	if len(got) != len(want) {
		t.Errorf("children of %q = %v, want %v", parent, got, want)
		return
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("child %d of %q = %s, want %s", i, parent, got[i], want[i])
		}
	}
}

// AssertLeafOrder verifies the flat display-order leaf sequence.
func AssertLeafOrder(t *testing.T, tr *model.Tree, want ...model.NodeID) {
	t.Helper()
	got := tr.Leaves()
	if len(got) != len(want) {
		t.Errorf("leaves = %v, want %v", got, want)
		return
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("leaf %d = %s, want %s", i, got[i], want[i])
		}
	}
}

package model

import (
	"errors"
	"testing"
	"time"
)

func buildModTree(t *testing.T) *Tree {
	t.Helper()
	tr := NewTree()
	mustInsert(t, tr, RootID, 0, NewNode("cat-units", FlagCategory, "Units"))
	mustInsert(t, tr, RootID, 1, NewNode("cat-maps", FlagCategory, "Maps"))
	mustInsert(t, tr, "cat-units", 0, NewNode("mod-a", 0, "Archers Rework", "ada"))
	mustInsert(t, tr, "cat-units", 1, NewNode("mod-b", 0, "Berserkers", "bob"))
	mustInsert(t, tr, "cat-maps", 0, NewNode("mod-c", 0, "Coastal Maps", "cyn"))
	return tr
}

func mustInsert(t *testing.T, tr *Tree, parent NodeID, index int, n *Node) {
	t.Helper()
	if err := tr.Insert(parent, index, n); err != nil {
		t.Fatalf("insert %s under %q: %v", n.ID, parent, err)
	}
}

func TestInsertRejectsLeafParent(t *testing.T) {
	tr := buildModTree(t)
	err := tr.Insert("mod-a", 0, NewNode("mod-x", 0, "X"))
	if !errors.Is(err, ErrLeafParent) {
		t.Fatalf("expected ErrLeafParent, got %v", err)
	}
	if tr.Contains("mod-x") {
		t.Error("failed insert must not register the node")
	}
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	tr := buildModTree(t)
	err := tr.Insert(RootID, 0, NewNode("mod-a", 0, "Clone"))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestInsertClampsIndex(t *testing.T) {
	tr := buildModTree(t)
	mustInsert(t, tr, "cat-units", 99, NewNode("mod-z", 0, "Zweihander"))
	kids := tr.Children("cat-units")
	if got := kids[len(kids)-1]; got != "mod-z" {
		t.Errorf("out-of-range index should append, tail = %s", got)
	}

	mustInsert(t, tr, "cat-units", -5, NewNode("mod-y", 0, "Yari"))
	if got := tr.Children("cat-units")[0]; got != "mod-y" {
		t.Errorf("negative index should prepend, head = %s", got)
	}
}

func TestParentLookup(t *testing.T) {
	tr := buildModTree(t)

	if p, ok := tr.Parent("mod-b"); !ok || p != "cat-units" {
		t.Errorf("Parent(mod-b) = %q, %v", p, ok)
	}
	if p, ok := tr.Parent("cat-units"); !ok || p != RootID {
		t.Errorf("Parent(cat-units) = %q, %v; want root", p, ok)
	}
	if _, ok := tr.Parent("nope"); ok {
		t.Error("unknown node should not resolve a parent")
	}
}

func TestRemoveSubtree(t *testing.T) {
	tr := buildModTree(t)
	if err := tr.RemoveSubtree("cat-units"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []NodeID{"cat-units", "mod-a", "mod-b"} {
		if tr.Contains(id) {
			t.Errorf("%s should be gone", id)
		}
	}
	if tr.Len() != 2 {
		t.Errorf("Len = %d, want 2", tr.Len())
	}
	if err := tr.RemoveSubtree("cat-units"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("double remove: got %v", err)
	}
}

func TestMoveSubtreeAcrossParents(t *testing.T) {
	tr := buildModTree(t)
	if err := tr.MoveSubtree("mod-a", "cat-maps", 0); err != nil {
		t.Fatal(err)
	}
	if p, _ := tr.Parent("mod-a"); p != "cat-maps" {
		t.Errorf("parent after move = %q", p)
	}
	if got := tr.Children("cat-maps"); len(got) != 2 || got[0] != "mod-a" {
		t.Errorf("cat-maps children = %v", got)
	}
	if got := tr.Children("cat-units"); len(got) != 1 || got[0] != "mod-b" {
		t.Errorf("cat-units children = %v", got)
	}
}

func TestMoveSubtreeWithinParent(t *testing.T) {
	tr := buildModTree(t)
	// Moving mod-a to index 1 of its own parent means "after mod-b" once
	// mod-a is taken out of the sibling list.
	if err := tr.MoveSubtree("mod-a", "cat-units", 1); err != nil {
		t.Fatal(err)
	}
	got := tr.Children("cat-units")
	if len(got) != 2 || got[0] != "mod-b" || got[1] != "mod-a" {
		t.Errorf("children after reorder = %v", got)
	}
}

func TestMoveSubtreeAllOrNothing(t *testing.T) {
	tr := buildModTree(t)
	before := tr.Children("cat-units")

	cases := []struct {
		name   string
		id     NodeID
		target NodeID
		want   error
	}{
		{"into own subtree", "cat-units", "cat-units", ErrInvalidMove},
		{"into leaf", "mod-a", "mod-b", ErrLeafParent},
		{"unknown source", "ghost", "cat-maps", ErrNodeNotFound},
		{"unknown target", "mod-a", "ghost", ErrNodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tr.MoveSubtree(tc.id, tc.target, 0); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			after := tr.Children("cat-units")
			if len(after) != len(before) {
				t.Error("rejected move mutated the tree")
			}
			for i := range before {
				if after[i] != before[i] {
					t.Error("rejected move reordered siblings")
				}
			}
		})
	}
}

func TestMoveCategoryIntoOwnSubtreeDeep(t *testing.T) {
	tr := NewTree()
	mustInsert(t, tr, RootID, 0, NewNode("pack", FlagCategory, "pack"))
	mustInsert(t, tr, "pack", 0, NewNode("folder", FlagCategory, "db"))
	mustInsert(t, tr, "folder", 0, NewNode("file", 0, "units.bin"))

	if err := tr.MoveSubtree("pack", "folder", 0); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("moving a pack under its own folder: got %v", err)
	}
}

func TestWalkOrderAndPrune(t *testing.T) {
	tr := buildModTree(t)

	var order []NodeID
	tr.Walk(func(n *Node, depth int) bool {
		order = append(order, n.ID)
		return n.ID != "cat-units" // prune below Units
	})

	want := []NodeID{"cat-units", "cat-maps", "mod-c"}
	if len(order) != len(want) {
		t.Fatalf("walk order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("walk order = %v, want %v", order, want)
		}
	}
}

func TestLeavesReturnsDisplayOrder(t *testing.T) {
	tr := buildModTree(t)
	leaves := tr.Leaves()
	want := []NodeID{"mod-a", "mod-b", "mod-c"}
	if len(leaves) != len(want) {
		t.Fatalf("leaves = %v", leaves)
	}
	for i := range want {
		if leaves[i] != want[i] {
			t.Fatalf("leaves = %v, want %v", leaves, want)
		}
	}
}

func TestSortKeyCompare(t *testing.T) {
	now := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		a, b SortKey
		want int
	}{
		{"int less", IntKey(2), IntKey(10), -1},
		{"int equal", IntKey(7), IntKey(7), 0},
		{"string greater", StringKey("b"), StringKey("a"), 1},
		{"time before", TimeKey(now), TimeKey(now.Add(time.Hour)), -1},
		{"int sorts before string", IntKey(1), StringKey("a"), -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Compare(tc.b); got != tc.want {
				t.Errorf("Compare = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestColumnOutOfRange(t *testing.T) {
	n := NewNode("m", 0, "only")
	if got := n.Column(3); got != "" {
		t.Errorf("Column(3) = %q, want empty", got)
	}
	if got := n.Column(-1); got != "" {
		t.Errorf("Column(-1) = %q, want empty", got)
	}
}

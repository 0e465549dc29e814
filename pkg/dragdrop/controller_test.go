package dragdrop

import (
	"testing"

	"github.com/modmill/modmill/pkg/model"
)

func modTree(t *testing.T) *model.Tree {
	t.Helper()
	tr := model.NewTree()
	ins := func(parent model.NodeID, n *model.Node) {
		t.Helper()
		if err := tr.Insert(parent, tr.Len(), n); err != nil {
			t.Fatal(err)
		}
	}
	ins(model.RootID, model.NewNode("cat-units", model.FlagCategory, "Units"))
	ins(model.RootID, model.NewNode("cat-maps", model.FlagCategory, "Maps"))
	ins("cat-units", model.NewNode("mod-a", 0, "Archers"))
	ins("cat-units", model.NewNode("mod-b", 0, "Berserkers"))
	ins("cat-maps", model.NewNode("mod-c", 0, "Coastal"))
	return tr
}

func snapshot(tr *model.Tree) map[model.NodeID][]model.NodeID {
	out := map[model.NodeID][]model.NodeID{
		model.RootID: append([]model.NodeID(nil), tr.Children(model.RootID)...),
	}
	tr.Walk(func(n *model.Node, _ int) bool {
		out[n.ID] = append([]model.NodeID(nil), n.Children()...)
		return true
	})
	return out
}

func assertUnchanged(t *testing.T, tr *model.Tree, before map[model.NodeID][]model.NodeID) {
	t.Helper()
	after := snapshot(tr)
	for id, kids := range before {
		got := after[id]
		if len(got) != len(kids) {
			t.Fatalf("children of %q changed: %v -> %v", id, kids, got)
		}
		for i := range kids {
			if got[i] != kids[i] {
				t.Fatalf("children of %q changed: %v -> %v", id, kids, got)
			}
		}
	}
}

func TestGestureStateMachine(t *testing.T) {
	tr := modTree(t)
	c := New(tr, StrictPolicy{})

	if c.State() != StateIdle {
		t.Fatalf("initial state = %v", c.State())
	}
	if !c.Begin("mod-a") {
		t.Fatal("Begin refused a leaf drag")
	}
	if c.State() != StateDragging || c.Source() != "mod-a" {
		t.Fatalf("state = %v source = %s", c.State(), c.Source())
	}

	if _, ok := c.Drop("mod-c", DropAbove); !ok {
		t.Fatal("drop above a leaf under a category should resolve")
	}
	if c.State() != StateDropped {
		t.Fatalf("state after drop = %v", c.State())
	}
	if c.Source() != model.RootID {
		t.Error("source should clear after the gesture ends")
	}
}

func TestDropResolvesParentAndRow(t *testing.T) {
	tr := modTree(t)
	c := New(tr, StrictPolicy{})

	c.Begin("mod-a")
	req, ok := c.Drop("mod-c", DropAbove)
	if !ok {
		t.Fatal("expected a move request")
	}
	if req.SubtreeRoot != "mod-a" || req.TargetParent != "cat-maps" || req.InsertionIndex != 0 {
		t.Errorf("request = %+v", req)
	}

	c.Begin("mod-a")
	req, ok = c.Drop("cat-maps", DropOnto)
	if !ok {
		t.Fatal("expected a move request")
	}
	if req.TargetParent != "cat-maps" || req.InsertionIndex != 1 {
		t.Errorf("drop-onto request = %+v", req)
	}
}

func TestDropOntoLeafEmitsNothing(t *testing.T) {
	tr := modTree(t)
	before := snapshot(tr)
	c := New(tr, StrictPolicy{})

	c.Begin("mod-a")
	if _, ok := c.Drop("mod-b", DropOnto); ok {
		t.Fatal("leaf must never accept a drop under the strict policy")
	}
	select {
	case req := <-c.Requests():
		t.Fatalf("unexpected request emitted: %+v", req)
	default:
	}
	assertUnchanged(t, tr, before)
}

func TestDropInEmptySpaceEmitsNothing(t *testing.T) {
	tr := modTree(t)
	before := snapshot(tr)
	c := New(tr, LoosePolicy{})

	c.Begin("mod-a")
	if _, ok := c.Drop(model.RootID, DropAbove); ok {
		t.Fatal("empty-space drop should not resolve")
	}
	c.Begin("mod-a")
	if _, ok := c.Drop("no-such-row", DropAbove); ok {
		t.Fatal("unknown row should not resolve")
	}
	select {
	case req := <-c.Requests():
		t.Fatalf("unexpected request emitted: %+v", req)
	default:
	}
	assertUnchanged(t, tr, before)
}

func TestCancelLeavesTreeUntouched(t *testing.T) {
	tr := modTree(t)
	before := snapshot(tr)
	c := New(tr, StrictPolicy{})

	c.Begin("cat-units")
	c.Cancel()
	if c.State() != StateCancelled {
		t.Fatalf("state = %v", c.State())
	}
	if _, ok := c.Drop("cat-maps", DropOnto); ok {
		t.Fatal("drop after cancel should be ignored")
	}
	assertUnchanged(t, tr, before)
}

func TestBeginRefusesUnknownNode(t *testing.T) {
	tr := modTree(t)
	c := New(tr, StrictPolicy{})
	if c.Begin("ghost") {
		t.Fatal("unknown node must not start a gesture")
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v", c.State())
	}
}

func TestControllerNeverMutatesTree(t *testing.T) {
	tr := modTree(t)
	before := snapshot(tr)
	c := New(tr, StrictPolicy{})

	c.Begin("mod-a")
	if _, ok := c.Drop("mod-c", DropAbove); !ok {
		t.Fatal("expected emit")
	}
	// Even an emitted proposal must not touch the tree; only the authority
	// performs moves.
	assertUnchanged(t, tr, before)

	select {
	case req := <-c.Requests():
		if req.SubtreeRoot != "mod-a" {
			t.Errorf("request = %+v", req)
		}
	default:
		t.Error("request should be queued on the channel")
	}
}

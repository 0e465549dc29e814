// Package authority is the sole decider and performer of structural moves.
// The drag-drop controller proposes; this package checks the proposal
// against the tree rules (no category under a non-category, no node into
// its own subtree) and against the mod load-order constraints, and only
// then calls MoveSubtree. A rejected proposal leaves the tree untouched.
package authority

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/modmill/modmill/pkg/debug"
	"github.com/modmill/modmill/pkg/dragdrop"
	"github.com/modmill/modmill/pkg/model"
)

// Rejection reasons surfaced to the status bar.
var (
	ErrUnknownNode      = errors.New("unknown node")
	ErrCategoryNesting  = errors.New("categories cannot nest under non-categories")
	ErrIntoOwnSubtree   = errors.New("cannot move a node into its own subtree")
	ErrOrderConstraint  = errors.New("move violates load-after constraints")
	ErrDependencyCycle  = errors.New("load-after constraints contain a cycle")
	ErrTargetNotAllowed = errors.New("target cannot receive children")
)

// Decision is the authority's verdict on one proposal.
type Decision struct {
	Request  dragdrop.MoveRequest
	Accepted bool
	Reason   error // nil when accepted
}

// Authority validates and applies move requests for one tree. It also
// owns the "load after" constraint set: directed edges meaning "mod X must
// load after mod Y", i.e. X must sit later in the flat leaf order.
type Authority struct {
	tree      *model.Tree
	loadAfter map[model.NodeID][]model.NodeID
}

// New creates an authority over the given tree.
func New(tree *model.Tree) *Authority {
	return &Authority{
		tree:      tree,
		loadAfter: make(map[model.NodeID][]model.NodeID),
	}
}

// SetLoadAfter declares that mod id must load after each of deps.
func (a *Authority) SetLoadAfter(id model.NodeID, deps ...model.NodeID) {
	a.loadAfter[id] = append(a.loadAfter[id], deps...)
}

// Decide checks a proposal without applying it.
func (a *Authority) Decide(req dragdrop.MoveRequest) Decision {
	if err := a.check(req); err != nil {
		debug.Log("authority: reject %+v: %v", req, err)
		return Decision{Request: req, Reason: err}
	}
	return Decision{Request: req, Accepted: true}
}

// Apply decides a proposal and, on accept, performs the move. The tree
// mutation is all-or-nothing; a verdict of reject changes nothing.
func (a *Authority) Apply(req dragdrop.MoveRequest) Decision {
	d := a.Decide(req)
	if !d.Accepted {
		return d
	}
	if err := a.tree.MoveSubtree(req.SubtreeRoot, req.TargetParent, req.InsertionIndex); err != nil {
		// Decide simulated the same preconditions, so this only triggers
		// when the tree changed between decision and application.
		d.Accepted = false
		d.Reason = err
	}
	return d
}

func (a *Authority) check(req dragdrop.MoveRequest) error {
	src := a.tree.Node(req.SubtreeRoot)
	if src == nil {
		return fmt.Errorf("source %q: %w", req.SubtreeRoot, ErrUnknownNode)
	}

	if req.TargetParent != model.RootID {
		target := a.tree.Node(req.TargetParent)
		if target == nil {
			return fmt.Errorf("target %q: %w", req.TargetParent, ErrUnknownNode)
		}
		if !target.IsCategory() {
			return fmt.Errorf("target %q: %w", req.TargetParent, ErrTargetNotAllowed)
		}
		if src.IsCategory() {
			// A category (or pack/folder) may only re-parent under another
			// category; a pack can never end up inside a file.
			if !target.IsCategory() {
				return ErrCategoryNesting
			}
		}
		if req.SubtreeRoot == req.TargetParent || a.inSubtree(req.TargetParent, req.SubtreeRoot) {
			return ErrIntoOwnSubtree
		}
	}

	return a.checkOrder(req)
}

// inSubtree reports whether id sits below root.
func (a *Authority) inSubtree(id, root model.NodeID) bool {
	for cur, ok := a.tree.Parent(id); ok && cur != model.RootID; cur, ok = a.tree.Parent(cur) {
		if cur == root {
			return true
		}
	}
	return false
}

// checkOrder simulates the flat leaf order the move would produce and
// verifies every load-after edge still points backwards in it.
func (a *Authority) checkOrder(req dragdrop.MoveRequest) error {
	if len(a.loadAfter) == 0 {
		return nil
	}
	order := a.simulateLeafOrder(req)
	return a.validateOrder(order)
}

// simulateLeafOrder flattens the tree's leaves as they would appear after
// the move, without mutating the tree: the moved subtree's leaves are
// spliced out and re-inserted at the proposed position.
func (a *Authority) simulateLeafOrder(req dragdrop.MoveRequest) []model.NodeID {
	moved := make(map[model.NodeID]bool)
	var movedLeaves []model.NodeID
	var collect func(id model.NodeID)
	collect = func(id model.NodeID) {
		n := a.tree.Node(id)
		if n == nil {
			return
		}
		if !n.IsCategory() {
			movedLeaves = append(movedLeaves, id)
		}
		moved[id] = true
		for _, child := range n.Children() {
			collect(child)
		}
	}
	collect(req.SubtreeRoot)

	// Anchor: the leaf the moved block lands in front of. Index past the
	// end (or siblings that are all categories) means "append".
	var anchor model.NodeID
	siblings := a.tree.Children(req.TargetParent)
	for i := req.InsertionIndex; i < len(siblings); i++ {
		if siblings[i] == req.SubtreeRoot {
			continue
		}
		if leaf := firstLeaf(a.tree, siblings[i]); leaf != model.RootID {
			anchor = leaf
			break
		}
	}

	var order []model.NodeID
	for _, leaf := range a.tree.Leaves() {
		if moved[leaf] {
			continue
		}
		if leaf == anchor {
			order = append(order, movedLeaves...)
		}
		order = append(order, leaf)
	}
	if anchor == model.RootID {
		order = append(order, movedLeaves...)
	}
	return order
}

// firstLeaf returns the first leaf in display order at or below id.
func firstLeaf(t *model.Tree, id model.NodeID) model.NodeID {
	n := t.Node(id)
	if n == nil {
		return model.RootID
	}
	if !n.IsCategory() {
		return id
	}
	for _, child := range n.Children() {
		if leaf := firstLeaf(t, child); leaf != model.RootID {
			return leaf
		}
	}
	return model.RootID
}

// validateOrder builds the load-after constraint graph and checks the
// given flat order against it. Cycle detection falls out of the
// topological sort: an unorderable constraint set rejects every move
// rather than letting an unsatisfiable profile pass silently.
func (a *Authority) validateOrder(order []model.NodeID) error {
	g := simple.NewDirectedGraph()
	gid := make(map[model.NodeID]int64, len(order))
	next := int64(1)
	nodeFor := func(id model.NodeID) int64 {
		if v, ok := gid[id]; ok {
			return v
		}
		v := next
		next++
		gid[id] = v
		g.AddNode(simple.Node(v))
		return v
	}

	for id, deps := range a.loadAfter {
		for _, dep := range deps {
			if id == dep {
				continue
			}
			// Edge dep -> id: dep must come first.
			g.SetEdge(g.NewEdge(simple.Node(nodeFor(dep)), simple.Node(nodeFor(id))))
		}
	}

	if _, err := topo.Sort(g); err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyCycle, err)
	}

	pos := make(map[model.NodeID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for id, deps := range a.loadAfter {
		pi, ok := pos[id]
		if !ok {
			continue
		}
		for _, dep := range deps {
			if dj, ok := pos[dep]; ok && dj > pi {
				return fmt.Errorf("%q must load after %q: %w", id, dep, ErrOrderConstraint)
			}
		}
	}
	return nil
}

// Run consumes proposals from a drag-drop controller's channel and reports
// each decision through the callback. It returns when the channel closes.
// This is the off-loop consumption path; the bubbletea UI instead forwards
// requests as messages and calls Apply directly.
func (a *Authority) Run(requests <-chan dragdrop.MoveRequest, onDecision func(Decision)) {
	for req := range requests {
		d := a.Apply(req)
		if onDecision != nil {
			onDecision(d)
		}
	}
}

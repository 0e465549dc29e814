// Package dragdrop turns row-level drag gestures into move *proposals*.
// The controller never mutates the tree: the toolkit's default move is
// suppressed unconditionally and a MoveRequest is emitted instead, leaving
// an external authority as the only component that may call MoveSubtree.
// This keeps legality rules (category nesting, load-order constraints) out
// of the view layer entirely.
package dragdrop

import (
	"github.com/modmill/modmill/pkg/model"

	"github.com/modmill/modmill/pkg/debug"
)

// State is the per-gesture state machine: Idle → Dragging → {Dropped,
// Cancelled} → Idle. Dropped and Cancelled are transient; State() reports
// them until the next Begin.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateDropped
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	case StateDropped:
		return "dropped"
	case StateCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// DropPosition says where relative to the target row the drop indicator
// sat when the gesture ended.
type DropPosition int

const (
	// DropAbove proposes insertion at the target row's position under the
	// target's own parent (the Qt-style "(parent, row)" resolution).
	DropAbove DropPosition = iota
	// DropOnto proposes appending as the last child of the target itself.
	DropOnto
)

// MoveRequest is the move proposal carried to the authority. It names the
// dragged subtree and the (parent, index) pair the user aimed at; whether
// the move is legal is not this package's concern.
type MoveRequest struct {
	SubtreeRoot    model.NodeID
	TargetParent   model.NodeID
	InsertionIndex int
}

// Policy decides which nodes may start a drag and which may act as the
// proposed parent of a drop. Both tree kinds restrict drops to aggregation
// nodes; they differ at the source.
type Policy interface {
	CanDrag(n *model.Node) bool
	CanDrop(parent *model.Node) bool
}

// StrictPolicy is the mod-list rule: categories act as both drag source
// and drop target, leaves may be dragged but never receive a drop.
type StrictPolicy struct{}

func (StrictPolicy) CanDrag(n *model.Node) bool { return n != nil }

func (StrictPolicy) CanDrop(parent *model.Node) bool {
	return parent != nil && parent.IsCategory()
}

// LoosePolicy is the pack-list rule: anything can be dragged, and drop
// acceptance still requires an internal node.
type LoosePolicy struct{}

func (LoosePolicy) CanDrag(n *model.Node) bool { return n != nil }

func (LoosePolicy) CanDrop(parent *model.Node) bool {
	return parent != nil && parent.IsCategory()
}

// Controller tracks one drag gesture over a tree. All methods run on the
// UI goroutine; the requests channel is buffered so emitting from inside
// an event handler never blocks.
type Controller struct {
	tree     *model.Tree
	policy   Policy
	state    State
	source   model.NodeID
	requests chan MoveRequest
}

// New creates a controller for the given tree and policy.
func New(tree *model.Tree, policy Policy) *Controller {
	return &Controller{
		tree:     tree,
		policy:   policy,
		requests: make(chan MoveRequest, 16),
	}
}

// Requests returns the channel the authority consumes proposals from.
func (c *Controller) Requests() <-chan MoveRequest {
	return c.requests
}

// State returns the current gesture state.
func (c *Controller) State() State {
	return c.state
}

// Source returns the node being dragged, or "" outside a gesture.
func (c *Controller) Source() model.NodeID {
	if c.state != StateDragging {
		return model.RootID
	}
	return c.source
}

// Begin starts a drag from the given node. It enforces drag permission at
// the source: a false return means the gesture never started.
func (c *Controller) Begin(source model.NodeID) bool {
	n := c.tree.Node(source)
	if n == nil || !c.policy.CanDrag(n) {
		return false
	}
	c.state = StateDragging
	c.source = source
	return true
}

// Cancel abandons the gesture. The tree and any previously computed
// filter or sort results are untouched.
func (c *Controller) Cancel() {
	if c.state != StateDragging {
		return
	}
	c.state = StateCancelled
	c.source = model.RootID
}

// Drop ends the gesture at the given target row. An unresolvable target —
// empty space ("" / unknown id) or a parent the policy refuses — emits
// nothing and the gesture simply dissolves. On success the resolved
// proposal is emitted on the requests channel and also returned so a UI
// event loop can forward it as a message.
func (c *Controller) Drop(target model.NodeID, pos DropPosition) (MoveRequest, bool) {
	if c.state != StateDragging {
		return MoveRequest{}, false
	}
	source := c.source
	c.source = model.RootID

	parent, index, ok := c.resolve(target, pos)
	if !ok {
		debug.Log("dragdrop: drop of %s at %q did not resolve, discarding", source, target)
		c.state = StateCancelled
		return MoveRequest{}, false
	}

	req := MoveRequest{SubtreeRoot: source, TargetParent: parent, InsertionIndex: index}
	c.state = StateDropped
	select {
	case c.requests <- req:
	default:
		// A full queue means the authority stopped draining; dropping the
		// proposal matches "no effect" better than blocking the UI loop.
		debug.Log("dragdrop: request queue full, discarding %+v", req)
		return MoveRequest{}, false
	}
	return req, true
}

// resolve maps (target row, position) to the proposed (parent, index).
func (c *Controller) resolve(target model.NodeID, pos DropPosition) (model.NodeID, int, bool) {
	if target == model.RootID || !c.tree.Contains(target) {
		return model.RootID, 0, false
	}

	if pos == DropOnto {
		n := c.tree.Node(target)
		if !c.policy.CanDrop(n) {
			return model.RootID, 0, false
		}
		return target, len(c.tree.Children(target)), true
	}

	parent, _ := c.tree.Parent(target)
	if parent != model.RootID && !c.policy.CanDrop(c.tree.Node(parent)) {
		return model.RootID, 0, false
	}
	index := c.tree.ChildIndex(target)
	if index < 0 {
		return model.RootID, 0, false
	}
	return parent, index, true
}

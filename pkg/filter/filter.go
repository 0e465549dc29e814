// Package filter computes per-node visibility for a search pattern over a
// mod or pack tree. Visibility is a pure view: the tree is never mutated,
// and results are recomputed from scratch on every pattern or tree change.
//
// Two modes exist because the two tree kinds filter differently:
//
//   - ModeFlat (category → mod): categories are always shown; a mod is
//     shown iff its primary column matches.
//   - ModeDeep (pack → folder → file): a node self-matches on any column;
//     internal nodes stay visible when any descendant is; a file that does
//     not match on its own text is still shown when the pack two levels up
//     matches, so a matching pack never renders as an empty shell.
package filter

import (
	"regexp"
	"strings"

	"github.com/modmill/modmill/pkg/model"
)

// Matcher is the pluggable text-match primitive. The engine does not care
// whether it is a substring test or a regexp; the pattern source decides.
type Matcher func(text string) bool

// Substring returns a case-insensitive substring matcher. An empty pattern
// matches everything, mirroring how an empty search box shows the full
// tree.
func Substring(pattern string) Matcher {
	if pattern == "" {
		return func(string) bool { return true }
	}
	p := strings.ToLower(pattern)
	return func(text string) bool {
		return strings.Contains(strings.ToLower(text), p)
	}
}

// Regexp returns a matcher backed by a compiled regular expression. The
// "(?i)" flag is prepended so regex search stays case-insensitive like the
// substring mode.
func Regexp(pattern string) (Matcher, error) {
	if pattern == "" {
		return func(string) bool { return true }, nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	return re.MatchString, nil
}

// Visibility maps node IDs to their display decision for one filter pass.
// It must not be cached across structural mutations.
type Visibility map[model.NodeID]bool

// Visible reports the decision for a node; unknown IDs are hidden.
func (v Visibility) Visible(id model.NodeID) bool {
	return v[id]
}

// Mode selects the matching algorithm.
type Mode int

const (
	// ModeFlat is the 2-level category/mod algorithm.
	ModeFlat Mode = iota
	// ModeDeep is the 3-level pack/folder/file algorithm.
	ModeDeep
)

// Engine computes visibility for one tree kind. The zero value is a flat
// engine matching on column 0.
type Engine struct {
	Mode Mode
	// PrimaryColumn is the column flat mode matches against (the mod name).
	// Deep mode always matches every column.
	PrimaryColumn int
}

// Compute runs one filter pass and returns the visibility view. Both modes
// are a single walk over the tree: deep mode memoizes self-match results so
// total work stays linear in the node count even though internal-node
// visibility depends on every descendant.
func (e Engine) Compute(t *model.Tree, match Matcher) Visibility {
	vis := make(Visibility, t.Len())
	if match == nil {
		match = func(string) bool { return true }
	}
	switch e.Mode {
	case ModeDeep:
		e.computeDeep(t, match, vis)
	default:
		e.computeFlat(t, match, vis)
	}
	return vis
}

// computeFlat: visible(n) = n.IsCategory() || match(primary column).
// Categories are exempt from the pattern entirely so an empty category
// still shows up as a drop target while searching.
func (e Engine) computeFlat(t *model.Tree, match Matcher, vis Visibility) {
	t.Walk(func(n *model.Node, _ int) bool {
		vis[n.ID] = n.IsCategory() || match(n.Column(e.PrimaryColumn))
		return true
	})
}

// computeDeep evaluates the recursive rule bottom-up in a single post-order
// pass. Every node's visibility lands in vis because each row's decision is
// also its display decision; only the OR that feeds a parent's own
// visibility short-circuits.
func (e Engine) computeDeep(t *model.Tree, match Matcher, vis Visibility) {
	selfMatch := make(map[model.NodeID]bool, t.Len())

	var walk func(id model.NodeID) bool
	walk = func(id model.NodeID) bool {
		n := t.Node(id)
		self := matchAnyColumn(n, match)
		selfMatch[id] = self

		if n.HasChildren() {
			anyChild := false
			for _, child := range n.Children() {
				if walk(child) {
					anyChild = true
				}
			}
			v := self || anyChild
			vis[id] = v
			return v
		}

		// Leaf fallback: a file that fails on its own text inherits the
		// pack-level match two levels up. The immediate parent's match
		// state is deliberately not consulted (see the "show table folder,
		// no table file" rule in the original filter); a leaf too shallow
		// to have a grandparent simply does not match.
		v := self
		if !v {
			v = e.grandparentMatches(t, id, selfMatch, match)
		}
		vis[id] = v
		return v
	}

	for _, root := range t.Children(model.RootID) {
		walk(root)
	}
}

// grandparentMatches resolves selfMatch(grandparent(id)), tolerating trees
// shallower than three levels: a missing parent or grandparent is "no
// match", never a fault.
func (e Engine) grandparentMatches(t *model.Tree, id model.NodeID, selfMatch map[model.NodeID]bool, match Matcher) bool {
	parent, ok := t.Parent(id)
	if !ok || parent == model.RootID {
		return false
	}
	grandparent, ok := t.Parent(parent)
	if !ok || grandparent == model.RootID {
		return false
	}
	if v, ok := selfMatch[grandparent]; ok {
		return v
	}
	// Ancestors are visited before their leaves in the post-order walk, so
	// this is only reached for nodes outside the current walk (callers
	// probing a detached leaf). Fall back to a direct test.
	return matchAnyColumn(t.Node(grandparent), match)
}

func matchAnyColumn(n *model.Node, match Matcher) bool {
	if n == nil {
		return false
	}
	for _, col := range n.Columns {
		if col == "" {
			continue
		}
		if match(col) {
			return true
		}
	}
	return false
}

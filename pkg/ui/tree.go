// tree.go - Hierarchical list view shared by the mod and pack tabs.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/modmill/modmill/pkg/dragdrop"
	"github.com/modmill/modmill/pkg/filter"
	"github.com/modmill/modmill/pkg/model"
	"github.com/modmill/modmill/pkg/sorting"
)

// RowRef is one visible row of the flattened tree.
type RowRef struct {
	ID    model.NodeID
	Depth int
}

// TreeView renders one tree (mods or packs) as a scrollable column list.
// It owns cursor, expand/collapse, filter, sort and grab state; the tree
// itself is only mutated through the move authority, never here.
type TreeView struct {
	tree    *model.Tree
	theme   Theme
	columns []string // header titles, indexed by column
	engine  filter.Engine
	table   sorting.RoleTable

	flatList       []RowRef // visible rows in display order
	cursor         int
	viewportOffset int // index of first rendered row
	width          int
	height         int

	collapsed map[model.NodeID]bool

	// Filter state
	query    string
	useRegex bool
	vis      filter.Visibility
	badQuery bool // regexp failed to compile

	// Sort state
	sortColumn int
	sortDir    sorting.Direction
	sorted     bool

	// Sort popup overlay
	sortPopupOpen   bool
	sortPopupCursor int

	// Grab state (keyboard drag)
	drag *dragdrop.Controller
}

// NewTreeView creates an empty view. Call SetTree before rendering.
func NewTreeView(theme Theme, columns []string, engine filter.Engine, table sorting.RoleTable) *TreeView {
	return &TreeView{
		theme:     theme,
		columns:   columns,
		engine:    engine,
		table:     table,
		collapsed: make(map[model.NodeID]bool),
	}
}

// SetTree points the view at a (possibly new) tree and rebuilds the row
// list. Collapse state is keyed by node ID, so it survives reloads.
func (t *TreeView) SetTree(tr *model.Tree) {
	t.tree = tr
	t.drag = dragdrop.New(tr, dragdrop.StrictPolicy{})
	t.Rebuild()
}

// Tree returns the underlying tree.
func (t *TreeView) Tree() *model.Tree {
	return t.tree
}

// SetSize updates the available dimensions.
func (t *TreeView) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// Rebuild recomputes visibility and the flattened row list. Call after any
// tree mutation, filter change or sort.
func (t *TreeView) Rebuild() {
	if t.tree == nil {
		t.flatList = nil
		return
	}

	t.vis = nil
	t.badQuery = false
	if t.query != "" {
		match, err := t.matcher()
		if err != nil {
			// Keep the previous rows; the search bar shows the problem.
			t.badQuery = true
		} else {
			t.vis = t.engine.Compute(t.tree, match)
		}
	}

	prevID := t.SelectedID()

	t.flatList = t.flatList[:0]
	filtering := t.vis != nil
	t.tree.Walk(func(n *model.Node, depth int) bool {
		if filtering && !t.vis.Visible(n.ID) {
			return false
		}
		t.flatList = append(t.flatList, RowRef{ID: n.ID, Depth: depth})
		// An active filter overrides collapse so matches stay reachable.
		if !filtering && t.collapsed[n.ID] {
			return false
		}
		return true
	})

	if prevID != "" && !t.SelectByID(prevID) {
		t.clampCursor()
	}
	t.ensureCursorVisible()
}

func (t *TreeView) matcher() (filter.Matcher, error) {
	if t.useRegex {
		return filter.Regexp(t.query)
	}
	return filter.Substring(t.query), nil
}

// ─── Filter ────────────────────────────────────────────────────────────────

// SetQuery updates the live filter pattern and recomputes rows.
func (t *TreeView) SetQuery(query string, useRegex bool) {
	t.query = query
	t.useRegex = useRegex
	t.Rebuild()
}

// ClearQuery drops the filter.
func (t *TreeView) ClearQuery() {
	t.query = ""
	t.Rebuild()
}

// Query returns the active filter pattern.
func (t *TreeView) Query() string { return t.query }

// QueryInvalid reports whether the last pattern failed to compile.
func (t *TreeView) QueryInvalid() bool { return t.badQuery }

// MatchCount returns the number of visible non-category rows while a
// filter is active.
func (t *TreeView) MatchCount() int {
	if t.vis == nil {
		return 0
	}
	count := 0
	for _, row := range t.flatList {
		if n := t.tree.Node(row.ID); n != nil && !n.IsCategory() {
			count++
		}
	}
	return count
}

// ─── Sorting ───────────────────────────────────────────────────────────────

// comparator builds the active column comparator.
func (t *TreeView) comparator() sorting.Comparator {
	return sorting.Comparator{Column: t.sortColumn, Table: t.table, Direction: t.sortDir}
}

// SortBy sorts every sibling list by the given column. Sorting the same
// column again flips the direction.
func (t *TreeView) SortBy(column int) {
	if t.sorted && column == t.sortColumn {
		t.sortDir = t.sortDir.Toggle()
	} else {
		t.sortColumn = column
		t.sortDir = sorting.Ascending
	}
	t.sorted = true
	sorting.SortAll(t.tree, t.comparator())
	t.Rebuild()
}

// SortColumn returns the active sort column and whether sorting is active.
func (t *TreeView) SortColumn() (int, bool) { return t.sortColumn, t.sorted }

// SortDirection returns the active direction.
func (t *TreeView) SortDirection() sorting.Direction { return t.sortDir }

// IsSortPopupOpen reports whether the sort overlay is visible.
func (t *TreeView) IsSortPopupOpen() bool { return t.sortPopupOpen }

// OpenSortPopup shows the sort overlay with the current column highlighted.
func (t *TreeView) OpenSortPopup() {
	t.sortPopupOpen = true
	t.sortPopupCursor = t.sortColumn
}

// CloseSortPopup hides the sort overlay without applying.
func (t *TreeView) CloseSortPopup() { t.sortPopupOpen = false }

// SortPopupDown moves the popup highlight down.
func (t *TreeView) SortPopupDown() {
	if t.sortPopupCursor < len(t.columns)-1 {
		t.sortPopupCursor++
	}
}

// SortPopupUp moves the popup highlight up.
func (t *TreeView) SortPopupUp() {
	if t.sortPopupCursor > 0 {
		t.sortPopupCursor--
	}
}

// SortPopupSelect applies the highlighted column and closes the popup.
func (t *TreeView) SortPopupSelect() {
	t.sortPopupOpen = false
	t.SortBy(t.sortPopupCursor)
}

// RenderSortPopup renders the sort overlay.
func (t *TreeView) RenderSortPopup() string {
	if !t.sortPopupOpen {
		return ""
	}

	r := t.theme.Renderer
	var sb strings.Builder

	titleStyle := r.NewStyle().
		Foreground(t.theme.Primary).
		Bold(true)
	sb.WriteString(titleStyle.Render("Sort by:"))
	sb.WriteString("\n")

	for i, title := range t.columns {
		isSelected := i == t.sortPopupCursor
		isCurrent := t.sorted && i == t.sortColumn

		indicator := "  " // 2 cells for alignment
		if isCurrent {
			indicator = t.sortDir.Indicator() + " "
		}
		label := indicator + title

		var line string
		if isSelected {
			style := r.NewStyle().
				Foreground(t.theme.Primary).
				Bold(true)
			line = style.Render("▸ " + label)
		} else {
			style := r.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#E8E8E8"})
			line = style.Render("  " + label)
		}

		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}

// ─── Navigation ────────────────────────────────────────────────────────────

// MoveDown moves the cursor one row down.
func (t *TreeView) MoveDown() {
	if t.cursor < len(t.flatList)-1 {
		t.cursor++
		t.ensureCursorVisible()
	}
}

// MoveUp moves the cursor one row up.
func (t *TreeView) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureCursorVisible()
	}
}

// JumpToTop moves to the first row.
func (t *TreeView) JumpToTop() {
	t.cursor = 0
	t.ensureCursorVisible()
}

// JumpToBottom moves to the last row.
func (t *TreeView) JumpToBottom() {
	if len(t.flatList) > 0 {
		t.cursor = len(t.flatList) - 1
		t.ensureCursorVisible()
	}
}

// JumpToParent moves to the selected row's parent, if it has one.
func (t *TreeView) JumpToParent() {
	id := t.SelectedID()
	if id == "" {
		return
	}
	parent, ok := t.tree.Parent(id)
	if !ok || parent == model.RootID {
		return
	}
	t.SelectByID(parent)
}

// PageDown moves the cursor forward by a full page.
func (t *TreeView) PageDown() {
	page := t.pageSize()
	t.cursor += page
	t.clampCursor()
	t.ensureCursorVisible()
}

// PageUp moves the cursor backward by a full page.
func (t *TreeView) PageUp() {
	page := t.pageSize()
	t.cursor -= page
	t.clampCursor()
	t.ensureCursorVisible()
}

// ToggleExpand flips the collapse state of the selected category.
func (t *TreeView) ToggleExpand() {
	n := t.Selected()
	if n == nil || !n.IsCategory() {
		return
	}
	t.collapsed[n.ID] = !t.collapsed[n.ID]
	t.Rebuild()
}

// ExpandAll opens every category.
func (t *TreeView) ExpandAll() {
	t.collapsed = make(map[model.NodeID]bool)
	t.Rebuild()
}

// CollapseAll folds every category.
func (t *TreeView) CollapseAll() {
	t.collapsed = make(map[model.NodeID]bool)
	t.tree.Walk(func(n *model.Node, _ int) bool {
		if n.IsCategory() {
			t.collapsed[n.ID] = true
		}
		return true
	})
	t.Rebuild()
}

// Selected returns the node under the cursor, or nil.
func (t *TreeView) Selected() *model.Node {
	id := t.SelectedID()
	if id == "" {
		return nil
	}
	return t.tree.Node(id)
}

// SelectedID returns the node ID under the cursor, or "".
func (t *TreeView) SelectedID() model.NodeID {
	if t.cursor < 0 || t.cursor >= len(t.flatList) {
		return ""
	}
	return t.flatList[t.cursor].ID
}

// SelectByID moves the cursor to the row showing id. Returns false if the
// row is not currently visible.
func (t *TreeView) SelectByID(id model.NodeID) bool {
	for i, row := range t.flatList {
		if row.ID == id {
			t.cursor = i
			t.ensureCursorVisible()
			return true
		}
	}
	return false
}

// RowCount returns the number of visible rows.
func (t *TreeView) RowCount() int { return len(t.flatList) }

// Visibility returns the active visibility view, or nil when no filter is
// applied.
func (t *TreeView) Visibility() filter.Visibility { return t.vis }

// ─── Grab (keyboard drag) ──────────────────────────────────────────────────

// IsGrabbing reports whether a row is currently grabbed.
func (t *TreeView) IsGrabbing() bool {
	return t.drag != nil && t.drag.State() == dragdrop.StateDragging
}

// GrabbedID returns the grabbed row's ID, or "".
func (t *TreeView) GrabbedID() model.NodeID {
	if !t.IsGrabbing() {
		return ""
	}
	return t.drag.Source()
}

// GrabSelected starts dragging the row under the cursor.
func (t *TreeView) GrabSelected() bool {
	id := t.SelectedID()
	if id == "" {
		return false
	}
	return t.drag.Begin(id)
}

// CancelGrab abandons the drag without proposing a move.
func (t *TreeView) CancelGrab() {
	if t.drag != nil {
		t.drag.Cancel()
	}
}

// DropAbove ends the drag proposing insertion at the cursor row's position
// under that row's parent. Returns the proposal and whether one was made;
// an unresolvable drop ends the gesture silently.
func (t *TreeView) DropAbove() (dragdrop.MoveRequest, bool) {
	return t.drop(dragdrop.DropAbove)
}

// DropOnto ends the drag proposing an append under the cursor row.
func (t *TreeView) DropOnto() (dragdrop.MoveRequest, bool) {
	return t.drop(dragdrop.DropOnto)
}

func (t *TreeView) drop(pos dragdrop.DropPosition) (dragdrop.MoveRequest, bool) {
	if !t.IsGrabbing() {
		return dragdrop.MoveRequest{}, false
	}
	target := t.SelectedID()
	if target == "" {
		// Empty space: gesture ends, nothing proposed.
		t.drag.Cancel()
		return dragdrop.MoveRequest{}, false
	}
	return t.drag.Drop(target, pos)
}

// ─── Rendering ─────────────────────────────────────────────────────────────

// View renders the header plus the visible window of rows.
func (t *TreeView) View() string {
	if t.tree == nil || len(t.flatList) == 0 {
		return t.renderEmptyState()
	}

	var sb strings.Builder
	sb.WriteString(t.RenderHeader())
	sb.WriteString("\n")

	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		row := t.flatList[i]
		line := t.renderRow(row, i == t.cursor)
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if len(t.flatList) > t.pageSize() && t.height > 0 {
		sb.WriteString(t.renderPositionIndicator(start, end))
	}

	return sb.String()
}

// RenderHeader returns the styled column header row. The active sort
// column carries a direction arrow.
func (t *TreeView) RenderHeader() string {
	width := t.width
	if width <= 0 {
		width = 80
	}

	var cells []string
	for i, title := range t.columns {
		if t.sorted && i == t.sortColumn {
			title += " " + t.sortDir.Indicator()
		}
		cells = append(cells, padRight(title, t.columnWidth(i)))
	}

	headerStyle := t.theme.Renderer.NewStyle().
		Background(t.theme.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Width(width)

	return headerStyle.Render("  " + strings.Join(cells, " "))
}

func (t *TreeView) renderEmptyState() string {
	r := t.theme.Renderer

	titleStyle := r.NewStyle().
		Foreground(t.theme.Primary).
		Bold(true)
	mutedStyle := r.NewStyle().
		Foreground(t.theme.Muted)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("No rows"))
	sb.WriteString("\n\n")
	if t.query != "" {
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("Nothing matches %q. Press esc to clear the filter.", t.query)))
	} else {
		sb.WriteString(mutedStyle.Render("This collection is empty."))
	}
	return sb.String()
}

// renderRow renders one visible row: indent, expand indicator, flag badge
// and the column cells.
func (t *TreeView) renderRow(row RowRef, isSelected bool) string {
	n := t.tree.Node(row.ID)
	if n == nil {
		return ""
	}

	width := t.width
	if width <= 0 {
		width = 80
	}
	// Keep one cell free so the terminal never wraps on the exact edge.
	width--

	var sb strings.Builder
	sb.WriteString(strings.Repeat("  ", row.Depth))
	sb.WriteString(t.expandIndicator(n))
	sb.WriteString(flagBadge(n.Flags))
	sb.WriteString(" ")

	first := n.Column(0)
	if n.IsCategory() {
		label := fmt.Sprintf("%s (%d)", first, len(t.tree.Children(n.ID)))
		sb.WriteString(t.theme.CategoryBold.Render(label))
	} else {
		cells := make([]string, 0, len(t.columns))
		for i := range t.columns {
			cells = append(cells, padRight(truncate(n.Column(i), t.columnWidth(i)), t.columnWidth(i)))
		}
		sb.WriteString(strings.Join(cells, " "))
	}

	line := truncateRunesHelper(sb.String(), width, "…")

	switch {
	case t.IsGrabbing() && row.ID == t.drag.Source():
		return t.theme.Grabbed.Render(line)
	case isSelected:
		return t.theme.Selected.Render(line)
	case n.Flags.Has(model.FlagDisabled):
		return t.theme.MutedText.Render(line)
	default:
		return line
	}
}

func (t *TreeView) expandIndicator(n *model.Node) string {
	if !n.IsCategory() {
		return "  "
	}
	if t.collapsed[n.ID] && t.vis == nil {
		return "▸ "
	}
	return "▾ "
}

// columnWidth returns the render width for a column. The first column is
// flexible; the rest use fixed widths sized for their content.
func (t *TreeView) columnWidth(col int) int {
	if col == 0 {
		w := t.width
		if w <= 0 {
			w = 80
		}
		fixed := 0
		for i := 1; i < len(t.columns); i++ {
			fixed += t.columnWidth(i) + 1
		}
		flex := w - fixed - 6
		if flex < 12 {
			flex = 12
		}
		return flex
	}
	return 10
}

// renderPositionIndicator shows "Page X/Y (start-end of total)".
func (t *TreeView) renderPositionIndicator(start, end int) string {
	total := len(t.flatList)
	pageSize := t.pageSize()
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	currentPage := t.viewportOffset/pageSize + 1
	if currentPage > totalPages {
		currentPage = totalPages
	}

	indicator := fmt.Sprintf(" Page %d/%d (%d-%d of %d)", currentPage, totalPages, start+1, end, total)
	return t.theme.Renderer.NewStyle().
		Foreground(t.theme.Muted).
		Render(indicator)
}

// visibleRange returns the window of rows to render.
func (t *TreeView) visibleRange() (start, end int) {
	start = t.viewportOffset
	end = start + t.pageSize()
	if end > len(t.flatList) {
		end = len(t.flatList)
	}
	if start > end {
		start = end
	}
	return start, end
}

// pageSize returns the number of rows that fit below the header.
func (t *TreeView) pageSize() int {
	size := t.height - 2 // header + position indicator
	if size < 1 {
		size = 1
	}
	return size
}

func (t *TreeView) clampCursor() {
	if t.cursor >= len(t.flatList) {
		t.cursor = len(t.flatList) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
}

func (t *TreeView) ensureCursorVisible() {
	page := t.pageSize()
	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	}
	if t.cursor >= t.viewportOffset+page {
		t.viewportOffset = t.cursor - page + 1
	}
	if t.viewportOffset < 0 {
		t.viewportOffset = 0
	}
}

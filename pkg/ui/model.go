// Package ui implements the mm terminal interface: two tree tabs (mods and
// packs), live filtering, column sorting, and keyboard grab-and-move
// reordering routed through the move authority.
package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/modmill/modmill/pkg/authority"
	"github.com/modmill/modmill/pkg/config"
	"github.com/modmill/modmill/pkg/debug"
	"github.com/modmill/modmill/pkg/dragdrop"
	"github.com/modmill/modmill/pkg/export"
	"github.com/modmill/modmill/pkg/filter"
	"github.com/modmill/modmill/pkg/loader"
	"github.com/modmill/modmill/pkg/model"
	"github.com/modmill/modmill/pkg/watcher"
	"github.com/modmill/modmill/internal/datasource"
)

// View identifies the active tab.
type View int

const (
	ViewMods View = iota
	ViewPacks
)

func (v View) String() string {
	if v == ViewPacks {
		return "packs"
	}
	return "mods"
}

// ─── Messages ──────────────────────────────────────────────────────────────

// ReloadMsg asks the app to rescan the data directory.
type ReloadMsg struct{}

// CollectionMsg carries the result of a scan.
type CollectionMsg struct {
	Collection *loader.Collection
	Err        error
}

// MoveRequestedMsg carries a drop proposal from the tree view.
type MoveRequestedMsg struct {
	Request dragdrop.MoveRequest
}

// MoveDecidedMsg carries the authority's verdict on a proposal.
type MoveDecidedMsg struct {
	Decision authority.Decision
}

// statusClearMsg expires a transient status message.
type statusClearMsg struct{ seq int }

// WatchCmd waits for the next change notification from the watcher.
func WatchCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return ReloadMsg{}
	}
}

// LoadCollectionCmd rescans the data directory off the UI goroutine.
func LoadCollectionCmd(dir string) tea.Cmd {
	return func() tea.Msg {
		c, err := loader.LoadCollection(context.Background(), dir)
		return CollectionMsg{Collection: c, Err: err}
	}
}

func statusClearCmd(seq int) tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return statusClearMsg{seq: seq}
	})
}

// ─── App ───────────────────────────────────────────────────────────────────

// App is the main Bubble Tea model for mm.
type App struct {
	cfg     config.Config
	dataDir string
	theme   Theme

	collection *loader.Collection
	modsAuth   *authority.Authority
	packsAuth  *authority.Authority

	mods  *TreeView
	packs *TreeView

	view      View
	watcher   *watcher.Watcher
	store     *datasource.Store

	// Search state
	searching   bool
	searchInput textinput.Model

	// Overlays
	editModal *EditModal
	showHelp  bool
	helpView  string

	statusMsg string
	statusSeq int
	loadErr   error

	ready  bool
	width  int
	height int
}

// NewApp builds the app around an initial collection. The watcher and
// store may be nil (no live reload / no profile persistence).
func NewApp(cfg config.Config, dataDir string, c *loader.Collection, w *watcher.Watcher, store *datasource.Store) App {
	theme := DefaultTheme(lipgloss.DefaultRenderer())

	titles := make([]string, len(cfg.Columns))
	for i, col := range cfg.Columns {
		titles[i] = col.Title
	}

	mods := NewTreeView(theme, titles,
		filter.Engine{Mode: filter.ModeFlat, PrimaryColumn: loader.ColName},
		cfg.RoleTable())
	packs := NewTreeView(theme, []string{"Name", "Size"},
		filter.Engine{Mode: filter.ModeDeep},
		nil)

	input := textinput.New()
	input.Prompt = "/"
	input.Placeholder = "filter"
	input.CharLimit = 120

	app := App{
		cfg:         cfg,
		dataDir:     dataDir,
		theme:       theme,
		mods:        mods,
		packs:       packs,
		watcher:     w,
		store:       store,
		searchInput: input,
	}
	app.setCollection(c)

	if cfg.UI.DefaultView == "packs" {
		app.view = ViewPacks
	}
	return app
}

// setCollection swaps in freshly scanned trees and rewires the authorities.
func (m *App) setCollection(c *loader.Collection) {
	if c == nil {
		return
	}
	m.collection = c

	m.modsAuth = authority.New(c.Mods)
	for id, deps := range c.LoadAfter {
		m.modsAuth.SetLoadAfter(id, deps...)
	}
	m.packsAuth = authority.New(c.Packs)

	m.mods.SetTree(c.Mods)
	m.packs.SetTree(c.Packs)
}

// active returns the tree view for the current tab.
func (m *App) active() *TreeView {
	if m.view == ViewPacks {
		return m.packs
	}
	return m.mods
}

// activeAuthority returns the move authority for the current tab.
func (m *App) activeAuthority() *authority.Authority {
	if m.view == ViewPacks {
		return m.packsAuth
	}
	return m.modsAuth
}

func (m *App) setStatus(msg string) tea.Cmd {
	m.statusMsg = msg
	m.statusSeq++
	return statusClearCmd(m.statusSeq)
}

// Init implements tea.Model.
func (m App) Init() tea.Cmd {
	if m.watcher != nil {
		return WatchCmd(m.watcher)
	}
	return nil
}

// Update implements tea.Model.
func (m App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		contentHeight := m.height - 3 // tabs + status bar
		m.mods.SetSize(m.width, contentHeight)
		m.packs.SetSize(m.width, contentHeight)
		m.searchInput.Width = m.width - 10
		return m, nil

	case ReloadMsg:
		cmds := []tea.Cmd{LoadCollectionCmd(m.dataDir)}
		if m.watcher != nil {
			cmds = append(cmds, WatchCmd(m.watcher))
		}
		return m, tea.Batch(cmds...)

	case CollectionMsg:
		if msg.Err != nil {
			m.loadErr = msg.Err
			return m, m.setStatus(fmt.Sprintf("reload failed: %v", msg.Err))
		}
		m.loadErr = nil
		m.setCollection(msg.Collection)
		return m, m.setStatus("collection reloaded")

	case MoveRequestedMsg:
		decision := m.activeAuthority().Apply(msg.Request)
		return m.Update(MoveDecidedMsg{Decision: decision})

	case MoveDecidedMsg:
		d := msg.Decision
		if d.Accepted {
			m.active().Rebuild()
			m.active().SelectByID(d.Request.SubtreeRoot)
			return m, m.setStatus("moved")
		}
		return m, m.setStatus(fmt.Sprintf("move rejected: %s", d.Reason))

	case statusClearMsg:
		if msg.seq == m.statusSeq {
			m.statusMsg = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.editModal != nil {
		cmd := m.editModal.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Modal overlays swallow keys first.
	if m.editModal != nil {
		return m.handleEditModalKey(msg)
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	tree := m.active()

	if tree.IsSortPopupOpen() {
		switch msg.String() {
		case "esc", "q", "s":
			tree.CloseSortPopup()
		case "j", "down":
			tree.SortPopupDown()
		case "k", "up":
			tree.SortPopupUp()
		case "enter":
			tree.SortPopupSelect()
		}
		return m, nil
	}

	if tree.IsGrabbing() {
		return m.handleGrabKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "tab":
		if m.view == ViewMods {
			m.view = ViewPacks
		} else {
			m.view = ViewMods
		}
		return m, nil

	case "?":
		m.showHelp = true
		m.helpView = renderHelp(m.width)
		return m, nil

	case "/":
		m.searching = true
		m.searchInput.SetValue(tree.Query())
		m.searchInput.Focus()
		return m, textinput.Blink

	case "esc":
		if tree.Query() != "" {
			tree.ClearQuery()
		}
		return m, nil

	case "j", "down":
		tree.MoveDown()
	case "k", "up":
		tree.MoveUp()
	case "g", "home":
		tree.JumpToTop()
	case "G", "end":
		tree.JumpToBottom()
	case "pgdown", "ctrl+f":
		tree.PageDown()
	case "pgup", "ctrl+b":
		tree.PageUp()
	case "p":
		tree.JumpToParent()
	case "enter", "l", "right":
		tree.ToggleExpand()
	case "E":
		tree.ExpandAll()
	case "C":
		tree.CollapseAll()

	case "s":
		tree.OpenSortPopup()

	case "m":
		// Grab the selected row for a keyboard move.
		if tree.GrabSelected() {
			return m, m.setStatus(fmt.Sprintf("moving %s (enter: before row, o: into row, esc: cancel)", tree.SelectedID()))
		}
		return m, nil

	case "y":
		if id := tree.SelectedID(); id != "" {
			if err := clipboard.WriteAll(string(id)); err != nil {
				return m, m.setStatus(fmt.Sprintf("clipboard error: %v", err))
			}
			return m, m.setStatus(fmt.Sprintf("copied %s", id))
		}
		return m, nil

	case "e":
		if n := tree.Selected(); n != nil {
			m.editModal = NewEditModal(n, m.theme)
			return m, m.editModal.Init()
		}
		return m, nil

	case "x":
		return m, m.exportSnapshot()

	case "w":
		return m, m.saveProfile()

	case "r":
		return m, func() tea.Msg { return ReloadMsg{} }
	}

	return m, nil
}

// handleGrabKey processes keys while a row is grabbed.
func (m App) handleGrabKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tree := m.active()

	switch msg.String() {
	case "esc", "q":
		tree.CancelGrab()
		return m, m.setStatus("move cancelled")

	case "j", "down":
		tree.MoveDown()
	case "k", "up":
		tree.MoveUp()
	case "g", "home":
		tree.JumpToTop()
	case "G", "end":
		tree.JumpToBottom()

	case "enter":
		if req, ok := tree.DropAbove(); ok {
			return m.Update(MoveRequestedMsg{Request: req})
		}
		return m, m.setStatus("nothing to move there")

	case "o":
		if req, ok := tree.DropOnto(); ok {
			return m.Update(MoveRequestedMsg{Request: req})
		}
		return m, m.setStatus("nothing to move there")
	}

	return m, nil
}

// handleSearchKey processes keys while the filter input is focused.
func (m App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tree := m.active()

	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		tree.ClearQuery()
		return m, nil
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	tree.SetQuery(m.searchInput.Value(), m.cfg.UI.RegexSearch)
	return m, cmd
}

func (m App) handleEditModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.editModal = nil
		return m, nil
	}

	cmd := m.editModal.Update(msg)
	if m.editModal.Done() {
		modal := m.editModal
		m.editModal = nil
		if modal.Saved() {
			if n := m.active().Tree().Node(modal.Target()); n != nil {
				n.SetColumn(0, modal.Value())
				m.active().Rebuild()
				return m, m.setStatus(fmt.Sprintf("renamed to %q", modal.Value()))
			}
		}
		return m, nil
	}
	return m, cmd
}

// exportSnapshot writes an SVG of the current view next to the data dir.
func (m *App) exportSnapshot() tea.Cmd {
	tree := m.active()
	path := filepath.Join(m.dataDir, fmt.Sprintf("mm-%s.svg", m.view))
	err := export.Snapshot(tree.Tree(), tree.Visibility(), export.SnapshotOptions{
		Path:  path,
		Title: fmt.Sprintf("mm %s view", m.view),
		Width: 900,
	})
	if err != nil {
		debug.Log("ui: snapshot export: %v", err)
		return m.setStatus(fmt.Sprintf("export failed: %v", err))
	}
	return m.setStatus(fmt.Sprintf("exported %s", path))
}

// saveProfile persists the current mod order as the "current" profile.
func (m *App) saveProfile() tea.Cmd {
	if m.store == nil || m.collection == nil {
		return m.setStatus("no profile store configured")
	}
	p := datasource.Profile{
		Name:    "current",
		Entries: datasource.SnapshotTree(m.collection.Mods),
	}
	if err := m.store.SaveProfile(p); err != nil {
		return m.setStatus(fmt.Sprintf("profile save failed: %v", err))
	}
	return m.setStatus(fmt.Sprintf("saved profile %q (%d mods)", p.Name, len(p.Entries)))
}

// View implements tea.Model.
func (m App) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.helpView
	}
	if m.editModal != nil {
		return m.editModal.View()
	}

	var sb []string
	sb = append(sb, m.renderTabs())

	tree := m.active()
	sb = append(sb, tree.View())

	if tree.IsSortPopupOpen() {
		sb = append(sb, tree.RenderSortPopup())
	}
	sb = append(sb, m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sb...)
}

func (m App) renderTabs() string {
	r := m.theme.Renderer
	activeStyle := r.NewStyle().
		Foreground(m.theme.Primary).
		Bold(true).
		Underline(true).
		Padding(0, 1)
	inactiveStyle := r.NewStyle().
		Foreground(m.theme.Muted).
		Padding(0, 1)

	modsTab := inactiveStyle.Render("Mods")
	packsTab := inactiveStyle.Render("Packs")
	if m.view == ViewMods {
		modsTab = activeStyle.Render("Mods")
	} else {
		packsTab = activeStyle.Render("Packs")
	}

	game := m.cfg.ActiveGame
	if game == "" {
		game = filepath.Base(m.dataDir)
	}
	title := r.NewStyle().Foreground(m.theme.Secondary).Render(" " + game)

	return lipgloss.JoinHorizontal(lipgloss.Top, modsTab, packsTab, title)
}

func (m App) renderStatusBar() string {
	r := m.theme.Renderer
	tree := m.active()

	if m.searching {
		count := ""
		if tree.QueryInvalid() {
			count = " [bad pattern]"
		} else if tree.Query() != "" {
			count = fmt.Sprintf(" [%d matches]", tree.MatchCount())
		}
		return m.searchInput.View() + r.NewStyle().Foreground(m.theme.Muted).Render(count)
	}

	left := m.statusMsg
	if left == "" {
		if tree.Query() != "" {
			left = fmt.Sprintf("filter: %q (%d matches)", tree.Query(), tree.MatchCount())
		} else {
			left = fmt.Sprintf("%d rows", tree.RowCount())
		}
	}
	if m.loadErr != nil {
		left = fmt.Sprintf("load error: %v", m.loadErr)
	}

	help := "?: help  /: filter  s: sort  m: move  q: quit"
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(help) - 2
	if gap < 1 {
		gap = 1
	}

	return r.NewStyle().Foreground(m.theme.Muted).Render(
		" " + left + fmt.Sprintf("%*s", gap, "") + help)
}

// Grabbed is a test hook exposing whether the active view holds a grab.
func (m App) Grabbed() model.NodeID {
	return m.active().GrabbedID()
}

package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/modmill/modmill/pkg/config"
	"github.com/modmill/modmill/pkg/loader"
	"github.com/modmill/modmill/pkg/model"
	"github.com/modmill/modmill/pkg/testutil"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(t *testing.T, app App, keys ...string) App {
	t.Helper()
	for _, k := range keys {
		next, _ := app.Update(key(k))
		app = next.(App)
	}
	return app
}

func newTestApp(t *testing.T) App {
	t.Helper()
	c := &loader.Collection{
		Mods:      testutil.QuickFlat(2, 2),
		Packs:     testutil.QuickDeep(2, 2),
		LoadAfter: make(map[model.NodeID][]model.NodeID),
	}
	app := NewApp(config.DefaultConfig(), t.TempDir(), c, nil, nil)
	next, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(App)
}

func TestAppTabSwitchesView(t *testing.T) {
	app := newTestApp(t)
	if app.view != ViewMods {
		t.Fatalf("initial view = %v", app.view)
	}

	app = press(t, app, "tab")
	if app.view != ViewPacks {
		t.Errorf("view after tab = %v", app.view)
	}
	app = press(t, app, "tab")
	if app.view != ViewMods {
		t.Errorf("view after second tab = %v", app.view)
	}
}

func TestAppSearchFiltersRows(t *testing.T) {
	app := newTestApp(t)

	app = press(t, app, "/")
	if !app.searching {
		t.Fatal("slash should focus the filter input")
	}

	for _, r := range "Mod 0-1" {
		app = press(t, app, string(r))
	}
	if app.mods.MatchCount() != 1 {
		t.Errorf("match count = %d, want 1", app.mods.MatchCount())
	}

	// Enter keeps the filter, esc from browse mode clears it.
	app = press(t, app, "enter")
	if app.searching {
		t.Error("enter should leave search mode")
	}
	if app.mods.Query() == "" {
		t.Error("enter should keep the filter")
	}

	app = press(t, app, "esc")
	if app.mods.Query() != "" {
		t.Error("esc should clear the filter")
	}
}

func TestAppSearchEscCancels(t *testing.T) {
	app := newTestApp(t)

	app = press(t, app, "/", "x", "esc")
	if app.searching {
		t.Error("esc should leave search mode")
	}
	if app.mods.Query() != "" {
		t.Errorf("query = %q after cancel", app.mods.Query())
	}
}

func TestAppGrabMoveAccepted(t *testing.T) {
	app := newTestApp(t)

	// Grab mod-0-0, walk down to mod-1-0, drop above it.
	app.mods.SelectByID("test/mod-0-0")
	app = press(t, app, "m")
	if app.Grabbed() != "test/mod-0-0" {
		t.Fatalf("grabbed = %s", app.Grabbed())
	}

	app.mods.SelectByID("test/mod-1-0")
	app = press(t, app, "enter")

	if app.Grabbed() != "" {
		t.Error("gesture should end after drop")
	}
	got := app.mods.Tree().Children("test/cat-1")
	if len(got) != 3 || got[0] != "test/mod-0-0" {
		t.Errorf("cat-1 children = %v", got)
	}
	if app.mods.SelectedID() != "test/mod-0-0" {
		t.Errorf("selection after move = %s", app.mods.SelectedID())
	}
	if app.statusMsg != "moved" {
		t.Errorf("status = %q", app.statusMsg)
	}
}

func TestAppGrabMoveRejectedLeavesTree(t *testing.T) {
	c := &loader.Collection{
		Mods:  testutil.QuickFlat(2, 2),
		Packs: testutil.QuickDeep(2, 2),
		// mod-0-0 must load after mod-1-0, so it can never sit before it.
		LoadAfter: map[model.NodeID][]model.NodeID{
			"test/mod-0-0": {"test/mod-1-0"},
		},
	}
	app := NewApp(config.DefaultConfig(), t.TempDir(), c, nil, nil)
	next, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	app = next.(App)

	before := app.mods.Tree().Leaves()

	app.mods.SelectByID("test/mod-0-0")
	app = press(t, app, "m")
	app.mods.SelectByID("test/mod-1-0")
	app = press(t, app, "enter")

	after := app.mods.Tree().Leaves()
	if len(after) != len(before) {
		t.Fatal("leaf count changed")
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("rejected move mutated the tree: %v -> %v", before, after)
		}
	}
	if !strings.HasPrefix(app.statusMsg, "move rejected:") {
		t.Errorf("status = %q", app.statusMsg)
	}
}

func TestAppGrabCancel(t *testing.T) {
	app := newTestApp(t)

	app.mods.SelectByID("test/mod-0-0")
	app = press(t, app, "m", "esc")
	if app.Grabbed() != "" {
		t.Error("esc should cancel the grab")
	}
	if app.statusMsg != "move cancelled" {
		t.Errorf("status = %q", app.statusMsg)
	}
}

func TestAppSortPopupKeys(t *testing.T) {
	app := newTestApp(t)

	app = press(t, app, "s")
	if !app.mods.IsSortPopupOpen() {
		t.Fatal("s should open the sort popup")
	}
	app = press(t, app, "j", "enter")
	if app.mods.IsSortPopupOpen() {
		t.Error("enter should close the popup")
	}
	if col, active := app.mods.SortColumn(); !active || col != 1 {
		t.Errorf("sort column = %d active=%v", col, active)
	}
}

func TestAppHelpOverlay(t *testing.T) {
	app := newTestApp(t)

	app = press(t, app, "?")
	if !app.showHelp {
		t.Fatal("? should open help")
	}
	if !strings.Contains(app.View(), "key reference") {
		t.Error("help view should render the key reference")
	}

	app = press(t, app, "j")
	if app.showHelp {
		t.Error("any key should close help")
	}
}

func TestAppEditModalRenames(t *testing.T) {
	app := newTestApp(t)

	app.mods.SelectByID("test/mod-0-0")
	app = press(t, app, "e")
	if app.editModal == nil {
		t.Fatal("e should open the rename modal")
	}

	// esc discards without touching the node.
	app = press(t, app, "esc")
	if app.editModal != nil {
		t.Error("esc should close the modal")
	}
	if got := app.mods.Tree().Node("test/mod-0-0").Column(0); got != "Mod 0-0" {
		t.Errorf("name after discard = %q", got)
	}
}

func TestAppCollectionMsgSwapsTrees(t *testing.T) {
	app := newTestApp(t)

	fresh := &loader.Collection{
		Mods:      testutil.QuickFlat(1, 1),
		Packs:     testutil.QuickDeep(2, 2),
		LoadAfter: make(map[model.NodeID][]model.NodeID),
	}
	next, _ := app.Update(CollectionMsg{Collection: fresh})
	app = next.(App)

	if app.mods.RowCount() != 2 {
		t.Errorf("rows after reload = %d, want 2", app.mods.RowCount())
	}
	if app.statusMsg != "collection reloaded" {
		t.Errorf("status = %q", app.statusMsg)
	}
}

func TestAppStatusClearRespectsSeq(t *testing.T) {
	app := newTestApp(t)
	app.statusMsg = "stale"
	app.statusSeq = 2

	// An expired tick from an older status must not clear a newer one.
	next, _ := app.Update(statusClearMsg{seq: 1})
	app = next.(App)
	if app.statusMsg != "stale" {
		t.Error("old tick cleared a newer status")
	}

	next, _ = app.Update(statusClearMsg{seq: 2})
	app = next.(App)
	if app.statusMsg != "" {
		t.Error("matching tick should clear the status")
	}
}

func TestAppViewRendersTabsAndStatus(t *testing.T) {
	app := newTestApp(t)

	out := app.View()
	if !strings.Contains(out, "Mods") || !strings.Contains(out, "Packs") {
		t.Error("view should render both tab labels")
	}
	if !strings.Contains(out, "rows") {
		t.Error("status bar should show the row count")
	}
}

func TestAppNotReadyShowsLoading(t *testing.T) {
	c := &loader.Collection{
		Mods:      model.NewTree(),
		Packs:     model.NewTree(),
		LoadAfter: make(map[model.NodeID][]model.NodeID),
	}
	app := NewApp(config.DefaultConfig(), t.TempDir(), c, nil, nil)
	if app.View() != "Loading..." {
		t.Errorf("pre-size view = %q", app.View())
	}
}

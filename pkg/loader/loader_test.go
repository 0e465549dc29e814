package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/modmill/modmill/pkg/model"
)

func writeMod(t *testing.T, dir, name, body string) {
	t.Helper()
	modDir := filepath.Join(dir, "mods", name)
	if err := os.MkdirAll(modDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(modDir, "modinfo.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCollectionBuildsModTree(t *testing.T) {
	dir := t.TempDir()
	writeMod(t, dir, "archers", `{
		"id": "archers", "name": "Archers Rework", "creator": "ada",
		"type": "mod", "size_bytes": 2048, "category": "Units",
		"created_at": 1700000000, "updated_at": 1760000000,
		"load_after": ["base"]
	}`)
	writeMod(t, dir, "base", `{
		"id": "base", "name": "Base Overhaul", "creator": "bob",
		"type": "mod", "size_bytes": 10240, "category": "Units"
	}`)
	writeMod(t, dir, "coastal", `{
		"id": "coastal", "name": "Coastal Maps", "creator": "cyn",
		"type": "map", "size_bytes": 512, "category": "Maps",
		"outdated": true
	}`)

	c, err := LoadCollection(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	// Two categories, three mods.
	roots := c.Mods.Children(model.RootID)
	if len(roots) != 2 {
		t.Fatalf("root categories = %v", roots)
	}
	if c.Mods.Len() != 5 {
		t.Errorf("tree size = %d, want 5", c.Mods.Len())
	}

	archers := c.Mods.Node(ModNodeID("archers"))
	if archers == nil {
		t.Fatal("archers node missing")
	}
	if got := archers.Column(ColCreator); got != "ada" {
		t.Errorf("creator column = %q", got)
	}
	if key, ok := archers.SortKeyFor(ColSize); !ok {
		t.Error("size column should carry a typed key")
	} else if key.Compare(model.IntKey(2048)) != 0 {
		t.Error("size key mismatch")
	}
	if p, _ := c.Mods.Parent(archers.ID); p != CategoryNodeID("Units") {
		t.Errorf("parent = %q", p)
	}

	coastal := c.Mods.Node(ModNodeID("coastal"))
	if !coastal.Flags.Has(model.FlagOutdated) {
		t.Error("outdated flag lost")
	}

	// Constraints surfaced for the authority.
	deps := c.LoadAfter[ModNodeID("archers")]
	if len(deps) != 1 || deps[0] != ModNodeID("base") {
		t.Errorf("load-after = %v", deps)
	}
}

func TestLoadCollectionSkipsBrokenMod(t *testing.T) {
	dir := t.TempDir()
	writeMod(t, dir, "good", `{"id": "good", "name": "Good", "category": "Misc"}`)
	writeMod(t, dir, "broken", `{not json`)

	c, err := LoadCollection(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Mods.Contains(ModNodeID("good")) {
		t.Error("good mod missing")
	}
	if c.Mods.Contains(ModNodeID("broken")) {
		t.Error("broken mod should be skipped")
	}
}

func TestLoadCollectionEmptyDir(t *testing.T) {
	c, err := LoadCollection(context.Background(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if c.Mods.Len() != 0 || c.Packs.Len() != 0 {
		t.Errorf("expected empty trees, got %d/%d nodes", c.Mods.Len(), c.Packs.Len())
	}
}

func TestBuildPackTreeDeepShape(t *testing.T) {
	dir := t.TempDir()
	packs := filepath.Join(dir, "packs")
	if err := os.MkdirAll(filepath.Join(packs, "foo", "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(packs, "foo", "data", "x.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr, err := BuildPackTree(packs)
	if err != nil {
		t.Fatal(err)
	}

	pack := tr.Node("pack/foo")
	if pack == nil || !pack.IsCategory() {
		t.Fatal("pack node missing or not a category")
	}
	folder := tr.Node("pack/foo/data")
	if folder == nil || !folder.IsCategory() {
		t.Fatal("folder node missing or not a category")
	}
	file := tr.Node("pack/foo/data/x.txt")
	if file == nil || file.IsCategory() {
		t.Fatal("file node missing or wrongly a category")
	}
	if p, _ := tr.Parent(file.ID); p != folder.ID {
		t.Errorf("file parent = %q", p)
	}
	if gp, _ := tr.Parent(folder.ID); gp != pack.ID {
		t.Errorf("folder parent = %q", gp)
	}
}

func TestModInfoFallbacks(t *testing.T) {
	dir := t.TempDir()
	writeMod(t, dir, "nameless", `{"creator": "x"}`)

	c, err := LoadCollection(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	n := c.Mods.Node(ModNodeID("nameless"))
	if n == nil {
		t.Fatal("mod with missing id should fall back to its directory name")
	}
	if got := n.Column(ColName); got != "nameless" {
		t.Errorf("name fallback = %q", got)
	}
	if p, _ := c.Mods.Parent(n.ID); p != CategoryNodeID("Uncategorized") {
		t.Errorf("category fallback parent = %q", p)
	}
}

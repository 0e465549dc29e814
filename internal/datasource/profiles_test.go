package datasource

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/modmill/modmill/pkg/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "profiles.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s := openTestStore(t)

	in := Profile{
		Name:      "campaign",
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Entries: []ProfileEntry{
			{Position: 0, ModID: "mod/base", Category: "Units"},
			{Position: 1, ModID: "mod/archers", Category: "Units", Disabled: true},
			{Position: 2, ModID: "mod/coastal", Category: "Maps"},
		},
	}
	if err := s.SaveProfile(in); err != nil {
		t.Fatal(err)
	}

	out, err := s.LoadProfile("campaign")
	if err != nil {
		t.Fatal(err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("created_at = %v, want %v", out.CreatedAt, in.CreatedAt)
	}
	if len(out.Entries) != 3 {
		t.Fatalf("entries = %+v", out.Entries)
	}
	for i, e := range out.Entries {
		if e != in.Entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, e, in.Entries[i])
		}
	}
}

func TestSaveProfileReplaces(t *testing.T) {
	s := openTestStore(t)

	first := Profile{Name: "p", Entries: []ProfileEntry{{Position: 0, ModID: "mod/a"}}}
	if err := s.SaveProfile(first); err != nil {
		t.Fatal(err)
	}
	second := Profile{Name: "p", Entries: []ProfileEntry{
		{Position: 0, ModID: "mod/b"},
		{Position: 1, ModID: "mod/a"},
	}}
	if err := s.SaveProfile(second); err != nil {
		t.Fatal(err)
	}

	out, err := s.LoadProfile("p")
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Entries) != 2 || out.Entries[0].ModID != "mod/b" {
		t.Errorf("entries after replace = %+v", out.Entries)
	}
}

func TestLoadMissingProfile(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadProfile("nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("got %v, want sql.ErrNoRows", err)
	}
}

func TestListAndDelete(t *testing.T) {
	s := openTestStore(t)
	for _, name := range []string{"alpha", "beta"} {
		if err := s.SaveProfile(Profile{Name: name}); err != nil {
			t.Fatal(err)
		}
	}

	names, err := s.ListProfiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("names = %v", names)
	}

	if err := s.DeleteProfile("alpha"); err != nil {
		t.Fatal(err)
	}
	names, err = s.ListProfiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "beta" {
		t.Errorf("names after delete = %v", names)
	}
}

func TestSnapshotTree(t *testing.T) {
	tr := model.NewTree()
	ins := func(parent model.NodeID, n *model.Node) {
		t.Helper()
		if err := tr.Insert(parent, tr.Len(), n); err != nil {
			t.Fatal(err)
		}
	}
	ins(model.RootID, model.NewNode("cat/Units", model.FlagCategory, "Units"))
	ins("cat/Units", model.NewNode("mod/a", 0, "A"))
	disabled := model.NewNode("mod/b", model.FlagDisabled, "B")
	ins("cat/Units", disabled)

	entries := SnapshotTree(tr)
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].ModID != "mod/a" || entries[0].Category != "Units" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if !entries[1].Disabled {
		t.Error("disabled flag not captured")
	}
}

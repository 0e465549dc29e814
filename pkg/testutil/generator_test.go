package testutil

import (
	"testing"

	"github.com/modmill/modmill/pkg/model"
)

func TestFlat(t *testing.T) {
	tests := []struct {
		name       string
		categories int
		modsPer    int
		wantNodes  int
	}{
		{"flat_1x1", 1, 1, 2},
		{"flat_2x3", 2, 3, 8},
		{"flat_4x0", 4, 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := QuickFlat(tt.categories, tt.modsPer)
			if tr.Len() != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", tr.Len(), tt.wantNodes)
			}
			AssertTreeInvariants(t, tr)

			if len(tr.Children(model.RootID)) != tt.categories {
				t.Errorf("root children = %d, want %d", len(tr.Children(model.RootID)), tt.categories)
			}
		})
	}
}

func TestDeep(t *testing.T) {
	tr := QuickDeep(3, 2)
	AssertTreeInvariants(t, tr)

	// 2 packs, each with 2 folders, each with 2 files.
	if got := tr.Len(); got != 14 {
		t.Errorf("nodes = %d, want 14", got)
	}
	if got := len(tr.Leaves()); got != 8 {
		t.Errorf("leaves = %d, want 8", got)
	}

	// Internal levels are categories.
	for _, pack := range tr.Children(model.RootID) {
		if !tr.Node(pack).IsCategory() {
			t.Errorf("top-level node %s should be a category", pack)
		}
	}
}

func TestGeneratorDeterminism(t *testing.T) {
	a := New(GeneratorConfig{Seed: 7}).Flat(2, 2)
	b := New(GeneratorConfig{Seed: 7}).Flat(2, 2)

	leavesA := a.Leaves()
	leavesB := b.Leaves()
	if len(leavesA) != len(leavesB) {
		t.Fatalf("leaf counts differ: %d vs %d", len(leavesA), len(leavesB))
	}
	for i := range leavesA {
		na, nb := a.Node(leavesA[i]), b.Node(leavesB[i])
		if na.Column(1) != nb.Column(1) {
			t.Errorf("same seed produced different creators: %q vs %q", na.Column(1), nb.Column(1))
		}
	}
}

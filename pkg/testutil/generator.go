// Package testutil provides deterministic tree fixtures and assertion
// helpers shared by tests across the module.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/modmill/modmill/pkg/model"
)

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed     int64  // Random seed for determinism (default 42)
	IDPrefix string // Prefix for node IDs (default "test")
}

// Generator builds tree fixtures with various shapes.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "test"
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(GeneratorConfig{})
}

// Flat builds a category → mod tree with the given shape. Category c gets
// modsPer leaves; every leaf has Name and Creator columns.
func (g *Generator) Flat(categories, modsPer int) *model.Tree {
	tr := model.NewTree()
	for c := 0; c < categories; c++ {
		catID := model.NodeID(fmt.Sprintf("%s/cat-%d", g.cfg.IDPrefix, c))
		cat := model.NewNode(catID, model.FlagCategory, fmt.Sprintf("Category %d", c))
		if err := tr.Insert(model.RootID, c, cat); err != nil {
			panic(err)
		}
		for m := 0; m < modsPer; m++ {
			id := model.NodeID(fmt.Sprintf("%s/mod-%d-%d", g.cfg.IDPrefix, c, m))
			n := model.NewNode(id, 0,
				fmt.Sprintf("Mod %d-%d", c, m),
				fmt.Sprintf("author-%d", g.rng.Intn(5)))
			if err := tr.Insert(catID, m, n); err != nil {
				panic(err)
			}
		}
	}
	return tr
}

// Deep builds a pack → folder → file tree with the given depth and branching
// factor. Internal levels are categories, the bottom level is leaves.
func (g *Generator) Deep(depth, breadth int) *model.Tree {
	tr := model.NewTree()
	g.grow(tr, model.RootID, g.cfg.IDPrefix, depth, breadth)
	return tr
}

func (g *Generator) grow(tr *model.Tree, parent model.NodeID, prefix string, depth, breadth int) {
	for i := 0; i < breadth; i++ {
		id := model.NodeID(fmt.Sprintf("%s/%d", prefix, i))
		if depth <= 1 {
			leaf := model.NewNode(id, 0, fmt.Sprintf("file-%d.bin", i))
			if err := tr.Insert(parent, i, leaf); err != nil {
				panic(err)
			}
			continue
		}
		dir := model.NewNode(id, model.FlagCategory, fmt.Sprintf("folder-%d", i))
		if err := tr.Insert(parent, i, dir); err != nil {
			panic(err)
		}
		g.grow(tr, id, string(id), depth-1, breadth)
	}
}

// QuickFlat builds a flat tree with default config.
func QuickFlat(categories, modsPer int) *model.Tree {
	return NewDefault().Flat(categories, modsPer)
}

// QuickDeep builds a deep tree with default config.
func QuickDeep(depth, breadth int) *model.Tree {
	return NewDefault().Deep(depth, breadth)
}

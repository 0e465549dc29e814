// Package loader builds the mod and pack trees from a game data directory.
// Layout on disk:
//
//	<dir>/mods/<mod>/modinfo.json   per-mod metadata
//	<dir>/packs/<pack>/...          extracted pack contents
//
// Metadata files are parsed concurrently; a single unreadable mod is
// skipped with a debug log rather than aborting the whole scan.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/modmill/modmill/pkg/debug"
	"github.com/modmill/modmill/pkg/model"
)

// Mod list column layout. The size and date columns carry typed sort keys;
// the rest sort by display text.
const (
	ColName = iota
	ColCreator
	ColType
	ColSize
	ColCreated
	ColUpdated
	NumModColumns
)

// ModColumnTitles are the mod list header titles, indexed by column.
var ModColumnTitles = [NumModColumns]string{"Name", "Creator", "Type", "Size", "Created", "Updated"}

// Pack list column layout.
const (
	PackColName = iota
	PackColNotes
	NumPackColumns
)

// maxParseWorkers bounds the metadata parse fan-out.
const maxParseWorkers = 8

// ModInfo mirrors one modinfo.json.
type ModInfo struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Creator   string   `json:"creator"`
	Type      string   `json:"type"` // "mod", "movie", "map"
	SizeBytes int64    `json:"size_bytes"`
	CreatedAt int64    `json:"created_at"` // unix seconds
	UpdatedAt int64    `json:"updated_at"`
	Category  string   `json:"category"`
	LoadAfter []string `json:"load_after,omitempty"`
	Outdated  bool     `json:"outdated,omitempty"`
	Disabled  bool     `json:"disabled,omitempty"`
}

// Collection is everything the UI needs from one scan.
type Collection struct {
	Mods  *model.Tree
	Packs *model.Tree
	Infos map[model.NodeID]ModInfo
	// LoadAfter holds the "must load after" constraints keyed by mod node
	// ID, ready to hand to the move authority.
	LoadAfter map[model.NodeID][]model.NodeID
}

// LoadCollection scans dir and builds the trees. A missing mods/ or packs/
// subdirectory yields an empty tree for that side, not an error.
func LoadCollection(ctx context.Context, dir string) (*Collection, error) {
	defer debug.LogEnterExit("loader.LoadCollection")()

	infos, err := scanMods(ctx, filepath.Join(dir, "mods"))
	if err != nil {
		return nil, fmt.Errorf("scanning mods: %w", err)
	}

	packs, err := BuildPackTree(filepath.Join(dir, "packs"))
	if err != nil {
		return nil, fmt.Errorf("scanning packs: %w", err)
	}

	c := &Collection{
		Mods:      BuildModTree(infos),
		Packs:     packs,
		Infos:     make(map[model.NodeID]ModInfo, len(infos)),
		LoadAfter: make(map[model.NodeID][]model.NodeID),
	}
	for _, info := range infos {
		id := ModNodeID(info.ID)
		c.Infos[id] = info
		for _, dep := range info.LoadAfter {
			c.LoadAfter[id] = append(c.LoadAfter[id], ModNodeID(dep))
		}
	}
	return c, nil
}

// scanMods parses every mods/<name>/modinfo.json concurrently.
func scanMods(ctx context.Context, modsDir string) ([]ModInfo, error) {
	entries, err := os.ReadDir(modsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var (
		mu    sync.Mutex
		infos []ModInfo
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParseWorkers)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(modsDir, entry.Name(), "modinfo.json")
		fallbackID := entry.Name()
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := parseModInfo(path, fallbackID)
			if err != nil {
				debug.Log("loader: skipping %s: %v", path, err)
				return nil
			}
			mu.Lock()
			infos = append(infos, info)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic order regardless of which goroutine finished first.
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

func parseModInfo(path, fallbackID string) (ModInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ModInfo{}, err
	}
	var info ModInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return ModInfo{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if info.ID == "" {
		info.ID = fallbackID
	}
	if info.Name == "" {
		info.Name = info.ID
	}
	return info, nil
}

// ModNodeID returns the tree node ID for a mod.
func ModNodeID(modID string) model.NodeID {
	return model.NodeID("mod/" + modID)
}

// CategoryNodeID returns the tree node ID for a category.
func CategoryNodeID(category string) model.NodeID {
	return model.NodeID("cat/" + category)
}

// BuildModTree arranges mods into the flat category → mod tree. Categories
// appear in first-use order over mods sorted by ID; the UI re-sorts as the
// user asks.
func BuildModTree(infos []ModInfo) *model.Tree {
	tr := model.NewTree()
	for _, info := range infos {
		category := info.Category
		if category == "" {
			category = "Uncategorized"
		}
		catID := CategoryNodeID(category)
		if !tr.Contains(catID) {
			cat := model.NewNode(catID, model.FlagCategory, category)
			if err := tr.Insert(model.RootID, tr.Len(), cat); err != nil {
				debug.Log("loader: category %s: %v", catID, err)
				continue
			}
		}

		n := modNode(info)
		if err := tr.Insert(catID, len(tr.Children(catID)), n); err != nil {
			debug.Log("loader: mod %s: %v", info.ID, err)
		}
	}
	return tr
}

func modNode(info ModInfo) *model.Node {
	var flags model.Flags
	if info.Outdated {
		flags |= model.FlagOutdated
	}
	if info.Disabled {
		flags |= model.FlagDisabled
	}

	created := time.Unix(info.CreatedAt, 0).UTC()
	updated := time.Unix(info.UpdatedAt, 0).UTC()

	n := model.NewNode(ModNodeID(info.ID), flags,
		info.Name,
		info.Creator,
		info.Type,
		humanize.Bytes(uint64(info.SizeBytes)),
		created.Format("2006-01-02"),
		updated.Format("2006-01-02"),
	)
	n.SetSortKey(ColSize, model.IntKey(info.SizeBytes))
	n.SetSortKey(ColCreated, model.TimeKey(created))
	n.SetSortKey(ColUpdated, model.TimeKey(updated))
	return n
}

package loader

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/modmill/modmill/pkg/model"
)

// BuildPackTree walks packsDir and builds the deep pack → folder → file
// tree. Every directory becomes a category node, every file a leaf with a
// typed size key. A missing packsDir yields an empty tree.
func BuildPackTree(packsDir string) (*model.Tree, error) {
	tr := model.NewTree()

	entries, err := os.ReadDir(packsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return tr, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		packPath := filepath.Join(packsDir, entry.Name())
		pack := model.NewNode(packNodeID(packsDir, packPath), model.FlagCategory, entry.Name(), "pack")
		if err := tr.Insert(model.RootID, tr.Len(), pack); err != nil {
			return nil, err
		}
		if err := addPackContents(tr, packsDir, packPath, pack.ID); err != nil {
			return nil, err
		}
	}
	return tr, nil
}

func addPackContents(tr *model.Tree, packsDir, dir string, parent model.NodeID) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		id := packNodeID(packsDir, path)
		if entry.IsDir() {
			folder := model.NewNode(id, model.FlagCategory, entry.Name(), "")
			if err := tr.Insert(parent, len(tr.Children(parent)), folder); err != nil {
				return err
			}
			if err := addPackContents(tr, packsDir, path, id); err != nil {
				return err
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Raced with a delete; the row just goes missing.
			continue
		}
		if err := tr.Insert(parent, len(tr.Children(parent)), fileNode(id, entry.Name(), info)); err != nil {
			return err
		}
	}
	return nil
}

func fileNode(id model.NodeID, name string, info fs.FileInfo) *model.Node {
	n := model.NewNode(id, 0, name, humanize.Bytes(uint64(info.Size())))
	n.SetSortKey(PackColNotes, model.IntKey(info.Size()))
	return n
}

// packNodeID derives a stable node ID from the path relative to packsDir.
func packNodeID(packsDir, path string) model.NodeID {
	rel, err := filepath.Rel(packsDir, path)
	if err != nil {
		rel = path
	}
	return model.NodeID("pack/" + strings.ReplaceAll(rel, string(filepath.Separator), "/"))
}

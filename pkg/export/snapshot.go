// Package export renders snapshots of a mod or pack tree for sharing
// outside the terminal. The SVG output mirrors what the list view shows:
// one row per visible node, indented by depth, colored by status.
package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/goccy/go-json"

	"github.com/modmill/modmill/pkg/filter"
	"github.com/modmill/modmill/pkg/model"
)

// SnapshotOptions controls the snapshot output.
type SnapshotOptions struct {
	Path  string // output file; ".svg" is appended if no extension
	Title string // header title; defaults to the file name
	Width int    // canvas width in px; defaults to 900
}

// Row layout constants, in px.
const (
	rowHeight   = 26
	rowGap      = 4
	indentStep  = 22
	headerSpace = 72
	marginX     = 20
)

var (
	colorBackdrop = color.RGBA{R: 0x1a, G: 0x1b, B: 0x26, A: 0xff}
	colorHeaderBG = color.RGBA{R: 0x24, G: 0x28, B: 0x3b, A: 0xff}
	colorStroke   = color.RGBA{R: 0x3b, G: 0x42, B: 0x61, A: 0xff}
	colorText     = color.RGBA{R: 0xc0, G: 0xca, B: 0xf5, A: 0xff}
	colorSubtle   = color.RGBA{R: 0x56, G: 0x5f, B: 0x89, A: 0xff}

	colorCategory = color.RGBA{R: 0x2a, G: 0x2f, B: 0x4a, A: 0xff}
	colorMod      = color.RGBA{R: 0x1f, G: 0x23, B: 0x35, A: 0xff}
	colorOutdated = color.RGBA{R: 0x41, G: 0x2f, B: 0x1f, A: 0xff}
	colorDisabled = color.RGBA{R: 0x2a, G: 0x2a, B: 0x2a, A: 0xff}
	colorMissing  = color.RGBA{R: 0x41, G: 0x1f, B: 0x26, A: 0xff}
)

// snapshotRow is one rendered line of the tree.
type snapshotRow struct {
	node  *model.Node
	depth int
}

// Snapshot writes an SVG rendering of the visible rows of tr.
// A nil visibility renders every row.
func Snapshot(tr *model.Tree, vis filter.Visibility, opts SnapshotOptions) error {
	if opts.Path == "" {
		return fmt.Errorf("snapshot: no output path")
	}
	if filepath.Ext(opts.Path) == "" {
		opts.Path += ".svg"
	}
	if opts.Title == "" {
		opts.Title = filepath.Base(opts.Path)
	}
	if opts.Width <= 0 {
		opts.Width = 900
	}

	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	return renderSVG(file, tr, vis, opts)
}

func renderSVG(w io.Writer, tr *model.Tree, vis filter.Visibility, opts SnapshotOptions) error {
	rows := collectRows(tr, vis)
	height := headerSpace + len(rows)*(rowHeight+rowGap) + marginX

	canvas := svg.New(w)
	canvas.Start(opts.Width, height)
	canvas.Rect(0, 0, opts.Width, height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, opts.Width-32, headerSpace-28, 10, 10,
		fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(32, 40, opts.Title,
		fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 56, fmt.Sprintf("rows: %d", len(rows)),
		fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))

	y := headerSpace
	for _, row := range rows {
		drawRowSVG(canvas, row, y, opts.Width)
		y += rowHeight + rowGap
	}

	canvas.End()
	return nil
}

func drawRowSVG(canvas *svg.SVG, row snapshotRow, y, width int) {
	x := marginX + row.depth*indentStep
	w := width - x - marginX
	canvas.Roundrect(x, y, w, rowHeight, 6, 6,
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(rowColor(row.node)), css(colorStroke)))

	label := row.node.Column(0)
	if row.node.IsCategory() {
		label = strings.ToUpper(label)
	}
	canvas.Text(x+10, y+17, truncate(label, 60),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorText)))

	if extra := row.node.Column(1); extra != "" && !row.node.IsCategory() {
		canvas.Text(x+w-10, y+17, truncate(extra, 24),
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;text-anchor:end", css(colorSubtle)))
	}
}

func rowColor(n *model.Node) color.RGBA {
	switch {
	case n.Flags.Has(model.FlagMissing):
		return colorMissing
	case n.Flags.Has(model.FlagDisabled):
		return colorDisabled
	case n.Flags.Has(model.FlagOutdated):
		return colorOutdated
	case n.IsCategory():
		return colorCategory
	default:
		return colorMod
	}
}

// collectRows walks the tree in display order, keeping visible rows.
func collectRows(tr *model.Tree, vis filter.Visibility) []snapshotRow {
	var rows []snapshotRow
	tr.Walk(func(n *model.Node, depth int) bool {
		if vis != nil && !vis.Visible(n.ID) {
			return false
		}
		rows = append(rows, snapshotRow{node: n, depth: depth})
		return true
	})
	return rows
}

// Manifest is a machine-readable listing of the visible rows, written next
// to snapshots so other tools can consume the same state.
type Manifest struct {
	Title string          `json:"title"`
	Rows  []ManifestEntry `json:"rows"`
}

// ManifestEntry is one row of a Manifest.
type ManifestEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Depth    int    `json:"depth"`
	Category bool   `json:"category,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// WriteManifest writes the visible rows of tr as JSON.
func WriteManifest(w io.Writer, tr *model.Tree, vis filter.Visibility, title string) error {
	m := Manifest{Title: title}
	for _, row := range collectRows(tr, vis) {
		m.Rows = append(m.Rows, ManifestEntry{
			ID:       string(row.node.ID),
			Name:     row.node.Column(0),
			Depth:    row.depth,
			Category: row.node.IsCategory(),
			Disabled: row.node.Flags.Has(model.FlagDisabled),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

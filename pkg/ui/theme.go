package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals use the
// terminal's own background instead of a down-converted approximation
// that may clash with palettes like Solarized.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Row states
	Category lipgloss.AdaptiveColor
	Enabled  lipgloss.AdaptiveColor
	Outdated lipgloss.AdaptiveColor
	Disabled lipgloss.AdaptiveColor
	Missing  lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style
	Grabbed  lipgloss.Style

	// Pre-computed row styles, created once instead of per-frame
	MutedText     lipgloss.Style
	SecondaryText lipgloss.Style
	PrimaryBold   lipgloss.Style
	CategoryBold  lipgloss.Style
	MatchText     lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive).
// Light mode colors tuned for WCAG AA contrast.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},

		Category: lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Enabled:  lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}, // Green
		Outdated: lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}, // Orange
		Disabled: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Missing:  lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}, // Red

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		PaddingLeft(1).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.Grabbed = r.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#FFE8CC", Dark: "#3D2A1A"}).
		Foreground(t.Outdated).
		Bold(true)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.SecondaryText = r.NewStyle().Foreground(t.Secondary)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.CategoryBold = r.NewStyle().Foreground(t.Category).Bold(true)
	t.MatchText = r.NewStyle().Foreground(t.Enabled).Bold(true)

	return t
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}

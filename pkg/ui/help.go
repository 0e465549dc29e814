package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// helpMarkdown is the key reference shown by the help overlay.
const helpMarkdown = `# mm key reference

## Navigation
| Key | Action |
|-----|--------|
| j / k | move down / up |
| g / G | jump to top / bottom |
| pgup / pgdn | page |
| p | jump to parent |
| enter | expand / collapse category |
| E / C | expand / collapse all |
| tab | switch mods / packs tab |

## Filtering and sorting
| Key | Action |
|-----|--------|
| / | live filter (esc clears) |
| s | sort popup (enter applies, same column flips) |

## Reordering
| Key | Action |
|-----|--------|
| m | grab the selected row |
| j / k | pick the drop target |
| enter | drop before the target row |
| o | drop into the target category |
| esc | cancel the move |

Moves go through the load-order authority: drops that would break a
load-after constraint or nest categories are rejected with a reason.

## Other
| Key | Action |
|-----|--------|
| e | rename selected row |
| y | copy row ID to clipboard |
| w | save current order as profile |
| x | export SVG snapshot |
| r | reload from disk |
| q | quit |

Press any key to close this help.
`

// renderHelp renders the help markdown for the given terminal width.
// Glamour failures fall back to the raw markdown so help always shows.
func renderHelp(width int) string {
	wrap := width - 4
	if wrap < 40 {
		wrap = 40
	}
	if wrap > 100 {
		wrap = 100
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := renderer.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	// Strip trailing whitespace that glamour adds
	return strings.TrimRight(out, "\n") + "\n"
}

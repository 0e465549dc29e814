package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/modmill/modmill/pkg/model"
)

// EditModal renames the selected row through a small form overlay. The
// edit applies to the display text only; node IDs stay stable.
type EditModal struct {
	form   *huh.Form
	theme  Theme
	target model.NodeID
	value  string
	saved  bool
	done   bool
}

// NewEditModal creates a rename form pre-populated from the node.
func NewEditModal(n *model.Node, theme Theme) *EditModal {
	m := &EditModal{
		theme:  theme,
		target: n.ID,
		value:  n.Column(0),
	}

	title := "Rename mod"
	if n.IsCategory() {
		title = "Rename category"
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Description(string(n.ID)).
				CharLimit(120).
				Value(&m.value).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("name cannot be empty")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())

	return m
}

// Init starts the form.
func (m *EditModal) Init() tea.Cmd {
	return m.form.Init()
}

// Update routes messages into the form and tracks completion.
func (m *EditModal) Update(msg tea.Msg) tea.Cmd {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.saved = true
		m.done = true
	case huh.StateAborted:
		m.done = true
	}
	return cmd
}

// View renders the form centered in the available space.
func (m *EditModal) View() string {
	box := m.theme.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Primary).
		Padding(1, 2).
		Render(m.form.View())
	return box
}

// Done reports whether the form finished (saved or aborted).
func (m *EditModal) Done() bool { return m.done }

// Saved reports whether the form completed with a value.
func (m *EditModal) Saved() bool { return m.saved }

// Target returns the node being renamed.
func (m *EditModal) Target() model.NodeID { return m.target }

// Value returns the edited name.
func (m *EditModal) Value() string { return m.value }

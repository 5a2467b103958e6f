package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HelpOverlayModel shows keyboard shortcuts help.
type HelpOverlayModel struct {
	visible bool
	width   int
	height  int
}

// NewHelpOverlayModel creates a new help overlay.
func NewHelpOverlayModel() HelpOverlayModel {
	return HelpOverlayModel{}
}

// Show makes the help overlay visible.
func (m *HelpOverlayModel) Show() {
	m.visible = true
}

// Hide makes the help overlay invisible.
func (m *HelpOverlayModel) Hide() {
	m.visible = false
}

// IsVisible returns true if overlay is showing.
func (m HelpOverlayModel) IsVisible() bool {
	return m.visible
}

// SetSize sets dimensions.
func (m *HelpOverlayModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

type helpBinding struct {
	keys string
	desc string
}

var helpSections = []struct {
	title    string
	bindings []helpBinding
}{
	{
		title: "Navigate",
		bindings: []helpBinding{
			{"↑/k ↓/j", "move cursor"},
			{"→/l/enter", "expand folder (lazy loads children)"},
			{"←/h", "collapse / jump to parent"},
			{"tab / shift+tab", "move column cursor"},
			{"g / G", "jump to top / bottom"},
		},
	},
	{
		title: "Filter",
		bindings: []helpBinding{
			{"/", "free-text filter (debounced)"},
			{"f", "column filter picker"},
			{"m", "toggle hide/dim for non-matches"},
			{"esc", "cancel filter input"},
			{"c", "clear all filters (full reset)"},
		},
	},
	{
		title: "Select",
		bindings: []helpBinding{
			{"space", "toggle node (folders cascade to descendants)"},
			{"a", "select/deselect all filtered matches"},
			{"y", "copy selected keys to clipboard"},
		},
	},
	{
		title: "Edit",
		bindings: []helpBinding{
			{"e", "edit cell under cursor"},
			{"b", "bulk status change for selection"},
			{"o / O", "sort by column / clear sort"},
		},
	},
}

// View renders the help overlay.
func (m HelpOverlayModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Keyboard shortcuts"))
	b.WriteString("\n")
	for _, section := range helpSections {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(section.title))
		b.WriteString("\n")
		for _, binding := range section.bindings {
			b.WriteString("  ")
			b.WriteString(overlayCursorStyle.Render(pad(binding.keys, 16)))
			b.WriteString(binding.desc)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("press any key to close"))

	box := overlayStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height-browserHeaderLines-browserFooterLines, lipgloss.Center, lipgloss.Center, box)
}

package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ══════════════════════════════════════════════════════════════════════════════
// DESIGN TOKENS - Dracula-inspired palette
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBg          = lipgloss.Color("#282A36")
	ColorBgHighlight = lipgloss.Color("#44475A")
	ColorText        = lipgloss.Color("#F8F8F2")
	ColorMuted       = lipgloss.Color("#6272A4")

	ColorPrimary = lipgloss.Color("#BD93F9")
	ColorInfo    = lipgloss.Color("#8BE9FD")
	ColorSuccess = lipgloss.Color("#50FA7B")
	ColorWarning = lipgloss.Color("#FFB86C")
	ColorDanger  = lipgloss.Color("#FF5555")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Bold(true)

	headerActiveStyle = lipgloss.NewStyle().
				Foreground(ColorPrimary).
				Bold(true).
				Underline(true)

	cursorRowStyle = lipgloss.NewStyle().
			Background(ColorBgHighlight)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	folderStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	selectedMarkStyle = lipgloss.NewStyle().
				Foreground(ColorSuccess)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	statusErrStyle = lipgloss.NewStyle().
			Foreground(ColorDanger)

	filterChipStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	keybindStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1)

	overlayCursorStyle = lipgloss.NewStyle().
				Foreground(ColorPrimary).
				Bold(true)
)

// RenderDivider renders a horizontal divider line.
func RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(ColorBgHighlight).
		Render(strings.Repeat("─", width))
}

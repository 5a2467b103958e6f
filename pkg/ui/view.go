package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/pkarlsen/vaultview/pkg/model"
	"github.com/pkarlsen/vaultview/pkg/tree"
)

// Layout constants for viewport sizing.
const (
	browserHeaderLines = 3 // title line + filter line + column header
	browserFooterLines = 2 // divider+status + keybinds
	minContentHeight   = 3
)

// fixedColumnWidths are the cell widths for every column after title,
// which flexes to fill the rest.
var fixedColumnWidths = map[model.ColumnID]int{
	model.ColStatus:       14,
	model.ColAssignedUser: 14,
	model.ColFileType:     6,
	model.ColFileSize:     8,
	model.ColModified:     12,
	model.ColDuplicate:    4,
	model.ColLinked:       6,
	model.ColNotes:        18,
}

func (m *Model) contentHeight() int {
	h := m.height - browserHeaderLines - browserFooterLines
	if h < minContentHeight {
		h = minContentHeight
	}
	return h
}

func (m *Model) titleWidth() int {
	used := 0
	for _, col := range model.BrowserColumns {
		if col == model.ColTitle {
			continue
		}
		used += fixedColumnWidths[col] + 1
	}
	w := m.width - used - 10 // tree decorations
	if w < 20 {
		w = 20
	}
	return w
}

// View renders the full browser.
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderTitleLine())
	b.WriteString("\n")
	b.WriteString(m.renderFilterLine())
	b.WriteString("\n")
	b.WriteString(m.renderColumnHeader())
	b.WriteString("\n")

	switch {
	case m.help.IsVisible():
		b.WriteString(m.help.View())
	case m.editor != nil:
		b.WriteString(m.renderEditorOverlay())
	case m.picker != nil:
		b.WriteString(m.renderPickerOverlay())
	default:
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")

	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")
	b.WriteString(m.renderKeybinds())
	return b.String()
}

func (m *Model) renderTitleLine() string {
	title := titleStyle.Render("vaultview")
	parts := []string{title}

	if m.loading > 0 {
		parts = append(parts, m.spinner.View()+dimStyle.Render("fetching"))
	}
	if m.selectionBusy {
		parts = append(parts, dimStyle.Render("selecting…"))
	}
	if count := m.view.SelectedCount(); count > 0 {
		parts = append(parts, selectedMarkStyle.Render(fmt.Sprintf("%d selected", count)))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderFilterLine() string {
	parts := []string{m.queryInput.View()}

	if len(m.columnFilters) > 0 {
		cols := make([]string, 0, len(m.columnFilters))
		for col := range m.columnFilters {
			cols = append(cols, string(col))
		}
		sort.Strings(cols)
		chips := make([]string, 0, len(cols))
		for _, col := range cols {
			chips = append(chips, fmt.Sprintf("%s=%s", col, m.columnFilters[model.ColumnID(col)]))
		}
		parts = append(parts, filterChipStyle.Render(strings.Join(chips, " ")))
	}

	if m.view.HasFilter() {
		parts = append(parts, dimStyle.Render(fmt.Sprintf("%d matches", m.matchCount)))
	}
	if col, asc, on := m.view.SortState(); on {
		arrow := "↑"
		if !asc {
			arrow = "↓"
		}
		parts = append(parts, dimStyle.Render(fmt.Sprintf("sort:%s%s", col, arrow)))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderColumnHeader() string {
	var cells []string
	for i, col := range model.BrowserColumns {
		width := fixedColumnWidths[col]
		if col == model.ColTitle {
			width = m.titleWidth() + 10
		}
		style := headerStyle
		if i == m.colCursor {
			style = headerActiveStyle
		}
		cells = append(cells, style.Render(pad(col.String(), width)))
	}
	return strings.Join(cells, " ")
}

func (m *Model) renderRows() string {
	if len(m.rows) == 0 {
		if m.view.HasFilter() {
			return dimStyle.Render("  no matches")
		}
		return dimStyle.Render("  no folders loaded")
	}

	lines := make([]string, len(m.rows))
	for i, row := range m.rows {
		lines[i] = m.renderRow(row, i == m.cursor)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderRow(row tree.Row, isCursor bool) string {
	indent := strings.Repeat("  ", row.Depth)

	expander := "  "
	if row.Node.IsFolder() {
		if row.Expanded {
			expander = "▾ "
		} else {
			expander = "▸ "
		}
	}

	check := "[ ] "
	if row.Selected {
		check = selectedMarkStyle.Render("[x]") + " "
	}

	titleWidth := m.titleWidth() - len(indent)
	if titleWidth < 10 {
		titleWidth = 10
	}
	title := pad(row.Node.Title, titleWidth)
	if row.Node.IsFolder() && !row.Dimmed {
		title = folderStyle.Render(title)
	}

	cells := []string{indent + expander + check + title}
	for _, col := range model.BrowserColumns {
		if col == model.ColTitle {
			continue
		}
		cells = append(cells, pad(model.DisplayValue(row.Node, col), fixedColumnWidths[col]))
	}
	line := strings.Join(cells, " ")

	if row.Dimmed {
		line = dimStyle.Render(line)
	}
	if isCursor {
		line = cursorRowStyle.Render(line)
	}
	return line
}

func (m *Model) renderStatusLine() string {
	if m.status == "" {
		return RenderDivider(m.width)
	}
	if m.statusIsErr {
		return statusErrStyle.Render(m.status)
	}
	return statusBarStyle.Render(m.status)
}

func (m *Model) renderKeybinds() string {
	return keybindStyle.Render(
		"↑/↓ move · →/← expand/collapse · space select · a select-all · / filter · f column filter · " +
			"c clear · e edit · b bulk · o sort · y copy · ? help · q quit")
}

// ══════════════════════════════════════════════════════════════════════════════
// OVERLAYS
// ══════════════════════════════════════════════════════════════════════════════

const dropdownVisible = 12

func (m *Model) renderEditorOverlay() string {
	ed := m.editor
	if ed.textMode {
		box := overlayStyle.Render("Notes\n" + ed.input.View() + "\n" + dimStyle.Render("enter save · esc cancel"))
		return m.placeOverlay(box)
	}
	return m.placeOverlay(renderDropdown(ed.dd))
}

func (m *Model) renderPickerOverlay() string {
	return m.placeOverlay(renderDropdown(m.picker.dd))
}

func (m *Model) placeOverlay(box string) string {
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center, box)
}

func renderDropdown(d *dropdown) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(d.title))
	b.WriteString("\n")
	if d.query != "" {
		b.WriteString(filterChipStyle.Render("> " + d.query))
	} else {
		b.WriteString(dimStyle.Render("type to filter"))
	}
	b.WriteString("\n")

	// Window the list around the cursor.
	start := 0
	if d.cursor >= dropdownVisible {
		start = d.cursor - dropdownVisible + 1
	}
	end := start + dropdownVisible
	if end > len(d.filtered) {
		end = len(d.filtered)
	}

	for i := start; i < end; i++ {
		opt := d.options[d.filtered[i]]
		if i == d.cursor {
			b.WriteString(overlayCursorStyle.Render("> " + opt.Label))
		} else {
			b.WriteString("  " + opt.Label)
		}
		b.WriteString("\n")
	}
	if len(d.filtered) == 0 {
		b.WriteString(dimStyle.Render("  no options"))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("enter choose · esc cancel"))
	return overlayStyle.Render(b.String())
}

// pad truncates or right-pads a cell to width, rune-width aware.
func pad(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

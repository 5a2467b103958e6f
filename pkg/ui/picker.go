package ui

import (
	"fmt"
	"sort"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pkarlsen/vaultview/pkg/model"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLUMN FILTER PICKER AND BULK ACTION
// ══════════════════════════════════════════════════════════════════════════════

type pickerKind int

const (
	pickerColumn pickerKind = iota
	pickerValue
	pickerBulkStatus
)

// pickerState is the open picker overlay.
type pickerState struct {
	kind pickerKind
	col  model.ColumnID
	dd   *dropdown
}

// openFilterPicker starts the two-step column filter flow: pick a
// column, then pick its value.
func (m *Model) openFilterPicker() {
	options := make([]model.Option, 0, len(model.FilterableColumns))
	for _, col := range model.FilterableColumns {
		label := col.String()
		if value, ok := m.columnFilters[col]; ok {
			label = fmt.Sprintf("%s  [= %s]", label, value)
		}
		options = append(options, model.Option{Value: string(col), Label: label})
	}
	m.picker = &pickerState{kind: pickerColumn, dd: newDropdown("Filter column", options)}
}

// openBulkPicker starts the bulk status change for the current
// selection.
func (m *Model) openBulkPicker() (tea.Model, tea.Cmd) {
	if m.view.SelectedCount() == 0 {
		m.setStatus("nothing selected", false)
		return m, nil
	}
	m.picker = &pickerState{kind: pickerBulkStatus, dd: newDropdown("Set migration status", m.vocab.Statuses.Options)}
	return m, nil
}

func (m *Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.picker

	switch msg.String() {
	case "esc":
		m.picker = nil
		return m, nil
	case "up", "ctrl+k":
		p.dd.move(-1)
		return m, nil
	case "down", "ctrl+j":
		p.dd.move(1)
		return m, nil
	case "backspace":
		p.dd.backspace()
		return m, nil
	case "enter":
		opt, ok := p.dd.current()
		if !ok {
			return m, nil
		}
		return m.pickerChoose(opt)
	}

	if msg.Type == tea.KeyRunes {
		for _, r := range msg.Runes {
			p.dd.typeRune(r)
		}
	}
	return m, nil
}

func (m *Model) pickerChoose(opt model.Option) (tea.Model, tea.Cmd) {
	switch m.picker.kind {
	case pickerColumn:
		col := model.ColumnID(opt.Value)
		m.picker = &pickerState{
			kind: pickerValue,
			col:  col,
			dd:   newDropdown(fmt.Sprintf("Filter %s", col), m.filterValueOptions(col)),
		}
		return m, nil

	case pickerValue:
		col := m.picker.col
		m.picker = nil
		return m, m.setColumnFilter(col, opt.Value)

	case pickerBulkStatus:
		m.picker = nil
		return m, m.bulkUpdateCmd(model.ColStatus, opt.Value)
	}
	return m, nil
}

// filterValueOptions builds the value list for a column filter. The
// leading "(any)" option clears the filter.
func (m *Model) filterValueOptions(col model.ColumnID) []model.Option {
	options := []model.Option{{Value: "", Label: "(any)"}}
	switch col {
	case model.ColStatus:
		options = append(options, m.vocab.Statuses.Options...)
	case model.ColAssignedUser:
		options = append(options, model.Option{Value: model.UnassignedValue, Label: "(unassigned)"})
		options = append(options, m.vocab.Users.Options...)
	case model.ColDuplicate, model.ColLinked:
		options = append(options, model.BoolOptions...)
	default:
		options = append(options, m.distinctValues(col)...)
	}
	return options
}

// distinctValues collects the distinct normalized values currently
// materialized for a column, for columns without a vocabulary.
func (m *Model) distinctValues(col model.ColumnID) []model.Option {
	seen := make(map[string]bool)
	for _, key := range m.view.AllKeys() {
		n, ok := m.view.Node(key)
		if !ok {
			continue
		}
		if value := model.NormalizedValue(n, col); value != "" {
			seen[value] = true
		}
	}
	values := make([]string, 0, len(seen))
	for value := range seen {
		values = append(values, value)
	}
	sort.Strings(values)

	options := make([]model.Option, 0, len(values))
	for _, value := range values {
		options = append(options, model.Option{Value: value, Label: value})
	}
	return options
}

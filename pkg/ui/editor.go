package ui

import (
	"context"
	"fmt"
	"log"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pkarlsen/vaultview/pkg/audit"
	"github.com/pkarlsen/vaultview/pkg/model"
)

// ══════════════════════════════════════════════════════════════════════════════
// INLINE EDIT - dropdown editor for select-like cells, text for notes
// ══════════════════════════════════════════════════════════════════════════════

// editorState is the open cell editor.
type editorState struct {
	nodeKey string
	kind    model.NodeKind
	col     model.ColumnID
	old     string

	// Select-like columns
	dd *dropdown

	// Notes
	textMode bool
	input    textinput.Model
}

// columnEditable reports whether a column can be edited for a node kind.
func columnEditable(col model.ColumnID, kind model.NodeKind) bool {
	switch col {
	case model.ColAssignedUser, model.ColNotes:
		return true
	case model.ColStatus, model.ColDuplicate, model.ColLinked:
		return kind == model.KindAsset
	default:
		return false
	}
}

// openEditor anchors an editor to the cell under the cursors.
func (m *Model) openEditor() (tea.Model, tea.Cmd) {
	row, ok := m.currentRow()
	if !ok {
		return m, nil
	}
	col := model.BrowserColumns[m.colCursor]
	if !columnEditable(col, row.Node.Kind) {
		m.setStatus(fmt.Sprintf("%s is not editable for this row", col), false)
		return m, nil
	}

	state := &editorState{
		nodeKey: row.Node.Key,
		kind:    row.Node.Kind,
		col:     col,
		old:     model.NormalizedValue(row.Node, col),
	}

	switch col {
	case model.ColNotes:
		ti := textinput.New()
		ti.CharLimit = 500
		ti.SetValue(row.Node.Notes)
		ti.Focus()
		state.textMode = true
		state.input = ti
	case model.ColStatus:
		state.dd = newDropdown("Migration status", m.vocab.Statuses.Options)
	case model.ColAssignedUser:
		options := append([]model.Option{{Value: "", Label: "(unassigned)"}}, m.vocab.Users.Options...)
		state.dd = newDropdown("Assigned user", options)
	case model.ColDuplicate, model.ColLinked:
		state.dd = newDropdown(col.String(), model.BoolOptions)
	}

	m.editor = state
	if state.textMode {
		return m, textinput.Blink
	}
	return m, nil
}

func (m *Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ed := m.editor

	if ed.textMode {
		switch msg.String() {
		case "esc":
			m.editor = nil
			return m, nil
		case "enter":
			m.editor = nil
			return m, m.commitEdit(ed, ed.input.Value(), "")
		}
		var cmd tea.Cmd
		ed.input, cmd = ed.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "esc":
		m.editor = nil
		return m, nil
	case "up", "ctrl+k":
		ed.dd.move(-1)
		return m, nil
	case "down", "ctrl+j":
		ed.dd.move(1)
		return m, nil
	case "backspace":
		ed.dd.backspace()
		return m, nil
	case "enter":
		opt, ok := ed.dd.current()
		if !ok {
			return m, nil
		}
		m.editor = nil
		label := opt.Label
		if opt.Value == "" {
			label = ""
		}
		return m, m.commitEdit(ed, opt.Value, label)
	}

	if msg.Type == tea.KeyRunes {
		for _, r := range msg.Runes {
			ed.dd.typeRune(r)
		}
	}
	return m, nil
}

// commitEdit applies the change optimistically to the local node, then
// sends it to the single-cell endpoint.
func (m *Model) commitEdit(ed *editorState, value, label string) tea.Cmd {
	if !m.view.SetCellValue(ed.nodeKey, ed.col, value, label) {
		m.setStatus("edit could not be applied", true)
		return nil
	}
	if m.view.HasFilter() {
		// The edited value may change which nodes match.
		m.applyPredicate()
	}
	m.refreshRows()

	update := model.CellUpdate{
		Key:   ed.nodeKey,
		Kind:  ed.kind,
		Field: ed.col,
		Value: value,
	}
	old := ed.old
	m.loading++
	return func() tea.Msg {
		err := m.co.Backend().UpdateCell(context.Background(), update)
		return cellCommittedMsg{update: update, old: old, err: err}
	}
}

// handleCellCommitted logs remote failures without rolling back the
// optimistic local change; the status bar surfaces the divergence so the
// gap is at least visible.
func (m *Model) handleCellCommitted(msg cellCommittedMsg) (tea.Model, tea.Cmd) {
	m.loading--
	if msg.err != nil {
		log.Printf("cell update %s.%s failed: %v", msg.update.Key, msg.update.Field, msg.err)
		m.setStatus("change kept locally; server update failed", true)
		return m, nil
	}

	if m.audit != nil {
		entry := auditEntry(msg.update.Key, string(msg.update.Kind), string(msg.update.Field), msg.old, msg.update.Value, false)
		if err := m.audit.Record(entry); err != nil {
			log.Printf("audit record failed: %v", err)
		}
	}
	m.setStatus(fmt.Sprintf("saved %s", msg.update.Field), false)
	return m, nil
}

func auditEntry(key, kind, field, old, new string, bulk bool) audit.Entry {
	return audit.Entry{
		NodeKey:  key,
		NodeKind: kind,
		Field:    field,
		OldValue: old,
		NewValue: new,
		Bulk:     bulk,
	}
}

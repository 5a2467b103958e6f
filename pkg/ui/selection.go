package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pkarlsen/vaultview/pkg/model"
)

// ══════════════════════════════════════════════════════════════════════════════
// SELECTION ENGINE - lazy descendant cascade and filtered select-all
// ══════════════════════════════════════════════════════════════════════════════

// toggleCurrentSelection flips the node under the cursor. For a folder
// the flip cascades to every descendant, paging through not-yet-loaded
// subtrees.
func (m *Model) toggleCurrentSelection() (tea.Model, tea.Cmd) {
	row, ok := m.currentRow()
	if !ok {
		return m, nil
	}
	key := row.Node.Key
	flag := !m.view.IsSelected(key)
	m.view.SetSelected(key, flag)

	if !row.Node.IsFolder() {
		m.refreshRows()
		m.notifySelection()
		return m, nil
	}
	return m, m.startDescendantSelection(key, flag)
}

// startDescendantSelection begins the breadth-first traversal. The
// filter generation is captured once; if it moves while the traversal is
// in flight the whole thing aborts silently, leaving whatever partial
// selection was already applied.
func (m *Model) startDescendantSelection(folderKey string, flag bool) tea.Cmd {
	gen := m.co.Generation()
	m.selectionBusy = true
	return m.selectStepCmd(gen, flag, []string{folderKey})
}

// selectStepCmd processes queued folders until the chunk budget is spent,
// then yields so the interface stays responsive during large subtrees.
func (m *Model) selectStepCmd(gen int64, flag bool, queue []string) tea.Cmd {
	chunk := m.cfg.ChunkSize
	return func() tea.Msg {
		ctx := context.Background()
		msg := selectStepMsg{gen: gen, flag: flag}
		processed := 0

		for len(queue) > 0 && processed < chunk {
			if gen != m.co.Generation() {
				// Superseded; deliver nothing so no stale mutation lands.
				return selectStepMsg{gen: gen, flag: flag}
			}
			key := queue[0]
			queue = queue[1:]

			folders := m.co.ChildFolders(ctx, key)
			assets := m.co.ChildAssets(ctx, key)
			if len(folders) > 0 {
				msg.batches = append(msg.batches, nodeBatch{parentKey: key, nodes: folders})
			}
			if len(assets) > 0 {
				msg.batches = append(msg.batches, nodeBatch{parentKey: key, nodes: assets})
			}
			for _, child := range folders {
				msg.setKeys = append(msg.setKeys, child.Key)
				queue = append(queue, child.Key)
			}
			for _, child := range assets {
				msg.setKeys = append(msg.setKeys, child.Key)
			}
			processed += len(folders) + len(assets)
		}

		msg.queue = queue
		return msg
	}
}

func (m *Model) handleSelectStep(msg selectStepMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.co.Generation() {
		// Traversal aborted mid-way; partial selection stays as applied.
		m.selectionBusy = false
		m.refreshRows()
		m.notifySelection()
		return m, nil
	}

	for _, batch := range msg.batches {
		m.view.AddChildren(batch.parentKey, batch.nodes)
	}
	for _, key := range msg.setKeys {
		m.view.SetSelected(key, msg.flag)
	}

	if len(msg.queue) > 0 {
		m.refreshRows()
		return m, m.selectStepCmd(msg.gen, msg.flag, msg.queue)
	}

	m.selectionBusy = false
	m.refreshRows()
	m.notifySelection()
	return m, nil
}

// startSelectAll toggles selection for exactly the nodes matching the
// active filter, in chunks. With every match already selected it
// deselects; otherwise it selects.
func (m *Model) startSelectAll() (tea.Model, tea.Cmd) {
	keys := m.view.AllKeys()
	flag := false
	for _, key := range keys {
		n, ok := m.view.Node(key)
		if !ok || !m.view.Matches(n) {
			continue
		}
		if !m.view.IsSelected(key) {
			flag = true
			break
		}
	}

	gen := m.co.Generation()
	return m.handleSelectAllStep(selectAllStepMsg{gen: gen, flag: flag, keys: keys, idx: 0})
}

func (m *Model) handleSelectAllStep(msg selectAllStepMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.co.Generation() {
		m.notifySelection()
		return m, nil
	}

	end := msg.idx + m.cfg.ChunkSize
	if end > len(msg.keys) {
		end = len(msg.keys)
	}
	for _, key := range msg.keys[msg.idx:end] {
		n, ok := m.view.Node(key)
		if !ok || !m.view.Matches(n) {
			continue
		}
		m.view.SetSelected(key, msg.flag)
	}

	if end < len(msg.keys) {
		m.refreshRows()
		next := selectAllStepMsg{gen: msg.gen, flag: msg.flag, keys: msg.keys, idx: end}
		return m, func() tea.Msg { return next }
	}

	m.refreshRows()
	m.notifySelection()
	return m, nil
}

// bulkUpdateCmd sends the selection's key sets to the bulk endpoint with
// a single field change.
func (m *Model) bulkUpdateCmd(field model.ColumnID, value string) tea.Cmd {
	assetIDs, folderIDs := m.selectedIDSets()
	update := model.BulkUpdate{
		AssetIDs:  assetIDs,
		FolderIDs: folderIDs,
		Changes:   map[string]string{string(field): value},
	}
	m.loading++
	return func() tea.Msg {
		result, err := m.co.Backend().BulkUpdate(context.Background(), update)
		if err == nil {
			m.recordBulkAudit(assetIDs, field, value)
		}
		return bulkDoneMsg{result: result, err: err}
	}
}

func (m *Model) recordBulkAudit(assetIDs []string, field model.ColumnID, value string) {
	if m.audit == nil {
		return
	}
	for _, id := range assetIDs {
		entry := auditEntry(model.AssetKey(id), string(model.KindAsset), string(field), "", value, true)
		if err := m.audit.Record(entry); err != nil {
			return
		}
	}
}

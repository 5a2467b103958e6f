package ui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pkarlsen/vaultview/pkg/hierarchy"
	"github.com/pkarlsen/vaultview/pkg/model"
	"github.com/pkarlsen/vaultview/pkg/tree"
)

// ══════════════════════════════════════════════════════════════════════════════
// FILTER ENGINE - debounced search, path materialization, predicate apply
// ══════════════════════════════════════════════════════════════════════════════

// updateQueryInput feeds keystrokes to the free-text input. Every change
// restarts the debounce window; only the last keystroke inside it starts
// a search.
func (m *Model) updateQueryInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.handleEscape()
	case "enter":
		m.queryFocused = false
		m.queryInput.Blur()
		m.debounceSeq++
		return m, m.startSearch()
	}

	before := m.queryInput.Value()
	var cmd tea.Cmd
	m.queryInput, cmd = m.queryInput.Update(msg)
	if m.queryInput.Value() == before {
		return m, cmd
	}

	m.debounceSeq++
	seq := m.debounceSeq
	debounce := m.cfg.Debounce()
	return m, tea.Batch(cmd, tea.Tick(debounce, func(time.Time) tea.Msg {
		return debounceMsg{seq: seq}
	}))
}

func (m *Model) handleDebounce(msg debounceMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.debounceSeq {
		return m, nil
	}
	return m, m.startSearch()
}

// handleEscape bumps the generation, cancels in-flight work, clears the
// query, and forces the engine idle.
func (m *Model) handleEscape() (tea.Model, tea.Cmd) {
	m.co.Bump()
	m.debounceSeq++
	m.queryFocused = false
	m.queryInput.Blur()
	m.queryInput.SetValue("")
	m.fstate = filterIdle

	if len(m.columnFilters) == 0 {
		m.view.ClearFilter()
		m.matchCount = 0
		m.refreshRows()
		return m, nil
	}
	// Column filters stay active without the text query.
	return m, m.startSearch()
}

// startSearch bumps the generation (cancelling the previous one's
// fetches) and kicks off the server-side search. An empty query with no
// column filters simply clears.
func (m *Model) startSearch() tea.Cmd {
	query := m.trimmedQuery()
	filters := m.cloneFilters()

	if query == "" && len(filters) == 0 {
		m.co.Bump()
		m.fstate = filterIdle
		m.view.ClearFilter()
		m.matchCount = 0
		m.refreshRows()
		return nil
	}

	gen := m.co.Bump()
	m.fstate = filterSearching
	m.loading++
	return func() tea.Msg {
		folders, assets := m.co.Search(context.Background(), query, filters)
		return searchDoneMsg{gen: gen, folders: folders, assets: assets}
	}
}

func (m *Model) handleSearchDone(msg searchDoneMsg) (tea.Model, tea.Cmd) {
	m.loading--
	if msg.gen != m.co.Generation() {
		// A newer filter action superseded this search.
		return m, nil
	}

	m.fstate = filterMaterializing
	m.loading++
	hits := append(append([]model.SearchHit{}, msg.folders...), msg.assets...)
	return m, m.materializeCmd(msg.gen, hits)
}

// materializeCmd fetches, for every hit, the child lists of each
// ancestor folder so the hit is reachable in the visual tree, plus the
// asset page of each asset hit's parent. The coordinator's cache makes
// overlapping chains cheap. Aborts as soon as the generation moves on.
func (m *Model) materializeCmd(gen int64, hits []model.SearchHit) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var batches []nodeBatch
		var expand []string
		expandSeen := make(map[string]bool)
		chainSeen := make(map[string]bool)

		ensureChildren := func(parentKey string) bool {
			if gen != m.co.Generation() {
				return false
			}
			if chainSeen[parentKey] {
				return true
			}
			chainSeen[parentKey] = true
			nodes := m.co.ChildFolders(ctx, parentKey)
			if len(nodes) > 0 {
				batches = append(batches, nodeBatch{parentKey: parentKey, nodes: nodes})
			}
			return true
		}

		for _, hit := range hits {
			// Root level first, then down the ancestor chain.
			if !ensureChildren(hierarchy.RootKey) {
				return materializedMsg{gen: gen}
			}
			for _, ancestor := range hit.AncestorPath {
				if !ensureChildren(ancestor) {
					return materializedMsg{gen: gen}
				}
				if !expandSeen[ancestor] {
					expandSeen[ancestor] = true
					expand = append(expand, ancestor)
				}
			}

			if hit.Node.Kind == model.KindAsset {
				parent := hit.Node.ParentKey
				if gen != m.co.Generation() {
					return materializedMsg{gen: gen}
				}
				assets := m.co.ChildAssets(ctx, parent)
				if len(assets) > 0 {
					batches = append(batches, nodeBatch{parentKey: parent, nodes: assets})
				}
			}

			// Attach the hit itself too; idempotent add makes this a no-op
			// when the child fetch already delivered it.
			batches = append(batches, nodeBatch{parentKey: hit.Node.ParentKey, nodes: []model.TreeNode{hit.Node}})
		}

		return materializedMsg{gen: gen, batches: batches, expand: expand}
	}
}

func (m *Model) handleMaterialized(msg materializedMsg) (tea.Model, tea.Cmd) {
	m.loading--
	if msg.gen != m.co.Generation() {
		return m, nil
	}

	for _, batch := range msg.batches {
		m.view.AddChildren(batch.parentKey, batch.nodes)
	}
	for _, key := range msg.expand {
		m.view.Expand(key)
	}

	m.applyPredicate()
	m.fstate = filterIdle
	m.refreshRows()
	return m, nil
}

// applyPredicate installs the combined free-text + column predicate and
// recomputes the match count over all materialized nodes.
func (m *Model) applyPredicate() {
	pred := m.buildPredicate()
	if pred == nil {
		m.view.ClearFilter()
		m.matchCount = 0
		return
	}
	m.view.ApplyFilter(pred, m.filterMode)
	m.matchCount = m.view.MatchCount()
}

// buildPredicate returns nil when no filter is active. A node matches
// iff the query is empty or its display text/path contains it
// case-insensitively, and its normalized value equals every active
// column filter case-insensitively.
func (m *Model) buildPredicate() tree.Predicate {
	query := strings.ToLower(m.trimmedQuery())
	filters := m.cloneFilters()
	if query == "" && len(filters) == 0 {
		return nil
	}

	view := m.view
	return func(n model.TreeNode) bool {
		if query != "" {
			hay := strings.ToLower(n.Title + " " + view.Path(n.Key))
			if !strings.Contains(hay, query) {
				return false
			}
		}
		for col, want := range filters {
			if !strings.EqualFold(model.NormalizedValue(n, col), want) {
				return false
			}
		}
		return true
	}
}

// setColumnFilter updates one column's filter value (empty removes it)
// and re-enters the search cycle with the same query.
func (m *Model) setColumnFilter(col model.ColumnID, value string) tea.Cmd {
	if value == "" {
		delete(m.columnFilters, col)
	} else {
		m.columnFilters[col] = value
	}
	return m.startSearch()
}

// clearFilters is the full reset: cancel everything, drop the hierarchy
// cache and loaded-sets, clear filters and query, collapse the tree,
// deselect, and remove the predicate.
func (m *Model) clearFilters() {
	m.co.Bump()
	m.co.Cache().Clear()
	m.debounceSeq++
	m.columnFilters = make(map[model.ColumnID]string)
	m.queryInput.SetValue("")
	m.queryFocused = false
	m.queryInput.Blur()
	m.fstate = filterIdle
	m.matchCount = 0
	m.view.Reset()
	m.refreshRows()
	m.notifySelection()
	m.setStatus("filters cleared", false)
}

func (m *Model) trimmedQuery() string {
	return strings.TrimSpace(m.queryInput.Value())
}

func (m *Model) cloneFilters() map[model.ColumnID]string {
	out := make(map[model.ColumnID]string, len(m.columnFilters))
	for col, v := range m.columnFilters {
		out[col] = v
	}
	return out
}

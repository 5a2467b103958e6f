// Package ui is the terminal browser for the migration tree.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pkarlsen/vaultview/pkg/audit"
	"github.com/pkarlsen/vaultview/pkg/config"
	"github.com/pkarlsen/vaultview/pkg/fetch"
	"github.com/pkarlsen/vaultview/pkg/hierarchy"
	"github.com/pkarlsen/vaultview/pkg/model"
	"github.com/pkarlsen/vaultview/pkg/tree"
)

// Vocabularies are the four option lists fetched once at startup.
type Vocabularies struct {
	Statuses    model.Vocabulary
	Users       model.Vocabulary
	Collections model.Vocabulary
	Sets        model.Vocabulary
}

// filterState tracks where the filter engine is in its
// Idle -> Searching -> Materializing -> Applying cycle. Applying happens
// synchronously inside Update, so it has no resting state.
type filterState int

const (
	filterIdle filterState = iota
	filterSearching
	filterMaterializing
)

// Model is the browser's bubbletea model.
type Model struct {
	view  *tree.View
	co    *fetch.Coordinator
	vocab Vocabularies
	cfg   config.Config
	audit *audit.DB

	width  int
	height int

	viewport viewport.Model
	spinner  spinner.Model
	ready    bool

	// loading is a refcount of outstanding fetch commands; the indicator
	// clears whenever it drains, regardless of how each settles.
	loading int

	rows      []tree.Row
	cursor    int
	colCursor int

	// Filter engine
	fstate        filterState
	queryInput    textinput.Model
	queryFocused  bool
	debounceSeq   int
	columnFilters map[model.ColumnID]string
	filterMode    tree.FilterMode
	matchCount    int

	// Selection engine
	selectionBusy      bool
	onSelectionChanged func(keys []string)

	editor *editorState
	picker *pickerState
	help   HelpOverlayModel

	status      string
	statusIsErr bool
}

// NewModel creates the browser model. auditDB may be nil.
func NewModel(co *fetch.Coordinator, vocab Vocabularies, cfg config.Config, auditDB *audit.DB) *Model {
	ti := textinput.New()
	ti.Placeholder = "filter by text or path"
	ti.Prompt = "/ "
	ti.CharLimit = 200

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	return &Model{
		view:          tree.NewView(),
		co:            co,
		vocab:         vocab,
		cfg:           cfg,
		audit:         auditDB,
		queryInput:    ti,
		spinner:       sp,
		columnFilters: make(map[model.ColumnID]string),
		filterMode:    tree.ParseFilterMode(cfg.FilterMode),
		help:          NewHelpOverlayModel(),
	}
}

// OnSelectionChanged registers the observer notified after every
// selection mutation settles (the bulk-action toolbar hook).
func (m *Model) OnSelectionChanged(fn func(keys []string)) {
	m.onSelectionChanged = fn
}

// View exposes the tree adapter for white-box tests.
func (m *Model) Tree() *tree.View {
	return m.view
}

// Init starts the spinner and loads the volume roots.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadRootsCmd())
}

func (m *Model) loadRootsCmd() tea.Cmd {
	gen := m.co.Generation()
	m.loading++
	return func() tea.Msg {
		nodes := m.co.ChildFolders(context.Background(), hierarchy.RootKey)
		return rootsLoadedMsg{gen: gen, nodes: nodes}
	}
}

// Update handles all messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentHeight := m.contentHeight()
		if !m.ready {
			m.viewport = viewport.New(msg.Width, contentHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = contentHeight
		}
		m.help.SetSize(msg.Width, msg.Height)
		m.syncViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case rootsLoadedMsg:
		m.loading--
		if msg.gen != m.co.Generation() {
			return m, nil
		}
		m.view.AddChildren(tree.RootKey, msg.nodes)
		m.refreshRows()
		return m, nil

	case childrenLoadedMsg:
		m.loading--
		if msg.gen != m.co.Generation() {
			return m, nil
		}
		m.view.AddChildren(msg.parentKey, msg.folders)
		m.view.AddChildren(msg.parentKey, msg.assets)
		m.view.Expand(msg.parentKey)
		m.refreshRows()
		return m, nil

	case debounceMsg:
		return m.handleDebounce(msg)

	case searchDoneMsg:
		return m.handleSearchDone(msg)

	case materializedMsg:
		return m.handleMaterialized(msg)

	case selectStepMsg:
		return m.handleSelectStep(msg)

	case selectAllStepMsg:
		return m.handleSelectAllStep(msg)

	case cellCommittedMsg:
		return m.handleCellCommitted(msg)

	case bulkDoneMsg:
		m.loading--
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("bulk update failed: %v", msg.err), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("bulk update applied to %d records", msg.result.UpdatedCount), false)
		return m, nil

	case ConfigReloadedMsg:
		m.cfg = msg.Config
		m.filterMode = tree.ParseFilterMode(msg.Config.FilterMode)
		if m.view.HasFilter() {
			m.applyPredicate()
		}
		m.setStatus("configuration reloaded", false)
		m.refreshRows()
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Overlays capture input first.
	if m.help.IsVisible() {
		m.help.Hide()
		return m, nil
	}
	if m.editor != nil {
		return m.updateEditor(msg)
	}
	if m.picker != nil {
		return m.updatePicker(msg)
	}
	if m.queryFocused {
		return m.updateQueryInput(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "?":
		m.help.Show()
		return m, nil

	case "up", "k":
		m.moveCursor(-1)
		return m, nil

	case "down", "j":
		m.moveCursor(1)
		return m, nil

	case "pgup":
		m.moveCursor(-m.viewport.Height)
		return m, nil

	case "pgdown":
		m.moveCursor(m.viewport.Height)
		return m, nil

	case "g", "home":
		m.cursor = 0
		m.syncViewport()
		return m, nil

	case "G", "end":
		m.cursor = len(m.rows) - 1
		m.syncViewport()
		return m, nil

	case "tab":
		m.colCursor = (m.colCursor + 1) % len(model.BrowserColumns)
		return m, nil

	case "shift+tab":
		m.colCursor = (m.colCursor + len(model.BrowserColumns) - 1) % len(model.BrowserColumns)
		return m, nil

	case "right", "l", "enter":
		return m.expandCurrent()

	case "left", "h":
		return m.collapseCurrent()

	case " ":
		return m.toggleCurrentSelection()

	case "a":
		return m.startSelectAll()

	case "e":
		return m.openEditor()

	case "f":
		m.openFilterPicker()
		return m, nil

	case "b":
		return m.openBulkPicker()

	case "o":
		m.view.SetSort(model.BrowserColumns[m.colCursor])
		m.refreshRows()
		return m, nil

	case "O":
		m.view.ClearSort()
		return m, nil

	case "m":
		if m.filterMode == tree.ModeHide {
			m.filterMode = tree.ModeDim
		} else {
			m.filterMode = tree.ModeHide
		}
		if m.view.HasFilter() {
			m.applyPredicate()
		}
		m.refreshRows()
		return m, nil

	case "y":
		return m.copySelection()

	case "/":
		m.queryFocused = true
		m.queryInput.Focus()
		return m, textinput.Blink

	case "c":
		m.clearFilters()
		return m, nil

	case "esc":
		return m.handleEscape()
	}

	return m, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// NAVIGATION AND LAZY EXPANSION
// ══════════════════════════════════════════════════════════════════════════════

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
	m.syncViewport()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) currentRow() (tree.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return tree.Row{}, false
	}
	return m.rows[m.cursor], true
}

// expandCurrent opens the folder under the cursor, lazily fetching its
// child folders and asset page on first expansion.
func (m *Model) expandCurrent() (tea.Model, tea.Cmd) {
	row, ok := m.currentRow()
	if !ok || !row.Node.IsFolder() {
		return m, nil
	}
	key := row.Node.Key

	if m.view.IsExpanded(key) {
		m.view.Collapse(key)
		m.refreshRows()
		return m, nil
	}

	cache := m.co.Cache()
	if cache.IsLoaded(key, hierarchy.ChildFolders) && cache.IsLoaded(key, hierarchy.ChildAssets) {
		m.view.Expand(key)
		m.refreshRows()
		return m, nil
	}

	gen := m.co.Generation()
	m.loading++
	return m, func() tea.Msg {
		ctx := context.Background()
		folders := m.co.ChildFolders(ctx, key)
		assets := m.co.ChildAssets(ctx, key)
		return childrenLoadedMsg{gen: gen, parentKey: key, folders: folders, assets: assets}
	}
}

func (m *Model) collapseCurrent() (tea.Model, tea.Cmd) {
	row, ok := m.currentRow()
	if !ok {
		return m, nil
	}
	key := row.Node.Key
	if row.Node.IsFolder() && m.view.IsExpanded(key) {
		m.view.Collapse(key)
		m.refreshRows()
		return m, nil
	}
	// On a leaf or collapsed node, jump to the parent row.
	parent := row.Node.ParentKey
	for i, r := range m.rows {
		if r.Node.Key == parent {
			m.cursor = i
			m.syncViewport()
			break
		}
	}
	return m, nil
}

func (m *Model) copySelection() (tea.Model, tea.Cmd) {
	keys := m.view.SelectedKeys()
	if len(keys) == 0 {
		m.setStatus("nothing selected", false)
		return m, nil
	}
	if err := clipboard.WriteAll(strings.Join(keys, "\n")); err != nil {
		m.setStatus(fmt.Sprintf("clipboard: %v", err), true)
		return m, nil
	}
	m.setStatus(fmt.Sprintf("copied %d keys", len(keys)), false)
	return m, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED STATE MAINTENANCE
// ══════════════════════════════════════════════════════════════════════════════

// refreshRows re-flattens the tree and keeps the cursor in range.
func (m *Model) refreshRows() {
	m.rows = m.view.VisibleRows()
	m.clampCursor()
	m.syncViewport()
}

// syncViewport re-renders the row window and keeps the cursor line
// visible.
func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderRows())
	if m.cursor < m.viewport.YOffset {
		m.viewport.SetYOffset(m.cursor)
	} else if m.cursor >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusIsErr = isErr
}

func (m *Model) notifySelection() {
	keys := m.view.SelectedKeys()
	m.setStatus(fmt.Sprintf("%d selected", len(keys)), false)
	if m.onSelectionChanged != nil {
		m.onSelectionChanged(keys)
	}
}

// selectedIDSets splits the selection into asset IDs and folder IDs for
// the bulk-update endpoint.
func (m *Model) selectedIDSets() (assetIDs, folderIDs []string) {
	for _, key := range m.view.SelectedKeys() {
		if model.IsAssetKey(key) {
			assetIDs = append(assetIDs, model.AssetID(key))
		} else {
			folderIDs = append(folderIDs, key)
		}
	}
	return assetIDs, folderIDs
}

// Package tree is the headless visual-tree state behind the browser: node
// storage, expansion, selection, filtering, and sorting. It knows nothing
// about rendering or the network, so tests drive it directly.
package tree

import (
	"sort"
	"strings"

	"github.com/pkarlsen/vaultview/pkg/model"
)

// FilterMode controls what happens to nodes that fail the active
// predicate.
type FilterMode int

const (
	// ModeHide removes non-matching nodes from the layout. Folders with a
	// matching materialized descendant stay visible so matches remain
	// reachable.
	ModeHide FilterMode = iota
	// ModeDim keeps non-matching nodes in the layout but de-emphasized.
	ModeDim
)

// String returns the mode's config/display name.
func (m FilterMode) String() string {
	if m == ModeDim {
		return "dim"
	}
	return "hide"
}

// ParseFilterMode maps a config string to a mode, defaulting to hide.
func ParseFilterMode(s string) FilterMode {
	if strings.EqualFold(s, "dim") {
		return ModeDim
	}
	return ModeHide
}

// Predicate is a pure match function evaluated against materialized
// nodes.
type Predicate func(model.TreeNode) bool

// Row is one visible line of the flattened tree.
type Row struct {
	Node        model.TreeNode
	Depth       int
	Expanded    bool
	HasChildren bool
	Selected    bool
	Dimmed      bool
}

// View owns the materialized tree. Lazy, not-yet-loaded nodes simply do
// not exist here until a fetch attaches them.
type View struct {
	nodes    map[string]*model.TreeNode
	children map[string][]string
	expanded map[string]bool
	selected map[string]bool

	pred Predicate
	mode FilterMode

	sortOn  bool
	sortCol model.ColumnID
	sortAsc bool
}

// RootKey addresses the synthetic parent of volume roots.
const RootKey = ""

// NewView creates an empty view.
func NewView() *View {
	return &View{
		nodes:    make(map[string]*model.TreeNode),
		children: make(map[string][]string),
		expanded: make(map[string]bool),
		selected: make(map[string]bool),
	}
}

// Len returns the number of materialized nodes.
func (v *View) Len() int {
	return len(v.nodes)
}

// Node returns a copy of the node for key.
func (v *View) Node(key string) (model.TreeNode, bool) {
	n, ok := v.nodes[key]
	if !ok {
		return model.TreeNode{}, false
	}
	return n.Clone(), true
}

// AddChildren attaches nodes under parentKey, skipping any whose key is
// already materialized. Overlapping lazy loads therefore never duplicate
// a node. Returns the number actually added. The active sort, if any, is
// re-applied to the sibling group after the batch.
func (v *View) AddChildren(parentKey string, nodes []model.TreeNode) int {
	added := 0
	for _, n := range nodes {
		if _, exists := v.nodes[n.Key]; exists {
			continue
		}
		clone := n.Clone()
		clone.ParentKey = parentKey
		v.nodes[n.Key] = &clone
		v.children[parentKey] = append(v.children[parentKey], n.Key)
		added++
	}
	if added > 0 && v.sortOn {
		v.sortSiblings(parentKey)
	}
	return added
}

// Children returns the ordered child keys of parentKey.
func (v *View) Children(parentKey string) []string {
	keys := v.children[parentKey]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// HasChildren reports whether any children are materialized under key.
func (v *View) HasChildren(key string) bool {
	return len(v.children[key]) > 0
}

// SetCellValue updates one field of a node in place. For select-like
// columns value is the id and label the resolved display text. Returns
// false when the node is unknown or the column is not editable for the
// node's kind.
func (v *View) SetCellValue(key string, col model.ColumnID, value, label string) bool {
	n, ok := v.nodes[key]
	if !ok {
		return false
	}
	switch col {
	case model.ColStatus:
		if n.Kind != model.KindAsset {
			return false
		}
		n.StatusID = value
		n.StatusLabel = label
	case model.ColAssignedUser:
		n.AssignedUserID = value
		n.AssignedUserLabel = label
	case model.ColDuplicate:
		if n.Kind != model.KindAsset {
			return false
		}
		n.Duplicate = parseBoolValue(value)
	case model.ColLinked:
		if n.Kind != model.KindAsset {
			return false
		}
		n.Linked = parseBoolValue(value)
	case model.ColNotes:
		n.Notes = value
	default:
		return false
	}
	return true
}

func parseBoolValue(value string) *bool {
	switch value {
	case "true":
		b := true
		return &b
	case "false":
		b := false
		return &b
	default:
		return nil
	}
}

// Path returns the node's display path from the volume root, titles
// joined with " > ".
func (v *View) Path(key string) string {
	var titles []string
	for key != RootKey {
		n, ok := v.nodes[key]
		if !ok {
			break
		}
		titles = append(titles, n.Title)
		key = n.ParentKey
	}
	for i, j := 0, len(titles)-1; i < j; i, j = i+1, j-1 {
		titles[i], titles[j] = titles[j], titles[i]
	}
	return strings.Join(titles, " > ")
}

// ══════════════════════════════════════════════════════════════════════════════
// EXPANSION
// ══════════════════════════════════════════════════════════════════════════════

// Expand marks a folder open.
func (v *View) Expand(key string) {
	if n, ok := v.nodes[key]; ok && n.IsFolder() {
		v.expanded[key] = true
	}
}

// Collapse closes a folder.
func (v *View) Collapse(key string) {
	delete(v.expanded, key)
}

// CollapseAll closes every expanded folder.
func (v *View) CollapseAll() {
	v.expanded = make(map[string]bool)
}

// IsExpanded reports whether a folder is open.
func (v *View) IsExpanded(key string) bool {
	return v.expanded[key]
}

// ══════════════════════════════════════════════════════════════════════════════
// SELECTION
// ══════════════════════════════════════════════════════════════════════════════

// SetSelected toggles one node's membership in the selection set.
func (v *View) SetSelected(key string, selected bool) {
	if _, ok := v.nodes[key]; !ok {
		return
	}
	if selected {
		v.selected[key] = true
	} else {
		delete(v.selected, key)
	}
}

// IsSelected reports whether a node is selected.
func (v *View) IsSelected(key string) bool {
	return v.selected[key]
}

// SelectedKeys returns the authoritative selection set, sorted for
// stable consumption.
func (v *View) SelectedKeys() []string {
	keys := make([]string, 0, len(v.selected))
	for key := range v.selected {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// SelectedCount returns the selection size.
func (v *View) SelectedCount() int {
	return len(v.selected)
}

// DeselectAll empties the selection set.
func (v *View) DeselectAll() {
	v.selected = make(map[string]bool)
}

// SelectAllMatching sets the selection state of exactly the materialized
// nodes matching pred, leaving the rest untouched. Returns the number of
// nodes whose state was set.
func (v *View) SelectAllMatching(pred Predicate, selected bool) int {
	count := 0
	for key, n := range v.nodes {
		if pred == nil || pred(*n) {
			v.SetSelected(key, selected)
			count++
		}
	}
	return count
}

// ══════════════════════════════════════════════════════════════════════════════
// FILTERING
// ══════════════════════════════════════════════════════════════════════════════

// ApplyFilter installs the predicate and mode for the flattened view.
func (v *View) ApplyFilter(pred Predicate, mode FilterMode) {
	v.pred = pred
	v.mode = mode
}

// ClearFilter removes the predicate and restores full visibility.
func (v *View) ClearFilter() {
	v.pred = nil
}

// HasFilter reports whether a predicate is installed.
func (v *View) HasFilter() bool {
	return v.pred != nil
}

// Matches evaluates the active predicate against a node. With no
// predicate installed everything matches.
func (v *View) Matches(n model.TreeNode) bool {
	return v.pred == nil || v.pred(n)
}

// MatchCount walks all materialized nodes and counts predicate matches.
func (v *View) MatchCount() int {
	if v.pred == nil {
		return len(v.nodes)
	}
	count := 0
	for _, n := range v.nodes {
		if v.pred(*n) {
			count++
		}
	}
	return count
}

// AllKeys returns every materialized key in depth-first display order.
// Used by chunked bulk selection so progress is deterministic.
func (v *View) AllKeys() []string {
	var keys []string
	var walk func(parent string)
	walk = func(parent string) {
		for _, key := range v.children[parent] {
			keys = append(keys, key)
			walk(key)
		}
	}
	walk(RootKey)
	return keys
}

// ══════════════════════════════════════════════════════════════════════════════
// SORTING
// ══════════════════════════════════════════════════════════════════════════════

// SetSort activates sorting on a column, toggling direction when the
// column is already active. Sorting is stable and applies to every
// loaded sibling group; later lazy batches are re-sorted on arrival.
func (v *View) SetSort(col model.ColumnID) {
	if v.sortOn && v.sortCol == col {
		v.sortAsc = !v.sortAsc
	} else {
		v.sortOn = true
		v.sortCol = col
		v.sortAsc = true
	}
	v.resortAll()
}

// ClearSort restores insertion order for future batches. Already-sorted
// sibling groups keep their current order.
func (v *View) ClearSort() {
	v.sortOn = false
}

// SortState returns the active sort column and direction.
func (v *View) SortState() (col model.ColumnID, ascending, active bool) {
	return v.sortCol, v.sortAsc, v.sortOn
}

func (v *View) resortAll() {
	for parent := range v.children {
		v.sortSiblings(parent)
	}
}

func (v *View) sortSiblings(parent string) {
	keys := v.children[parent]
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := v.nodes[keys[i]], v.nodes[keys[j]]
		cmp := model.CompareColumn(*a, *b, v.sortCol)
		if v.sortAsc {
			return cmp < 0
		}
		return cmp > 0
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// FLATTENING
// ══════════════════════════════════════════════════════════════════════════════

// VisibleRows flattens the tree for display, honoring expansion and the
// active filter.
func (v *View) VisibleRows() []Row {
	var memo map[string]bool
	if v.pred != nil && v.mode == ModeHide {
		memo = make(map[string]bool)
	}

	var rows []Row
	var walk func(parent string, depth int)
	walk = func(parent string, depth int) {
		for _, key := range v.children[parent] {
			n := v.nodes[key]
			dimmed := false
			if v.pred != nil {
				match := v.pred(*n)
				if v.mode == ModeHide {
					if !match && !v.subtreeMatches(key, memo) {
						continue
					}
				} else {
					dimmed = !match
				}
			}
			rows = append(rows, Row{
				Node:        n.Clone(),
				Depth:       depth,
				Expanded:    v.expanded[key],
				HasChildren: len(v.children[key]) > 0,
				Selected:    v.selected[key],
				Dimmed:      dimmed,
			})
			if v.expanded[key] {
				walk(key, depth+1)
			}
		}
	}
	walk(RootKey, 0)
	return rows
}

// subtreeMatches reports whether any materialized descendant of key
// matches the predicate.
func (v *View) subtreeMatches(key string, memo map[string]bool) bool {
	if result, ok := memo[key]; ok {
		return result
	}
	// Mark in progress to terminate on malformed cycles.
	memo[key] = false
	result := false
	for _, child := range v.children[key] {
		if v.pred(*v.nodes[child]) || v.subtreeMatches(child, memo) {
			result = true
			break
		}
	}
	memo[key] = result
	return result
}

// Reset performs the clear-filters portion owned by the view: collapse
// everything, empty the selection, and drop the predicate. Materialized
// nodes stay; the cleared hierarchy cache governs refetching.
func (v *View) Reset() {
	v.CollapseAll()
	v.DeselectAll()
	v.ClearFilter()
}

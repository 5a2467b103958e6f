package ui

import (
	"github.com/pkarlsen/vaultview/pkg/config"
	"github.com/pkarlsen/vaultview/pkg/model"
)

// nodeBatch is a set of fetched nodes destined for one parent.
type nodeBatch struct {
	parentKey string
	nodes     []model.TreeNode
}

// rootsLoadedMsg delivers the volume roots.
type rootsLoadedMsg struct {
	gen   int64
	nodes []model.TreeNode
}

// childrenLoadedMsg delivers a folder's child folders and asset page
// after a lazy expand.
type childrenLoadedMsg struct {
	gen       int64
	parentKey string
	folders   []model.TreeNode
	assets    []model.TreeNode
}

// debounceMsg fires when the free-text debounce window elapses. Only the
// newest sequence number is honored.
type debounceMsg struct {
	seq int
}

// searchDoneMsg delivers server search hits for a generation.
type searchDoneMsg struct {
	gen     int64
	folders []model.SearchHit
	assets  []model.SearchHit
}

// materializedMsg delivers the fetched ancestor batches that make every
// search hit reachable in the visual tree.
type materializedMsg struct {
	gen     int64
	batches []nodeBatch
	expand  []string
}

// selectStepMsg is one chunk of the descendant selection traversal.
type selectStepMsg struct {
	gen     int64
	flag    bool
	batches []nodeBatch
	setKeys []string
	queue   []string
}

// selectAllStepMsg is one chunk of filtered select-all.
type selectAllStepMsg struct {
	gen  int64
	flag bool
	keys []string
	idx  int
}

// cellCommittedMsg reports the remote outcome of a single-cell commit.
type cellCommittedMsg struct {
	update model.CellUpdate
	old    string
	err    error
}

// bulkDoneMsg reports the remote outcome of a bulk update.
type bulkDoneMsg struct {
	result model.BulkResult
	err    error
}

// ConfigReloadedMsg is sent into the program when the config file
// changes on disk.
type ConfigReloadedMsg struct {
	Config config.Config
}

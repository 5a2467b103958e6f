// Package hierarchy caches fetched folder and asset pages keyed by
// parent folder so lazy loads never repeat a network round trip.
package hierarchy

import (
	"sync"

	"github.com/pkarlsen/vaultview/pkg/model"
)

// ChildKind selects which child list of a folder is being tracked.
type ChildKind int

const (
	ChildFolders ChildKind = iota
	ChildAssets
)

// RootKey is the cache key for volume roots, which have no parent folder.
const RootKey = ""

// Cache holds per-folder child lists plus loaded-sets recording which
// folder keys have had each list fetched at least once. It performs no
// I/O; the fetch coordinator is the only writer. The mutex is here
// because coordinator calls run on bubbletea command goroutines.
type Cache struct {
	mu            sync.RWMutex
	children      map[string][]model.TreeNode
	assets        map[string][]model.TreeNode
	loadedFolders map[string]bool
	loadedAssets  map[string]bool
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	c := &Cache{}
	c.reset()
	return c
}

func (c *Cache) reset() {
	c.children = make(map[string][]model.TreeNode)
	c.assets = make(map[string][]model.TreeNode)
	c.loadedFolders = make(map[string]bool)
	c.loadedAssets = make(map[string]bool)
}

// Children returns the cached child folders for a key, if fetched.
func (c *Cache) Children(folderKey string) ([]model.TreeNode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	nodes, ok := c.children[folderKey]
	if !ok {
		return nil, false
	}
	return cloneNodes(nodes), true
}

// SetChildren stores the child folder list for a key and marks it loaded.
func (c *Cache) SetChildren(folderKey string, nodes []model.TreeNode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.children[folderKey] = cloneNodes(nodes)
	c.loadedFolders[folderKey] = true
}

// Assets returns the cached child assets for a key, if fetched.
func (c *Cache) Assets(folderKey string) ([]model.TreeNode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	nodes, ok := c.assets[folderKey]
	if !ok {
		return nil, false
	}
	return cloneNodes(nodes), true
}

// SetAssets stores the asset page for a key and marks it loaded.
func (c *Cache) SetAssets(folderKey string, nodes []model.TreeNode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assets[folderKey] = cloneNodes(nodes)
	c.loadedAssets[folderKey] = true
}

// MarkLoaded records a successful fetch for a key without replacing data.
func (c *Cache) MarkLoaded(folderKey string, kind ChildKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind {
	case ChildFolders:
		c.loadedFolders[folderKey] = true
	case ChildAssets:
		c.loadedAssets[folderKey] = true
	}
}

// IsLoaded reports whether a key's child list has been fetched. A failed
// fetch never marks loaded, so a later retry stays possible.
func (c *Cache) IsLoaded(folderKey string, kind ChildKind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch kind {
	case ChildFolders:
		return c.loadedFolders[folderKey]
	case ChildAssets:
		return c.loadedAssets[folderKey]
	default:
		return false
	}
}

// Clear resets all maps and loaded-sets. Invoked by the clear-filters
// full reset so the next expand triggers a fresh fetch.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func cloneNodes(nodes []model.TreeNode) []model.TreeNode {
	out := make([]model.TreeNode, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

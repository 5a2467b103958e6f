package model

import (
	"fmt"
	"strings"
)

// NodeKind distinguishes hierarchy containers from leaf file records.
type NodeKind string

const (
	KindFolder NodeKind = "folder"
	KindAsset  NodeKind = "asset"
)

// IsValid returns true if the kind is a recognized value.
func (k NodeKind) IsValid() bool {
	return k == KindFolder || k == KindAsset
}

// AssetKeyPrefix namespaces asset keys away from folder keys, which are
// bare IDs.
const AssetKeyPrefix = "a-"

// AssetKey builds the tree key for an asset ID.
func AssetKey(id string) string {
	return AssetKeyPrefix + id
}

// AssetID strips the asset key prefix. Returns the input unchanged for
// folder keys.
func AssetID(key string) string {
	return strings.TrimPrefix(key, AssetKeyPrefix)
}

// IsAssetKey reports whether key names an asset node.
func IsAssetKey(key string) bool {
	return strings.HasPrefix(key, AssetKeyPrefix)
}

// TreeNode is a folder or an asset in the migration tree.
// Key is stable for the node's lifetime; ParentKey is empty only for
// volume roots.
type TreeNode struct {
	Key       string
	Kind      NodeKind
	ParentKey string
	Title     string

	// Folder fields
	AssetCount int

	// Asset fields
	StatusID    string
	StatusLabel string
	FileType    string
	FileSize    int64
	CreatedAt   string
	ModifiedAt  string
	Collections []string
	Duplicate   *bool
	Linked      *bool
	DetailURL   string

	// Shared fields
	AssignedUserID    string
	AssignedUserLabel string
	Notes             string
}

// IsFolder reports whether the node is a hierarchy container.
func (n TreeNode) IsFolder() bool {
	return n.Kind == KindFolder
}

// Clone creates a deep copy of the node.
func (n TreeNode) Clone() TreeNode {
	clone := n
	if n.Collections != nil {
		clone.Collections = make([]string, len(n.Collections))
		copy(clone.Collections, n.Collections)
	}
	if n.Duplicate != nil {
		v := *n.Duplicate
		clone.Duplicate = &v
	}
	if n.Linked != nil {
		v := *n.Linked
		clone.Linked = &v
	}
	return clone
}

// Validate checks if the node data is logically valid.
func (n *TreeNode) Validate() error {
	if n.Key == "" {
		return fmt.Errorf("node key cannot be empty")
	}
	if !n.Kind.IsValid() {
		return fmt.Errorf("invalid node kind: %s", n.Kind)
	}
	if n.Kind == KindAsset && !IsAssetKey(n.Key) {
		return fmt.Errorf("asset key %q missing %q prefix", n.Key, AssetKeyPrefix)
	}
	return nil
}

package model

// FolderSummary is the hierarchy service's wire form of a folder.
type FolderSummary struct {
	ID                string `json:"id"`
	ParentID          string `json:"parent_id,omitempty"`
	Title             string `json:"title"`
	AssignedUserID    string `json:"assigned_user_id,omitempty"`
	AssignedUserLabel string `json:"assigned_user_label,omitempty"`
	AssetCount        int    `json:"asset_count"`
	Notes             string `json:"notes,omitempty"`
}

// Node converts the summary into a tree node under parentKey.
func (f FolderSummary) Node(parentKey string) TreeNode {
	return TreeNode{
		Key:               f.ID,
		Kind:              KindFolder,
		ParentKey:         parentKey,
		Title:             f.Title,
		AssignedUserID:    f.AssignedUserID,
		AssignedUserLabel: f.AssignedUserLabel,
		AssetCount:        f.AssetCount,
		Notes:             f.Notes,
	}
}

// AssetSummary is the hierarchy service's wire form of an asset.
type AssetSummary struct {
	ID                string   `json:"id"`
	FolderID          string   `json:"folder_id"`
	Title             string   `json:"title"`
	StatusID          string   `json:"migration_status_id,omitempty"`
	StatusLabel       string   `json:"migration_status_label,omitempty"`
	AssignedUserID    string   `json:"assigned_user_id,omitempty"`
	AssignedUserLabel string   `json:"assigned_user_label,omitempty"`
	FileType          string   `json:"file_type,omitempty"`
	FileSize          int64    `json:"file_size,omitempty"`
	CreatedAt         string   `json:"created_at,omitempty"`
	ModifiedAt        string   `json:"modified_at,omitempty"`
	Collections       []string `json:"collection_ids,omitempty"`
	Duplicate         *bool    `json:"duplicate,omitempty"`
	Linked            *bool    `json:"linked,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	DetailURL         string   `json:"detail_url,omitempty"`
}

// Node converts the summary into a tree node under its folder.
func (a AssetSummary) Node() TreeNode {
	return TreeNode{
		Key:               AssetKey(a.ID),
		Kind:              KindAsset,
		ParentKey:         a.FolderID,
		Title:             a.Title,
		StatusID:          a.StatusID,
		StatusLabel:       a.StatusLabel,
		AssignedUserID:    a.AssignedUserID,
		AssignedUserLabel: a.AssignedUserLabel,
		FileType:          a.FileType,
		FileSize:          a.FileSize,
		CreatedAt:         a.CreatedAt,
		ModifiedAt:        a.ModifiedAt,
		Collections:       a.Collections,
		Duplicate:         a.Duplicate,
		Linked:            a.Linked,
		Notes:             a.Notes,
		DetailURL:         a.DetailURL,
	}
}

// SearchHit is a search result with enough ancestry to materialize the
// node in a collapsed tree. AncestorPath is ordered root first down to the
// immediate parent folder.
type SearchHit struct {
	Node         TreeNode
	AncestorPath []string
}

// FolderHit is the wire form of a folder search result.
type FolderHit struct {
	FolderSummary
	AncestorPath []string `json:"ancestor_path"`
}

// Hit converts the wire result into a SearchHit.
func (f FolderHit) Hit() SearchHit {
	parent := ""
	if len(f.AncestorPath) > 0 {
		parent = f.AncestorPath[len(f.AncestorPath)-1]
	}
	return SearchHit{Node: f.FolderSummary.Node(parent), AncestorPath: f.AncestorPath}
}

// AssetHit is the wire form of an asset search result.
type AssetHit struct {
	AssetSummary
	AncestorPath []string `json:"ancestor_path"`
}

// Hit converts the wire result into a SearchHit.
func (a AssetHit) Hit() SearchHit {
	return SearchHit{Node: a.AssetSummary.Node(), AncestorPath: a.AncestorPath}
}

// CellUpdate is a single-field commit against the remote service.
type CellUpdate struct {
	Key   string   `json:"key"`
	Kind  NodeKind `json:"kind"`
	Field ColumnID `json:"field"`
	Value string   `json:"value"`
}

// BulkUpdate applies field changes to many nodes at once.
type BulkUpdate struct {
	AssetIDs  []string          `json:"asset_ids,omitempty"`
	FolderIDs []string          `json:"folder_ids,omitempty"`
	Changes   map[string]string `json:"changes"`
}

// BulkResult reports the outcome of a bulk update.
type BulkResult struct {
	UpdatedCount int      `json:"updated_count"`
	Messages     []string `json:"messages,omitempty"`
}

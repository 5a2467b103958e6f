package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnID identifies a display column in the migration tree.
type ColumnID string

const (
	ColTitle        ColumnID = "title"
	ColStatus       ColumnID = "migration_status"
	ColAssignedUser ColumnID = "assigned_user"
	ColFileType     ColumnID = "file_type"
	ColFileSize     ColumnID = "file_size"
	ColModified     ColumnID = "modified"
	ColCollections  ColumnID = "collections"
	ColDuplicate    ColumnID = "duplicate"
	ColLinked       ColumnID = "linked"
	ColNotes        ColumnID = "notes"
	ColAssetCount   ColumnID = "asset_count"
)

// BrowserColumns is the column order rendered in the browser, title first.
var BrowserColumns = []ColumnID{
	ColTitle,
	ColStatus,
	ColAssignedUser,
	ColFileType,
	ColFileSize,
	ColModified,
	ColDuplicate,
	ColLinked,
	ColNotes,
}

// FilterableColumns are the columns that accept a dropdown filter value.
var FilterableColumns = []ColumnID{
	ColStatus,
	ColAssignedUser,
	ColFileType,
	ColDuplicate,
	ColLinked,
}

// String returns a short display header for the column.
func (c ColumnID) String() string {
	switch c {
	case ColTitle:
		return "Title"
	case ColStatus:
		return "Status"
	case ColAssignedUser:
		return "Assigned"
	case ColFileType:
		return "Type"
	case ColFileSize:
		return "Size"
	case ColModified:
		return "Modified"
	case ColCollections:
		return "Collections"
	case ColDuplicate:
		return "Dup"
	case ColLinked:
		return "Linked"
	case ColNotes:
		return "Notes"
	case ColAssetCount:
		return "Assets"
	default:
		return string(c)
	}
}

// IsBoolean reports whether the column holds a boolean-like value edited
// via a literal true/false pair.
func (c ColumnID) IsBoolean() bool {
	return c == ColDuplicate || c == ColLinked
}

// UnassignedValue is the normalized filter value for a missing assignee.
const UnassignedValue = "unassigned"

// NormalizedValue returns the node's comparison value for a column filter.
// Assigned-user maps empty to "unassigned", migration-status uses the id
// (falling back to the raw label), boolean-like columns yield "true",
// "false", or empty when unset, and everything else is the raw value with
// empty for absent.
func NormalizedValue(n TreeNode, col ColumnID) string {
	switch col {
	case ColAssignedUser:
		if n.AssignedUserID == "" {
			return UnassignedValue
		}
		return n.AssignedUserID
	case ColStatus:
		if n.StatusID != "" {
			return n.StatusID
		}
		return n.StatusLabel
	case ColDuplicate:
		return boolValue(n.Duplicate)
	case ColLinked:
		return boolValue(n.Linked)
	case ColTitle:
		return n.Title
	case ColFileType:
		return n.FileType
	case ColFileSize:
		if n.Kind != KindAsset {
			return ""
		}
		return strconv.FormatInt(n.FileSize, 10)
	case ColModified:
		return n.ModifiedAt
	case ColCollections:
		return strings.Join(n.Collections, ",")
	case ColNotes:
		return n.Notes
	case ColAssetCount:
		if !n.IsFolder() {
			return ""
		}
		return strconv.Itoa(n.AssetCount)
	default:
		return ""
	}
}

func boolValue(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "true"
	}
	return "false"
}

// DisplayValue returns the node's rendered cell text for a column.
func DisplayValue(n TreeNode, col ColumnID) string {
	switch col {
	case ColTitle:
		return n.Title
	case ColStatus:
		return n.StatusLabel
	case ColAssignedUser:
		return n.AssignedUserLabel
	case ColFileSize:
		if n.Kind != KindAsset || n.FileSize == 0 {
			return ""
		}
		return FormatSize(n.FileSize)
	case ColDuplicate:
		return boolGlyph(n.Duplicate)
	case ColLinked:
		return boolGlyph(n.Linked)
	case ColAssetCount:
		if !n.IsFolder() {
			return ""
		}
		return strconv.Itoa(n.AssetCount)
	default:
		return NormalizedValue(n, col)
	}
}

func boolGlyph(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "yes"
	}
	return "no"
}

// FormatSize renders a byte count in a compact human form.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%dB", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%c", float64(size)/float64(div), "KMGTP"[exp])
}

// CompareColumn orders two nodes by a column for sorting. Folders sort
// before assets so directory groups stay together; within a kind the
// comparison is value-based with title as the tiebreaker.
func CompareColumn(a, b TreeNode, col ColumnID) int {
	if a.IsFolder() != b.IsFolder() {
		if a.IsFolder() {
			return -1
		}
		return 1
	}
	var cmp int
	switch col {
	case ColFileSize:
		cmp = compareInt64(a.FileSize, b.FileSize)
	case ColAssetCount:
		cmp = compareInt64(int64(a.AssetCount), int64(b.AssetCount))
	default:
		cmp = strings.Compare(
			strings.ToLower(DisplayValue(a, col)),
			strings.ToLower(DisplayValue(b, col)),
		)
	}
	if cmp != 0 {
		return cmp
	}
	return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

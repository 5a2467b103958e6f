package audit

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal", "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndRecent(t *testing.T) {
	db := openTestDB(t)

	entries := []Entry{
		{NodeKey: "a-1", NodeKind: "asset", Field: "migration_status", OldValue: "1", NewValue: "3"},
		{NodeKey: "a-2", NodeKind: "asset", Field: "notes", NewValue: "checked", Bulk: true},
		{NodeKey: "f1", NodeKind: "folder", Field: "assigned_user", NewValue: "7"},
	}
	for _, e := range entries {
		if err := db.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := db.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent(2) = %d entries", len(recent))
	}
	if recent[0].NodeKey != "f1" {
		t.Errorf("newest first: got %s", recent[0].NodeKey)
	}
	if recent[1].NodeKey != "a-2" || !recent[1].Bulk {
		t.Errorf("second entry = %+v", recent[1])
	}
	if recent[0].At.IsZero() {
		t.Error("timestamp not filled in")
	}
}

func TestRecordKeepsExplicitTimestamp(t *testing.T) {
	db := openTestDB(t)

	at := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	if err := db.Record(Entry{NodeKey: "a-1", NodeKind: "asset", Field: "notes", At: at}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	recent, err := db.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if !recent[0].At.Equal(at) {
		t.Errorf("At = %v, want %v", recent[0].At, at)
	}
}

func TestCountForNode(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 3; i++ {
		if err := db.Record(Entry{NodeKey: "a-1", NodeKind: "asset", Field: "notes"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := db.Record(Entry{NodeKey: "a-2", NodeKind: "asset", Field: "notes"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	n, err := db.CountForNode("a-1")
	if err != nil {
		t.Fatalf("CountForNode: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
	n, _ = db.CountForNode("missing")
	if n != 0 {
		t.Errorf("count for unknown node = %d", n)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := db.Record(Entry{NodeKey: "a-1", NodeKind: "asset", Field: "notes"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	n, err := db.CountForNode("a-1")
	if err != nil {
		t.Fatalf("CountForNode: %v", err)
	}
	if n != 1 {
		t.Errorf("reopened journal lost entries: count = %d", n)
	}
}

package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGetSource(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreateSource(&Source{ICSPath: "work", Name: "Work", CalDAVBaseURL: "https://x/cal", Username: "u", Password: "p", SyncIntervalSecs: 300})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}

	got, err := db.GetSource(id)
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got.ICSPath != "work" || got.LastSyncStatus != "unset" {
		t.Errorf("unexpected source: %+v", got)
	}
}

func TestGetSourceNotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetSource(999); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSourcePreservesPasswordWhenEmpty(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.CreateSource(&Source{ICSPath: "work", Name: "Work", CalDAVBaseURL: "https://x", Password: "secret"})

	err := db.UpdateSource(&Source{ID: id, Name: "Work Renamed", CalDAVBaseURL: "https://x", Password: ""})
	if err != nil {
		t.Fatalf("UpdateSource: %v", err)
	}

	got, _ := db.GetSource(id)
	if got.Password != "secret" {
		t.Errorf("expected password preserved, got %q", got.Password)
	}
	if got.Name != "Work Renamed" {
		t.Errorf("expected name updated, got %q", got.Name)
	}
}

func TestMarkSourceSyncedAndError(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.CreateSource(&Source{ICSPath: "work", Name: "Work", CalDAVBaseURL: "https://x"})

	now := time.Now().Truncate(time.Second)
	if err := db.MarkSourceSynced(id, []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), "text/calendar; charset=utf-8", now); err != nil {
		t.Fatalf("MarkSourceSynced: %v", err)
	}
	got, _ := db.GetSource(id)
	if got.LastSyncStatus != "ok" || len(got.CachedBody) == 0 {
		t.Fatalf("expected ok status with cached body, got %+v", got)
	}

	if err := db.MarkSourceError(id, "boom"); err != nil {
		t.Fatalf("MarkSourceError: %v", err)
	}
	got, _ = db.GetSource(id)
	if got.LastSyncStatus != "error" || got.LastSyncError == nil || *got.LastSyncError != "boom" {
		t.Fatalf("expected error status, got %+v", got)
	}
	if len(got.CachedBody) == 0 {
		t.Fatalf("expected cached body to survive a failed cycle (stale-serving)")
	}
}

func TestDeleteSourceNotFound(t *testing.T) {
	db := openTestDB(t)
	if err := db.DeleteSource(123); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDestinationCRUD(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreateDestination(&Destination{Name: "Mirror", RemoteICSURL: "https://x/feed.ics", CalDAVBaseURL: "https://y", SyncIntervalSecs: 60, SyncAll: true, KeepLocal: false})
	if err != nil {
		t.Fatalf("CreateDestination: %v", err)
	}

	got, err := db.GetDestination(id)
	if err != nil {
		t.Fatalf("GetDestination: %v", err)
	}
	if !got.SyncAll || got.KeepLocal {
		t.Errorf("unexpected flags: %+v", got)
	}

	if err := db.DeleteDestination(id); err != nil {
		t.Fatalf("DeleteDestination: %v", err)
	}
	if _, err := db.GetDestination(id); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSyncLogOrdering(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.CreateSource(&Source{ICSPath: "work", Name: "Work", CalDAVBaseURL: "https://x"})

	for i, status := range []string{"ok", "error", "ok"} {
		if err := db.AppendLog(LogEntry{UnitKind: "source", UnitID: id, Status: status, Message: string(rune('a' + i))}); err != nil {
			t.Fatalf("AppendLog: %v", err)
		}
	}

	entries, err := db.ListLog("source", id, 2)
	if err != nil {
		t.Fatalf("ListLog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected limit to cap at 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "c" {
		t.Errorf("expected newest entry first, got %q", entries[0].Message)
	}
}

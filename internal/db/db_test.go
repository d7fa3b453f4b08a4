package db

import (
	"database/sql"
	"errors"
	"testing"
	"time"
)

func mustOpen(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustInit(t *testing.T) *sql.DB {
	t.Helper()
	db := mustOpen(t)
	if err := Initialize(db); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return db
}

func TestOpenSetsWALMode(t *testing.T) {
	db := mustOpen(t)

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("querying journal_mode: %v", err)
	}
	// In-memory databases may report "memory" instead of "wal" since WAL
	// requires a file. Accept both.
	if mode != "wal" && mode != "memory" {
		t.Errorf("journal_mode = %q, want wal or memory", mode)
	}
}

func TestOpenSetsForeignKeys(t *testing.T) {
	db := mustOpen(t)

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("querying foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestOpenSetsBusyTimeout(t *testing.T) {
	db := mustOpen(t)

	var timeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("querying busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}

func TestInitializeCreatesAllTables(t *testing.T) {
	db := mustInit(t)

	for _, table := range []string{"meta", "drafts", "apply_runs", "apply_log"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	db := mustInit(t)

	if err := Initialize(db); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}

	v, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != currentSchemaVersion {
		t.Errorf("schema_version = %d after double init, want %d", v, currentSchemaVersion)
	}
}

func TestMigrateNoOpAtLatestVersion(t *testing.T) {
	db := mustInit(t)

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	v, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != currentSchemaVersion {
		t.Errorf("schema_version = %d after Migrate, want %d", v, currentSchemaVersion)
	}
}

func TestMigrateFromV1ToV2(t *testing.T) {
	db := mustOpen(t)

	// A version 1 database only had drafts.
	v1DDL := `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);
CREATE TABLE IF NOT EXISTS drafts (
	issue_id TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	error    TEXT,
	saved_at TEXT NOT NULL
);
INSERT INTO meta (key, value) VALUES ('schema_version', '1');
`
	if _, err := db.Exec(v1DDL); err != nil {
		t.Fatalf("creating v1 schema: %v", err)
	}
	if err := SaveDraft(db, "bd-1", "kept", ""); err != nil {
		t.Fatalf("SaveDraft on v1: %v", err)
	}

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	v, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 2 {
		t.Errorf("schema_version = %d after migration, want 2", v)
	}

	runID, err := StartRun(db, "bd-1", 1)
	if err != nil {
		t.Fatalf("StartRun after migration: %v", err)
	}
	if err := RecordCommand(db, runID, "bd-1", 1, "bd close bd-1", nil); err != nil {
		t.Fatalf("RecordCommand after migration: %v", err)
	}

	d, err := GetDraft(db, "bd-1")
	if err != nil || d.Document != "kept" {
		t.Errorf("draft lost during migration: %v, %v", d, err)
	}
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	db := mustInit(t)
	if _, err := db.Exec(`UPDATE meta SET value = '99' WHERE key = 'schema_version'`); err != nil {
		t.Fatalf("bumping version: %v", err)
	}
	if err := Migrate(db); err == nil {
		t.Error("expected error for newer schema version")
	}
}

func TestSaveAndGetDraft(t *testing.T) {
	db := mustInit(t)

	if err := SaveDraft(db, "bd-1", "first", "line 3: invalid priority"); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if err := SaveDraft(db, "bd-1", "second", ""); err != nil {
		t.Fatalf("SaveDraft overwrite: %v", err)
	}

	d, err := GetDraft(db, "bd-1")
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	if d.Document != "second" || d.Error != "" {
		t.Errorf("draft = %+v, want overwritten document without error", d)
	}
	if time.Since(d.SavedAt) > time.Minute {
		t.Errorf("SavedAt = %v, want recent", d.SavedAt)
	}
}

func TestGetDraftNotFound(t *testing.T) {
	db := mustInit(t)
	if _, err := GetDraft(db, "bd-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDraft error = %v, want ErrNotFound", err)
	}
}

func TestListAndDeleteDrafts(t *testing.T) {
	db := mustInit(t)

	for _, id := range []string{"bd-1", "bd-2", "(new)"} {
		if err := SaveDraft(db, id, "doc "+id, ""); err != nil {
			t.Fatalf("SaveDraft(%s): %v", id, err)
		}
	}

	drafts, err := ListDrafts(db)
	if err != nil {
		t.Fatalf("ListDrafts: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("got %d drafts, want 3", len(drafts))
	}

	if err := DeleteDraft(db, "bd-2"); err != nil {
		t.Fatalf("DeleteDraft: %v", err)
	}
	if err := DeleteDraft(db, "bd-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteDraft error = %v, want ErrNotFound", err)
	}

	drafts, err = ListDrafts(db)
	if err != nil {
		t.Fatalf("ListDrafts: %v", err)
	}
	if len(drafts) != 2 {
		t.Errorf("got %d drafts after delete, want 2", len(drafts))
	}
}

func TestListDraftsEmptyIsNotNil(t *testing.T) {
	db := mustInit(t)
	drafts, err := ListDrafts(db)
	if err != nil {
		t.Fatalf("ListDrafts: %v", err)
	}
	if drafts == nil {
		t.Error("ListDrafts should return an empty slice, not nil")
	}
}

func TestJournalRecordsRunsInOrder(t *testing.T) {
	db := mustInit(t)

	first, err := StartRun(db, "bd-1", 2)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := RecordCommand(db, first, "bd-1", 1, "bd label add bd-1 'a'", nil); err != nil {
		t.Fatalf("RecordCommand: %v", err)
	}
	if err := RecordCommand(db, first, "bd-1", 2, "bd close bd-1", errors.New("exited with code 1")); err != nil {
		t.Fatalf("RecordCommand: %v", err)
	}

	second, err := StartRun(db, "bd-1", 1)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := RecordCommand(db, second, "bd-1", 1, "bd close bd-1", nil); err != nil {
		t.Fatalf("RecordCommand: %v", err)
	}

	other, err := StartRun(db, "bd-2", 1)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := RecordCommand(db, other, "bd-2", 1, "bd reopen bd-2", nil); err != nil {
		t.Fatalf("RecordCommand: %v", err)
	}

	entries, err := GetJournal(db, "bd-1", 0)
	if err != nil {
		t.Fatalf("GetJournal: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].RunID != second {
		t.Errorf("newest run should come first, got run %d", entries[0].RunID)
	}
	if entries[1].Seq != 1 || entries[2].Seq != 2 {
		t.Errorf("seq order = %d, %d; want 1, 2", entries[1].Seq, entries[2].Seq)
	}
	if entries[2].OK || entries[2].Error != "exited with code 1" {
		t.Errorf("failed entry = %+v", entries[2])
	}
	if !entries[1].OK || entries[1].Error != "" {
		t.Errorf("ok entry = %+v", entries[1])
	}

	all, err := GetJournal(db, "", 2)
	if err != nil {
		t.Fatalf("GetJournal(all): %v", err)
	}
	if len(all) != 2 {
		t.Errorf("limit not applied: got %d entries", len(all))
	}
}

func TestRecordCommandRequiresRun(t *testing.T) {
	db := mustInit(t)
	if err := RecordCommand(db, 999, "bd-1", 1, "bd close bd-1", nil); err == nil {
		t.Error("expected foreign key violation, got nil")
	}
}

func TestRecordCommandRejectsDuplicateSeq(t *testing.T) {
	db := mustInit(t)
	run, err := StartRun(db, "bd-1", 1)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := RecordCommand(db, run, "bd-1", 1, "a", nil); err != nil {
		t.Fatalf("RecordCommand: %v", err)
	}
	if err := RecordCommand(db, run, "bd-1", 1, "b", nil); err == nil {
		t.Error("expected unique constraint violation, got nil")
	}
}

func TestPruneJournalCascades(t *testing.T) {
	db := mustInit(t)

	run, err := StartRun(db, "bd-1", 1)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := RecordCommand(db, run, "bd-1", 1, "bd close bd-1", nil); err != nil {
		t.Fatalf("RecordCommand: %v", err)
	}

	n, err := PruneJournal(db, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneJournal: %v", err)
	}
	if n != 0 {
		t.Errorf("pruned %d recent runs, want 0", n)
	}

	n, err = PruneJournal(db, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneJournal: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d runs, want 1", n)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM apply_log").Scan(&count); err != nil {
		t.Fatalf("counting apply_log: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 log rows after cascade delete, got %d", count)
	}
}

func TestOpenAndMigrate(t *testing.T) {
	path := t.TempDir() + "/bdedit.db"
	db, err := OpenAndMigrate(path)
	if err != nil {
		t.Fatalf("OpenAndMigrate: %v", err)
	}
	defer db.Close()

	v, err := SchemaVersion(db)
	if err != nil || v != currentSchemaVersion {
		t.Errorf("SchemaVersion = %d, %v", v, err)
	}
}

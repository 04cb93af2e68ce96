//go:build cgo

package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Schema / construction
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
	v, err := s.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != len(migrations) {
		t.Fatalf("expected schema version %d, got %d", len(migrations), v)
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "dir")
	s, err := New(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	if _, err := s.InsertRecords(ctx, "", []Record{sampleRecord("h1", "count")}); err != nil {
		t.Fatalf("inserting: %v", err)
	}
	s.Close()

	s, err = New(dbPath, nil)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer s.Close()
	ok, err := s.HasHash(ctx, "h1")
	if err != nil || !ok {
		t.Fatalf("expected h1 to survive reopen, ok=%v err=%v", ok, err)
	}
}

func TestMigrateAddsChainLengths(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")
	ctx := context.Background()

	// A corpus written at schema version 2, before records carried chain lengths.
	legacy, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("opening legacy db: %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE runs (id TEXT PRIMARY KEY, preset TEXT NOT NULL, seed INTEGER NOT NULL,
			workers INTEGER NOT NULL, config JSON, status TEXT DEFAULT 'running',
			generated INTEGER DEFAULT 0, duplicates INTEGER DEFAULT 0, no_path INTEGER DEFAULT 0,
			pos_mismatch INTEGER DEFAULT 0, started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME)`,
		`CREATE TABLE records (id INTEGER PRIMARY KEY, run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
			shape TEXT NOT NULL, question TEXT NOT NULL, query TEXT NOT NULL, hash TEXT NOT NULL UNIQUE,
			skeleton TEXT, typed TEXT, entities JSON, created_at DATETIME DEFAULT CURRENT_TIMESTAMP)`,
		`CREATE TABLE schema_version (version INTEGER PRIMARY KEY, description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP)`,
		`INSERT INTO schema_version (version, description) VALUES (1, 'initial'), (2, 'index')`,
		`INSERT INTO records (shape, question, query, hash) VALUES ('count', 'How many?', 'SELECT 1', 'old')`,
	} {
		if _, err := legacy.Exec(stmt); err != nil {
			legacy.Close()
			t.Fatalf("preparing legacy db: %v", err)
		}
	}
	legacy.Close()

	s, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("migrating legacy db: %v", err)
	}
	defer s.Close()

	v, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != len(migrations) {
		t.Fatalf("expected schema version %d, got %d", len(migrations), v)
	}

	if _, err := s.InsertRecords(ctx, "", []Record{sampleRecord("new", "single_entity")}); err != nil {
		t.Fatalf("inserting after migration: %v", err)
	}
	recs, err := s.ListRecords(ctx, RecordFilter{})
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	byHash := map[string]Record{}
	for _, r := range recs {
		byHash[r.Hash] = r
	}
	if len(byHash["old"].ChainLengths) != 0 {
		t.Fatalf("legacy record should have no chain lengths, got %v", byHash["old"].ChainLengths)
	}
	if got := byHash["new"].ChainLengths; len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected chain lengths [1], got %v", got)
	}
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

func TestCreateAndFinishRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.CreateRun(ctx, Run{ID: "run-1", Preset: "default", Seed: 1<<63 + 5, Workers: 4, Config: `{"seed":1}`})
	if err != nil {
		t.Fatalf("creating run: %v", err)
	}

	r, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("getting run: %v", err)
	}
	if r.Status != RunRunning || r.Workers != 4 || r.Seed != 1<<63+5 || r.FinishedAt != "" {
		t.Fatalf("unexpected run: %+v", r)
	}

	totals := RunTotals{Generated: 10, Duplicates: 2, NoPath: 3, PosMismatch: 1}
	if err := s.FinishRun(ctx, "run-1", RunFinished, totals); err != nil {
		t.Fatalf("finishing run: %v", err)
	}
	r, err = s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("getting run: %v", err)
	}
	if r.Status != RunFinished || r.Generated != 10 || r.Duplicates != 2 || r.NoPath != 3 || r.PosMismatch != 1 {
		t.Fatalf("unexpected totals: %+v", r)
	}
	if r.FinishedAt == "" {
		t.Fatal("expected finished_at to be set")
	}
}

func TestFinishUnknownRun(t *testing.T) {
	s := newTestStore(t)
	err := s.FinishRun(context.Background(), "missing", RunFailed, RunTotals{})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := s.CreateRun(ctx, Run{ID: id, Preset: "default"}); err != nil {
			t.Fatalf("creating run %s: %v", id, err)
		}
	}
	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("listing runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "b" {
		t.Fatalf("expected newest run first, got %+v", runs)
	}
}

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

func sampleRecord(hash, shape string) Record {
	return Record{
		Shape:        shape,
		Question:     "Who is the father of Ada Lovelace?",
		Query:        "SELECT ?end WHERE { [ Ada Lovelace ] wdt:P22 ?end . }",
		Hash:         hash,
		Skeleton:     "[WH] is the [NOUN] of [THING] ?",
		Typed:        "Who is the [person->person:NOUN:A:0] of [person:A] ?",
		Entities:     []string{"Q7259"},
		ChainLengths: []int{1},
	}
}

func TestInsertRecordsSkipsKnownHashes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateRun(ctx, Run{ID: "run-1", Preset: "default"}); err != nil {
		t.Fatalf("creating run: %v", err)
	}

	n, err := s.InsertRecords(ctx, "run-1", []Record{
		sampleRecord("h1", "single_entity"),
		sampleRecord("h2", "count"),
		sampleRecord("h1", "single_entity"),
	})
	if err != nil {
		t.Fatalf("inserting: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}

	n, err = s.InsertRecords(ctx, "run-1", []Record{sampleRecord("h2", "count"), sampleRecord("h3", "count")})
	if err != nil {
		t.Fatalf("inserting: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 inserted, got %d", n)
	}

	counts, err := s.CountByShape(ctx)
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if counts["single_entity"] != 1 || counts["count"] != 2 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	n, err = s.InsertRecords(ctx, "run-1", nil)
	if err != nil || n != 0 {
		t.Fatalf("expected no-op for empty batch, n=%d err=%v", n, err)
	}
}

func TestListRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"r1", "r2"} {
		if err := s.CreateRun(ctx, Run{ID: id, Preset: "default"}); err != nil {
			t.Fatalf("creating run: %v", err)
		}
	}
	special := sampleRecord("h3", "count")
	special.Question = "How many 100%_sure awards does Dune have?"
	if _, err := s.InsertRecords(ctx, "r1", []Record{sampleRecord("h1", "single_entity"), sampleRecord("h2", "count")}); err != nil {
		t.Fatalf("inserting: %v", err)
	}
	if _, err := s.InsertRecords(ctx, "r2", []Record{special}); err != nil {
		t.Fatalf("inserting: %v", err)
	}

	all, err := s.ListRecords(ctx, RecordFilter{})
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	first := all[0]
	if first.Hash != "h1" || first.RunID != "r1" || len(first.Entities) != 1 || first.Entities[0] != "Q7259" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if len(first.ChainLengths) != 1 || first.ChainLengths[0] != 1 {
		t.Fatalf("unexpected chain lengths: %v", first.ChainLengths)
	}

	byRun, err := s.ListRecords(ctx, RecordFilter{RunID: "r2"})
	if err != nil || len(byRun) != 1 || byRun[0].Hash != "h3" {
		t.Fatalf("filter by run: %v %+v", err, byRun)
	}

	byShape, err := s.ListRecords(ctx, RecordFilter{Shape: "count"})
	if err != nil || len(byShape) != 2 {
		t.Fatalf("filter by shape: %v %+v", err, byShape)
	}

	search, err := s.ListRecords(ctx, RecordFilter{Search: "100%_"})
	if err != nil || len(search) != 1 || search[0].Hash != "h3" {
		t.Fatalf("search: %v %+v", err, search)
	}

	page, err := s.ListRecords(ctx, RecordFilter{Limit: 1, Offset: 1})
	if err != nil || len(page) != 1 || page[0].Hash != "h2" {
		t.Fatalf("paging: %v %+v", err, page)
	}
}

func TestDeleteRunCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateRun(ctx, Run{ID: "r1", Preset: "default"}); err != nil {
		t.Fatalf("creating run: %v", err)
	}
	if _, err := s.InsertRecords(ctx, "r1", []Record{sampleRecord("h1", "count")}); err != nil {
		t.Fatalf("inserting: %v", err)
	}
	if err := s.DeleteRun(ctx, "r1"); err != nil {
		t.Fatalf("deleting run: %v", err)
	}
	ok, err := s.HasHash(ctx, "h1")
	if err != nil {
		t.Fatalf("has hash: %v", err)
	}
	if ok {
		t.Fatal("expected record to be deleted with its run")
	}
	if _, err := s.GetRun(ctx, "r1"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestEachHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.InsertRecords(ctx, "", []Record{sampleRecord("h1", "count"), sampleRecord("h2", "count")}); err != nil {
		t.Fatalf("inserting: %v", err)
	}

	var got []string
	if err := s.EachHash(ctx, func(h string) error {
		got = append(got, h)
		return nil
	}); err != nil {
		t.Fatalf("each hash: %v", err)
	}
	if len(got) != 2 || got[0] != "h1" || got[1] != "h2" {
		t.Fatalf("unexpected hashes: %v", got)
	}

	stop := errors.New("stop")
	err := s.EachHash(ctx, func(string) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

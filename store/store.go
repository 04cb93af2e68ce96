// Package store persists generation runs and generated records in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Run status values.
const (
	RunRunning  = "running"
	RunFinished = "finished"
	RunFailed   = "failed"
)

// Run represents a row in the runs table.
type Run struct {
	ID          string `json:"id"`
	Preset      string `json:"preset"`
	Seed        uint64 `json:"seed"`
	Workers     int    `json:"workers"`
	Config      string `json:"config,omitempty"`
	Status      string `json:"status"`
	Generated   int    `json:"generated"`
	Duplicates  int    `json:"duplicates"`
	NoPath      int    `json:"no_path"`
	PosMismatch int    `json:"pos_mismatch"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at,omitempty"`
}

// RunTotals are the counters written when a run finishes.
type RunTotals struct {
	Generated   int
	Duplicates  int
	NoPath      int
	PosMismatch int
}

// Record represents a row in the records table.
type Record struct {
	ID           int64    `json:"id"`
	RunID        string   `json:"run_id,omitempty"`
	Shape        string   `json:"shape"`
	Question     string   `json:"question"`
	Query        string   `json:"query"`
	Hash         string   `json:"hash"`
	Skeleton     string   `json:"skeleton,omitempty"`
	Typed        string   `json:"typed,omitempty"`
	Entities     []string `json:"entities,omitempty"`
	ChainLengths []int    `json:"chain_lengths,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
}

// RecordFilter narrows ListRecords. Zero fields match everything.
type RecordFilter struct {
	RunID  string
	Shape  string
	Search string // substring of the question
	Limit  int
	Offset int
}

// Store wraps the SQLite database for all gosquit persistence.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema. A nil logger discards log output.
func New(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, log: logger.Named("store")}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// NewWithDB wraps an already opened database without creating the schema.
func NewWithDB(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, log: logger.Named("store")}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Run operations ---

// CreateRun inserts a run in the running state.
func (s *Store) CreateRun(ctx context.Context, r Run) error {
	if r.Status == "" {
		r.Status = RunRunning
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, preset, seed, workers, config, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.Preset, int64(r.Seed), r.Workers, nullable(r.Config), r.Status)
	if err != nil {
		return fmt.Errorf("store.CreateRun: %w", err)
	}
	return nil
}

// FinishRun records the final counters and status of a run.
func (s *Store) FinishRun(ctx context.Context, id, status string, totals RunTotals) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, generated = ?, duplicates = ?, no_path = ?, pos_mismatch = ?,
			finished_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, totals.Generated, totals.Duplicates, totals.NoPath, totals.PosMismatch, id)
	if err != nil {
		return fmt.Errorf("store.FinishRun: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store.FinishRun: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store.FinishRun: run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

const runColumns = `id, preset, seed, workers, config, status, generated, duplicates, no_path,
	pos_mismatch, started_at, finished_at`

func scanRun(sc interface{ Scan(...any) error }) (Run, error) {
	var (
		r        Run
		seed     int64
		config   sql.NullString
		finished sql.NullString
	)
	err := sc.Scan(&r.ID, &r.Preset, &seed, &r.Workers, &config, &r.Status, &r.Generated,
		&r.Duplicates, &r.NoPath, &r.PosMismatch, &r.StartedAt, &finished)
	if err != nil {
		return Run{}, err
	}
	r.Seed = uint64(seed)
	r.Config = config.String
	r.FinishedAt = finished.String
	return r, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, rowid DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- Record operations ---

// InsertRecords stores records under runID in a single transaction. Records
// whose hash is already stored are skipped. It returns how many rows were
// inserted.
func (s *Store) InsertRecords(ctx context.Context, runID string, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store.InsertRecords: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (run_id, shape, question, query, hash, skeleton, typed, entities, chain_lengths)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("store.InsertRecords: prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		entities, err := json.Marshal(r.Entities)
		if err != nil {
			return 0, fmt.Errorf("store.InsertRecords: encoding entities: %w", err)
		}
		lengths, err := json.Marshal(r.ChainLengths)
		if err != nil {
			return 0, fmt.Errorf("store.InsertRecords: encoding chain lengths: %w", err)
		}
		res, err := stmt.ExecContext(ctx, nullable(runID), r.Shape, r.Question, r.Query, r.Hash,
			nullable(r.Skeleton), nullable(r.Typed), string(entities), string(lengths))
		if err != nil {
			return 0, fmt.Errorf("store.InsertRecords: %s: %w", r.Hash, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("store.InsertRecords: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store.InsertRecords: commit: %w", err)
	}
	if skipped := len(records) - inserted; skipped > 0 {
		s.log.Debug("skipped stored hashes", zap.String("run", runID), zap.Int("skipped", skipped))
	}
	return inserted, nil
}

// HasHash reports whether a record with hash is stored.
func (s *Store) HasHash(ctx context.Context, hash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM records WHERE hash = ?", hash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store.HasHash: %w", err)
	}
	return true, nil
}

// EachHash calls fn with every stored hash, stopping at the first error.
func (s *Store) EachHash(ctx context.Context, fn func(hash string) error) error {
	rows, err := s.db.QueryContext(ctx, "SELECT hash FROM records ORDER BY id")
	if err != nil {
		return fmt.Errorf("store.EachHash: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return fmt.Errorf("store.EachHash: %w", err)
		}
		if err := fn(h); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListRecords returns records matching f in insertion order.
func (s *Store) ListRecords(ctx context.Context, f RecordFilter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Shape != "" {
		where = append(where, "shape = ?")
		args = append(args, f.Shape)
	}
	if f.Search != "" {
		where = append(where, "question LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(f.Search)+"%")
	}

	q := `SELECT id, run_id, shape, question, query, hash, skeleton, typed, entities, chain_lengths, created_at
		FROM records`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store.ListRecords: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r                                    Record
			runID, skeleton, typed, ents, chains sql.NullString
		)
		if err := rows.Scan(&r.ID, &runID, &r.Shape, &r.Question, &r.Query, &r.Hash,
			&skeleton, &typed, &ents, &chains, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store.ListRecords: %w", err)
		}
		r.RunID = runID.String
		r.Skeleton = skeleton.String
		r.Typed = typed.String
		if ents.Valid && ents.String != "" {
			if err := json.Unmarshal([]byte(ents.String), &r.Entities); err != nil {
				return nil, fmt.Errorf("store.ListRecords: decoding entities of %d: %w", r.ID, err)
			}
		}
		if chains.Valid && chains.String != "" {
			if err := json.Unmarshal([]byte(chains.String), &r.ChainLengths); err != nil {
				return nil, fmt.Errorf("store.ListRecords: decoding chain lengths of %d: %w", r.ID, err)
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountByShape returns the number of stored records per shape.
func (s *Store) CountByShape(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT shape, COUNT(*) FROM records GROUP BY shape")
	if err != nil {
		return nil, fmt.Errorf("store.CountByShape: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			shape string
			n     int
		)
		if err := rows.Scan(&shape, &n); err != nil {
			return nil, fmt.Errorf("store.CountByShape: %w", err)
		}
		counts[shape] = n
	}
	return counts, rows.Err()
}

// DeleteRun removes a run and, by cascade, its records.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id); err != nil {
		return fmt.Errorf("store.DeleteRun: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

package store

// schemaSQL is the DDL for all tables.
const schemaSQL = `
-- One row per corpus generation run
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    preset TEXT NOT NULL,
    seed INTEGER NOT NULL,
    workers INTEGER NOT NULL,
    config JSON,
    status TEXT DEFAULT 'running',
    generated INTEGER DEFAULT 0,
    duplicates INTEGER DEFAULT 0,
    no_path INTEGER DEFAULT 0,
    pos_mismatch INTEGER DEFAULT 0,
    started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    finished_at DATETIME
);

-- Generated question/query pairs, unique by query hash
CREATE TABLE IF NOT EXISTS records (
    id INTEGER PRIMARY KEY,
    run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
    shape TEXT NOT NULL,
    question TEXT NOT NULL,
    query TEXT NOT NULL,
    hash TEXT NOT NULL UNIQUE,
    skeleton TEXT,
    typed TEXT,
    entities JSON,
    chain_lengths JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_id);
`

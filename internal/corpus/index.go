// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus persists collected records and maintains the
// deduplication index that makes collection runs resumable.
package corpus

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	indexDir = "index"
	dbFile   = "corpus.db"
)

// IndexEntry is one collected identifier in the ledger.
type IndexEntry struct {
	PMID        string
	PMCID       string
	Category    string
	Query       string
	CollectedAt time.Time
}

// Index is the membership contract the orchestrator depends on: ask
// before collecting, record after persisting. Implementations must make
// Add idempotent so concurrent or repeated runs never double-count.
type Index interface {
	Has(pmid string) (bool, error)
	Add(entry IndexEntry) (bool, error)
	Count() (int, error)
	CountByCategory() (map[string]int, error)
	Entries() ([]IndexEntry, error)
	Close() error
}

// SQLiteIndex is the ledger-backed Index at corpusDir/index/corpus.db.
// WAL journaling lets a reader inspect the corpus while a collection
// run holds the writer.
type SQLiteIndex struct {
	db *sql.DB
}

// OpenIndex opens or creates the corpus index database.
func OpenIndex(corpusDir string) (*SQLiteIndex, error) {
	dbDir := filepath.Join(corpusDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	idx := &SQLiteIndex{db: db}
	if err := idx.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index schema: %w", err)
	}
	return idx, nil
}

// Close releases the database connection.
func (x *SQLiteIndex) Close() error {
	return x.db.Close()
}

func (x *SQLiteIndex) createSchema() error {
	_, err := x.db.Exec(`CREATE TABLE IF NOT EXISTS collected (
		pmid TEXT PRIMARY KEY,
		pmcid TEXT,
		category TEXT NOT NULL,
		query TEXT,
		collected_at TEXT NOT NULL
	)`)
	return err
}

// Has reports whether pmid is already in the corpus.
func (x *SQLiteIndex) Has(pmid string) (bool, error) {
	var one int
	err := x.db.QueryRow(`SELECT 1 FROM collected WHERE pmid = ?`, pmid).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying index for %s: %w", pmid, err)
	}
	return true, nil
}

// Add records pmid in the ledger. It returns false when the identifier
// was already present; INSERT OR IGNORE makes the race between Has and
// Add harmless.
func (x *SQLiteIndex) Add(entry IndexEntry) (bool, error) {
	res, err := x.db.Exec(
		`INSERT OR IGNORE INTO collected (pmid, pmcid, category, query, collected_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.PMID, entry.PMCID, entry.Category, entry.Query,
		entry.CollectedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("inserting %s into index: %w", entry.PMID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking insert for %s: %w", entry.PMID, err)
	}
	return n > 0, nil
}

// Count returns the total number of collected identifiers.
func (x *SQLiteIndex) Count() (int, error) {
	var n int
	if err := x.db.QueryRow(`SELECT COUNT(*) FROM collected`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting index: %w", err)
	}
	return n, nil
}

// CountByCategory returns per-category totals.
func (x *SQLiteIndex) CountByCategory() (map[string]int, error) {
	rows, err := x.db.Query(`SELECT category, COUNT(*) FROM collected GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("counting by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scanning category count: %w", err)
		}
		counts[category] = n
	}
	return counts, rows.Err()
}

// Entries returns every ledger row, ordered by identifier. Used by the
// catalog builder.
func (x *SQLiteIndex) Entries() ([]IndexEntry, error) {
	rows, err := x.db.Query(
		`SELECT pmid, pmcid, category, query, collected_at FROM collected ORDER BY pmid`)
	if err != nil {
		return nil, fmt.Errorf("listing index: %w", err)
	}
	defer rows.Close()

	var entries []IndexEntry
	for rows.Next() {
		var e IndexEntry
		var collected string
		if err := rows.Scan(&e.PMID, &e.PMCID, &e.Category, &e.Query, &collected); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		e.CollectedAt, _ = time.Parse(time.RFC3339, collected)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

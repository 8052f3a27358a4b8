// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notes

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "notes.db"

// Index is a SQLite database with FTS5 search over saved note bodies.
type Index struct {
	db         *sql.DB
	maxResults int
}

// NoteRecord is one indexed note.
type NoteRecord struct {
	Topic   string    `json:"topic" yaml:"topic"`
	Path    string    `json:"path" yaml:"path"`
	SavedAt time.Time `json:"saved_at" yaml:"saved_at"`
	Snippet string    `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// OpenIndex opens or creates the notes database at dir/notes.db and creates
// the schema if it does not exist.
func OpenIndex(dir string, maxResults int) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening notes database: %w", err)
	}

	if maxResults <= 0 {
		maxResults = 20
	}

	idx := &Index{db: db, maxResults: maxResults}
	if err := idx.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return idx, nil
}

// Close releases the database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

func (i *Index) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS notes (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			topic TEXT NOT NULL,
			path TEXT NOT NULL UNIQUE,
			body TEXT NOT NULL,
			saved_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_topic ON notes(topic)`,
	}
	for _, stmt := range statements {
		if _, err := i.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := i.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='notes_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE notes_fts USING fts5(body, content=notes, content_rowid=rowid)`,
			`CREATE TRIGGER notes_ai AFTER INSERT ON notes BEGIN
				INSERT INTO notes_fts(rowid, body) VALUES (new.rowid, new.body);
			END`,
			`CREATE TRIGGER notes_ad AFTER DELETE ON notes BEGIN
				INSERT INTO notes_fts(notes_fts, rowid, body) VALUES('delete', old.rowid, old.body);
			END`,
			`CREATE TRIGGER notes_au AFTER UPDATE ON notes BEGIN
				INSERT INTO notes_fts(notes_fts, rowid, body) VALUES('delete', old.rowid, old.body);
				INSERT INTO notes_fts(rowid, body) VALUES (new.rowid, new.body);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := i.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// Add upserts an indexed note keyed by path, mirroring the file store's
// last-write-wins behavior.
func (i *Index) Add(topic, path, body string) error {
	_, err := i.db.Exec(
		`INSERT INTO notes (topic, path, body, saved_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			topic=excluded.topic, body=excluded.body, saved_at=excluded.saved_at`,
		topic, path, body, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting note: %w", err)
	}
	return nil
}

// Search runs an FTS5 query over note bodies, ranked by relevance.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]NoteRecord, error) {
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if limit <= 0 {
		limit = i.maxResults
	}

	rows, err := i.db.QueryContext(ctx,
		`SELECT n.topic, n.path, n.saved_at, snippet(notes_fts, 0, '', '', '...', 12)
		 FROM notes_fts
		 JOIN notes n ON n.rowid = notes_fts.rowid
		 WHERE notes_fts MATCH ?
		 ORDER BY notes_fts.rank
		 LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notes index: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// List returns all indexed notes, most recent first.
func (i *Index) List(ctx context.Context) ([]NoteRecord, error) {
	rows, err := i.db.QueryContext(ctx,
		`SELECT topic, path, saved_at, '' FROM notes ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]NoteRecord, error) {
	var records []NoteRecord
	for rows.Next() {
		var rec NoteRecord
		var savedAt string
		if err := rows.Scan(&rec.Topic, &rec.Path, &savedAt, &rec.Snippet); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, savedAt); err == nil {
			rec.SavedAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

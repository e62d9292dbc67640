package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentgate/agentgate/internal/hookevent"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps verdicts in a single sqlite database. INSERT OR IGNORE
// gives the first racing writer the row and makes the loser a no-op, which
// matches the write-once entry lifecycle.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_verdicts (
	fingerprint TEXT PRIMARY KEY,
	outcome     TEXT NOT NULL,
	reason      TEXT NOT NULL,
	rule_id     TEXT NOT NULL DEFAULT '',
	provider    TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);`

// NewSQLiteStore opens (creating if needed) the verdict database under dir.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "verdicts.db"))
	if err != nil {
		return nil, fmt.Errorf("open verdict db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init verdict db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(fingerprint string) (Entry, bool, error) {
	row := s.db.QueryRow(
		`SELECT outcome, reason, rule_id, provider, created_at FROM audit_verdicts WHERE fingerprint = ?`,
		fingerprint,
	)

	var e Entry
	var outcome, createdAt string
	err := row.Scan(&outcome, &e.Verdict.Reason, &e.Verdict.RuleID, &e.Provider, &createdAt)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	e.Fingerprint = fingerprint
	e.Verdict.Outcome = hookevent.Outcome(outcome)
	if t, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
		e.CreatedAt = t
	}
	return e, true, nil
}

func (s *SQLiteStore) Put(entry Entry) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO audit_verdicts (fingerprint, outcome, reason, rule_id, provider, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Fingerprint,
		string(entry.Verdict.Outcome),
		entry.Verdict.Reason,
		entry.Verdict.RuleID,
		entry.Provider,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

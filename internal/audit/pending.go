package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PendingEntry is one fail-closed denial awaiting human review.
type PendingEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Path      string    `json:"path"`
	RuleID    string    `json:"rule_id"`
	Question  string    `json:"question"`
	Failure   string    `json:"failure"`
}

// PendingQueue is an append-mostly JSONL file of entries the audit engine
// could not get a verdict for. The review command drains it.
type PendingQueue struct {
	path string
	mu   sync.Mutex
}

// NewPendingQueue stores the queue file under dir.
func NewPendingQueue(dir string) (*PendingQueue, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("pending queue dir: %w", err)
	}
	return &PendingQueue{path: filepath.Join(dir, "pending_review.jsonl")}, nil
}

// Enqueue records a subject whose audit failed closed.
func (q *PendingQueue) Enqueue(s Subject, failure error) error {
	entry := PendingEntry{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Path:      s.Path,
		RuleID:    s.RuleID,
		Question:  s.Question,
		Failure:   failure.Error(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	q.mu.Lock()
	defer q.mu.Unlock()
	f, err := os.OpenFile(q.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

// List returns all queued entries, oldest first. Corrupt lines are skipped.
func (q *PendingQueue) List() ([]PendingEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := os.Open(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []PendingEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var e PendingEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// Resolve removes an entry by ID, rewriting the queue file atomically.
func (q *PendingQueue) Resolve(id string) error {
	entries, err := q.List()
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(q.path), "pending-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	found := false
	for _, e := range entries {
		if e.ID == id {
			found = true
			continue
		}
		data, merr := json.Marshal(e)
		if merr != nil {
			continue
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if !found {
		os.Remove(tmpName)
		return fmt.Errorf("no pending entry with id %s", id)
	}
	return os.Rename(tmpName, q.path)
}

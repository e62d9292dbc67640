// Package logger appends one JSONL record per gateway decision. Logging is
// best effort: a failed write warns on stderr and never changes a decision.
package logger

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/agentgate/agentgate/internal/redact"
	"github.com/google/uuid"
)

// Event is one decision record.
type Event struct {
	ID         string   `json:"id"`
	Timestamp  string   `json:"timestamp"`
	Hook       string   `json:"hook"` // "bash_command", "file_edit", "completion_check"
	Subject    string   `json:"subject,omitempty"`
	Path       string   `json:"path,omitempty"`
	Executable string   `json:"executable,omitempty"`
	Paths      []string `json:"paths,omitempty"`
	Decision   string   `json:"decision"`
	RuleID     string   `json:"rule_id,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Provider   string   `json:"provider,omitempty"`
	CacheHit   bool     `json:"cache_hit,omitempty"`
}

// Log is an append-only decision log.
type Log struct {
	file *os.File
	mu   sync.Mutex
}

// Open opens (creating if needed) the log file at path.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &Log{file: f}, nil
}

// Record fills in identity fields, redacts the subject and reason, and
// appends the event.
func (l *Log) Record(event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	event.Subject = redact.Redact(event.Subject)
	event.Reason = redact.Redact(event.Reason)

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.file.Write(data)
	return err
}

// Close releases the underlying file.
func (l *Log) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Package cache persists audit verdicts keyed by content fingerprint. Entries
// are write-once: a new fingerprint produces a new entry, and racing writers
// for the same fingerprint store equivalent content, so storage only needs
// atomic write-replace, not cross-process locking.
package cache

import (
	"fmt"
	"time"

	"github.com/agentgate/agentgate/internal/hookevent"
)

// Entry is one cached audit verdict. Read-only after creation until an
// external retention policy evicts it.
type Entry struct {
	Fingerprint string             `json:"fingerprint"`
	Verdict     hookevent.Decision `json:"verdict"`
	Provider    string             `json:"provider"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Store is the key-value persistence contract: get and put by fingerprint,
// nothing more. Reads and writes for distinct fingerprints are independent.
type Store interface {
	// Get returns the entry for the fingerprint, with found=false on a miss.
	Get(fingerprint string) (Entry, bool, error)
	// Put stores the entry. Idempotent for racing writers of the same
	// fingerprint: afterward exactly one entry exists.
	Put(entry Entry) error
	Close() error
}

// Open builds a store for the configured backend.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(dir)
	case "sqlite":
		return NewSQLiteStore(dir)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

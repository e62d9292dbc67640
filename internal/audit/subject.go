// Package audit escalates ambiguous pattern verdicts to an external reviewer,
// with fingerprint-keyed caching, bounded parallelism, and a fail-closed
// error policy: this is the last line of defense after the pattern engine has
// already flagged ambiguity, so it must never silently fail open.
package audit

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// Subject is one unit of review: a file edit plus the question the
// deterministic rules could not answer.
type Subject struct {
	Path       string
	OldContent string
	NewContent string
	// RuleID and Question identify the ambiguous rule that triggered review.
	RuleID   string
	Question string
}

// Fingerprint derives the content identity used to key cached verdicts.
// Inputs are length-prefixed so no two distinct subjects can collide by
// concatenation, and line endings are normalized so an otherwise identical
// edit hashes the same on every platform.
func (s Subject) Fingerprint() string {
	h := sha256.New()
	for _, part := range []string{
		s.Path,
		s.RuleID,
		normalizeNewlines(s.OldContent),
		normalizeNewlines(s.NewContent),
	} {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(part)))
		h.Write(n[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// addedLines returns lines present in newContent but not in oldContent,
// multiset-wise. Used to focus the reviewer on the net change.
func addedLines(oldContent, newContent string) []string {
	seen := make(map[string]int)
	for _, line := range strings.Split(normalizeNewlines(oldContent), "\n") {
		seen[line]++
	}

	var added []string
	for _, line := range strings.Split(normalizeNewlines(newContent), "\n") {
		if seen[line] > 0 {
			seen[line]--
			continue
		}
		added = append(added, line)
	}
	return added
}

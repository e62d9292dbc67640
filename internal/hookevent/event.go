// Package hookevent defines the wire protocol between the hook caller and the
// gateway: one JSON event on stdin, one JSON decision on stdout.
//
// An Event is a closed tagged variant: exactly one payload is populated per
// event, selected by the Kind tag. The three entry points switch exhaustively
// on Kind; there is no duck-typed payload inspection.
package hookevent

import (
	"encoding/json"
	"fmt"

	"github.com/agentgate/agentgate/internal/transcript"
)

// Kind tags the event variant.
type Kind string

const (
	KindBashCommand     Kind = "bash_command"
	KindFileEdit        Kind = "file_edit"
	KindCompletionCheck Kind = "completion_check"
)

// BashCommand is a request to run a shell command.
type BashCommand struct {
	Command string `json:"command"`
	Cwd     string `json:"cwd,omitempty"`
}

// FileEdit is a request to replace a file's content.
type FileEdit struct {
	Path       string `json:"path"`
	OldContent string `json:"old_content"`
	NewContent string `json:"new_content"`
}

// CompletionCheck is a claim that the task is complete, carrying the recent
// conversation turns for the moderator to scan.
type CompletionCheck struct {
	TranscriptTail []transcript.Message `json:"transcript"`
}

// Event is the tagged variant delivered by the hook caller.
type Event struct {
	Kind       Kind
	Bash       *BashCommand
	Edit       *FileEdit
	Completion *CompletionCheck
}

// wireEvent is the flat JSON shape on stdin. The Kind tag selects which
// fields are meaningful.
type wireEvent struct {
	Event Kind `json:"event"`

	// bash_command
	Command string `json:"command"`
	Cwd     string `json:"cwd"`

	// file_edit
	Path       string `json:"path"`
	OldContent string `json:"old_content"`
	NewContent string `json:"new_content"`

	// completion_check
	Transcript []transcript.Message `json:"transcript"`
}

// Parse decodes a single hook event from raw JSON and enforces the
// one-variant-per-event invariant. A decode or validation failure is a
// MalformedInputError for the caller to fail open on.
func Parse(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("malformed hook event: %w", err)
	}

	switch w.Event {
	case KindBashCommand:
		if w.Command == "" {
			return Event{}, fmt.Errorf("malformed hook event: bash_command without command")
		}
		return Event{Kind: KindBashCommand, Bash: &BashCommand{Command: w.Command, Cwd: w.Cwd}}, nil
	case KindFileEdit:
		if w.Path == "" {
			return Event{}, fmt.Errorf("malformed hook event: file_edit without path")
		}
		return Event{Kind: KindFileEdit, Edit: &FileEdit{
			Path:       w.Path,
			OldContent: w.OldContent,
			NewContent: w.NewContent,
		}}, nil
	case KindCompletionCheck:
		return Event{Kind: KindCompletionCheck, Completion: &CompletionCheck{TranscriptTail: w.Transcript}}, nil
	case "":
		return Event{}, fmt.Errorf("malformed hook event: missing event tag")
	default:
		return Event{}, fmt.Errorf("malformed hook event: unknown event %q", w.Event)
	}
}

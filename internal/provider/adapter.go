// Package provider gives the audit engine a uniform interface over the
// external review backends. Each backend is a separate CLI with its own
// invocation shape, output format, and tool-naming convention; the adapter
// hides all three behind one contract.
//
// Backends are selected by configuration, never by runtime inspection of
// responses. Adding a backend means adding one adapter implementation.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Canonical tool names. Adapters translate these to whatever the backend
// calls them.
const (
	ToolBash  = "bash"
	ToolRead  = "read"
	ToolWrite = "write"
	ToolEdit  = "edit"
)

// ErrTimeout is returned when the backend subprocess exceeded its budget and
// was killed. Callers treat it as a ProviderError.
var ErrTimeout = errors.New("provider invocation timed out")

// ErrUnknownModel is a configuration error: the requested model is not in the
// backend's enumerated set. Reported before any subprocess is started.
var ErrUnknownModel = errors.New("unknown model for provider")

// Invocation is one ephemeral provider call. Built per call, never persisted.
type Invocation struct {
	Model        string
	Instruction  string
	AllowedTools []string // canonical names; adapters map them
}

// Metadata describes what actually ran.
type Metadata struct {
	InvocationID string
	Provider     string
	Model        string
	Duration     time.Duration
}

// Adapter is the uniform backend contract.
type Adapter interface {
	// Name identifies the backend ("claude", "gemini", "codex").
	Name() string
	// Invoke runs the backend under the caller's context deadline and
	// returns its textual answer. On deadline expiry the subprocess is
	// killed and the error wraps ErrTimeout.
	Invoke(ctx context.Context, inv Invocation) (string, Metadata, error)
	// MapToolName translates a canonical tool name to the backend's name.
	// Unknown names pass through unchanged.
	MapToolName(canonical string) string
	// DefaultModel is used when the invocation names none.
	DefaultModel() string
	// IsValidModel checks the model against the backend's enumerated set.
	IsValidModel(model string) bool
}

// New returns the adapter for the configured backend name. An empty name
// selects claude.
func New(name string) (Adapter, error) {
	switch name {
	case "", "claude":
		return NewClaudeCLI(), nil
	case "gemini":
		return NewGeminiCLI(), nil
	case "codex":
		return NewCodexCLI(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want claude, gemini, or codex)", name)
	}
}

// Names lists supported backends, for help text and validation messages.
func Names() []string {
	return []string{"claude", "gemini", "codex"}
}

// resolveModel applies the default and validates against the adapter's set.
func resolveModel(a Adapter, requested string) (string, error) {
	model := requested
	if model == "" {
		model = a.DefaultModel()
	}
	if !a.IsValidModel(model) {
		return "", fmt.Errorf("%w %s: %q", ErrUnknownModel, a.Name(), model)
	}
	return model, nil
}

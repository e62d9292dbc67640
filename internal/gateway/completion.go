package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentgate/agentgate/internal/hookevent"
	"github.com/agentgate/agentgate/internal/provider"
	"github.com/agentgate/agentgate/internal/transcript"
)

// Default completion policy. The marker and phrase sets are policy content,
// so they stay configurable; these are only the fallbacks.
var (
	DefaultMarkers    = []string{"WORK DONE", "FEEDBACK:"}
	DefaultProhibited = []string{"You're absolutely right"}
)

const defaultWindow = 40

// ModeratorConfig is the completion policy snapshot.
type ModeratorConfig struct {
	Markers    []string
	Prohibited []string
	// Window bounds the scan to the last N messages; the scan also stops at
	// the last user-authored turn.
	Window int
	// Escalate sends marker-passing transcripts to the provider for a final
	// opinion. Best effort: provider failure fails open.
	Escalate bool
}

// CompletionModerator scans the transcript tail for completion markers and
// prohibited phrases.
type CompletionModerator struct {
	cfg     ModeratorConfig
	adapter provider.Adapter
	model   string
	timeout time.Duration
}

// NewCompletionModerator builds a moderator. The adapter is only consulted
// when cfg.Escalate is set and may be nil otherwise.
func NewCompletionModerator(cfg ModeratorConfig, adapter provider.Adapter, model string, timeout time.Duration) *CompletionModerator {
	if len(cfg.Markers) == 0 {
		cfg.Markers = DefaultMarkers
	}
	if len(cfg.Prohibited) == 0 {
		cfg.Prohibited = DefaultProhibited
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CompletionModerator{cfg: cfg, adapter: adapter, model: model, timeout: timeout}
}

// Check scans the bounded window of the tail. A prohibited phrase denies
// regardless of markers; a missing marker denies; otherwise the claim is
// allowed, optionally after a best-effort provider review.
func (m *CompletionModerator) Check(ctx context.Context, tail []transcript.Message) hookevent.Decision {
	window := transcript.Window(tail, m.cfg.Window)
	text := transcript.Text(window)

	for _, phrase := range m.cfg.Prohibited {
		if strings.Contains(text, phrase) {
			return hookevent.DenyDecision(
				fmt.Sprintf("transcript contains prohibited phrase %q", phrase),
				"completion-prohibited-phrase",
			)
		}
	}

	marked := false
	for _, marker := range m.cfg.Markers {
		if strings.Contains(text, marker) {
			marked = true
			break
		}
	}
	if !marked {
		return hookevent.DenyDecision("completion not signaled", "completion-marker-missing")
	}

	if m.cfg.Escalate && m.adapter != nil {
		if d, ok := m.escalate(ctx, window); ok {
			return d
		}
		// Escalation is best effort; no mandatory provider call exists on
		// this path, so failure falls through to allow.
	}

	return hookevent.AllowDecision("")
}

func (m *CompletionModerator) escalate(ctx context.Context, window []transcript.Message) (hookevent.Decision, bool) {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var b strings.Builder
	b.WriteString("An agent claims its task is complete. Judge from the transcript tail whether the claim is credible.\n\n")
	for _, msg := range window {
		fmt.Fprintf(&b, "[%s] %s\n", msg.Role, msg.Content)
	}
	b.WriteString("\nAnswer with exactly one first line: ALLOW or DENY: <short reason>.\n")

	answer, _, err := m.adapter.Invoke(callCtx, provider.Invocation{Model: m.model, Instruction: b.String()})
	if err != nil {
		return hookevent.Decision{}, false
	}

	first := strings.TrimSpace(answer)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = strings.TrimSpace(first[:i])
	}
	upper := strings.ToUpper(first)
	switch {
	case upper == "ALLOW" || strings.HasPrefix(upper, "ALLOW "):
		return hookevent.AllowDecision(""), true
	case upper == "DENY" || strings.HasPrefix(upper, "DENY:") || strings.HasPrefix(upper, "DENY "):
		reason := strings.TrimSpace(strings.TrimPrefix(first[4:], ":"))
		if reason == "" {
			reason = "completion claim rejected by review"
		}
		return hookevent.DenyDecision(reason, "completion-review"), true
	}
	return hookevent.Decision{}, false
}

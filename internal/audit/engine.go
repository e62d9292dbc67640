package audit

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/agentgate/agentgate/internal/cache"
	"github.com/agentgate/agentgate/internal/hookevent"
	"github.com/agentgate/agentgate/internal/provider"
)

// UnavailableReasonPrefix tags fail-closed denials caused by infrastructure
// failure rather than policy. Callers use it to tell the two apart.
const UnavailableReasonPrefix = "audit unavailable"

const (
	defaultTimeout    = 120 * time.Second
	defaultMaxWorkers = 4
)

// Engine orchestrates one audit: cache lookup, provider invocation with a
// bounded timeout, single retry, verdict caching. The cache store is injected
// so tests can substitute a double and no hidden global state exists.
type Engine struct {
	store   cache.Store
	adapter provider.Adapter
	model   string
	timeout time.Duration

	maxWorkers int
	pending    *PendingQueue
}

// Options tune an Engine. Zero values select the defaults.
type Options struct {
	Model      string
	Timeout    time.Duration
	MaxWorkers int
	// Pending, when set, receives subjects whose audit failed closed so a
	// human can review them later.
	Pending *PendingQueue
}

// NewEngine wires an audit engine to its verdict store and review backend.
func NewEngine(store cache.Store, adapter provider.Adapter, opts Options) *Engine {
	e := &Engine{
		store:      store,
		adapter:    adapter,
		model:      opts.Model,
		timeout:    opts.Timeout,
		maxWorkers: opts.MaxWorkers,
		pending:    opts.Pending,
	}
	if e.timeout <= 0 {
		e.timeout = defaultTimeout
	}
	if e.maxWorkers <= 0 {
		e.maxWorkers = defaultMaxWorkers
	}
	return e
}

// Audit returns the verdict for one subject. Identical input replays the
// cached decision without a second provider call; a provider failure is
// retried once and then fails closed with a distinctly tagged reason.
func (e *Engine) Audit(ctx context.Context, s Subject) hookevent.Decision {
	fp := s.Fingerprint()

	if entry, ok, err := e.store.Get(fp); err != nil {
		warnf("cache read failed for %s: %v", shortFP(fp), err)
	} else if ok {
		return entry.Verdict
	}

	verdict, err := e.invokeOnce(ctx, s)
	if err != nil {
		warnf("audit attempt failed for %s, retrying: %v", s.Path, err)
		verdict, err = e.invokeOnce(ctx, s)
	}
	if err != nil {
		if e.pending != nil {
			if qerr := e.pending.Enqueue(s, err); qerr != nil {
				warnf("could not enqueue %s for review: %v", s.Path, qerr)
			}
		}
		return hookevent.DenyDecision(
			fmt.Sprintf("%s, denied pending human review: %v", UnavailableReasonPrefix, err),
			s.RuleID,
		)
	}

	entry := cache.Entry{
		Fingerprint: fp,
		Verdict:     verdict,
		Provider:    e.adapter.Name(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.store.Put(entry); err != nil {
		// The verdict stands; only replay is lost.
		warnf("cache write failed for %s: %v", shortFP(fp), err)
	}
	return verdict
}

// AuditAll audits independent subjects with at most maxWorkers concurrent
// provider calls. The result maps each subject's path to its verdict;
// completion order between subjects is unobservable.
func (e *Engine) AuditAll(ctx context.Context, subjects []Subject) map[string]hookevent.Decision {
	results := make(map[string]hookevent.Decision, len(subjects))
	if len(subjects) == 0 {
		return results
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, e.maxWorkers)
	)
	for _, s := range subjects {
		wg.Add(1)
		go func(s Subject) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			d := e.Audit(ctx, s)
			mu.Lock()
			results[s.Path] = d
			mu.Unlock()
		}(s)
	}
	wg.Wait()
	return results
}

func (e *Engine) invokeOnce(ctx context.Context, s Subject) (hookevent.Decision, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	inv := provider.Invocation{
		Model:       e.model,
		Instruction: buildInstruction(s),
	}
	answer, _, err := e.adapter.Invoke(callCtx, inv)
	if err != nil {
		return hookevent.Decision{}, err
	}
	return parseVerdict(answer, s.RuleID)
}

// buildInstruction renders the review prompt: the question the rules could
// not answer, the net-added lines, and the full new content for context.
func buildInstruction(s Subject) string {
	var b strings.Builder
	b.WriteString("You are reviewing a single file edit proposed by a coding agent.\n")
	fmt.Fprintf(&b, "File: %s\n", s.Path)
	fmt.Fprintf(&b, "Question: %s\n\n", s.Question)

	if added := addedLines(s.OldContent, s.NewContent); len(added) > 0 {
		b.WriteString("Lines added by this edit:\n")
		for _, line := range added {
			fmt.Fprintf(&b, "+ %s\n", line)
		}
		b.WriteString("\n")
	}

	b.WriteString("New file content:\n```\n")
	b.WriteString(s.NewContent)
	b.WriteString("\n```\n\n")
	b.WriteString("Answer with exactly one first line: ALLOW or DENY: <short reason>.\n")
	return b.String()
}

// parseVerdict extracts the reviewer's decision. Output that names neither
// verdict is malformed provider output and triggers the retry path.
func parseVerdict(answer, ruleID string) (hookevent.Decision, error) {
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Match the verdict token exactly: "DENIED" or "ALLOWANCE" prose is
		// malformed output, not a verdict.
		upper := strings.ToUpper(line)
		switch {
		case upper == "ALLOW" || strings.HasPrefix(upper, "ALLOW "):
			return hookevent.AllowDecision(""), nil
		case upper == "DENY" || strings.HasPrefix(upper, "DENY:") || strings.HasPrefix(upper, "DENY "):
			reason := strings.TrimSpace(strings.TrimPrefix(line[4:], ":"))
			if reason == "" {
				reason = "denied by audit review"
			}
			return hookevent.DenyDecision(reason, ruleID), nil
		}
		break
	}
	return hookevent.Decision{}, fmt.Errorf("provider answer has no verdict line: %s", firstLine(answer))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return s
}

func shortFP(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

func warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[agentgate] warning: "+format+"\n", args...)
}

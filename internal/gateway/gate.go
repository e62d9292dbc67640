package gateway

import (
	"context"
	"fmt"

	"github.com/agentgate/agentgate/internal/audit"
	"github.com/agentgate/agentgate/internal/hookevent"
	"github.com/agentgate/agentgate/internal/pattern"
)

// Auditor is the escalation backend for ambiguous edits. Satisfied by
// *audit.Engine; tests substitute a double.
type Auditor interface {
	Audit(ctx context.Context, s audit.Subject) hookevent.Decision
}

// CodeQualityGate gates file edits: exemptions first, deterministic pattern
// rules second, audit escalation only when a rule needs semantic judgment.
type CodeQualityGate struct {
	engine  *pattern.Engine
	auditor Auditor
}

// NewCodeQualityGate builds a gate. The auditor may be nil, in which case an
// ambiguous verdict fails closed: ambiguity was already a flag, and with no
// reviewer available the edit cannot be cleared.
func NewCodeQualityGate(engine *pattern.Engine, auditor Auditor) *CodeQualityGate {
	return &CodeQualityGate{engine: engine, auditor: auditor}
}

// Check evaluates one file edit.
func (g *CodeQualityGate) Check(ctx context.Context, path, oldContent, newContent string) hookevent.Decision {
	if g.engine.Exemptions().FullyExempt(path) {
		return hookevent.AllowDecision("path is exempt")
	}

	res := g.engine.EvaluateContent(path, oldContent, newContent)
	switch res.Status {
	case pattern.StatusClear:
		return hookevent.AllowDecision("")
	case pattern.StatusViolation:
		return hookevent.DenyDecision(violationReason(res), res.Rule.ID)
	case pattern.StatusAmbiguous:
		if g.auditor == nil {
			return hookevent.DenyDecision(
				fmt.Sprintf("%s, denied pending human review: no audit backend configured", audit.UnavailableReasonPrefix),
				res.Rule.ID,
			)
		}
		return g.auditor.Audit(ctx, audit.Subject{
			Path:       path,
			OldContent: oldContent,
			NewContent: newContent,
			RuleID:     res.Rule.ID,
			Question:   res.Rule.Message,
		})
	default:
		return hookevent.DenyDecision(fmt.Sprintf("unexpected evaluation status %q", res.Status), "")
	}
}

func violationReason(res pattern.Result) string {
	if res.Rule.AllowRemoval {
		return fmt.Sprintf("%s (occurrences %d -> %d)", res.Rule.Message, res.Before, res.After)
	}
	return res.Rule.Message
}

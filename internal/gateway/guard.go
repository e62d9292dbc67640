// Package gateway holds the three hook entry points: CommandGuard for shell
// commands, CodeQualityGate for file edits, and CompletionModerator for
// end-of-task claims. Each is a short-lived synchronous call built from
// immutable configuration snapshots.
package gateway

import (
	"fmt"

	"github.com/agentgate/agentgate/internal/hookevent"
	"github.com/agentgate/agentgate/internal/pattern"
	"github.com/agentgate/agentgate/internal/unicode"
)

// CommandGuard gates shell commands. Fully deterministic: commands must be
// rejected synchronously and cheaply, so there is no provider escalation on
// this path.
type CommandGuard struct {
	engine *pattern.Engine
}

// NewCommandGuard builds a guard over a compiled rule snapshot.
func NewCommandGuard(engine *pattern.Engine) *CommandGuard {
	return &CommandGuard{engine: engine}
}

// Check evaluates one command string. A character-smuggling scan runs before
// all rules, since an obfuscated command could otherwise slip past every
// matcher.
func (g *CommandGuard) Check(command string) hookevent.Decision {
	scan := unicode.Scan(command)
	if scan.HasBlockingThreat() {
		t := scan.Threats[0]
		return hookevent.DenyDecision(
			fmt.Sprintf("command contains %s at byte %d (%s)", t.Category, t.Position, t.Codepoint),
			"unicode-"+t.Category,
		)
	}

	res := g.engine.EvaluateCommand(command)
	if res.Status == pattern.StatusViolation {
		return hookevent.DenyDecision(res.Rule.Message, res.Rule.ID)
	}
	return hookevent.AllowDecision("")
}

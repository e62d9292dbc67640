// Package pattern implements the deterministic allow/deny rule engine: ordered
// command rules with first-match semantics and diff-aware content rules with
// allow-removal counting.
package pattern

import (
	"fmt"
	"os"
	"regexp"

	"github.com/agentgate/agentgate/internal/exempt"
)

// Engine evaluates one immutable rule snapshot. Construct a fresh engine per
// invocation; it holds no mutable state after compilation.
type Engine struct {
	commandRules []compiledRule
	contentRules []compiledRule
	exemptions   *exempt.Registry
}

// NewEngine compiles the rule set against the exemption registry. A rule with
// an invalid pattern is a configuration error: it is logged and skipped, and
// evaluation continues with the remaining rules.
func NewEngine(rs *RuleSet, reg *exempt.Registry) *Engine {
	e := &Engine{exemptions: reg}

	for _, rule := range rs.Rules {
		pat := rule.Pattern
		if rule.Literal {
			pat = regexp.QuoteMeta(pat)
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[agentgate] warning: skipping rule %s: invalid pattern: %v\n", rule.ID, err)
			continue
		}

		switch rule.Scope {
		case ScopeCommand:
			if rule.Semantic {
				// Command gating never escalates; a semantic command rule
				// cannot be honored.
				fmt.Fprintf(os.Stderr, "[agentgate] warning: rule %s: semantic is ignored for command scope\n", rule.ID)
			}
			e.commandRules = append(e.commandRules, compiledRule{rule: rule, re: re})
		case ScopeContent:
			e.contentRules = append(e.contentRules, compiledRule{rule: rule, re: re})
		default:
			fmt.Fprintf(os.Stderr, "[agentgate] warning: skipping rule %s: unknown scope %q\n", rule.ID, rule.Scope)
		}
	}

	return e
}

// Exemptions exposes the registry the engine was built with.
func (e *Engine) Exemptions() *exempt.Registry {
	return e.exemptions
}

// EvaluateCommand tests command rules against the literal command string in
// configured order; the first matching rule wins.
func (e *Engine) EvaluateCommand(command string) Result {
	for i := range e.commandRules {
		cr := &e.commandRules[i]
		if e.exemptions.RuleExempt(cr.rule.ID, "") {
			continue
		}
		allowed := e.exemptions.AllowedPatterns(cr.rule.ID, "")
		if countUncovered(command, cr.re, allowed) > 0 {
			return Result{Status: StatusViolation, Rule: &cr.rule}
		}
	}
	return Result{Status: StatusClear}
}

// EvaluateContent runs all content rules against a file edit. A deterministic
// violation wins over an ambiguous trigger; with neither, the edit is clear.
//
// Occurrence counting subtracts matches covered by an allowed sub-pattern
// before the allow-removal comparison, so exempted annotations never tip the
// net-add check.
func (e *Engine) EvaluateContent(path, oldContent, newContent string) Result {
	var ambiguous *Result

	for i := range e.contentRules {
		cr := &e.contentRules[i]
		if e.exemptions.RuleExempt(cr.rule.ID, path) {
			continue
		}
		allowed := e.exemptions.AllowedPatterns(cr.rule.ID, path)

		after := countUncovered(newContent, cr.re, allowed)
		before := countUncovered(oldContent, cr.re, allowed)

		var triggered bool
		if cr.rule.AllowRemoval {
			triggered = after > before
		} else {
			triggered = after > 0
		}
		if !triggered {
			continue
		}

		res := Result{Status: StatusViolation, Rule: &cr.rule, Before: before, After: after}
		if cr.rule.Semantic {
			if ambiguous == nil {
				res.Status = StatusAmbiguous
				ambiguous = &res
			}
			continue
		}
		return res
	}

	if ambiguous != nil {
		return *ambiguous
	}
	return Result{Status: StatusClear}
}

// countUncovered counts matches of re in s that are not contained within a
// match of any allowed pattern.
func countUncovered(s string, re *regexp.Regexp, allowed []*regexp.Regexp) int {
	matches := re.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return 0
	}
	if len(allowed) == 0 {
		return len(matches)
	}

	var cover [][]int
	for _, a := range allowed {
		cover = append(cover, a.FindAllStringIndex(s, -1)...)
	}

	count := 0
	for _, m := range matches {
		covered := false
		for _, c := range cover {
			if m[0] >= c[0] && m[1] <= c[1] {
				covered = true
				break
			}
		}
		if !covered {
			count++
		}
	}
	return count
}

// Package exempt implements the path- and pattern-scoped overrides that
// suppress rule matches. Exemptions are the only override mechanism in the
// gateway; nothing else bypasses the pattern engine.
package exempt

import (
	"fmt"
	"os"
	"regexp"

	"github.com/gobwas/glob"
)

// Exemption scopes an override to a set of path globs. With no
// AllowedSubPatterns the matched paths are fully exempt from the owning rule;
// with sub-patterns the paths are still evaluated, but occurrences covered by
// an allowed sub-pattern are subtracted before the violation comparison.
type Exemption struct {
	PathGlobs          []string `yaml:"path_globs"`
	AllowedSubPatterns []string `yaml:"allowed_sub_patterns,omitempty"`
}

type compiledExemption struct {
	globs   []glob.Glob // empty means any path
	allowed []*regexp.Regexp
}

// Registry holds the compiled exemption snapshot for one invocation.
// Immutable once built.
type Registry struct {
	fully  []glob.Glob
	byRule map[string][]compiledExemption
}

// NewRegistry compiles the fully-exempt path globs and the per-rule
// exemptions. A malformed glob or sub-pattern is a configuration error: it is
// logged and skipped, never fatal, so one bad entry cannot disable the rest.
func NewRegistry(fullyExemptPaths []string, perRule map[string][]Exemption) *Registry {
	r := &Registry{byRule: make(map[string][]compiledExemption)}

	for _, p := range fullyExemptPaths {
		g, err := glob.Compile(p, '/')
		if err != nil {
			warnf("skipping exempt path glob %q: %v", p, err)
			continue
		}
		r.fully = append(r.fully, g)
	}

	for ruleID, exemptions := range perRule {
		for _, ex := range exemptions {
			ce := compiledExemption{}
			ok := true
			for _, p := range ex.PathGlobs {
				g, err := glob.Compile(p, '/')
				if err != nil {
					warnf("rule %s: skipping exemption glob %q: %v", ruleID, p, err)
					ok = false
					break
				}
				ce.globs = append(ce.globs, g)
			}
			if !ok {
				continue
			}
			for _, sub := range ex.AllowedSubPatterns {
				re, err := regexp.Compile(sub)
				if err != nil {
					warnf("rule %s: skipping allowed sub-pattern %q: %v", ruleID, sub, err)
					continue
				}
				ce.allowed = append(ce.allowed, re)
			}
			r.byRule[ruleID] = append(r.byRule[ruleID], ce)
		}
	}

	return r
}

// FullyExempt reports whether the path matches a fully-exempt glob. Such a
// file skips all pattern evaluation.
func (r *Registry) FullyExempt(path string) bool {
	for _, g := range r.fully {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// RuleExempt reports whether the rule's exemptions fully cover the path: an
// exemption whose globs match and which allows no specific sub-patterns
// suppresses the rule entirely for that path.
func (r *Registry) RuleExempt(ruleID, path string) bool {
	for _, ce := range r.byRule[ruleID] {
		if ce.matchesPath(path) && len(ce.allowed) == 0 {
			return true
		}
	}
	return false
}

// AllowedPatterns returns the sub-pattern regexes permitted for the rule on
// this path. Occurrences inside a match of any returned pattern do not count
// toward the rule's violation tally.
func (r *Registry) AllowedPatterns(ruleID, path string) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, ce := range r.byRule[ruleID] {
		if ce.matchesPath(path) {
			out = append(out, ce.allowed...)
		}
	}
	return out
}

func (ce compiledExemption) matchesPath(path string) bool {
	if len(ce.globs) == 0 {
		return true
	}
	for _, g := range ce.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[agentgate] warning: "+format+"\n", args...)
}

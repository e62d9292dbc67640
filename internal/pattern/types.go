package pattern

import (
	"regexp"

	"github.com/agentgate/agentgate/internal/exempt"
)

// Scope selects what a rule is matched against.
type Scope string

const (
	// ScopeCommand rules match the literal shell command string.
	ScopeCommand Scope = "command"
	// ScopeContent rules match file content, optionally diff-aware.
	ScopeContent Scope = "content"
)

// Status is the deterministic verdict of one evaluation.
type Status string

const (
	// StatusClear means no rule flagged the subject.
	StatusClear Status = "clear"
	// StatusViolation means a rule matched with a deterministic deny.
	StatusViolation Status = "violation"
	// StatusAmbiguous means a rule triggered but needs semantic judgment;
	// the caller escalates to an audit.
	StatusAmbiguous Status = "ambiguous"
)

// Rule is one configured pattern rule. Immutable once loaded; the rule set is
// reloaded fresh on every invocation, so there is no long-lived mutable rule
// state anywhere in the process.
type Rule struct {
	ID      string `yaml:"id"`
	Scope   Scope  `yaml:"scope"`
	Pattern string `yaml:"pattern"`
	// Literal disables regex interpretation and matches the pattern verbatim.
	Literal bool   `yaml:"literal,omitempty"`
	Message string `yaml:"message"`
	// AllowRemoval makes the rule diff-aware: it only denies when an edit
	// net-adds occurrences. Pure removals of legacy matches pass.
	AllowRemoval bool `yaml:"allow_removal,omitempty"`
	// Semantic marks a rule whose trigger needs judgment rather than a
	// deterministic deny; a triggered semantic rule yields StatusAmbiguous.
	// Only meaningful for content scope.
	Semantic   bool               `yaml:"semantic,omitempty"`
	Exemptions []exempt.Exemption `yaml:"exemptions,omitempty"`
}

// RuleSet is the configuration snapshot consumed by the engine. Rule order is
// significant: command evaluation is first-match-wins in configured order.
type RuleSet struct {
	Version     string   `yaml:"version"`
	ExemptPaths []string `yaml:"exempt_paths,omitempty"`
	Rules       []Rule   `yaml:"rules"`
}

// Result is the outcome of evaluating one subject against the rule set.
// Before/After carry the occurrence counts that drove a diff-aware verdict.
type Result struct {
	Status Status
	Rule   *Rule
	Before int
	After  int
}

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

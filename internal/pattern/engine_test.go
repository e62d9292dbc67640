package pattern

import (
	"strings"
	"testing"

	"github.com/agentgate/agentgate/internal/exempt"
)

func newTestEngine(rs *RuleSet) *Engine {
	return NewEngine(rs, rs.Registry(nil))
}

func TestEngine_CommandFirstMatchWins(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{
		{ID: "first", Scope: ScopeCommand, Pattern: `\bpython3\b`, Message: "use wrapper"},
		{ID: "second", Scope: ScopeCommand, Pattern: `python`, Message: "never reached for python3"},
	}}
	engine := newTestEngine(rs)

	res := engine.EvaluateCommand("python3 script.py")
	if res.Status != StatusViolation {
		t.Fatalf("expected violation, got %s", res.Status)
	}
	if res.Rule.ID != "first" {
		t.Errorf("expected rule 'first', got %q", res.Rule.ID)
	}
	if !strings.Contains(res.Rule.Message, "use wrapper") {
		t.Errorf("expected message to contain 'use wrapper', got %q", res.Rule.Message)
	}
}

func TestEngine_CommandClear(t *testing.T) {
	engine := newTestEngine(&RuleSet{Rules: []Rule{
		{ID: "py", Scope: ScopeCommand, Pattern: `\bpython3\b`, Message: "use wrapper"},
	}})

	res := engine.EvaluateCommand("python script.py")
	if res.Status != StatusClear {
		t.Fatalf("expected clear, got %s (rule %v)", res.Status, res.Rule)
	}
}

func TestEngine_CommandLiteralRule(t *testing.T) {
	engine := newTestEngine(&RuleSet{Rules: []Rule{
		{ID: "lit", Scope: ScopeCommand, Pattern: `rm -rf .`, Literal: true, Message: "no"},
	}})

	// The dot must not act as a regex wildcard.
	if res := engine.EvaluateCommand("rm -rf x"); res.Status != StatusClear {
		t.Errorf("literal rule matched as regex: %s", res.Status)
	}
	if res := engine.EvaluateCommand("rm -rf ."); res.Status != StatusViolation {
		t.Errorf("literal rule missed exact text: %s", res.Status)
	}
}

func TestEngine_ContentAnyOccurrenceDenies(t *testing.T) {
	engine := newTestEngine(&RuleSet{Rules: []Rule{
		{ID: "secret", Scope: ScopeContent, Pattern: `PRIVATE_KEY`, Message: "no keys in source"},
	}})

	tests := []struct {
		name     string
		old, new string
		want     Status
	}{
		{"present in old and new", "PRIVATE_KEY=a\n", "PRIVATE_KEY=b\n", StatusViolation},
		{"introduced", "", "PRIVATE_KEY=a\n", StatusViolation},
		{"removed", "PRIVATE_KEY=a\n", "", StatusClear},
		{"never present", "x\n", "y\n", StatusClear},
	}

	for _, tt := range tests {
		res := engine.EvaluateContent("conf/env", tt.old, tt.new)
		if res.Status != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, res.Status)
		}
	}
}

func TestEngine_AllowRemovalNetAdd(t *testing.T) {
	engine := newTestEngine(&RuleSet{Rules: []Rule{
		{ID: "noqa", Scope: ScopeContent, Pattern: `#\s*noqa\b`, Message: "no new suppressions", AllowRemoval: true},
	}})

	tests := []struct {
		name     string
		old, new string
		want     Status
	}{
		{"one removed", "a  # noqa\nb\n", "a\nb\n", StatusClear},
		{"count unchanged", "a  # noqa\n", "b  # noqa\n", StatusClear},
		{"one added where none existed", "a\n", "a  # noqa\n", StatusViolation},
		{"net add among existing", "a  # noqa\n", "a  # noqa\nb  # noqa\n", StatusViolation},
		{"two removed one added", "a  # noqa\nb  # noqa\n", "c  # noqa\n", StatusClear},
	}

	for _, tt := range tests {
		res := engine.EvaluateContent("src/app.py", tt.old, tt.new)
		if res.Status != tt.want {
			t.Errorf("%s: expected %s, got %s (before=%d after=%d)", tt.name, tt.want, res.Status, res.Before, res.After)
		}
	}
}

func TestEngine_ParentTraversalNetAdd(t *testing.T) {
	engine := newTestEngine(DefaultRuleSet())

	res := engine.EvaluateContent("src/paths.py",
		"root = here\n",
		"root = here.parent.parent\n")
	if res.Status != StatusViolation {
		t.Fatalf("expected violation, got %s", res.Status)
	}
	if res.Rule.ID != "no-parent-traversal" {
		t.Errorf("expected no-parent-traversal, got %q", res.Rule.ID)
	}
}

func TestEngine_SemanticRuleIsAmbiguous(t *testing.T) {
	engine := newTestEngine(&RuleSet{Rules: []Rule{
		{ID: "pragma", Scope: ScopeContent, Pattern: `#\s*pragma:\s*no\s*cover\b`,
			Message: "needs judgment", AllowRemoval: true, Semantic: true},
	}})

	res := engine.EvaluateContent("src/app.py", "x\n", "x  # pragma: no cover\n")
	if res.Status != StatusAmbiguous {
		t.Fatalf("expected ambiguous, got %s", res.Status)
	}
	if res.Rule.ID != "pragma" {
		t.Errorf("expected rule 'pragma', got %q", res.Rule.ID)
	}
}

func TestEngine_ViolationBeatsAmbiguous(t *testing.T) {
	engine := newTestEngine(&RuleSet{Rules: []Rule{
		{ID: "judge", Scope: ScopeContent, Pattern: `TODO`, Message: "judge", Semantic: true},
		{ID: "hard", Scope: ScopeContent, Pattern: `FIXME`, Message: "hard deny"},
	}})

	res := engine.EvaluateContent("a.go", "", "TODO and FIXME\n")
	if res.Status != StatusViolation {
		t.Fatalf("expected violation to win, got %s", res.Status)
	}
	if res.Rule.ID != "hard" {
		t.Errorf("expected rule 'hard', got %q", res.Rule.ID)
	}
}

func TestEngine_InvalidPatternSkipped(t *testing.T) {
	engine := newTestEngine(&RuleSet{Rules: []Rule{
		{ID: "broken", Scope: ScopeCommand, Pattern: `([`, Message: "never compiles"},
		{ID: "good", Scope: ScopeCommand, Pattern: `danger`, Message: "still enforced"},
	}})

	res := engine.EvaluateCommand("danger zone")
	if res.Status != StatusViolation || res.Rule.ID != "good" {
		t.Fatalf("remaining rules must survive a broken one: got %s %v", res.Status, res.Rule)
	}
}

func TestEngine_AllowedSubPatternSubtracted(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{
		{
			ID: "type-ignore", Scope: ScopeContent, Pattern: `#\s*type:\s*ignore\b`,
			Message: "no new type suppressions", AllowRemoval: true,
			Exemptions: []exempt.Exemption{{
				PathGlobs:          []string{"src/compat/**"},
				AllowedSubPatterns: []string{`#\s*type:\s*ignore\[import-untyped\]`},
			}},
		},
	}}
	engine := newTestEngine(rs)

	// The allowed flavor does not count on a matching path.
	res := engine.EvaluateContent("src/compat/shim.py",
		"import old\n",
		"import old  # type: ignore[import-untyped]\n")
	if res.Status != StatusClear {
		t.Errorf("allowed sub-pattern should not count: got %s (before=%d after=%d)", res.Status, res.Before, res.After)
	}

	// The bare flavor still counts there.
	res = engine.EvaluateContent("src/compat/shim.py", "import old\n", "import old  # type: ignore\n")
	if res.Status != StatusViolation {
		t.Errorf("bare suppression should still deny: got %s", res.Status)
	}

	// Off the exempted path even the allowed flavor counts.
	res = engine.EvaluateContent("src/core/main.py",
		"import old\n",
		"import old  # type: ignore[import-untyped]\n")
	if res.Status != StatusViolation {
		t.Errorf("exemption must not leak to other paths: got %s", res.Status)
	}
}

func TestEngine_CommandExemptionSubPattern(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{
		{
			ID: "py3", Scope: ScopeCommand, Pattern: `\bpython3\b`, Message: "use wrapper",
			Exemptions: []exempt.Exemption{{
				AllowedSubPatterns: []string{`python3 -m venv\b`},
			}},
		},
	}}
	engine := newTestEngine(rs)

	if res := engine.EvaluateCommand("python3 -m venv .venv"); res.Status != StatusClear {
		t.Errorf("exempted invocation should pass: got %s", res.Status)
	}
	if res := engine.EvaluateCommand("python3 script.py"); res.Status != StatusViolation {
		t.Errorf("other invocations should still deny: got %s", res.Status)
	}
}

func TestEngine_CommandFullExemptionSuppressesRule(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{
		{
			ID: "py3", Scope: ScopeCommand, Pattern: `\bpython3\b`, Message: "use wrapper",
			// No globs and no sub-patterns: the rule is switched off outright.
			Exemptions: []exempt.Exemption{{}},
		},
		{ID: "danger", Scope: ScopeCommand, Pattern: `danger`, Message: "still on"},
	}}
	engine := newTestEngine(rs)

	if res := engine.EvaluateCommand("python3 script.py"); res.Status != StatusClear {
		t.Errorf("fully exempted command rule should not match: got %s", res.Status)
	}
	if res := engine.EvaluateCommand("danger zone"); res.Status != StatusViolation {
		t.Errorf("other rules must stay active: got %s", res.Status)
	}
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	rs, err := Load(t.TempDir() + "/absent.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rs.Rules) == 0 {
		t.Fatal("default rule set is empty")
	}
}

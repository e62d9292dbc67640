package pattern

import (
	"os"

	"github.com/agentgate/agentgate/internal/exempt"
	"gopkg.in/yaml.v3"
)

// Load reads a rule set snapshot from a YAML file. A missing file yields the
// built-in default rules; any other read or parse failure is surfaced to the
// caller. Rule order in the file is preserved.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRuleSet(), nil
		}
		return nil, err
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Registry builds the exemption registry for this rule set: the fully-exempt
// path globs plus every rule's scoped exemptions.
func (rs *RuleSet) Registry(extraExemptPaths []string) *exempt.Registry {
	perRule := make(map[string][]exempt.Exemption)
	for _, rule := range rs.Rules {
		if len(rule.Exemptions) > 0 {
			perRule[rule.ID] = rule.Exemptions
		}
	}
	paths := append([]string{}, rs.ExemptPaths...)
	paths = append(paths, extraExemptPaths...)
	return exempt.NewRegistry(paths, perRule)
}

// DefaultRuleSet is the policy used when no rules file exists yet.
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		Version: "1",
		ExemptPaths: []string{
			"vendor/**",
			"**/testdata/**",
		},
		Rules: []Rule{
			{
				ID:      "block-rm-root",
				Scope:   ScopeCommand,
				Pattern: `^(sudo\s+)?rm\s+(-[a-zA-Z]*r[a-zA-Z]*f|-[a-zA-Z]*f[a-zA-Z]*r)\s+/(\s|$)`,
				Message: "Destructive remove at filesystem root is not allowed.",
			},
			{
				ID:      "block-pipe-to-shell",
				Scope:   ScopeCommand,
				Pattern: `^(curl|wget)\b.*\|\s*(sh|bash|zsh)(\s|$)`,
				Message: "Piping downloads into a shell is not allowed. Download and inspect first.",
			},
			{
				ID:      "use-python-wrapper",
				Scope:   ScopeCommand,
				Pattern: `\bpython3\b`,
				Message: "Invoke python through the project wrapper, not python3 directly.",
			},
			{
				ID:           "no-new-noqa",
				Scope:        ScopeContent,
				Pattern:      `#\s*noqa\b`,
				Message:      "Do not add new lint suppressions; fix the finding instead.",
				AllowRemoval: true,
			},
			{
				ID:           "no-new-type-ignore",
				Scope:        ScopeContent,
				Pattern:      `#\s*type:\s*ignore\b`,
				Message:      "Do not add new type-checker suppressions.",
				AllowRemoval: true,
				Exemptions: []exempt.Exemption{
					{
						PathGlobs:          []string{"**/compat/**"},
						AllowedSubPatterns: []string{`#\s*type:\s*ignore\[import-untyped\]`},
					},
				},
			},
			{
				ID:           "no-parent-traversal",
				Scope:        ScopeContent,
				Pattern:      `\.parent\.parent`,
				Message:      "Chained parent traversal is brittle; resolve paths from a configured root.",
				AllowRemoval: true,
			},
			{
				ID:           "coverage-pragma-review",
				Scope:        ScopeContent,
				Pattern:      `#\s*pragma:\s*no\s*cover\b`,
				Message:      "New coverage exclusions need a reviewer to judge intent.",
				AllowRemoval: true,
				Semantic:     true,
			},
		},
	}
}

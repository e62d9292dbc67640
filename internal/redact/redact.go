// Package redact strips credentials from text before it reaches the decision
// log. The log records commands and edit reasons verbatim otherwise, so any
// inline secret would be persisted without this pass.
package redact

import "regexp"

var secretPatterns = []*regexp.Regexp{
	// Cloud and VCS tokens
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`),
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`),

	// Key material
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`),

	// Assignments and headers
	regexp.MustCompile(`(?i)(api[_-]?key|secret[_-]?key|access[_-]?token|auth[_-]?token|password|passwd)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]{20,}`),

	// Credentials embedded in URLs
	regexp.MustCompile(`https?://[^:/\s]+:[^@\s]+@`),
}

const placeholder = "[REDACTED]"

// Redact replaces anything resembling a credential with a placeholder.
func Redact(input string) string {
	out := input
	for _, re := range secretPatterns {
		out = re.ReplaceAllString(out, placeholder)
	}
	return out
}

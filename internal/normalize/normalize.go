// Package normalize tokenizes shell commands with a real shell parser and
// extracts the filesystem paths they reference. The hook dispatcher records
// the result in the decision log; policy matching always sees the literal
// command string.
package normalize

import (
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Command is the normalized view of one shell command string.
type Command struct {
	Raw        string
	Executable string
	Words      []string
	Paths      []string
}

// Normalize parses the command as bash syntax. Words that the parser cannot
// resolve statically (expansions, substitutions) are kept verbatim; a parse
// failure falls back to whitespace splitting so normalization never blocks
// evaluation.
func Normalize(raw, cwd string) Command {
	c := Command{Raw: raw}

	words := shellWords(raw)
	if len(words) == 0 {
		return c
	}
	c.Words = words
	c.Executable = filepath.Base(words[0])

	home, _ := os.UserHomeDir()
	for _, w := range words[1:] {
		if looksLikePath(w) {
			c.Paths = append(c.Paths, expandPath(w, cwd, home))
		}
	}
	return c
}

func shellWords(raw string) []string {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(raw), "")
	if err != nil {
		return strings.Fields(raw)
	}

	printer := syntax.NewPrinter()
	var words []string
	syntax.Walk(file, func(node syntax.Node) bool {
		if call, ok := node.(*syntax.CallExpr); ok {
			for _, w := range call.Args {
				if lit := literalValue(w); lit != "" {
					words = append(words, lit)
				} else {
					var sb strings.Builder
					printer.Print(&sb, w)
					words = append(words, sb.String())
				}
			}
		}
		return true
	})
	if len(words) == 0 {
		return strings.Fields(raw)
	}
	return words
}

// literalValue resolves a word made only of literals and quoted strings.
func literalValue(w *syntax.Word) string {
	var sb strings.Builder
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				lit, ok := inner.(*syntax.Lit)
				if !ok {
					return ""
				}
				sb.WriteString(lit.Value)
			}
		default:
			return ""
		}
	}
	return sb.String()
}

func looksLikePath(arg string) bool {
	if strings.HasPrefix(arg, "-") {
		return false
	}
	return strings.HasPrefix(arg, "/") ||
		strings.HasPrefix(arg, "./") ||
		strings.HasPrefix(arg, "../") ||
		strings.HasPrefix(arg, "~") ||
		strings.Contains(arg, "/")
}

func expandPath(arg, cwd, home string) string {
	switch {
	case arg == "~" && home != "":
		return home
	case strings.HasPrefix(arg, "~/") && home != "":
		return filepath.Join(home, arg[2:])
	case filepath.IsAbs(arg):
		return filepath.Clean(arg)
	case cwd != "":
		return filepath.Join(cwd, arg)
	}
	return filepath.Clean(arg)
}

// Package unicode detects character smuggling in command strings: invisible
// codepoints, bidirectional overrides, and tag characters that can make a
// displayed command differ from the executed one.
package unicode

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Threat is one suspicious codepoint found in the input.
type Threat struct {
	Category    string // "zero-width", "bidi-override", "tag-char", "control-char", "invalid-utf8"
	Description string
	Position    int    // byte offset
	Codepoint   string // e.g. "U+200B"
	Severity    string // "block" or "audit"
}

// ScanResult is the outcome of scanning one string.
type ScanResult struct {
	Clean     bool
	Threats   []Threat
	Sanitized string // input with flagged codepoints stripped
}

// Scan walks the input rune by rune and classifies each against the known
// smuggling categories.
func Scan(input string) ScanResult {
	result := ScanResult{Clean: true}
	var sanitized strings.Builder

	for i := 0; i < len(input); {
		r, size := utf8.DecodeRuneInString(input[i:])

		if r == utf8.RuneError && size == 1 {
			result.Clean = false
			result.Threats = append(result.Threats, Threat{
				Category:    "invalid-utf8",
				Description: "invalid UTF-8 byte sequence",
				Position:    i,
				Codepoint:   fmt.Sprintf("0x%02X", input[i]),
				Severity:    "block",
			})
			i++
			continue
		}

		if t, bad := classify(r, i); bad {
			result.Clean = false
			result.Threats = append(result.Threats, t)
			i += size
			continue
		}

		sanitized.WriteRune(r)
		i += size
	}

	result.Sanitized = sanitized.String()
	return result
}

func classify(r rune, pos int) (Threat, bool) {
	cp := fmt.Sprintf("U+%04X", r)

	switch {
	case isZeroWidth(r):
		return Threat{
			Category:    "zero-width",
			Description: fmt.Sprintf("zero-width character %s can hide content", cp),
			Position:    pos,
			Codepoint:   cp,
			Severity:    "block",
		}, true
	case isBidiControl(r):
		return Threat{
			Category:    "bidi-override",
			Description: fmt.Sprintf("bidirectional control %s can reorder displayed text", cp),
			Position:    pos,
			Codepoint:   cp,
			Severity:    "block",
		}, true
	case r >= 0xE0000 && r <= 0xE007F:
		return Threat{
			Category:    "tag-char",
			Description: fmt.Sprintf("tag character %s is invisible in most renderers", cp),
			Position:    pos,
			Codepoint:   cp,
			Severity:    "block",
		}, true
	case r < 0x20 && r != '\t' && r != '\n' && r != '\r':
		return Threat{
			Category:    "control-char",
			Description: fmt.Sprintf("control character %s in command text", cp),
			Position:    pos,
			Codepoint:   cp,
			Severity:    "audit",
		}, true
	}
	return Threat{}, false
}

func isZeroWidth(r rune) bool {
	switch r {
	case 0x200B, // zero width space
		0x200C, // zero width non-joiner
		0x200D, // zero width joiner
		0x2060, // word joiner
		0xFEFF: // zero width no-break space / BOM
		return true
	}
	return false
}

func isBidiControl(r rune) bool {
	switch r {
	case 0x202A, 0x202B, 0x202C, 0x202D, 0x202E, // embedding/override
		0x2066, 0x2067, 0x2068, 0x2069: // isolates
		return true
	}
	return false
}

// HasBlockingThreat reports whether any threat warrants an outright deny.
func (r ScanResult) HasBlockingThreat() bool {
	for _, t := range r.Threats {
		if t.Severity == "block" {
			return true
		}
	}
	return false
}

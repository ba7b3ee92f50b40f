package nutrition

import (
	"fmt"
	"strings"
	"unicode"
)

// baseAllowed is the fixed allow-list: JSON structure, digits, the letters of
// true/false/null, and the hyphen. ASCII whitespace is handled separately.
const baseAllowed = `{}[]":,.0123456789truefalsn-`

// Sanitizer strips every rune outside an allow-list before the payload is parsed.
//
// The filter is blunt: runes a string value may legitimately need
// (backslash escapes, quotes other than '"', parentheses, '%', '/') are
// removed, so a payload that depends on them no longer parses. Extend the
// allow-list only together with a test proving valid payloads survive.
type Sanitizer struct {
	scripts []string
	tables  []*unicode.RangeTable
}

// NewSanitizer returns a sanitizer that additionally keeps runes of the named
// unicode scripts (keys of unicode.Scripts, e.g. "Latin", "Hangul", "Han").
// No script is enabled implicitly.
func NewSanitizer(scripts ...string) (*Sanitizer, error) {
	s := &Sanitizer{}
	seen := make(map[string]bool, len(scripts))
	for _, name := range scripts {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		table, ok := unicode.Scripts[name]
		if !ok {
			return nil, fmt.Errorf("unknown unicode script %q", name)
		}
		seen[name] = true
		s.scripts = append(s.scripts, name)
		s.tables = append(s.tables, table)
	}
	return s, nil
}

// Scripts returns the configured script names in the order given.
func (s *Sanitizer) Scripts() []string {
	return append([]string(nil), s.scripts...)
}

// Sanitize removes every rune not on the allow-list.
func (s *Sanitizer) Sanitize(candidate string) string {
	var b strings.Builder
	b.Grow(len(candidate))
	for _, r := range candidate {
		if s.allowed(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *Sanitizer) allowed(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	if strings.ContainsRune(baseAllowed, r) {
		return true
	}
	return len(s.tables) > 0 && unicode.IsOneOf(s.tables, r)
}

package macro

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedMacro is returned when a user macro has a broken context part.
var ErrMalformedMacro = errors.New("malformed user macro")

// UserMacro is a parsed {$NAME} or {$NAME:context} token.
type UserMacro struct {
	Raw     string
	Name    string
	Context *string
}

// HasContext reports whether the macro carries a context.
func (m UserMacro) HasContext() bool {
	return m.Context != nil
}

// SameContext reports whether both macros have no context, or equal contexts.
// Quoted and unquoted spellings of a context are equal.
func (m UserMacro) SameContext(other UserMacro) bool {
	if m.Context == nil || other.Context == nil {
		return m.Context == nil && other.Context == nil
	}
	return *m.Context == *other.Context
}

// SearchPrefixes are the literal prefixes of every definition able to satisfy m:
// the context-less definition and, for a macro with a context, any context
// definition of the same name.
func (m UserMacro) SearchPrefixes() []string {
	if m.Context == nil {
		return []string{"{$" + m.Name + "}"}
	}
	return []string{"{$" + m.Name + "}", "{$" + m.Name + ":"}
}

func isMacroNameChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '.'
}

// ParseUserMacro parses s, which must consist of exactly one user macro.
func ParseUserMacro(s string) (UserMacro, error) {
	if !strings.HasPrefix(s, "{$") {
		return UserMacro{}, fmt.Errorf("%w: %q does not start with {$", ErrMalformedMacro, s)
	}
	m, end, ok, err := parseUserMacroAt(s, 0)
	if err != nil {
		return UserMacro{}, err
	}
	if !ok || end != len(s) {
		return UserMacro{}, fmt.Errorf("%w: %q", ErrMalformedMacro, s)
	}
	return m, nil
}

// ParseUserMacros returns every user macro in text in order of appearance.
// A macro with a broken context fails the whole text.
func ParseUserMacros(text string) ([]UserMacro, error) {
	var result []UserMacro
	pos := 0
	for {
		idx := strings.Index(text[pos:], "{$")
		if idx < 0 {
			return result, nil
		}
		start := pos + idx
		m, end, ok, err := parseUserMacroAt(text, start)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, m)
			pos = end
		} else {
			pos = start + 2
		}
	}
}

// FindUserMacros returns the distinct user macros across texts in first-seen order.
// Texts holding a malformed macro contribute nothing.
func FindUserMacros(texts []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, text := range texts {
		macros, err := ParseUserMacros(text)
		if err != nil {
			continue
		}
		for _, m := range macros {
			if !seen[m.Raw] {
				seen[m.Raw] = true
				result = append(result, m.Raw)
			}
		}
	}
	return result
}

// parseUserMacroAt parses a macro starting at s[start] == '{'.
// ok is false when the text there is not a user macro at all.
func parseUserMacroAt(s string, start int) (m UserMacro, end int, ok bool, err error) {
	i := start + 2
	nameStart := i
	for i < len(s) && isMacroNameChar(s[i]) {
		i++
	}
	if i == nameStart || i >= len(s) {
		return UserMacro{}, 0, false, nil
	}
	name := s[nameStart:i]

	switch s[i] {
	case '}':
		return UserMacro{Raw: s[start : i+1], Name: name}, i + 1, true, nil
	case ':':
		i++
	default:
		return UserMacro{}, 0, false, nil
	}

	for i < len(s) && s[i] == ' ' {
		i++
	}

	var context string
	if i < len(s) && s[i] == '"' {
		var b strings.Builder
		i++
		closed := false
		for i < len(s) {
			c := s[i]
			if c == '\\' && i+1 < len(s) && s[i+1] == '"' {
				b.WriteByte('"')
				i += 2
				continue
			}
			if c == '"' {
				closed = true
				i++
				break
			}
			b.WriteByte(c)
			i++
		}
		if !closed {
			return UserMacro{}, 0, false, fmt.Errorf("%w: unterminated context in %q", ErrMalformedMacro, s[start:])
		}
		for i < len(s) && s[i] == ' ' {
			i++
		}
		if i >= len(s) || s[i] != '}' {
			return UserMacro{}, 0, false, fmt.Errorf("%w: unexpected text after context in %q", ErrMalformedMacro, s[start:])
		}
		context = b.String()
	} else {
		ctxStart := i
		for i < len(s) && s[i] != '}' {
			i++
		}
		if i >= len(s) {
			return UserMacro{}, 0, false, fmt.Errorf("%w: unterminated macro %q", ErrMalformedMacro, s[start:])
		}
		context = s[ctxStart:i]
	}

	return UserMacro{Raw: s[start : i+1], Name: name, Context: &context}, i + 1, true, nil
}

package study

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// ErrUnknownVariable is returned when an input template references a
// delimited variable that the sweep does not define.
var ErrUnknownVariable = errors.New("unknown variable")

// Compile substitutes variable references in an input template.
//
// Delimited references (${name}) must resolve. Bare references ($name) are
// replaced when the name is defined and left alone otherwise. Comment lines
// and lines holding a formula expression (@{...}) are copied unchanged.
func Compile(src string, values map[string]types.Value, m *Model) (string, error) {
	lines := strings.SplitAfter(src, "\n")
	var sb strings.Builder
	sb.Grow(len(src))

	formula := m.FormulaPrefix + m.openDelim()
	for n, line := range lines {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), m.CommentLine) || strings.Contains(line, formula) {
			sb.WriteString(line)
			continue
		}
		out, err := compileLine(line, values, m)
		if err != nil {
			return "", fmt.Errorf("line %d: %w", n+1, err)
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}

func compileLine(line string, values map[string]types.Value, m *Model) (string, error) {
	prefix, open, closing := m.VarPrefix, m.openDelim(), m.closeDelim()
	if !strings.Contains(line, prefix) {
		return line, nil
	}

	var sb strings.Builder
	rest := line
	for {
		idx := strings.Index(rest, prefix)
		if idx < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		sb.WriteString(rest[:idx])
		after := rest[idx+len(prefix):]

		if strings.HasPrefix(after, open) {
			body := after[len(open):]
			end := strings.Index(body, closing)
			if end < 0 {
				return "", fmt.Errorf("unterminated %s%s", prefix, open)
			}
			name := body[:end]
			v, ok := values[name]
			if !ok {
				return "", fmt.Errorf("%w: %s", ErrUnknownVariable, name)
			}
			sb.WriteString(v.String())
			rest = body[end+len(closing):]
			continue
		}

		name := identifier(after)
		if v, ok := values[name]; ok && name != "" {
			sb.WriteString(v.String())
			rest = after[len(name):]
			continue
		}

		sb.WriteString(prefix)
		rest = after
	}
}

// identifier returns the leading [A-Za-z_][A-Za-z0-9_]* run of s.
func identifier(s string) string {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return s[:i]
		}
	}
	return s
}

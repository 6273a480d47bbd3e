// Package types provides the core data types shared by the casweep study
// framework, formatters, and history store: scalar parameter values, the
// ordered sweep specification, and the per-case result table.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies the scalar type held by a Value.
type Kind int

// Value kinds.
const (
	KindString Kind = iota
	KindInt
	KindFloat
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "string"
	}
}

// Value is a single scalar parameter value.
// The zero value is the empty string.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// Float returns a floating point Value.
func Float(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// Int returns an integer Value.
func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// String returns a string Value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Kind returns the scalar type of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Float64 returns the numeric value as a float64.
// The boolean is false for string values that do not parse as a number.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
}

// String renders the value the way it is substituted into input files.
// Integral floats keep a trailing ".0" so 3.0 never collapses to 3.
func (v Value) String() string {
	switch v.kind {
	case KindFloat:
		return formatFloat(v.f)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	default:
		return v.s
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.i == o.i && v.f == o.f && v.s == o.s
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// MarshalJSON encodes numbers as JSON numbers and strings as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindString {
		return json.Marshal(v.s)
	}
	return []byte(v.String()), nil
}

// UnmarshalJSON decodes a JSON number or string.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	}
	parsed, err := ParseValue(string(data))
	if err != nil {
		return err
	}
	if parsed.kind == KindString {
		return fmt.Errorf("invalid value %s", data)
	}
	*v = parsed
	return nil
}

// MarshalYAML keeps the float/int distinction in YAML output.
func (v Value) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.ScalarNode, Value: v.String()}
	switch v.kind {
	case KindFloat:
		node.Tag = "!!float"
	case KindInt:
		node.Tag = "!!int"
	default:
		node.Tag = "!!str"
	}
	return node, nil
}

// UnmarshalYAML decodes a YAML scalar using its resolved tag.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: parameter value must be a scalar", node.Line)
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		parsed, err := ParseValue(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*v = parsed
	default:
		*v = String(node.Value)
	}
	return nil
}

// ParseValue interprets s as an int, then a float, falling back to a string.
func ParseValue(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return String(""), nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f), nil
	}
	return String(s), nil
}

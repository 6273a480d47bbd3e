package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateVariable is returned when a sweep declares a name twice.
var ErrDuplicateVariable = errors.New("duplicate variable")

// Variable is one entry of a sweep specification: either a fixed scalar
// or an ordered axis of values.
type Variable struct {
	// Name is the parameter name used in input templates and result columns.
	Name string `json:"name" yaml:"name"`

	// Values holds one value for a fixed parameter, or the axis values in order.
	Values []Value `json:"values" yaml:"values"`

	// Axis marks the variable as a sweep axis even if it has a single value.
	Axis bool `json:"axis,omitempty" yaml:"axis,omitempty"`
}

// Scalar declares a fixed parameter.
func Scalar(name string, v Value) Variable {
	return Variable{Name: name, Values: []Value{v}}
}

// Axis declares a swept parameter.
func Axis(name string, values ...Value) Variable {
	return Variable{Name: name, Values: values, Axis: true}
}

// Varies reports whether the variable takes more than one value
// or was declared as an axis.
func (v Variable) Varies() bool {
	return v.Axis || len(v.Values) > 1
}

// String renders a scalar as its value and an axis as a bracketed list.
func (v Variable) String() string {
	if !v.Varies() && len(v.Values) == 1 {
		return v.Values[0].String()
	}
	parts := make([]string, len(v.Values))
	for i, val := range v.Values {
		parts[i] = val.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Variables is an ordered sweep specification. Declaration order decides
// case ordering (first axis varies slowest) and column ordering.
type Variables []Variable

// Validate checks for empty names, duplicate names, and empty axes.
func (vs Variables) Validate() error {
	seen := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		if v.Name == "" {
			return errors.New("variable name cannot be empty")
		}
		if _, ok := seen[v.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateVariable, v.Name)
		}
		seen[v.Name] = struct{}{}
		if len(v.Values) == 0 {
			return fmt.Errorf("variable %s has no values", v.Name)
		}
	}
	return nil
}

// Names returns the variable names in declaration order.
func (vs Variables) Names() []string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.Name
	}
	return names
}

// Varying returns the names of the variables that form sweep axes.
func (vs Variables) Varying() []string {
	var names []string
	for _, v := range vs {
		if v.Varies() {
			names = append(names, v.Name)
		}
	}
	return names
}

// Get returns the variable with the given name.
func (vs Variables) Get(name string) (Variable, bool) {
	for _, v := range vs {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// Combinations returns the number of sweep points the specification expands to.
func (vs Variables) Combinations() int {
	total := 1
	for _, v := range vs {
		total *= len(v.Values)
	}
	return total
}

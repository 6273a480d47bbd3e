package study

import (
	"strings"

	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// Case is one point of the expanded sweep.
type Case struct {
	// Index is the zero-based position in sweep order.
	Index int

	// Name is the case directory name.
	Name string

	// Values maps every variable to its value for this case.
	Values map[string]types.Value
}

// singleCaseName is used when no variable varies.
const singleCaseName = "case"

// Expand returns the cartesian product of the variables. The first
// declared variable varies slowest and the last varies fastest.
func Expand(vars types.Variables) []Case {
	total := vars.Combinations()
	cases := make([]Case, total)
	for i := range cases {
		cases[i] = Case{Index: i, Values: make(map[string]types.Value, len(vars))}
	}

	repeat := 1
	for dim := len(vars) - 1; dim >= 0; dim-- {
		v := vars[dim]
		cycle := len(v.Values)
		for i := 0; i < total; i++ {
			cases[i].Values[v.Name] = v.Values[(i/repeat)%cycle]
		}
		repeat *= cycle
	}

	varying := vars.Varying()
	for i := range cases {
		cases[i].Name = caseName(varying, cases[i].Values)
	}
	return cases
}

// caseName builds "name1=v1,name2=v2" from the varying variables.
func caseName(varying []string, values map[string]types.Value) string {
	if len(varying) == 0 {
		return singleCaseName
	}
	parts := make([]string, len(varying))
	for i, name := range varying {
		parts[i] = name + "=" + sanitize(values[name].String())
	}
	return strings.Join(parts, ",")
}

var pathReplacer = strings.NewReplacer("/", "_", `\`, "_", ",", "_", "=", "_")

func sanitize(s string) string {
	return pathReplacer.Replace(s)
}

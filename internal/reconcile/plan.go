// Package reconcile publishes generated output into the module tree or
// verifies that the tree already matches it. All sources that resolve to the
// same output location are handled together as one unit.
package reconcile

import (
	"path/filepath"
	"sort"
)

// Result is one source's generated, normalized output.
type Result struct {
	// Source is the source's display name.
	Source string
	// Output is the resolved output location, relative to the module root.
	Output string
	// Dir holds the generated tree that maps onto Output.
	Dir string
}

// Failure names a source that did not produce output.
type Failure struct {
	Source string
	Output string
}

// Unit is every result and failure sharing one output location.
type Unit struct {
	Output  string
	Results []Result
	Failed  []string
}

// Complete reports whether every source targeting the unit succeeded.
func (u Unit) Complete() bool {
	return len(u.Failed) == 0
}

// Sources lists the names of the unit's successful sources.
func (u Unit) Sources() []string {
	names := make([]string, 0, len(u.Results))
	for _, r := range u.Results {
		names = append(names, r.Source)
	}
	return names
}

// Plan groups results and failures by cleaned output location. Units are
// sorted by location; results keep their input order.
func Plan(results []Result, failed []Failure) []Unit {
	byOutput := make(map[string]*Unit)
	get := func(output string) *Unit {
		output = filepath.Clean(output)
		u, ok := byOutput[output]
		if !ok {
			u = &Unit{Output: output}
			byOutput[output] = u
		}
		return u
	}

	for _, r := range results {
		u := get(r.Output)
		r.Output = u.Output
		u.Results = append(u.Results, r)
	}
	for _, f := range failed {
		u := get(f.Output)
		u.Failed = append(u.Failed, f.Source)
	}

	units := make([]Unit, 0, len(byOutput))
	for _, u := range byOutput {
		units = append(units, *u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Output < units[j].Output })
	return units
}

package mpranalyze

import (
	"fmt"
	"strings"
)

// Annotations is a table of named factors describing the observation columns
// of a count matrix. Row i of the table annotates column i of the matrix.
// Factor values are opaque strings; levels are ordered by first appearance,
// and the first level of a factor serves as the model reference level.
type Annotations struct {
	names   []string
	index   map[string]int
	columns [][]string // columns[factor][observation]
	n       int
}

// NewAnnotations builds an annotation table from factor names and their
// per-observation value columns. All columns must have the same length and
// factor names must be unique and non-empty.
func NewAnnotations(names []string, columns [][]string) (*Annotations, error) {
	if len(names) != len(columns) {
		return nil, &ConfigError{Detail: fmt.Sprintf("%d factor names for %d value columns", len(names), len(columns))}
	}
	if len(names) == 0 {
		return nil, &ConfigError{Detail: "annotation table has no factors"}
	}

	a := &Annotations{
		names:   make([]string, len(names)),
		index:   make(map[string]int, len(names)),
		columns: make([][]string, len(columns)),
		n:       len(columns[0]),
	}
	copy(a.names, names)

	if a.n == 0 {
		return nil, &ConfigError{Detail: "annotation table has no observations"}
	}

	for i, name := range names {
		if name == "" {
			return nil, &ConfigError{Detail: fmt.Sprintf("factor %d has an empty name", i)}
		}
		if _, seen := a.index[name]; seen {
			return nil, &ConfigError{Field: name, Detail: "duplicate factor name"}
		}
		a.index[name] = i

		if len(columns[i]) != a.n {
			return nil, &ConfigError{Field: name, Detail: fmt.Sprintf("factor has %d values, expected %d", len(columns[i]), a.n)}
		}
		a.columns[i] = make([]string, a.n)
		copy(a.columns[i], columns[i])
	}

	return a, nil
}

// Len reports the number of annotated observations (matrix columns).
func (a *Annotations) Len() int { return a.n }

// Factors returns the factor names in table order.
func (a *Annotations) Factors() []string { return a.names }

// Has reports whether the named factor exists.
func (a *Annotations) Has(name string) bool {
	_, ok := a.index[name]
	return ok
}

// Values returns the per-observation values of the named factor.
func (a *Annotations) Values(name string) ([]string, error) {
	i, ok := a.index[name]
	if !ok {
		return nil, &ConfigError{Field: name, Detail: "factor not present in annotations"}
	}

	return a.columns[i], nil
}

// Levels returns the distinct values of the named factor in order of first
// appearance. The first level is the reference level in model designs.
func (a *Annotations) Levels(name string) ([]string, error) {
	vals, err := a.Values(name)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var levels []string
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			levels = append(levels, v)
		}
	}

	return levels, nil
}

// GroupKeys assigns each observation to a group defined by the distinct
// combination of the named factors' values. It returns a per-observation
// group index and the group labels in order of first appearance. Labels join
// the factor values with ":", e.g. "batch1:sel".
func (a *Annotations) GroupKeys(factors []string) ([]int, []string, error) {
	if len(factors) == 0 {
		return nil, nil, &ConfigError{Detail: "no grouping factors named"}
	}

	cols := make([][]string, len(factors))
	for i, f := range factors {
		vals, err := a.Values(f)
		if err != nil {
			return nil, nil, err
		}
		cols[i] = vals
	}

	assignment := make([]int, a.n)
	groupOf := make(map[string]int)
	var labels []string

	parts := make([]string, len(factors))
	for obs := 0; obs < a.n; obs++ {
		for i := range cols {
			parts[i] = cols[i][obs]
		}
		label := strings.Join(parts, ":")

		g, ok := groupOf[label]
		if !ok {
			g = len(labels)
			groupOf[label] = g
			labels = append(labels, label)
		}
		assignment[obs] = g
	}

	return assignment, labels, nil
}

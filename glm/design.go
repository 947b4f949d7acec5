// Package glm fits generalized linear models to single rows of count data:
// a log link, an additive offset, and a pluggable count distribution. It is
// the per-enhancer machinery underneath both the copy-number (DNA) and
// transcription-rate (RNA) stages of an MPRA analysis.
package glm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// InterceptName is the coefficient name of the design's intercept column.
const InterceptName = "(Intercept)"

// Factor is one named categorical covariate: a string value per observation.
// Levels are ordered by first appearance and the first level is the
// reference level under treatment coding.
type Factor struct {
	Name   string
	Values []string
}

// Design is a model matrix over a fixed set of observations: an intercept
// column plus one indicator column per non-reference level of each factor
// (treatment coding). The same Design is shared read-only across every row
// fit that uses it.
type Design struct {
	x      *mat.Dense
	names  []string
	cols   map[string][]int
	levels map[string][]string
}

// NewDesign builds the model matrix for n observations from zero or more
// factors. Zero factors yields the intercept-only design. Every factor must
// supply exactly n values. A factor with a single level contributes no
// columns; it is wholly absorbed by the intercept.
func NewDesign(n int, factors ...Factor) (*Design, error) {
	if n <= 0 {
		return nil, fmt.Errorf("design requires at least one observation, got %d", n)
	}

	d := &Design{
		names:  []string{InterceptName},
		cols:   make(map[string][]int),
		levels: make(map[string][]string),
	}

	// First pass: establish levels and coefficient names so the matrix can
	// be allocated at its final width.
	type indicator struct {
		factor int
		level  string
	}
	var indicators []indicator

	for fi, f := range factors {
		if f.Name == "" {
			return nil, fmt.Errorf("factor %d has an empty name", fi)
		}
		if _, dup := d.levels[f.Name]; dup {
			return nil, fmt.Errorf("factor %q appears in the design more than once", f.Name)
		}
		if len(f.Values) != n {
			return nil, fmt.Errorf("factor %q has %d values for %d observations", f.Name, len(f.Values), n)
		}

		seen := make(map[string]bool)
		var levels []string
		for _, v := range f.Values {
			if !seen[v] {
				seen[v] = true
				levels = append(levels, v)
			}
		}
		d.levels[f.Name] = levels

		cols := []int{}
		for _, level := range levels[1:] {
			cols = append(cols, len(d.names))
			d.names = append(d.names, f.Name+"="+level)
			indicators = append(indicators, indicator{factor: fi, level: level})
		}
		d.cols[f.Name] = cols
	}

	// Second pass: fill the matrix.
	d.x = mat.NewDense(n, len(d.names), nil)
	for i := 0; i < n; i++ {
		d.x.Set(i, 0, 1)
	}
	for j, ind := range indicators {
		values := factors[ind.factor].Values
		for i := 0; i < n; i++ {
			if values[i] == ind.level {
				d.x.Set(i, 1+j, 1)
			}
		}
	}

	return d, nil
}

// NObs reports the number of observations (matrix rows).
func (d *Design) NObs() int {
	r, _ := d.x.Dims()
	return r
}

// NCoef reports the number of model coefficients (matrix columns).
func (d *Design) NCoef() int { return len(d.names) }

// CoefNames returns the coefficient names in column order: the intercept
// first, then "factor=level" indicators. The returned slice is shared;
// callers must not modify it.
func (d *Design) CoefNames() []string { return d.names }

// X returns the model matrix itself, shared and read-only.
func (d *Design) X() *mat.Dense { return d.x }

// HasFactor reports whether the named factor entered the design.
func (d *Design) HasFactor(name string) bool {
	_, ok := d.levels[name]
	return ok
}

// Levels returns the named factor's levels in reference-first order.
func (d *Design) Levels(name string) ([]string, bool) {
	levels, ok := d.levels[name]
	return levels, ok
}

// ColumnsFor maps a factor to the coefficient columns of its non-reference
// levels, parallel to Levels(name)[1:]. The reference level has no column;
// its effect is the intercept.
func (d *Design) ColumnsFor(name string) ([]int, bool) {
	cols, ok := d.cols[name]
	return cols, ok
}

// LinearPredictor evaluates x·coef for every observation, with no offset
// applied. This is how a fitted upstream model's estimate enters a downstream
// model as an offset.
func (d *Design) LinearPredictor(coef []float64) ([]float64, error) {
	if len(coef) != d.NCoef() {
		return nil, fmt.Errorf("%d coefficients for a design with %d", len(coef), d.NCoef())
	}

	out := make([]float64, d.NObs())
	row := make([]float64, d.NCoef())
	for i := range out {
		mat.Row(row, i, d.x)
		out[i] = floats.Dot(row, coef)
	}

	return out, nil
}

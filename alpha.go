package mpranalyze

import "math"

// StatVector is one per-enhancer statistic column in experiment row order.
// Cells from failed fits are invalid and carry NaN.
type StatVector struct {
	Name   string
	Values []float64
	Valid  []bool
}

// AlphaTable holds count-scale transcription-rate estimates: one row per
// retained enhancer, one column per requested factor level, or a single
// "alpha" column when extracted from the intercept alone.
type AlphaTable struct {
	// Factor is the RNA design factor the columns are split by, or empty.
	Factor  string
	IDs     []string
	Columns []string
	// Values is row-major over [enhancer][column]; cells of failed fits are
	// NaN.
	Values [][]float64
	// Valid flags rows whose RNA fit converged.
	Valid []bool
}

// GetAlpha extracts transcription-rate estimates from the fitted RNA models.
// With an empty byFactor the single column is exp(intercept), the rate at the
// reference level of every design factor. With a byFactor, one column per
// level: the reference level is exp(intercept) and every other level is
// exp(intercept + its coefficient), so values come back out of the link scale
// and onto the original count scale, where they are non-negative by
// construction. byFactor must be a term of the fitted RNA design.
func (e *Experiment) GetAlpha(byFactor string) (*AlphaTable, error) {
	an := e.analysis
	if an == nil {
		return nil, &ConfigError{Detail: "no fitted models; run AnalyzeQuantification or AnalyzeComparative first"}
	}

	t := &AlphaTable{
		Factor: byFactor,
		IDs:    e.Enhancers(),
		Valid:  make([]bool, e.NEnhancers()),
	}

	var cols []int
	if byFactor == "" {
		t.Columns = []string{"alpha"}
	} else {
		if !an.rnaDesign.HasFactor(byFactor) {
			return nil, &ConfigError{Field: byFactor, Detail: "not a factor of the fitted RNA design"}
		}
		levels, _ := an.rnaDesign.Levels(byFactor)
		t.Columns = levels
		cols, _ = an.rnaDesign.ColumnsFor(byFactor)
	}

	t.Values = make([][]float64, len(t.IDs))
	for i := range an.rows {
		row := &an.rows[i]
		vals := make([]float64, len(t.Columns))
		t.Values[i] = vals

		// A converged RNA stage is enough for alpha extraction, even if a
		// comparative row's reduced fit failed.
		if row.RNA == nil || !row.RNA.Converged {
			for k := range vals {
				vals[k] = math.NaN()
			}
			continue
		}

		intercept := row.RNA.Coef[0]
		vals[0] = math.Exp(intercept)
		for k, c := range cols {
			vals[k+1] = math.Exp(intercept + row.RNA.Coef[c])
		}
		t.Valid[i] = true
	}

	return t, nil
}

// NRows reports the number of enhancer rows in the table.
func (t *AlphaTable) NRows() int { return len(t.IDs) }

// Column extracts the named column as a statistic vector suitable for
// empirical testing.
func (t *AlphaTable) Column(name string) (StatVector, error) {
	for k, col := range t.Columns {
		if col != name {
			continue
		}

		sv := StatVector{
			Name:   name,
			Values: make([]float64, len(t.IDs)),
			Valid:  make([]bool, len(t.IDs)),
		}
		for i := range t.IDs {
			sv.Values[i] = t.Values[i][k]
			sv.Valid[i] = t.Valid[i]
		}

		return sv, nil
	}

	return StatVector{}, &ConfigError{Field: name, Detail: "not a column of the alpha table"}
}

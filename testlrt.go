package mpranalyze

import (
	"github.com/mpralab/mpranalyze/lrt"
	"github.com/mpralab/mpranalyze/padjust"
	"gopkg.in/guregu/null.v3"
)

// LRTResult is one enhancer's likelihood-ratio test between the full and
// reduced transcription-rate models. Statistic, p, and q are empty when any
// stage of the row's fit failed; LogFC is empty unless the comparison has a
// single-coefficient fold-change interpretation.
type LRTResult struct {
	Enhancer  string     `csv:"enhancer"`
	Status    string     `csv:"status"`
	Statistic null.Float `csv:"statistic"`
	DF        null.Int   `csv:"df"`
	P         null.Float `csv:"p"`
	Q         null.Float `csv:"q"`
	LogFC     null.Float `csv:"logFC"`
}

// LRTTable indexes the comparative test results by enhancer. When the full
// RNA design extends the reduced design by exactly one coefficient, as in a
// two-condition comparison, FoldChangeTerm names that coefficient and every
// converged row carries its estimate as a log fold-change.
type LRTTable struct {
	FoldChangeTerm string
	Rows           []LRTResult
}

// TestLRT compares each enhancer's full RNA model against its reduced null:
// twice the log-likelihood difference, referred to a chi-squared distribution
// with degrees of freedom equal to the difference in coefficient counts.
// Rows with any failed stage keep their status but carry no statistic, and
// the Benjamini-Hochberg adjustment runs across the converged rows only.
// Requires a prior AnalyzeComparative.
func (e *Experiment) TestLRT() (*LRTTable, error) {
	an := e.analysis
	if an == nil || !an.comparative {
		return nil, &ConfigError{Detail: "no comparative fit; run AnalyzeComparative first"}
	}

	dfFull, dfReduced := an.rnaDesign.NCoef(), an.reduced.NCoef()

	t := &LRTTable{Rows: make([]LRTResult, e.NEnhancers())}

	// A fold-change is well-defined only when the designs differ by exactly
	// one coefficient; it is then that coefficient, on the log scale.
	fcCol := -1
	if extra := extraCoefficients(an.rnaDesign.CoefNames(), an.reduced.CoefNames()); len(extra) == 1 {
		fcCol = extra[0]
		t.FoldChangeTerm = an.rnaDesign.CoefNames()[fcCol]
	}

	var tested []int
	var ps []float64
	for i := range an.rows {
		row := &an.rows[i]
		res := &t.Rows[i]
		res.Enhancer = row.Enhancer
		res.Status = row.Status.String()
		if !row.OK() {
			continue
		}

		stat, df, p := lrt.Test(row.RNA.LogLik, row.Reduced.LogLik, dfFull, dfReduced)
		res.Statistic = null.FloatFrom(stat)
		res.DF = null.IntFrom(int64(df))
		res.P = null.FloatFrom(p)
		if fcCol >= 0 {
			res.LogFC = null.FloatFrom(row.RNA.Coef[fcCol])
		}

		tested = append(tested, i)
		ps = append(ps, p)
	}

	for k, q := range padjust.BenjaminiHochberg(ps) {
		t.Rows[tested[k]].Q = null.FloatFrom(q)
	}

	return t, nil
}

// extraCoefficients returns the full-design coefficient columns with no
// namesake in the reduced design.
func extraCoefficients(full, reduced []string) []int {
	in := make(map[string]bool, len(reduced))
	for _, name := range reduced {
		in[name] = true
	}

	var extra []int
	for c, name := range full {
		if !in[name] {
			extra = append(extra, c)
		}
	}

	return extra
}

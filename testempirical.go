package mpranalyze

import (
	"fmt"

	"github.com/mpralab/mpranalyze/empirical"
	"github.com/mpralab/mpranalyze/padjust"
	"gopkg.in/guregu/null.v3"
)

// EmpiricalResult scores one enhancer's statistic against the control null.
// Cells are empty where the underlying fit failed.
type EmpiricalResult struct {
	Enhancer   string     `csv:"enhancer"`
	Control    bool       `csv:"control"`
	Statistic  null.Float `csv:"statistic"`
	PEmpirical null.Float `csv:"p_empirical"`
	QEmpirical null.Float `csv:"q_empirical"`
	PZScore    null.Float `csv:"p_zscore"`
	QZScore    null.Float `csv:"q_zscore"`
	PMADScore  null.Float `csv:"p_madscore"`
	QMADScore  null.Float `csv:"q_madscore"`
}

// EmpiricalTable is the outcome of scoring a statistic against the
// control-derived null: three one-sided p-value families, each with
// Benjamini-Hochberg q-values across all tested enhancers, plus the null
// summary itself for downstream diagnostics.
type EmpiricalTable struct {
	Statistic string
	Null      *empirical.Null
	Rows      []EmpiricalResult
}

// TestEmpirical scores a per-enhancer statistic, typically one alpha column,
// against the null distribution of the negative controls. Controls whose fits
// failed are kept out of the null so they cannot contaminate it; enhancers
// whose fits failed receive empty result cells but still occupy their row.
// The q-values adjust each family across every tested enhancer, controls
// included, not across the controls alone.
func (e *Experiment) TestEmpirical(sv StatVector) (*EmpiricalTable, error) {
	n := e.NEnhancers()
	if len(sv.Values) != n || len(sv.Valid) != n {
		return nil, &ConfigError{Detail: fmt.Sprintf("statistic vector has %d values and %d validity flags for %d enhancers", len(sv.Values), len(sv.Valid), n)}
	}
	if len(e.controls) == 0 {
		return nil, &ConfigError{Detail: "the experiment has no negative controls; the empirical test has no null distribution"}
	}

	var controlStats []float64
	for i, id := range e.Enhancers() {
		if sv.Valid[i] && e.IsControl(id) {
			controlStats = append(controlStats, sv.Values[i])
		}
	}
	if len(controlStats) == 0 {
		return nil, &ConfigError{Detail: "every control enhancer's fit failed; the empirical test has no null distribution"}
	}

	nd, err := empirical.NewNull(controlStats)
	if err != nil {
		return nil, err
	}

	t := &EmpiricalTable{
		Statistic: sv.Name,
		Null:      nd,
		Rows:      make([]EmpiricalResult, n),
	}

	var tested []int
	var pEmp, pZ, pMAD []float64
	for i, id := range e.Enhancers() {
		t.Rows[i].Enhancer = id
		t.Rows[i].Control = e.IsControl(id)
		if !sv.Valid[i] {
			continue
		}

		x := sv.Values[i]
		t.Rows[i].Statistic = null.FloatFrom(x)
		t.Rows[i].PEmpirical = null.FloatFrom(nd.PGreater(x))
		t.Rows[i].PZScore = null.FloatFrom(nd.PZScore(x))
		t.Rows[i].PMADScore = null.FloatFrom(nd.PMADScore(x))

		tested = append(tested, i)
		pEmp = append(pEmp, t.Rows[i].PEmpirical.Float64)
		pZ = append(pZ, t.Rows[i].PZScore.Float64)
		pMAD = append(pMAD, t.Rows[i].PMADScore.Float64)
	}

	qEmp := padjust.BenjaminiHochberg(pEmp)
	qZ := padjust.BenjaminiHochberg(pZ)
	qMAD := padjust.BenjaminiHochberg(pMAD)
	for k, i := range tested {
		t.Rows[i].QEmpirical = null.FloatFrom(qEmp[k])
		t.Rows[i].QZScore = null.FloatFrom(qZ[k])
		t.Rows[i].QMADScore = null.FloatFrom(qMAD[k])
	}

	return t, nil
}

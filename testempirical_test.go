package mpranalyze

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

// empiricalExperiment holds ten enhancers with the first five designated as
// negative controls. Counts are arbitrary positive values; the empirical
// tests below score hand-built statistic vectors, not fitted ones.
func empiricalExperiment(t *testing.T) *Experiment {
	t.Helper()

	const n = 10
	ids := make([]string, n)
	dnaRows := make([][]float64, n)
	rnaRows := make([][]float64, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("e%02d", i+1)
		dnaRows[i] = []float64{float64(i + 1), float64(i + 2)}
		rnaRows[i] = []float64{float64(2*i + 1), float64(2*i + 2)}
	}

	e, err := New(
		mustMatrix(t, ids, dnaRows),
		mustMatrix(t, ids, rnaRows),
		libAnn(t, 2), libAnn(t, 2),
		ids[:5])
	if err != nil {
		t.Fatal(err)
	}

	return e
}

func allValid(values []float64) StatVector {
	sv := StatVector{Name: "alpha", Values: values, Valid: make([]bool, len(values))}
	for i := range sv.Valid {
		sv.Valid[i] = true
	}

	return sv
}

func TestEmpirical(t *testing.T) {
	e := empiricalExperiment(t)

	// Controls carry 1..5; the null is therefore known exactly.
	sv := allValid([]float64{1, 2, 3, 4, 5, 10, 0.5, 3.5, 2, 6})

	table, err := e.TestEmpirical(sv)
	if err != nil {
		t.Fatal(err)
	}

	if table.Statistic != "alpha" {
		t.Errorf("Statistic = %q", table.Statistic)
	}
	if len(table.Rows) != e.NEnhancers() {
		t.Fatalf("%d rows for %d enhancers", len(table.Rows), e.NEnhancers())
	}

	nd := table.Null
	if nd.N != 5 {
		t.Fatalf("null N = %d, expected 5", nd.N)
	}
	if math.Abs(nd.Mean-3) > 1e-12 || math.Abs(nd.Median-3) > 1e-12 {
		t.Errorf("null center = %v / %v, expected 3 / 3", nd.Mean, nd.Median)
	}
	if expected := math.Sqrt(2.5); math.Abs(nd.SD-expected) > 1e-9 {
		t.Errorf("null SD = %v, expected %v", nd.SD, expected)
	}
	if expected := 1.4826; math.Abs(nd.MAD-expected) > 1e-9 {
		t.Errorf("null MAD = %v, expected %v", nd.MAD, expected)
	}

	// Rank p-values have closed forms: (1 + #controls >= x) / (1 + N).
	expectedP := []float64{1, 5. / 6, 4. / 6, 3. / 6, 2. / 6, 1. / 6, 1, 3. / 6, 5. / 6, 1. / 6}
	for i, row := range table.Rows {
		if !row.PEmpirical.Valid {
			t.Fatalf("row %d has no empirical p", i)
		}
		if math.Abs(row.PEmpirical.Float64-expectedP[i]) > 1e-12 {
			t.Errorf("row %d empirical p = %v, expected %v", i, row.PEmpirical.Float64, expectedP[i])
		}
		if row.Control != (i < 5) {
			t.Errorf("row %d control flag = %v", i, row.Control)
		}

		for _, p := range []float64{row.PZScore.Float64, row.PMADScore.Float64} {
			if p < 0 || p > 1 {
				t.Errorf("row %d score p = %v out of [0, 1]", i, p)
			}
		}
		if row.QEmpirical.Float64 < row.PEmpirical.Float64-1e-12 {
			t.Errorf("row %d q = %v below its p = %v", i, row.QEmpirical.Float64, row.PEmpirical.Float64)
		}
	}

	// Step-up adjustment across all ten rows: the two p = 1/6 rows share
	// q = (1/6)*(10/2) = 5/6, everything else saturates at 1.
	if got := table.Rows[5].QEmpirical.Float64; math.Abs(got-5./6) > 1e-12 {
		t.Errorf("e06 q = %v, expected 5/6", got)
	}
	if got := table.Rows[0].QEmpirical.Float64; math.Abs(got-1) > 1e-12 {
		t.Errorf("e01 q = %v, expected 1", got)
	}

	// Score-based p-values: far above the null is near-certainly surprising,
	// far below it is not.
	if p := table.Rows[5].PZScore.Float64; p <= 0 || p > 1e-3 {
		t.Errorf("e06 z-score p = %v, expected a small positive value", p)
	}
	if p := table.Rows[6].PZScore.Float64; p < 0.9 {
		t.Errorf("e07 z-score p = %v, expected > 0.9", p)
	}
}

func TestEmpiricalExcludesFailedControlsFromNull(t *testing.T) {
	e := empiricalExperiment(t)

	sv := allValid([]float64{1, 2, 3, 4, 5, 10, 0.5, 3.5, 2, 6})
	sv.Valid[0] = false

	table, err := e.TestEmpirical(sv)
	if err != nil {
		t.Fatal(err)
	}

	// e01's failed fit shrinks the null to 2..5 but keeps its row in place.
	if table.Null.N != 4 {
		t.Fatalf("null N = %d, expected 4", table.Null.N)
	}
	row := table.Rows[0]
	if row.Enhancer != "e01" || !row.Control {
		t.Fatalf("row 0 = %+v", row)
	}
	if row.Statistic.Valid || row.PEmpirical.Valid || row.QEmpirical.Valid {
		t.Error("failed row carries statistic or p-value cells")
	}

	tested := 0
	for _, r := range table.Rows {
		if r.PEmpirical.Valid {
			tested++
		}
	}
	if tested != 9 {
		t.Errorf("%d tested rows, expected 9", tested)
	}
}

func TestEmpiricalErrors(t *testing.T) {
	e := empiricalExperiment(t)

	var cfg *ConfigError

	// A statistic vector of the wrong shape.
	_, err := e.TestEmpirical(allValid([]float64{1, 2, 3}))
	if !errors.As(err, &cfg) {
		t.Fatalf("expected *ConfigError for a short vector, got %T: %v", err, err)
	}

	// Every control failed: no null can be built.
	sv := allValid([]float64{1, 2, 3, 4, 5, 10, 0.5, 3.5, 2, 6})
	for i := 0; i < 5; i++ {
		sv.Valid[i] = false
	}
	if _, err := e.TestEmpirical(sv); !errors.As(err, &cfg) {
		t.Fatalf("expected *ConfigError when every control failed, got %T: %v", err, err)
	}
}

func TestEmpiricalRequiresControls(t *testing.T) {
	ids := []string{"e1", "e2"}
	e, err := New(
		mustMatrix(t, ids, [][]float64{{1, 2}, {3, 4}}),
		mustMatrix(t, ids, [][]float64{{5, 6}, {7, 8}}),
		libAnn(t, 2), libAnn(t, 2), nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.TestEmpirical(allValid([]float64{1, 2}))
	var cfg *ConfigError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected *ConfigError without controls, got %T: %v", err, err)
	}
}

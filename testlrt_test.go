package mpranalyze

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/mpralab/mpranalyze/glm"
)

func TestLRT(t *testing.T) {
	e := quantExperiment(t)
	err := e.AnalyzeComparative(mustFormula(t, "~ 1"), mustFormula(t, "~ condition"), mustFormula(t, "~ 1"),
		AnalysisOptions{Family: glm.Poisson{}})
	if err != nil {
		t.Fatal(err)
	}

	table, err := e.TestLRT()
	if err != nil {
		t.Fatal(err)
	}

	// One extra coefficient between the designs, so the comparison carries a
	// fold-change column named after it.
	if table.FoldChangeTerm != "condition=stim" {
		t.Fatalf("FoldChangeTerm = %q", table.FoldChangeTerm)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("%d rows, expected 3", len(table.Rows))
	}

	for _, row := range table.Rows {
		if row.Status != "ok" {
			t.Fatalf("%s status = %q", row.Enhancer, row.Status)
		}
		if !row.Statistic.Valid || row.Statistic.Float64 < 0 {
			t.Errorf("%s statistic = %+v, expected a non-negative value", row.Enhancer, row.Statistic)
		}
		if !row.DF.Valid || row.DF.Int64 != 1 {
			t.Errorf("%s df = %+v, expected 1", row.Enhancer, row.DF)
		}
		if !row.P.Valid || row.P.Float64 < 0 || row.P.Float64 > 1 {
			t.Errorf("%s p = %+v out of [0, 1]", row.Enhancer, row.P)
		}
		if !row.Q.Valid || row.Q.Float64 < row.P.Float64-1e-12 {
			t.Errorf("%s q = %+v below its p", row.Enhancer, row.Q)
		}
		if !row.LogFC.Valid {
			t.Errorf("%s has no fold-change", row.Enhancer)
		}
	}

	rows := make(map[string]LRTResult, len(table.Rows))
	for _, row := range table.Rows {
		rows[row.Enhancer] = row
	}

	// e1 doubles under stim. Full Poisson means are the group means (20, 40),
	// the reduced mean is the pooled 30, and the statistic follows in closed
	// form from the likelihood ratio of those fits.
	e1 := rows["e1"]
	if expected := 120*math.Log(2.0/3.0) + 240*math.Log(4.0/3.0); math.Abs(e1.Statistic.Float64-expected) > 1e-3 {
		t.Errorf("e1 statistic = %v, expected %v", e1.Statistic.Float64, expected)
	}
	if e1.P.Float64 > 1e-4 {
		t.Errorf("e1 p = %v, expected strong evidence against the null", e1.P.Float64)
	}
	if expected := math.Log(2); math.Abs(e1.LogFC.Float64-expected) > 1e-4 {
		t.Errorf("e1 logFC = %v, expected %v", e1.LogFC.Float64, expected)
	}

	// e2 is flat: the extra coefficient buys nothing.
	e2 := rows["e2"]
	if e2.Statistic.Float64 > 1e-5 {
		t.Errorf("e2 statistic = %v, expected ~0", e2.Statistic.Float64)
	}
	if e2.P.Float64 < 0.99 {
		t.Errorf("e2 p = %v, expected ~1", e2.P.Float64)
	}
	if math.Abs(e2.LogFC.Float64) > 1e-4 {
		t.Errorf("e2 logFC = %v, expected ~0", e2.LogFC.Float64)
	}
}

func TestLRTRequiresComparative(t *testing.T) {
	e := quantExperiment(t)

	var cfg *ConfigError
	if _, err := e.TestLRT(); !errors.As(err, &cfg) {
		t.Fatalf("expected *ConfigError before any analysis, got %v", err)
	}

	// A quantification-only analysis has no reduced fits to test against.
	if err := e.AnalyzeQuantification(mustFormula(t, "~ 1"), mustFormula(t, "~ condition"),
		AnalysisOptions{Family: glm.Poisson{}}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.TestLRT(); !errors.As(err, &cfg) {
		t.Fatalf("expected *ConfigError after quantification, got %v", err)
	}
}

func TestLRTFailedRowKeepsStatus(t *testing.T) {
	ids := []string{"e1", "e2"}
	dna := mustMatrix(t, ids, [][]float64{
		{10, 10, 10, 10},
		{0, 0, 0, 0},
	})
	rna := mustMatrix(t, ids, [][]float64{
		{20, 20, 40, 40},
		{5, 5, 5, 5},
	})
	rnaAnn := mustAnnotations(t, []string{"condition"}, [][]string{
		{"ctrl", "ctrl", "stim", "stim"},
	})

	e, err := New(dna, rna, libAnn(t, 4), rnaAnn, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.SetDepthFactors(ones(4), ones(4)); err != nil {
		t.Fatal(err)
	}
	if err := e.AnalyzeComparative(mustFormula(t, "~ 1"), mustFormula(t, "~ condition"), mustFormula(t, "~ 1"),
		AnalysisOptions{Family: glm.Poisson{}}); err != nil {
		t.Fatal(err)
	}

	table, err := e.TestLRT()
	if err != nil {
		t.Fatal(err)
	}

	var failed LRTResult
	for _, row := range table.Rows {
		if row.Enhancer == "e2" {
			failed = row
		}
	}
	if failed.Status != "dna-failed" {
		t.Fatalf("e2 status = %q, expected dna-failed", failed.Status)
	}
	if failed.Statistic.Valid || failed.P.Valid || failed.Q.Valid || failed.LogFC.Valid {
		t.Error("failed row carries statistic cells")
	}
}

func TestLRTMultiLevelComparisonHasNoFoldChange(t *testing.T) {
	ids := []string{"e1"}
	dna := mustMatrix(t, ids, [][]float64{{10, 10, 10, 10, 10, 10}})
	rna := mustMatrix(t, ids, [][]float64{{20, 20, 30, 30, 40, 40}})
	rnaAnn := mustAnnotations(t, []string{"condition"}, [][]string{
		{"a", "a", "b", "b", "c", "c"},
	})

	e, err := New(dna, rna, libAnn(t, 6), rnaAnn, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.SetDepthFactors(ones(6), ones(6)); err != nil {
		t.Fatal(err)
	}
	if err := e.AnalyzeComparative(mustFormula(t, "~ 1"), mustFormula(t, "~ condition"), mustFormula(t, "~ 1"),
		AnalysisOptions{Family: glm.Poisson{}}); err != nil {
		t.Fatal(err)
	}

	table, err := e.TestLRT()
	if err != nil {
		t.Fatal(err)
	}

	// Two extra coefficients: no single term is the fold-change.
	if table.FoldChangeTerm != "" {
		t.Errorf("FoldChangeTerm = %q, expected none", table.FoldChangeTerm)
	}
	row := table.Rows[0]
	if !row.DF.Valid || row.DF.Int64 != 2 {
		t.Errorf("df = %+v, expected 2", row.DF)
	}
	if row.LogFC.Valid {
		t.Error("logFC set for a multi-coefficient comparison")
	}
}

func TestExtraCoefficients(t *testing.T) {
	for _, v := range []struct {
		Name     string
		Full     []string
		Reduced  []string
		Expected []int
	}{
		{
			Name:     "single condition term",
			Full:     []string{glm.InterceptName, "condition=stim"},
			Reduced:  []string{glm.InterceptName},
			Expected: []int{1},
		},
		{
			Name:     "two extra terms",
			Full:     []string{glm.InterceptName, "condition=b", "condition=c"},
			Reduced:  []string{glm.InterceptName},
			Expected: []int{1, 2},
		},
		{
			Name:    "identical designs",
			Full:    []string{glm.InterceptName, "condition=stim"},
			Reduced: []string{glm.InterceptName, "condition=stim"},
		},
	} {
		if got := extraCoefficients(v.Full, v.Reduced); !reflect.DeepEqual(got, v.Expected) {
			t.Errorf("%s: extraCoefficients = %v, expected %v", v.Name, got, v.Expected)
		}
	}
}

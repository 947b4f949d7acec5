package lrt

import (
	"math"
	"testing"
)

type lrtExpectation struct {
	LLFull    float64
	LLReduced float64
	DFFull    int
	DFReduced int

	Stat float64
	DF   int
	P    float64
}

// Truth values calculated with R's pchisq(stat, df, lower.tail=FALSE).
func TestTest(t *testing.T) {
	for _, v := range []lrtExpectation{
		{LLFull: -10, LLReduced: -12, DFFull: 2, DFReduced: 1, Stat: 4, DF: 1, P: 0.04550026389635842},
		{LLFull: -10, LLReduced: -12, DFFull: 3, DFReduced: 1, Stat: 4, DF: 2, P: 0.1353352832366127},
		{LLFull: -100, LLReduced: -103.90736395162559, DFFull: 5, DFReduced: 2, Stat: 7.814727903251179, DF: 3, P: 0.05},
		{LLFull: -10, LLReduced: -10, DFFull: 2, DFReduced: 1, Stat: 0, DF: 1, P: 1},
	} {
		stat, df, p := Test(v.LLFull, v.LLReduced, v.DFFull, v.DFReduced)

		if math.Abs(stat-v.Stat) > 1e-9 {
			t.Errorf("%+v: stat = %v, expected %v", v, stat, v.Stat)
		}
		if df != v.DF {
			t.Errorf("%+v: df = %d, expected %d", v, df, v.DF)
		}
		if math.Abs(p-v.P) > 1e-5 {
			t.Errorf("%+v: p = %.9f, expected %.9f", v, p, v.P)
		}
	}
}

func TestTestFloorsNoise(t *testing.T) {
	// A reduced model can edge out the full model by optimizer noise; the
	// statistic must still be reported as zero with p = 1.
	stat, _, p := Test(-10.0000001, -10, 2, 1)

	if stat != 0 {
		t.Errorf("stat = %v, expected 0", stat)
	}
	if p != 1 {
		t.Errorf("p = %v, expected 1", p)
	}
}

func TestTestNonNested(t *testing.T) {
	_, df, p := Test(-10, -12, 2, 2)

	if df != 0 {
		t.Errorf("df = %d, expected 0", df)
	}
	if !math.IsNaN(p) {
		t.Errorf("p = %v, expected NaN for a zero-df comparison", p)
	}
}

// Package empirical scores per-enhancer statistics against a null
// distribution built from negative-control measurements. Three one-sided
// p-value families are offered: a rank-based empirical p-value, a z-score
// p-value from the control mean and standard deviation, and a MAD-score
// p-value from the control median and median absolute deviation, which
// tolerates outliers among the controls.
package empirical

import (
	"fmt"
	"sort"

	"github.com/carbocation/runningvariance"
	"github.com/grd/histogram"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// madScale rescales a raw median absolute deviation so that it estimates the
// standard deviation when the underlying distribution is normal.
const madScale = 1.4826

// histogramBins is the fixed bin count of the null summary histogram.
const histogramBins = 10

// Bin is one bar of the null summary histogram, counting control values in
// [Lo, Hi).
type Bin struct {
	Lo    float64
	Hi    float64
	Count int
}

// Null is the distribution of a statistic over the negative-control rows. It
// carries both the summary moments the score-based p-values are computed from
// and a binned view of the distribution for downstream diagnostics.
type Null struct {
	N      int
	Mean   float64
	SD     float64
	Median float64
	// MAD is the median absolute deviation scaled by madScale, so it is
	// directly comparable to SD.
	MAD  float64
	Hist []Bin

	sorted []float64
}

// NewNull summarizes the control values into a null distribution. At least
// one control value is required.
func NewNull(controls []float64) (*Null, error) {
	if len(controls) == 0 {
		return nil, fmt.Errorf("no control values to build a null distribution from")
	}

	n := &Null{
		N:      len(controls),
		sorted: append([]float64(nil), controls...),
	}
	sort.Float64s(n.sorted)

	rs := runningvariance.NewRunningStat()
	for _, v := range n.sorted {
		rs.Push(v)
	}
	n.Mean = rs.Mean()
	n.SD = rs.StandardDeviation()

	median, err := stats.Median(n.sorted)
	if err != nil {
		return nil, err
	}
	n.Median = median

	mad, err := stats.MedianAbsoluteDeviation(n.sorted)
	if err != nil {
		return nil, err
	}
	n.MAD = mad * madScale

	n.Hist = binCounts(n.sorted)

	return n, nil
}

// PGreater is the one-sided empirical rank p-value of x: the fraction of
// controls at least as large as x, with a +1 correction in numerator and
// denominator that keeps the result in (0, 1] even beyond the largest
// control.
func (n *Null) PGreater(x float64) float64 {
	atLeast := n.N - sort.SearchFloat64s(n.sorted, x)

	return float64(1+atLeast) / float64(1+n.N)
}

// PZScore is the one-sided p-value of x under a normal approximation of the
// null, centered at the control mean with the control standard deviation.
func (n *Null) PZScore(x float64) float64 {
	return pNormalGreater(x, n.Mean, n.SD)
}

// PMADScore is the robust analogue of PZScore: the null is centered at the
// control median with the scaled median absolute deviation, so a handful of
// extreme controls cannot inflate the spread.
func (n *Null) PMADScore(x float64) float64 {
	return pNormalGreater(x, n.Median, n.MAD)
}

// pNormalGreater is the upper-tail probability of x under Normal(center,
// scale). A degenerate null with zero scale keeps the limiting behavior:
// everything above the center is maximally surprising, everything below it
// not at all.
func pNormalGreater(x, center, scale float64) float64 {
	if scale <= 0 {
		switch {
		case x > center:
			return 0
		case x < center:
			return 1
		}

		return 0.5
	}

	return distuv.UnitNormal.Survival((x - center) / scale)
}

// binCounts summarizes sorted values into equal-width bins. Values with no
// spread yield no histogram.
func binCounts(sorted []float64) []Bin {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if hi <= lo {
		return nil
	}

	// The top edge is padded so the largest value lands inside the final bin
	// rather than on its open boundary.
	width := (hi - lo) * (1 + 1e-9) / histogramBins

	hg, err := histogram.NewHistogram(histogram.Range(lo, histogramBins, width))
	if err != nil {
		return nil
	}
	for _, v := range sorted {
		hg.Add(v)
	}

	out := make([]Bin, histogramBins)
	for i := range out {
		out[i] = Bin{
			Lo:    lo + float64(i)*width,
			Hi:    lo + float64(i+1)*width,
			Count: hg.Get(i),
		}
	}

	return out
}

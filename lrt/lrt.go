// Package lrt computes likelihood-ratio tests between nested models.
package lrt

import (
	"math"

	"github.com/tokenme/probab/dst"
)

// Test compares a full model against a reduced model nested within it, given
// the maximized log-likelihood and the free-parameter count of each. The
// statistic is twice the log-likelihood difference, floored at zero because
// the full model fits at least as well by construction and anything below
// zero is optimizer noise. Under the null hypothesis the statistic is
// chi-squared distributed with df = dfFull - dfReduced degrees of freedom.
//
// Test assumes the models are nested; called with dfFull <= dfReduced it
// returns the nonpositive df and a NaN p-value.
func Test(llFull, llReduced float64, dfFull, dfReduced int) (stat float64, df int, p float64) {
	defer func() { recover() }()

	stat = 2.0 * (llFull - llReduced)
	if stat < 0 {
		stat = 0
	}

	df = dfFull - dfReduced
	p = math.NaN()
	if df < 1 {
		return
	}

	p = 1.0 - dst.ChiSquareCDF(int64(df))(stat)
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}

	return
}

package glm

import "math"

// Numerical guard rails shared by the families and the fitter.
const (
	minMean       = 1e-10
	maxMean       = 1e12
	MinDispersion = 1e-8
	MaxDispersion = 1e4
)

// Family is the count-distribution strategy a fit runs under. The exact
// distributional family of MPRA counts is an open modeling question, so the
// fitter is written against this interface rather than one hardcoded
// distribution.
type Family interface {
	Name() string

	// LogLikelihood evaluates the log-likelihood of the observed counts y
	// under fitted means mu and dispersion disp. Means are clamped away from
	// zero internally so zero counts never produce a NaN.
	LogLikelihood(y, mu []float64, disp float64) float64

	// Variance returns the distribution's variance at mean mu.
	Variance(mu, disp float64) float64

	// HasDispersion reports whether disp is a free parameter that the fitter
	// should profile out.
	HasDispersion() bool
}

// NegativeBinomial is the default family: a gamma-Poisson mixture with
// variance mu*(1+disp*mu). Sequencing counts are overdispersed relative to
// the Poisson, and modeling that overdispersion per enhancer avoids the bias
// a ratio-of-counts estimator would carry. As disp approaches zero the
// family recovers the Poisson.
type NegativeBinomial struct{}

func (NegativeBinomial) Name() string { return "negative-binomial" }

func (NegativeBinomial) HasDispersion() bool { return true }

func (NegativeBinomial) Variance(mu, disp float64) float64 {
	return mu * (1 + disp*mu)
}

func (NegativeBinomial) LogLikelihood(y, mu []float64, disp float64) float64 {
	if disp < MinDispersion {
		disp = MinDispersion
	}
	size := 1.0 / disp

	lgSize, _ := math.Lgamma(size)

	ll := 0.0
	for i, yi := range y {
		m := mu[i]
		if m < minMean {
			m = minMean
		}

		lgY, _ := math.Lgamma(yi + 1)
		lgYSize, _ := math.Lgamma(yi + size)

		ll += lgYSize - lgSize - lgY +
			size*math.Log(size/(size+m)) +
			yi*math.Log(m/(size+m))
	}

	return ll
}

// Poisson has no free dispersion; the variance equals the mean. It is useful
// as a baseline and for data known not to be overdispersed.
type Poisson struct{}

func (Poisson) Name() string { return "poisson" }

func (Poisson) HasDispersion() bool { return false }

func (Poisson) Variance(mu, _ float64) float64 { return mu }

func (Poisson) LogLikelihood(y, mu []float64, _ float64) float64 {
	ll := 0.0
	for i, yi := range y {
		m := mu[i]
		if m < minMean {
			m = minMean
		}

		lgY, _ := math.Lgamma(yi + 1)

		ll += yi*math.Log(m) - m - lgY
	}

	return ll
}

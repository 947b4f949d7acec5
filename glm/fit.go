package glm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultMaxIter = 50
	DefaultTol     = 1e-8

	maxProfileRounds  = 8
	profileIterations = 40
	dispersionTol     = 1e-4

	minVariance = 1e-10
	minWeight   = 1e-12
)

// FitOptions tunes the optimizer. The zero value uses the defaults.
type FitOptions struct {
	// MaxIter caps IRLS iterations per dispersion round; 0 means
	// DefaultMaxIter.
	MaxIter int
	// Tol is the relative deviance change below which IRLS declares
	// convergence; 0 means DefaultTol.
	Tol float64
}

// Fit is one fitted (or failed) model for a single row of counts. A fit that
// could not be computed reports Converged false with a Message; the fitter
// never panics, because one degenerate row must not take down a batch.
type Fit struct {
	Coef       []float64
	CoefNames  []string
	Mu         []float64 // fitted means, offset included
	Dispersion float64
	LogLik     float64
	Deviance   float64
	Iterations int
	Converged  bool
	Message    string
}

// Fit estimates the model coefficients for observed counts y under a log
// link. offset is added to the linear predictor on the link scale (a log
// depth factor, typically); nil means no offset. A nil family selects the
// negative binomial. When the family carries a dispersion parameter it is
// profiled out: IRLS for the means alternates with a one-dimensional
// likelihood maximization in the dispersion until both stabilize.
func (d *Design) Fit(y, offset []float64, fam Family, opts FitOptions) *Fit {
	out := &Fit{CoefNames: d.CoefNames()}

	n, p := d.NObs(), d.NCoef()
	switch {
	case len(y) != n:
		out.Message = fmt.Sprintf("response has %d observations but the design has %d", len(y), n)
		return out
	case offset != nil && len(offset) != n:
		out.Message = fmt.Sprintf("offset has %d values but the design has %d observations", len(offset), n)
		return out
	case p > n:
		out.Message = fmt.Sprintf("design has more coefficients (%d) than observations (%d)", p, n)
		return out
	}

	if offset == nil {
		offset = make([]float64, n)
	}
	if fam == nil {
		fam = NegativeBinomial{}
	}

	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	tol := opts.Tol
	if tol <= 0 {
		tol = DefaultTol
	}

	disp := 0.0
	if fam.HasDispersion() {
		disp = momentDispersion(y)
	}

	st, err := irls(y, d, offset, fam, disp, nil, maxIter, tol)
	if err != nil {
		out.Message = err.Error()
		return out
	}
	out.Iterations = st.iterations

	if fam.HasDispersion() {
		for round := 0; round < maxProfileRounds; round++ {
			next := profileDispersion(y, st.mu, fam)

			refit, err := irls(y, d, offset, fam, next, st.coef, maxIter, tol)
			if err != nil {
				out.Message = err.Error()
				return out
			}
			out.Iterations += refit.iterations

			settled := relDiff(next, disp) < dispersionTol
			disp = next
			st = refit
			if settled {
				break
			}
		}
	}

	out.Coef = st.coef
	out.Mu = st.mu
	out.Dispersion = disp
	out.LogLik = fam.LogLikelihood(y, st.mu, disp)
	out.Deviance = deviance(y, st.mu, fam, disp)
	out.Converged = st.converged
	if !st.converged {
		out.Message = fmt.Sprintf("IRLS did not converge within %d iterations", maxIter)
	}

	return out
}

type irlsState struct {
	coef       []float64
	mu         []float64
	eta        []float64
	deviance   float64
	iterations int
	converged  bool
}

// irls runs iteratively reweighted least squares for a log-link model at a
// fixed dispersion, solving each weighted system by QR. init warm-starts the
// coefficients when non-nil. A singular or ill-conditioned system surfaces
// as an error, not a panic.
func irls(y []float64, d *Design, offset []float64, fam Family, disp float64, init []float64, maxIter int, tol float64) (irlsState, error) {
	n, p := d.NObs(), d.NCoef()
	x := d.X()

	st := irlsState{
		coef: make([]float64, p),
		mu:   make([]float64, n),
		eta:  make([]float64, n),
	}

	xrow := make([]float64, p)
	if init != nil {
		copy(st.coef, init)
		for i := 0; i < n; i++ {
			mat.Row(xrow, i, x)
			st.eta[i] = floats.Dot(xrow, st.coef) + offset[i]
			st.mu[i] = clampMean(math.Exp(st.eta[i]))
		}
	} else {
		// Standard GLM starting point: nudge the observations off zero and
		// use them as the initial means.
		for i, yi := range y {
			st.mu[i] = yi + 0.5
			st.eta[i] = math.Log(st.mu[i])
		}
	}

	xw := mat.NewDense(n, p, nil)
	zw := mat.NewVecDense(n, nil)
	beta := mat.NewVecDense(p, nil)
	var qr mat.QR

	st.deviance = deviance(y, st.mu, fam, disp)

	for st.iterations = 1; st.iterations <= maxIter; st.iterations++ {
		// Working weights and response for the log link: w = mu^2/Var(mu),
		// z = eta - offset + (y-mu)/mu.
		for i := 0; i < n; i++ {
			v := fam.Variance(st.mu[i], disp)
			if v < minVariance {
				v = minVariance
			}
			w := st.mu[i] * st.mu[i] / v
			if w < minWeight {
				w = minWeight
			}
			sw := math.Sqrt(w)

			z := st.eta[i] - offset[i] + (y[i]-st.mu[i])/st.mu[i]
			zw.SetVec(i, sw*z)
			for j := 0; j < p; j++ {
				xw.Set(i, j, sw*x.At(i, j))
			}
		}

		qr.Factorize(xw)
		if err := qr.SolveVecTo(beta, false, zw); err != nil {
			return st, fmt.Errorf("weighted least-squares solve: %v", err)
		}

		for j := 0; j < p; j++ {
			st.coef[j] = beta.AtVec(j)
		}
		for i := 0; i < n; i++ {
			mat.Row(xrow, i, x)
			st.eta[i] = floats.Dot(xrow, st.coef) + offset[i]
			st.mu[i] = clampMean(math.Exp(st.eta[i]))
		}

		dev := deviance(y, st.mu, fam, disp)
		if math.Abs(dev-st.deviance)/(math.Abs(dev)+0.1) < tol {
			st.deviance = dev
			st.converged = true
			break
		}
		st.deviance = dev
	}
	if st.iterations > maxIter {
		st.iterations = maxIter
	}

	return st, nil
}

// profileDispersion maximizes the likelihood over the dispersion alone,
// holding the fitted means fixed. The search runs on the log scale, where
// the profile likelihood is smooth and effectively unimodal, by golden
// section over the full allowed dispersion range.
func profileDispersion(y, mu []float64, fam Family) float64 {
	logDisp := goldenMax(func(ld float64) float64 {
		return fam.LogLikelihood(y, mu, math.Exp(ld))
	}, math.Log(MinDispersion), math.Log(MaxDispersion), profileIterations)

	return math.Exp(logDisp)
}

// goldenMax locates the maximum of f on [lo, hi] by golden-section search.
func goldenMax(f func(float64) float64, lo, hi float64, iterations int) float64 {
	const ratio = 0.6180339887498949

	a, b := lo, hi
	c := b - ratio*(b-a)
	d := a + ratio*(b-a)
	fc, fd := f(c), f(d)

	for i := 0; i < iterations; i++ {
		if fc > fd {
			b = d
			d, fd = c, fc
			c = b - ratio*(b-a)
			fc = f(c)
		} else {
			a = c
			c, fc = d, fd
			d = a + ratio*(b-a)
			fd = f(d)
		}
	}

	return (a + b) / 2
}

// momentDispersion is the method-of-moments starting value for the profile
// search: (s^2 - m)/m^2, clamped into the searchable range.
func momentDispersion(y []float64) float64 {
	m, v := stat.MeanVariance(y, nil)
	if m <= 0 {
		return MinDispersion
	}

	d := (v - m) / (m * m)
	if math.IsNaN(d) || d < MinDispersion {
		return MinDispersion
	}
	if d > MaxDispersion {
		return MaxDispersion
	}

	return d
}

// deviance is twice the log-likelihood gap to the saturated model, floored
// at zero against numerical noise.
func deviance(y, mu []float64, fam Family, disp float64) float64 {
	dev := 2 * (fam.LogLikelihood(y, y, disp) - fam.LogLikelihood(y, mu, disp))
	if dev < 0 {
		return 0
	}

	return dev
}

func clampMean(m float64) float64 {
	if m < minMean {
		return minMean
	}
	if m > maxMean {
		return maxMean
	}

	return m
}

func relDiff(a, b float64) float64 {
	return math.Abs(a-b) / (math.Abs(b) + MinDispersion)
}

package mpranalyze

import (
	"errors"
	"fmt"
	"log"
	"math"
	"runtime"
	"sync"

	"github.com/mpralab/mpranalyze/formula"
	"github.com/mpralab/mpranalyze/glm"
)

// RowStatus classifies the outcome of one enhancer's nested fit.
type RowStatus int

const (
	// StatusOK marks a row whose every fitted stage converged.
	StatusOK RowStatus = iota
	// StatusDNAFailed marks a row whose copy-number stage failed; no later
	// stage was attempted.
	StatusDNAFailed
	// StatusRNAFailed marks a row whose transcription-rate stage failed.
	StatusRNAFailed
	// StatusReducedFailed marks a row whose reduced null fit failed in a
	// comparative analysis.
	StatusReducedFailed
)

func (s RowStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDNAFailed:
		return "dna-failed"
	case StatusRNAFailed:
		return "rna-failed"
	case StatusReducedFailed:
		return "reduced-failed"
	}

	return fmt.Sprintf("RowStatus(%d)", int(s))
}

// RowFit is the nested model fit of a single enhancer: DNA is the copy-number
// stage, RNA the transcription-rate stage, and Reduced the null model of a
// comparative analysis. A failed stage is recorded in Status and Reason and
// leaves the later stages nil; it never aborts the rest of the batch.
type RowFit struct {
	Enhancer string
	Status   RowStatus
	Reason   string

	DNA     *glm.Fit
	RNA     *glm.Fit
	Reduced *glm.Fit
}

// OK reports whether every fitted stage of this row converged.
func (r *RowFit) OK() bool { return r.Status == StatusOK }

// AnalysisOptions tunes the per-enhancer fitting pass. The zero value fits
// the negative binomial family with one worker per CPU.
type AnalysisOptions struct {
	// Workers caps the number of concurrent row fits; 0 means
	// runtime.NumCPU().
	Workers int
	// Family is the count distribution; nil means glm.NegativeBinomial.
	Family glm.Family
	// MaxIter and Tol pass through to glm.FitOptions.
	MaxIter int
	Tol     float64
}

// analysis is the fitting state an Experiment carries between the model
// fitting call and the downstream testers.
type analysis struct {
	comparative bool

	dnaDesign *glm.Design
	rnaDesign *glm.Design
	reduced   *glm.Design

	rows []RowFit
}

// AnalyzeQuantification fits the nested copy-number/transcription-rate model
// for every enhancer. The DNA design predicts DNA counts with the log DNA
// depth factor as offset; each enhancer's fitted copy number then enters its
// RNA fit as an additional offset alongside the log RNA depth factor, so the
// RNA coefficients estimate transcripts per plasmid copy. The two designs
// name their factors independently: a factor in the DNA design is not
// implicitly available to the RNA design, because only factors with
// comparable meaning across the two assays' replicate structures belong in
// both.
//
// Depth factors must be estimated or set first. Per-enhancer fits are
// independent; a row whose fit fails is recorded with a status and reason and
// excluded from downstream aggregates, never aborting its siblings.
func (e *Experiment) AnalyzeQuantification(dnaDesign, rnaDesign *formula.Formula, opts AnalysisOptions) error {
	return e.analyze(dnaDesign, rnaDesign, nil, opts)
}

// AnalyzeComparative runs the same nested fit as AnalyzeQuantification plus a
// reduced RNA model per enhancer, sharing the DNA stage and offsets, to serve
// as the null hypothesis of a likelihood-ratio test. The reduced design must
// be strictly nested in the RNA design; "~ 1" tests against an
// intercept-only null.
func (e *Experiment) AnalyzeComparative(dnaDesign, rnaDesign, reducedDesign *formula.Formula, opts AnalysisOptions) error {
	if reducedDesign == nil {
		return &ConfigError{Detail: "comparative analysis requires a reduced design; use \"~ 1\" for an intercept-only null"}
	}

	return e.analyze(dnaDesign, rnaDesign, reducedDesign, opts)
}

func (e *Experiment) analyze(dnaF, rnaF, reducedF *formula.Formula, opts AnalysisOptions) error {
	if dnaF == nil || rnaF == nil {
		return &ConfigError{Detail: "both a DNA and an RNA design are required"}
	}
	if e.dnaDepth == nil || e.rnaDepth == nil {
		return &ConfigError{Detail: "depth factors must be estimated or set before model fitting"}
	}

	dnaDesign, err := e.designFor(dnaF, e.dnaAnn)
	if err != nil {
		return err
	}
	rnaDesign, err := e.designFor(rnaF, e.rnaAnn)
	if err != nil {
		return err
	}

	an := &analysis{
		dnaDesign: dnaDesign,
		rnaDesign: rnaDesign,
		rows:      make([]RowFit, e.NEnhancers()),
	}
	if reducedF != nil {
		an.comparative = true
		if an.reduced, err = e.designFor(reducedF, e.rnaAnn); err != nil {
			return err
		}
		if an.reduced.NCoef() >= rnaDesign.NCoef() {
			return &ConfigError{Detail: fmt.Sprintf("reduced design has %d coefficients, full RNA design has %d; the reduced model must be strictly nested", an.reduced.NCoef(), rnaDesign.NCoef())}
		}
	}

	// Offsets on the link scale, shared read-only by every worker.
	logDNADepth := logSlice(e.dnaDepth)
	logRNADepth := logSlice(e.rnaDepth)

	fam := opts.Family
	if fam == nil {
		fam = glm.NegativeBinomial{}
	}
	fitOpts := glm.FitOptions{MaxIter: opts.MaxIter, Tol: opts.Tol}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Every row fit writes only its own pre-allocated slot, so the workers
	// share nothing mutable; the WaitGroup is the single barrier before any
	// downstream aggregation.
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := 0; i < e.NEnhancers(); i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int) {
			defer wg.Done()
			an.rows[i] = e.fitRow(i, an, logDNADepth, logRNADepth, fam, fitOpts)
			<-sem
		}(i)
	}
	wg.Wait()

	failed := 0
	for i := range an.rows {
		if !an.rows[i].OK() {
			failed++
		}
	}
	if failed > 0 {
		log.Printf("fit %d enhancers with the %s family; %d did not converge and are excluded from aggregate statistics", len(an.rows), fam.Name(), failed)
	}

	e.analysis = an

	return nil
}

// fitRow runs the two-stage nested fit for row i. Depth is a sequencing
// artifact rather than biology, so the copy number carried into the RNA stage
// is the DNA fit's depth-free linear predictor.
func (e *Experiment) fitRow(i int, an *analysis, logDNADepth, logRNADepth []float64, fam glm.Family, fitOpts glm.FitOptions) RowFit {
	row := RowFit{Enhancer: e.dna.IDs()[i], Status: StatusOK}

	yDNA := e.dna.Row(i)
	if allZero(yDNA) {
		row.Status = StatusDNAFailed
		row.Reason = "no DNA counts; copy number is not estimable"

		return row
	}

	row.DNA = an.dnaDesign.Fit(yDNA, logDNADepth, fam, fitOpts)
	if !row.DNA.Converged {
		row.Status = StatusDNAFailed
		row.Reason = row.DNA.Message

		return row
	}

	logCopy, err := an.dnaDesign.LinearPredictor(row.DNA.Coef)
	if err != nil {
		row.Status = StatusDNAFailed
		row.Reason = err.Error()

		return row
	}

	rnaOffset := make([]float64, len(logCopy))
	for j := range rnaOffset {
		rnaOffset[j] = logRNADepth[j] + logCopy[j]
	}

	yRNA := e.rna.Row(i)
	row.RNA = an.rnaDesign.Fit(yRNA, rnaOffset, fam, fitOpts)
	if !row.RNA.Converged {
		row.Status = StatusRNAFailed
		row.Reason = row.RNA.Message

		return row
	}

	if an.comparative {
		row.Reduced = an.reduced.Fit(yRNA, rnaOffset, fam, fitOpts)
		if !row.Reduced.Converged {
			row.Status = StatusReducedFailed
			row.Reason = row.Reduced.Message
		}
	}

	return row
}

// designFor resolves a formula against an annotation table and builds its
// model matrix, failing fast on factor names the table does not carry.
func (e *Experiment) designFor(f *formula.Formula, ann *Annotations) (*glm.Design, error) {
	if err := f.Resolve(ann.Factors()); err != nil {
		var unknown *formula.UnknownTermError
		if errors.As(err, &unknown) {
			return nil, &ConfigError{Field: unknown.Term, Detail: "design formula names a factor absent from the annotations"}
		}

		return nil, err
	}

	factors := make([]glm.Factor, 0, len(f.Terms()))
	for _, term := range f.Terms() {
		vals, err := ann.Values(term)
		if err != nil {
			return nil, err
		}
		factors = append(factors, glm.Factor{Name: term, Values: vals})
	}

	d, err := glm.NewDesign(ann.Len(), factors...)
	if err != nil {
		return nil, &ConfigError{Detail: err.Error()}
	}

	return d, nil
}

// Fits returns the per-enhancer nested fits in row order, or nil before an
// analysis has run. The returned slice is shared; callers must not modify it.
func (e *Experiment) Fits() []RowFit {
	if e.analysis == nil {
		return nil
	}

	return e.analysis.rows
}

// FitFor returns the named enhancer's nested fit, or false if no analysis
// has run or the enhancer was not retained.
func (e *Experiment) FitFor(id string) (*RowFit, bool) {
	if e.analysis == nil {
		return nil, false
	}

	i, ok := e.dna.index[id]
	if !ok {
		return nil, false
	}

	return &e.analysis.rows[i], true
}

func logSlice(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Log(x)
	}

	return out
}

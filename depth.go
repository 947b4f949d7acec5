package mpranalyze

import (
	"fmt"
	"math"
	"sort"

	"github.com/carbocation/pfx"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Target selects which assay an operation applies to.
type Target int

const (
	DNA Target = iota
	RNA
	Both
)

func (t Target) String() string {
	switch t {
	case DNA:
		return "dna"
	case RNA:
		return "rna"
	case Both:
		return "both"
	}

	return fmt.Sprintf("Target(%d)", int(t))
}

// ParseTarget maps a flag-style name onto a Target.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "dna":
		return DNA, nil
	case "rna":
		return RNA, nil
	case "both":
		return Both, nil
	}

	return 0, &ConfigError{Field: s, Detail: "unknown depth target; expected dna, rna, or both"}
}

// Method selects how a library group's depth factor is computed.
type Method int

const (
	// UpperQuartile uses the 75th percentile of the group's nonzero counts.
	UpperQuartile Method = iota
	// TotalSum uses the group's total count mass.
	TotalSum
	// SizeFactor uses the median of ratios between the group's pooled count
	// profile and a geometric-mean pseudo-reference across groups.
	SizeFactor
)

func (m Method) String() string {
	switch m {
	case UpperQuartile:
		return "upper-quartile"
	case TotalSum:
		return "total-sum"
	case SizeFactor:
		return "size-factor"
	}

	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod maps a flag-style name onto a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "upper-quartile":
		return UpperQuartile, nil
	case "total-sum":
		return TotalSum, nil
	case "size-factor":
		return SizeFactor, nil
	}

	return 0, &ConfigError{Field: s, Detail: "unknown depth method; expected upper-quartile, total-sum, or size-factor"}
}

// EstimateDepthFactors computes per-column depth factors for the selected
// assay. Columns sharing a distinct combination of the named library factors
// form one sequencing library and receive a single factor. Group factors are
// normalized by their geometric mean, so libraries of equal depth come out at
// exactly 1. Re-estimating a target overwrites its previous factors.
//
// With the Both target, the grouping factors must partition the DNA and RNA
// columns identically; the estimate then runs on the row-stacked counts of
// both assays and the single factor set applies to each.
func (e *Experiment) EstimateDepthFactors(libFactors []string, target Target, method Method) error {
	switch target {
	case DNA:
		factors, err := estimateDepth([]*CountMatrix{e.dna}, e.dnaAnn, libFactors, method)
		if err != nil {
			return err
		}
		e.dnaDepth = factors

		return nil

	case RNA:
		factors, err := estimateDepth([]*CountMatrix{e.rna}, e.rnaAnn, libFactors, method)
		if err != nil {
			return err
		}
		e.rnaDepth = factors

		return nil

	case Both:
		dnaAssign, dnaLabels, err := e.dnaAnn.GroupKeys(libFactors)
		if err != nil {
			return err
		}
		rnaAssign, rnaLabels, err := e.rnaAnn.GroupKeys(libFactors)
		if err != nil {
			return err
		}
		for j := range dnaAssign {
			if dnaLabels[dnaAssign[j]] != rnaLabels[rnaAssign[j]] {
				return &ConfigError{Detail: fmt.Sprintf("library grouping differs between DNA (%s) and RNA (%s) at column %d; shared estimation needs identical groups", dnaLabels[dnaAssign[j]], rnaLabels[rnaAssign[j]], j)}
			}
		}

		factors, err := estimateDepth([]*CountMatrix{e.dna, e.rna}, e.dnaAnn, libFactors, method)
		if err != nil {
			return err
		}
		e.dnaDepth = factors
		e.rnaDepth = append([]float64(nil), factors...)

		return nil
	}

	return &ConfigError{Detail: fmt.Sprintf("unknown depth target %d", int(target))}
}

// estimateDepth computes per-column factors over the row-stacked counts of
// one or more matrices that share the annotated column structure.
func estimateDepth(mats []*CountMatrix, ann *Annotations, libFactors []string, method Method) ([]float64, error) {
	assignment, labels, err := ann.GroupKeys(libFactors)
	if err != nil {
		return nil, err
	}

	var raw []float64
	switch method {
	case TotalSum:
		raw, err = depthTotalSum(mats, assignment, labels)
	case UpperQuartile:
		raw, err = depthUpperQuartile(mats, assignment, labels)
	case SizeFactor:
		raw, err = depthSizeFactor(mats, assignment, labels)
	default:
		return nil, &ConfigError{Detail: fmt.Sprintf("unknown depth method %d", int(method))}
	}
	if err != nil {
		return nil, err
	}

	normalizeByGeometricMean(raw)

	factors := make([]float64, len(assignment))
	for j, g := range assignment {
		factors[j] = raw[g]
	}

	return factors, nil
}

// groupValues flattens every count belonging to each column group across the
// stacked matrices.
func groupValues(mats []*CountMatrix, assignment []int, nGroups int) [][]float64 {
	out := make([][]float64, nGroups)

	for _, m := range mats {
		for i := 0; i < m.NRows(); i++ {
			for j, v := range m.Row(i) {
				out[assignment[j]] = append(out[assignment[j]], v)
			}
		}
	}

	return out
}

func depthTotalSum(mats []*CountMatrix, assignment []int, labels []string) ([]float64, error) {
	raw := make([]float64, len(labels))
	for g, vals := range groupValues(mats, assignment, len(labels)) {
		raw[g] = floats.Sum(vals)
		if raw[g] <= 0 {
			return nil, &DegenerateLibraryError{Group: labels[g]}
		}
	}

	return raw, nil
}

func depthUpperQuartile(mats []*CountMatrix, assignment []int, labels []string) ([]float64, error) {
	raw := make([]float64, len(labels))
	for g, vals := range groupValues(mats, assignment, len(labels)) {
		nonzero := vals[:0]
		for _, v := range vals {
			if v > 0 {
				nonzero = append(nonzero, v)
			}
		}
		if len(nonzero) == 0 {
			return nil, &DegenerateLibraryError{Group: labels[g]}
		}

		sort.Float64s(nonzero)
		raw[g] = stat.Quantile(0.75, stat.LinInterp, nonzero, nil)
	}

	return raw, nil
}

// depthSizeFactor is the DESeq-style median-of-ratios estimator. Each group's
// columns are pooled into one count profile; the pseudo-reference is the
// per-row geometric mean of the pooled profiles, using only rows that are
// nonzero in every group; the group's raw factor is the median ratio of its
// profile to the reference.
func depthSizeFactor(mats []*CountMatrix, assignment []int, labels []string) ([]float64, error) {
	nGroups := len(labels)

	nRows := 0
	for _, m := range mats {
		nRows += m.NRows()
	}

	pooled := make([][]float64, nGroups)
	for g := range pooled {
		pooled[g] = make([]float64, nRows)
	}
	rowBase := 0
	for _, m := range mats {
		for i := 0; i < m.NRows(); i++ {
			for j, v := range m.Row(i) {
				pooled[assignment[j]][rowBase+i] += v
			}
		}
		rowBase += m.NRows()
	}

	for g := range pooled {
		if floats.Sum(pooled[g]) <= 0 {
			return nil, &DegenerateLibraryError{Group: labels[g]}
		}
	}

	// Ratios to the geometric-mean reference, per group, over usable rows.
	ratios := make([][]float64, nGroups)
	for row := 0; row < nRows; row++ {
		logRef := 0.0
		usable := true
		for g := 0; g < nGroups; g++ {
			if pooled[g][row] <= 0 {
				usable = false
				break
			}
			logRef += math.Log(pooled[g][row])
		}
		if !usable {
			continue
		}
		logRef /= float64(nGroups)

		for g := 0; g < nGroups; g++ {
			ratios[g] = append(ratios[g], math.Exp(math.Log(pooled[g][row])-logRef))
		}
	}

	raw := make([]float64, nGroups)
	for g := range ratios {
		if len(ratios[g]) == 0 {
			return nil, &ConfigError{Detail: "size-factor estimation needs at least one enhancer with nonzero pooled counts in every library group"}
		}

		median, err := stats.Median(ratios[g])
		if err != nil {
			return nil, pfx.Err(err)
		}
		if median <= 0 {
			return nil, &DegenerateLibraryError{Group: labels[g]}
		}
		raw[g] = median
	}

	return raw, nil
}

// normalizeByGeometricMean rescales the raw group factors in place so their
// geometric mean is 1.
func normalizeByGeometricMean(raw []float64) {
	logSum := 0.0
	for _, v := range raw {
		logSum += math.Log(v)
	}
	gm := math.Exp(logSum / float64(len(raw)))

	for i := range raw {
		raw[i] /= gm
	}
}

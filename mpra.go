// Package mpranalyze infers enhancer activity from massively parallel
// reporter assay (MPRA) count data. An Experiment pairs a DNA (plasmid) count
// matrix with an RNA (transcript) count matrix over the same sequencing
// columns; depth factors normalize library size, nested per-enhancer GLMs
// separate plasmid copy number from transcription rate, and the resulting
// rate estimates are scored either against a negative-control null
// distribution (quantification) or between full and reduced models by
// likelihood-ratio test (comparative).
package mpranalyze

import (
	"fmt"
	"log"
)

// Experiment is the assembled input of an MPRA analysis: aligned DNA and RNA
// count matrices, their column annotations, and the negative-control set.
// Depth factors and fitted models attach to it as the analysis progresses;
// result tables derived from it are immutable.
type Experiment struct {
	dna *CountMatrix
	rna *CountMatrix

	dnaAnn *Annotations
	rnaAnn *Annotations

	controls   []string
	controlSet map[string]bool

	dnaDepth []float64
	rnaDepth []float64

	droppedZero int

	analysis *analysis
}

// New validates and assembles an experiment. The annotation tables must each
// describe exactly the columns of their matrix, and the two matrices must
// have the same number of columns. The enhancer set is the intersection of
// the two matrices' row identifiers, in DNA row order; enhancers missing from
// one assay cannot enter the nested fit and are excluded with a warning.
// Enhancers whose counts are zero in every column of both assays carry no
// information and are dropped, also with a warning rather than an error.
// Controls must name rows present in at least one input matrix.
func New(dna, rna *CountMatrix, dnaAnn, rnaAnn *Annotations, controls []string) (*Experiment, error) {
	if dna == nil || rna == nil || dnaAnn == nil || rnaAnn == nil {
		return nil, &ConfigError{Detail: "both count matrices and both annotation tables are required"}
	}
	if dnaAnn.Len() != dna.NCols() {
		return nil, &ConfigError{Detail: fmt.Sprintf("DNA annotations describe %d observations but the DNA matrix has %d columns", dnaAnn.Len(), dna.NCols())}
	}
	if rnaAnn.Len() != rna.NCols() {
		return nil, &ConfigError{Detail: fmt.Sprintf("RNA annotations describe %d observations but the RNA matrix has %d columns", rnaAnn.Len(), rna.NCols())}
	}
	if dna.NCols() != rna.NCols() {
		return nil, &ConfigError{Detail: fmt.Sprintf("DNA matrix has %d columns but RNA matrix has %d; observations must align positionally", dna.NCols(), rna.NCols())}
	}

	for _, id := range controls {
		if !dna.Has(id) && !rna.Has(id) {
			return nil, &ConfigError{Field: id, Detail: "control enhancer is not a row of either count matrix"}
		}
	}

	e := &Experiment{
		dnaAnn: dnaAnn,
		rnaAnn: rnaAnn,
	}

	var (
		ids     []string
		dnaRows [][]float64
		rnaRows [][]float64
		missing int
	)
	for i, id := range dna.IDs() {
		rnaRow, ok := rna.RowByID(id)
		if !ok {
			missing++
			continue
		}

		dnaRow := dna.Row(i)
		if allZero(dnaRow) && allZero(rnaRow) {
			e.droppedZero++
			continue
		}

		ids = append(ids, id)
		dnaRows = append(dnaRows, dnaRow)
		rnaRows = append(rnaRows, rnaRow)
	}

	if missing > 0 {
		log.Printf("excluded %d enhancers absent from the RNA matrix; the nested DNA/RNA fit requires both assays", missing)
	}
	if e.droppedZero > 0 {
		log.Printf("dropped %d enhancers with all-zero counts in both assays", e.droppedZero)
	}
	if len(ids) == 0 {
		return nil, &ConfigError{Detail: "no enhancer is present in both matrices with nonzero counts"}
	}

	var err error
	if e.dna, err = NewCountMatrix(ids, dnaRows); err != nil {
		return nil, err
	}
	if e.rna, err = NewCountMatrix(ids, rnaRows); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(controls))
	for _, id := range controls {
		if !e.dna.Has(id) || seen[id] {
			continue
		}
		seen[id] = true
		e.controls = append(e.controls, id)
	}
	e.controlSet = seen

	return e, nil
}

// NEnhancers reports the number of enhancers retained after filtering.
func (e *Experiment) NEnhancers() int { return e.dna.NRows() }

// Enhancers returns the retained enhancer identifiers in row order. The
// returned slice is shared; callers must not modify it.
func (e *Experiment) Enhancers() []string { return e.dna.IDs() }

// DNA returns the aligned DNA count matrix.
func (e *Experiment) DNA() *CountMatrix { return e.dna }

// RNA returns the aligned RNA count matrix.
func (e *Experiment) RNA() *CountMatrix { return e.rna }

// DNAAnnotations returns the DNA column annotations.
func (e *Experiment) DNAAnnotations() *Annotations { return e.dnaAnn }

// RNAAnnotations returns the RNA column annotations.
func (e *Experiment) RNAAnnotations() *Annotations { return e.rnaAnn }

// Controls returns the negative-control enhancers retained in the experiment.
func (e *Experiment) Controls() []string { return e.controls }

// IsControl reports whether the named enhancer is a negative control.
func (e *Experiment) IsControl(id string) bool { return e.controlSet[id] }

// DroppedZeroRows reports how many enhancers were removed at construction
// because they had no counts in either assay.
func (e *Experiment) DroppedZeroRows() int { return e.droppedZero }

// DNADepthFactors returns the per-column DNA depth factors, or nil before
// they have been estimated or set.
func (e *Experiment) DNADepthFactors() []float64 { return e.dnaDepth }

// RNADepthFactors returns the per-column RNA depth factors, or nil before
// they have been estimated or set.
func (e *Experiment) RNADepthFactors() []float64 { return e.rnaDepth }

// SetDepthFactors installs externally computed depth factors instead of
// estimating them. A nil slice leaves that assay's factors untouched. Factors
// must match the column count of their assay and be strictly positive.
func (e *Experiment) SetDepthFactors(dna, rna []float64) error {
	if dna != nil {
		if err := validDepth(dna, e.dna.NCols(), "DNA"); err != nil {
			return err
		}
	}
	if rna != nil {
		if err := validDepth(rna, e.rna.NCols(), "RNA"); err != nil {
			return err
		}
	}

	if dna != nil {
		e.dnaDepth = append([]float64(nil), dna...)
	}
	if rna != nil {
		e.rnaDepth = append([]float64(nil), rna...)
	}

	return nil
}

func validDepth(factors []float64, cols int, assay string) error {
	if len(factors) != cols {
		return &ConfigError{Detail: fmt.Sprintf("%d %s depth factors for %d columns", len(factors), assay, cols)}
	}
	for i, f := range factors {
		if f <= 0 {
			return &ConfigError{Detail: fmt.Sprintf("%s depth factor %v at column %d; factors must be positive", assay, f, i)}
		}
	}

	return nil
}

func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}

	return true
}

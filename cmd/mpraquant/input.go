package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/mpralab/mpranalyze"
)

// loadExperiment reads the count and annotation tables, plus the optional
// control list, and assembles the validated experiment.
func loadExperiment(dnaFile, rnaFile, dnaAnnotFile, rnaAnnotFile, controlsFile string) (*mpranalyze.Experiment, error) {
	dna, err := readCounts(dnaFile)
	if err != nil {
		return nil, err
	}
	rna, err := readCounts(rnaFile)
	if err != nil {
		return nil, err
	}

	dnaAnn, err := readAnnotations(dnaAnnotFile)
	if err != nil {
		return nil, err
	}
	rnaAnn, err := readAnnotations(rnaAnnotFile)
	if err != nil {
		return nil, err
	}

	var controls []string
	if controlsFile != "" {
		if controls, err = readControls(controlsFile); err != nil {
			return nil, err
		}
	}

	return mpranalyze.New(dna, rna, dnaAnn, rnaAnn, controls)
}

// readCounts loads a count table: a header line naming the observation
// columns, then one line per enhancer with its identifier in the first
// field.
func readCounts(path string) (*mpranalyze.CountMatrix, error) {
	records, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: expected a header line and at least one count row", path)
	}

	ids := make([]string, 0, len(records)-1)
	rows := make([][]float64, 0, len(records)-1)
	for i, line := range records[1:] {
		counts := make([]float64, 0, len(line)-1)
		for j, cell := range line[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %d: %q is not a count", path, i+2, j+2, cell)
			}
			counts = append(counts, v)
		}

		ids = append(ids, line[0])
		rows = append(rows, counts)
	}

	return mpranalyze.NewCountMatrix(ids, rows)
}

// readAnnotations loads an annotation table: a header line of factor names,
// then one line per observation column of the corresponding count matrix.
func readAnnotations(path string) (*mpranalyze.Annotations, error) {
	records, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: expected a header line and at least one observation row", path)
	}

	names := records[0]
	columns := make([][]string, len(names))
	for _, line := range records[1:] {
		for j, cell := range line {
			columns[j] = append(columns[j], cell)
		}
	}

	return mpranalyze.NewAnnotations(names, columns)
}

// readControls loads the negative-control list, one enhancer ID per line.
func readControls(path string) ([]string, error) {
	raw, err := slurp(path)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, line := range strings.Split(string(raw), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no control identifiers found", path)
	}

	return out, nil
}

// readTable slurps a possibly-compressed delimited file and parses it with
// its auto-detected delimiter.
func readTable(path string) ([][]string, error) {
	raw, err := slurp(path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = mpranalyze.DetectDelimiter(bytes.NewReader(raw))

	records, err := r.ReadAll()
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return records, nil
}

func slurp(path string) ([]byte, error) {
	rc, err := mpranalyze.OpenMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return raw, nil
}

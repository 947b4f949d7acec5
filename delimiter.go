package mpranalyze

import (
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// DetectDelimiter returns the single most likely rune delimiting the values
// of a tabular count or annotation file. Tab is the fallback when detection
// is inconclusive, since these tables interchange as TSV by convention.
func DetectDelimiter(r io.Reader) rune {
	d := detector.New()

	delimiters := d.DetectDelimiter(r, '"')
	if len(delimiters) > 0 {
		return rune(delimiters[0][0])
	}

	return '\t'
}

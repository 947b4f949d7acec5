package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"github.com/mpralab/mpranalyze"
)

func init() {
	// Result tables are written tab-delimited.
	gocsv.SetCSVWriter(func(out io.Writer) *gocsv.SafeCSVWriter {
		w := csv.NewWriter(out)
		w.Comma = '\t'
		return gocsv.NewSafeCSVWriter(w)
	})
}

// writeAlpha writes the alpha table as TSV: the enhancer ID, then one column
// per level. Rows whose fit failed leave their cells empty.
func writeAlpha(path string, t *mpranalyze.AlphaTable) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'

	if err := w.Write(append([]string{"enhancer"}, t.Columns...)); err != nil {
		return pfx.Err(err)
	}

	line := make([]string, 0, 1+len(t.Columns))
	for i, id := range t.IDs {
		line = append(line[:0], id)
		for _, v := range t.Values[i] {
			if t.Valid[i] {
				line = append(line, strconv.FormatFloat(v, 'g', -1, 64))
			} else {
				line = append(line, "")
			}
		}
		if err := w.Write(line); err != nil {
			return pfx.Err(err)
		}
	}
	w.Flush()

	return pfx.Err(w.Error())
}

func writeEmpirical(path string, t *mpranalyze.EmpiricalTable) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	return pfx.Err(gocsv.MarshalFile(&t.Rows, f))
}

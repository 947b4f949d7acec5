package mpranalyze

import "fmt"

// CountMatrix is a dense enhancer-by-observation count matrix. Rows are keyed
// by unique enhancer identifiers; columns are sequencing observations. Counts
// are stored as float64 for the downstream arithmetic but must be
// non-negative.
type CountMatrix struct {
	ids   []string
	index map[string]int
	data  []float64 // row-major
	cols  int
}

// NewCountMatrix validates and wraps a set of count rows. Every row must have
// the same length, every identifier must be unique and non-empty, and every
// count must be non-negative.
func NewCountMatrix(ids []string, rows [][]float64) (*CountMatrix, error) {
	if len(ids) != len(rows) {
		return nil, &ConfigError{Detail: fmt.Sprintf("%d row identifiers for %d count rows", len(ids), len(rows))}
	}
	if len(rows) == 0 {
		return nil, &ConfigError{Detail: "count matrix has no rows"}
	}

	cols := len(rows[0])
	if cols == 0 {
		return nil, &ConfigError{Detail: "count matrix has no columns"}
	}

	m := &CountMatrix{
		ids:   make([]string, len(ids)),
		index: make(map[string]int, len(ids)),
		data:  make([]float64, 0, len(rows)*cols),
		cols:  cols,
	}
	copy(m.ids, ids)

	for i, row := range rows {
		if ids[i] == "" {
			return nil, &ConfigError{Detail: fmt.Sprintf("row %d has an empty identifier", i)}
		}
		if _, seen := m.index[ids[i]]; seen {
			return nil, &ConfigError{Field: ids[i], Detail: "duplicate enhancer identifier"}
		}
		m.index[ids[i]] = i

		if len(row) != cols {
			return nil, &ConfigError{Field: ids[i], Detail: fmt.Sprintf("row has %d columns, expected %d", len(row), cols)}
		}
		for j, v := range row {
			if v < 0 {
				return nil, &ConfigError{Field: ids[i], Detail: fmt.Sprintf("negative count %v in column %d", v, j)}
			}
		}
		m.data = append(m.data, row...)
	}

	return m, nil
}

// NRows reports the number of enhancer rows.
func (m *CountMatrix) NRows() int { return len(m.ids) }

// NCols reports the number of observation columns.
func (m *CountMatrix) NCols() int { return m.cols }

// IDs returns the enhancer identifiers in row order. The returned slice is
// shared; callers must not modify it.
func (m *CountMatrix) IDs() []string { return m.ids }

// Row returns the i'th count row as a shared read-only slice.
func (m *CountMatrix) Row(i int) []float64 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

// RowByID returns the counts for the named enhancer, or false if the enhancer
// is not present.
func (m *CountMatrix) RowByID(id string) ([]float64, bool) {
	i, ok := m.index[id]
	if !ok {
		return nil, false
	}

	return m.Row(i), true
}

// Has reports whether the named enhancer is a row of the matrix.
func (m *CountMatrix) Has(id string) bool {
	_, ok := m.index[id]
	return ok
}

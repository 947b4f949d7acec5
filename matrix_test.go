package mpranalyze

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewCountMatrix(t *testing.T) {
	m, err := NewCountMatrix([]string{"enh1", "enh2"}, [][]float64{
		{1, 2, 3},
		{0, 5, 0},
	})
	if err != nil {
		t.Fatal(err)
	}

	if m.NRows() != 2 || m.NCols() != 3 {
		t.Errorf("dims = (%d, %d), expected (2, 3)", m.NRows(), m.NCols())
	}
	if got := m.IDs(); !reflect.DeepEqual(got, []string{"enh1", "enh2"}) {
		t.Errorf("IDs = %v", got)
	}
	if got := m.Row(1); !reflect.DeepEqual(got, []float64{0, 5, 0}) {
		t.Errorf("Row(1) = %v", got)
	}

	row, ok := m.RowByID("enh1")
	if !ok || !reflect.DeepEqual(row, []float64{1, 2, 3}) {
		t.Errorf("RowByID(enh1) = %v (ok=%v)", row, ok)
	}
	if _, ok := m.RowByID("enh3"); ok {
		t.Error("RowByID found a row that does not exist")
	}
	if !m.Has("enh2") || m.Has("enh3") {
		t.Error("Has answered incorrectly")
	}
}

func TestNewCountMatrixCopiesInput(t *testing.T) {
	ids := []string{"enh1"}
	rows := [][]float64{{1, 2}}

	m, err := NewCountMatrix(ids, rows)
	if err != nil {
		t.Fatal(err)
	}

	ids[0] = "changed"
	rows[0][0] = 99
	if m.IDs()[0] != "enh1" || m.Row(0)[0] != 1 {
		t.Error("matrix shares storage with its constructor arguments")
	}
}

type matrixErrExpectation struct {
	Name string
	IDs  []string
	Rows [][]float64
}

func TestNewCountMatrixErrors(t *testing.T) {
	for _, v := range []matrixErrExpectation{
		{Name: "id/row count mismatch", IDs: []string{"a"}, Rows: [][]float64{{1}, {2}}},
		{Name: "no rows", IDs: nil, Rows: nil},
		{Name: "no columns", IDs: []string{"a"}, Rows: [][]float64{{}}},
		{Name: "empty id", IDs: []string{""}, Rows: [][]float64{{1}}},
		{Name: "duplicate id", IDs: []string{"a", "a"}, Rows: [][]float64{{1}, {2}}},
		{Name: "ragged rows", IDs: []string{"a", "b"}, Rows: [][]float64{{1, 2}, {3}}},
		{Name: "negative count", IDs: []string{"a"}, Rows: [][]float64{{1, -2}}},
	} {
		_, err := NewCountMatrix(v.IDs, v.Rows)
		if err == nil {
			t.Errorf("%s: expected an error", v.Name)
			continue
		}

		var cfg *ConfigError
		if !errors.As(err, &cfg) {
			t.Errorf("%s: expected *ConfigError, got %T: %v", v.Name, err, err)
		}
	}
}

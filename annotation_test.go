package mpranalyze

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewAnnotations(t *testing.T) {
	a, err := NewAnnotations([]string{"batch", "selection"}, [][]string{
		{"b1", "b1", "b2", "b2"},
		{"ctrl", "sel", "ctrl", "sel"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if a.Len() != 4 {
		t.Errorf("Len = %d, expected 4", a.Len())
	}
	if got := a.Factors(); !reflect.DeepEqual(got, []string{"batch", "selection"}) {
		t.Errorf("Factors = %v", got)
	}
	if !a.Has("batch") || a.Has("barcode") {
		t.Error("Has answered incorrectly")
	}

	vals, err := a.Values("selection")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(vals, []string{"ctrl", "sel", "ctrl", "sel"}) {
		t.Errorf("Values(selection) = %v", vals)
	}

	if _, err := a.Values("barcode"); err == nil {
		t.Error("expected an error for an unknown factor")
	}
}

func TestAnnotationLevelsFirstAppearance(t *testing.T) {
	a, err := NewAnnotations([]string{"selection"}, [][]string{
		{"sel", "ctrl", "sel", "ctrl"},
	})
	if err != nil {
		t.Fatal(err)
	}

	// The reference level is whichever value appears first, not the
	// lexicographically smallest.
	levels, err := a.Levels("selection")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(levels, []string{"sel", "ctrl"}) {
		t.Errorf("Levels = %v, expected [sel ctrl]", levels)
	}
}

func TestAnnotationGroupKeys(t *testing.T) {
	a, err := NewAnnotations([]string{"batch", "selection"}, [][]string{
		{"b1", "b1", "b2", "b2"},
		{"ctrl", "sel", "ctrl", "sel"},
	})
	if err != nil {
		t.Fatal(err)
	}

	assignment, labels, err := a.GroupKeys([]string{"batch"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(assignment, []int{0, 0, 1, 1}) || !reflect.DeepEqual(labels, []string{"b1", "b2"}) {
		t.Errorf("single factor grouping = %v / %v", assignment, labels)
	}

	assignment, labels, err = a.GroupKeys([]string{"batch", "selection"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(assignment, []int{0, 1, 2, 3}) {
		t.Errorf("two-factor assignment = %v", assignment)
	}
	if !reflect.DeepEqual(labels, []string{"b1:ctrl", "b1:sel", "b2:ctrl", "b2:sel"}) {
		t.Errorf("two-factor labels = %v", labels)
	}

	if _, _, err := a.GroupKeys([]string{"barcode"}); err == nil {
		t.Error("expected an error for an unknown grouping factor")
	}
	if _, _, err := a.GroupKeys(nil); err == nil {
		t.Error("expected an error for an empty grouping")
	}
}

func TestNewAnnotationsErrors(t *testing.T) {
	for _, v := range []struct {
		Name    string
		Names   []string
		Columns [][]string
	}{
		{Name: "name/column count mismatch", Names: []string{"a"}, Columns: [][]string{{"x"}, {"y"}}},
		{Name: "no factors", Names: nil, Columns: nil},
		{Name: "no observations", Names: []string{"a"}, Columns: [][]string{{}}},
		{Name: "empty factor name", Names: []string{""}, Columns: [][]string{{"x"}}},
		{Name: "duplicate factor name", Names: []string{"a", "a"}, Columns: [][]string{{"x"}, {"y"}}},
		{Name: "ragged columns", Names: []string{"a", "b"}, Columns: [][]string{{"x", "y"}, {"z"}}},
	} {
		_, err := NewAnnotations(v.Names, v.Columns)
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

func TestNewAnnotationsCopiesInput(t *testing.T) {
	cols := [][]string{{"x", "y"}}

	a, err := NewAnnotations([]string{"a"}, cols)
	if err != nil {
		t.Fatal(err)
	}

	cols[0][0] = "changed"
	vals, _ := a.Values("a")
	if vals[0] != "x" {
		t.Error("annotations share storage with their constructor arguments")
	}
}

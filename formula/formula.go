// Package formula implements the minimal design-formula grammar used to
// declare which annotation factors enter a model: "~ factor1 + factor2", or
// "~ 1" for an intercept-only model. A formula is purely symbolic; it is
// resolved against a concrete annotation table before any model is built, so
// an unknown factor name fails fast rather than surfacing mid-fit.
package formula

import (
	"fmt"
	"strings"
)

// Formula is a parsed model specification: an ordered list of references to
// named annotation factors. No terms means intercept-only.
type Formula struct {
	terms []string
}

// Parse reads a design formula. The grammar is deliberately small: a leading
// "~", then either the literal "1" or one or more factor names joined by "+".
// Whitespace is ignored. Naming the same factor twice is an error rather than
// a silent dedup, because it nearly always indicates a miswritten design.
func Parse(s string) (*Formula, error) {
	body := strings.TrimSpace(s)
	if !strings.HasPrefix(body, "~") {
		return nil, fmt.Errorf("design formula %q must begin with '~'", s)
	}

	body = strings.TrimSpace(strings.TrimPrefix(body, "~"))
	if body == "" {
		return nil, fmt.Errorf("design formula %q names no terms; write \"~ 1\" for an intercept-only model", s)
	}
	if body == "1" {
		return &Formula{}, nil
	}

	seen := make(map[string]bool)
	var terms []string
	for _, raw := range strings.Split(body, "+") {
		term := strings.TrimSpace(raw)
		if term == "" {
			return nil, fmt.Errorf("design formula %q has an empty term", s)
		}
		if term == "1" {
			return nil, fmt.Errorf("design formula %q mixes the intercept term '1' with named factors", s)
		}
		if seen[term] {
			return nil, fmt.Errorf("design formula %q names factor %q more than once", s, term)
		}
		seen[term] = true

		terms = append(terms, term)
	}

	return &Formula{terms: terms}, nil
}

// Terms returns the factor names in the order they were written, or an empty
// slice for an intercept-only formula. The returned slice is shared; callers
// must not modify it.
func (f *Formula) Terms() []string { return f.terms }

// InterceptOnly reports whether the formula was "~ 1".
func (f *Formula) InterceptOnly() bool { return len(f.terms) == 0 }

// String renders the formula back into its canonical written form.
func (f *Formula) String() string {
	if len(f.terms) == 0 {
		return "~ 1"
	}

	return "~ " + strings.Join(f.terms, " + ")
}

// UnknownTermError reports a formula term with no matching annotation factor.
type UnknownTermError struct {
	Term string
}

func (e *UnknownTermError) Error() string {
	return fmt.Sprintf("formula term %q does not name an annotation factor", e.Term)
}

// Resolve checks every term against the available factor names, returning an
// UnknownTermError for the first term that does not resolve.
func (f *Formula) Resolve(available []string) error {
	known := make(map[string]bool, len(available))
	for _, name := range available {
		known[name] = true
	}

	for _, term := range f.terms {
		if !known[term] {
			return &UnknownTermError{Term: term}
		}
	}

	return nil
}

package mpranalyze

import "fmt"

// ConfigError indicates a problem with the inputs or the requested analysis
// itself: a design or grouping factor that is absent from the annotations,
// mismatched matrix dimensions, or an operation invoked before its
// prerequisites (e.g., fitting before depth estimation). These are fatal at
// construction or call time.
type ConfigError struct {
	// Field names the offending factor, enhancer, or argument when known.
	Field  string
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Detail
	}

	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}

// DegenerateLibraryError indicates that a normalization group contained no
// usable counts, so no depth factor can be estimated for it.
type DegenerateLibraryError struct {
	// Group is the label of the offending library group, e.g. "batch1:sel".
	Group string
}

func (e *DegenerateLibraryError) Error() string {
	return fmt.Sprintf("library group %q has no nonzero counts; cannot estimate a depth factor", e.Group)
}

// Package padjust corrects families of p-values for multiple testing.
package padjust

import "sort"

// BenjaminiHochberg converts p-values into FDR q-values by the
// Benjamini-Hochberg step-up procedure. The returned slice is parallel to the
// input: q[i] is the smallest false discovery rate at which the i'th
// hypothesis would still be rejected. Values are monotone in p and never
// exceed 1.
func BenjaminiHochberg(p []float64) []float64 {
	n := len(p)
	q := make([]float64, n)
	if n == 0 {
		return q
	}

	// Walk the p-values from largest to smallest so the step-up minimum can
	// be carried through a single pass. The largest p has rank n.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return p[order[i]] > p[order[j]] })

	running := 1.0
	for pos, idx := range order {
		adjusted := p[idx] * float64(n) / float64(n-pos)
		if adjusted < running {
			running = adjusted
		}
		q[idx] = running
	}

	return q
}

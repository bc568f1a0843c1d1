// SPDX-License-Identifier: AGPL-3.0-or-later

package strutil

// Levenshtein computes the classical Levenshtein edit distance between a
// and b: the minimum number of single-rune insertions, deletions, and
// substitutions needed to turn a into b.
//
// Implemented directly against the standard library rather than the pack's
// DuckDB rapidfuzz extension: rapidfuzz's ratio functions compute an Indel
// (insert/delete only, no substitution) distance, which does not satisfy
// the exact boundary behavior the engine's title/author gates depend on
// (a ratio of exactly 10.00% must reject, 9.99% must pass). A classical DP
// table is the only way to guarantee that.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// RatioPercent returns the percentage 100*d/lenA used by the title and
// author gates, where d is the edit distance and lenA is the length (in
// runes) of the reference string a. The ratio is computed in floating point
// so that boundary values (e.g. 9.99 vs 10.00) are distinguished rather than
// collapsed by integer truncation. Returns 0 when a is empty.
func RatioPercent(a string, d int) float64 {
	n := len([]rune(a))
	if n == 0 {
		return 0
	}
	return 100 * float64(d) / float64(n)
}

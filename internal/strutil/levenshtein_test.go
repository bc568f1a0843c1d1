// SPDX-License-Identifier: AGPL-3.0-or-later

package strutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein_IdenticalStrings(t *testing.T) {
	assert.Equal(t, 0, Levenshtein("same", "same"))
}

func TestLevenshtein_SingleSubstitution(t *testing.T) {
	assert.Equal(t, 1, Levenshtein("aaaaaaaaaa", "aaaaaaaaab"))
}

func TestLevenshtein_EmptyStrings(t *testing.T) {
	assert.Equal(t, 3, Levenshtein("", "abc"))
	assert.Equal(t, 3, Levenshtein("abc", ""))
	assert.Equal(t, 0, Levenshtein("", ""))
}

func TestRatioPercent_TitleGateBoundary(t *testing.T) {
	// 10-rune strings differing by one substitution: ratio exactly 10.00.
	d := Levenshtein("aaaaaaaaaa", "aaaaaaaaab")
	assert.InDelta(t, 10.0, RatioPercent("aaaaaaaaaa", d), 0.0001)
}

func TestRatioPercent_BelowVetoThreshold(t *testing.T) {
	a := make([]byte, 100)
	for i := range a {
		a[i] = 'a'
	}
	b := append([]byte(nil), a...)
	b[0] = 'z'
	d := Levenshtein(string(a), string(b))
	assert.Less(t, RatioPercent(string(a), d), 10.0)
}

func TestRatioPercent_EmptyReference(t *testing.T) {
	assert.Equal(t, 0.0, RatioPercent("", 0))
}

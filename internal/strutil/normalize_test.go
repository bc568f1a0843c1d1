// SPDX-License-Identifier: AGPL-3.0-or-later

package strutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_CaseFoldsAndCollapsesPunctuation(t *testing.T) {
	assert.Equal(t, "hello world", Normalize("  Hello,   World!!  "))
}

func TestNormalize_StripsDiacritics(t *testing.T) {
	assert.Equal(t, "muller", Normalize("Müller"))
}

func TestNormalize_Empty(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
}

func TestTitleKey_StripsLeadingArticle(t *testing.T) {
	assert.Equal(t, "lord of the rings", TitleKey("The Lord of the Rings"))
	assert.Equal(t, "great gatsby", TitleKey("A Great Gatsby"))
	assert.Equal(t, "imitation game", TitleKey("An Imitation Game"))
}

func TestTitleKey_NoLeadingArticleUnchanged(t *testing.T) {
	assert.Equal(t, "moby dick", TitleKey("Moby Dick"))
}

func TestTitleKey_OnlyFirstArticleStripped(t *testing.T) {
	// "the" reappearing mid-title must survive.
	assert.Equal(t, "return of the king", TitleKey("The Return of the King"))
}

func TestIDSortKey_StableAcrossCalls(t *testing.T) {
	k1 := IDSortKey("oclc:123")
	k2 := IDSortKey("oclc:123")
	assert.Equal(t, k1, k2)
}

func TestIDSortKey_DistinguishesDifferentIDs(t *testing.T) {
	a := IDSortKey("oclc:123")
	b := IDSortKey("oclc:456")
	assert.NotEqual(t, a, b)
}

func TestTruncate255_ShorterThanLimitUnchanged(t *testing.T) {
	assert.Equal(t, "short", Truncate255("short"))
}

func TestTruncate255_TruncatesToLimit(t *testing.T) {
	long := strings.Repeat("a", 300)
	assert.Equal(t, 255, len([]rune(Truncate255(long))))
}

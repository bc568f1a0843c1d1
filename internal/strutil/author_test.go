// SPDX-License-Identifier: AGPL-3.0-or-later

package strutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorMatch_CommaFormattedInitials(t *testing.T) {
	assert.True(t, AuthorMatch("Knuth, Donald", "Knuth, D."), "surname match with compatible initials should pass")
}

func TestAuthorMatch_SpaceFormattedInitials(t *testing.T) {
	assert.True(t, AuthorMatch("Donald Knuth", "D. Knuth"))
}

func TestAuthorMatch_MixedCommaAndSpaceForms(t *testing.T) {
	assert.True(t, AuthorMatch("Knuth, Donald", "Donald Knuth"))
}

func TestAuthorMatch_DifferentSurnameRejected(t *testing.T) {
	assert.False(t, AuthorMatch("Knuth, Donald", "Ritchie, Dennis"))
}

func TestAuthorMatch_IncompatibleInitialRejected(t *testing.T) {
	assert.False(t, AuthorMatch("Knuth, Donald", "Knuth, Edward"))
}

func TestAuthorMatch_BothEmpty(t *testing.T) {
	assert.True(t, AuthorMatch("", ""))
}

func TestAuthorMatch_OneEmptyRejected(t *testing.T) {
	assert.False(t, AuthorMatch("Knuth, Donald", ""))
}

func TestAuthorMatch_DiacriticsAndCaseFold(t *testing.T) {
	assert.True(t, AuthorMatch("Müller, Hans", "MULLER, H."))
}

// SPDX-License-Identifier: AGPL-3.0-or-later

package strutil

import "strings"

// AuthorMatch implements the surname + initials tolerance heuristic: two
// author names are considered the same person if their surnames match
// case-insensitively and every initial present in the shorter name's given
// names matches the corresponding initial in the longer one. This tolerates
// "Knuth, Donald" vs "Knuth D." without requiring full given-name equality.
func AuthorMatch(a, b string) bool {
	sa, ia := splitAuthor(a)
	sb, ib := splitAuthor(b)
	if sa == "" || sb == "" {
		return sa == sb
	}
	if sa != sb {
		return false
	}

	shorter, longer := ia, ib
	if len(longer) < len(shorter) {
		shorter, longer = longer, shorter
	}
	for i, init := range shorter {
		if i >= len(longer) {
			break
		}
		if init != longer[i] {
			return false
		}
	}
	return true
}

// splitAuthor separates an author name into a surname and a sequence of
// given-name initials, normalizing the parts itself. Accepts "Surname,
// Given Names", "Given Names Surname", and "Surname I." (a trailing
// one-letter word is read as an initial) forms; the first form is only
// recognized while the name still carries its comma.
func splitAuthor(name string) (surname string, initials []rune) {
	// The comma has to be located before normalizing: Normalize strips all
	// punctuation, including the comma that marks "Surname, Given Names".
	var surnamePart, givenPart string
	if idx := strings.Index(name, ","); idx >= 0 {
		surnamePart = Normalize(name[:idx])
		givenPart = Normalize(name[idx+1:])
	} else {
		n := Normalize(name)
		if n == "" {
			return "", nil
		}
		fields := strings.Fields(n)
		if len(fields) == 0 {
			return "", nil
		}
		surnamePart = fields[len(fields)-1]
		givenPart = strings.Join(fields[:len(fields)-1], " ")
		if len(fields) > 1 && len([]rune(surnamePart)) == 1 {
			surnamePart = fields[0]
			givenPart = strings.Join(fields[1:], " ")
		}
	}

	if surnamePart == "" {
		return "", nil
	}

	for _, field := range strings.Fields(givenPart) {
		field = strings.Trim(field, ".")
		if field == "" {
			continue
		}
		initials = append(initials, []rune(field)[0])
	}

	return surnamePart, initials
}

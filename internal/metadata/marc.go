// SPDX-License-Identifier: AGPL-3.0-or-later

package metadata

import (
	"github.com/bibliodedup/core/internal/strutil"
	"github.com/goccy/go-json"
)

// marcView adapts a MARC-ish flat record (raw JSON keyed by MARC tag, e.g.
// "245" for title, "020" for ISBN) into the MetadataView contract.
type marcView struct {
	fields map[string]json.RawMessage
}

func (v *marcView) Title(normalized bool) string {
	t := stringField(v.fields, "245")
	if normalized {
		return strutil.Normalize(t)
	}
	return t
}

func (v *marcView) FullTitle() string {
	return stringField(v.fields, "245")
}

func (v *marcView) ISBNs() []string {
	return normalizeAll(stringSliceField(v.fields, "020"))
}

func (v *marcView) UniqueIDs() []string {
	return normalizeAll(stringSliceField(v.fields, "035"))
}

func (v *marcView) ISSNs() []string {
	return normalizeAll(stringSliceField(v.fields, "022"))
}

func (v *marcView) Format() string {
	return "marc"
}

func (v *marcView) PublicationYear() int {
	return intField(v.fields, "008_year")
}

func (v *marcView) PageCount() int {
	return intField(v.fields, "300_pages")
}

func (v *marcView) SeriesISSN() string {
	return strutil.Normalize(stringField(v.fields, "490_issn"))
}

func (v *marcView) SeriesNumbering() string {
	return strutil.Normalize(stringField(v.fields, "490_numbering"))
}

func (v *marcView) MainAuthor() string {
	return strutil.Normalize(stringField(v.fields, "100"))
}

func normalizeAll(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if n := strutil.Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// SPDX-License-Identifier: AGPL-3.0-or-later

package metadata

import (
	"github.com/bibliodedup/core/internal/strutil"
	"github.com/goccy/go-json"
)

// dcView adapts a simple Dublin-Core-ish flat record (raw JSON keyed by DC
// element name) into the MetadataView contract.
type dcView struct {
	fields map[string]json.RawMessage
}

func (v *dcView) Title(normalized bool) string {
	t := stringField(v.fields, "title")
	if normalized {
		return strutil.Normalize(t)
	}
	return t
}

func (v *dcView) FullTitle() string {
	return stringField(v.fields, "title")
}

func (v *dcView) ISBNs() []string {
	return normalizeAll(stringSliceField(v.fields, "isbn"))
}

func (v *dcView) UniqueIDs() []string {
	return normalizeAll(stringSliceField(v.fields, "identifier"))
}

func (v *dcView) ISSNs() []string {
	return normalizeAll(stringSliceField(v.fields, "issn"))
}

func (v *dcView) Format() string {
	return "dc"
}

func (v *dcView) PublicationYear() int {
	return intField(v.fields, "year")
}

func (v *dcView) PageCount() int {
	return intField(v.fields, "pages")
}

func (v *dcView) SeriesISSN() string {
	return strutil.Normalize(stringField(v.fields, "series_issn"))
}

func (v *dcView) SeriesNumbering() string {
	return strutil.Normalize(stringField(v.fields, "series_numbering"))
}

func (v *dcView) MainAuthor() string {
	return strutil.Normalize(stringField(v.fields, "creator"))
}

// genericView is returned by the record factory for unrecognized formats.
// Every accessor returns the zero value except Format, keeping the factory
// total without letting unknown formats silently pass the Match Predicate's
// ISBN/unique-id gates with fabricated data.
type genericView struct {
	format string
}

func (v *genericView) Title(bool) string      { return "" }
func (v *genericView) FullTitle() string      { return "" }
func (v *genericView) ISBNs() []string        { return nil }
func (v *genericView) UniqueIDs() []string    { return nil }
func (v *genericView) ISSNs() []string        { return nil }
func (v *genericView) Format() string         { return v.format }
func (v *genericView) PublicationYear() int   { return 0 }
func (v *genericView) PageCount() int         { return 0 }
func (v *genericView) SeriesISSN() string     { return "" }
func (v *genericView) SeriesNumbering() string { return "" }
func (v *genericView) MainAuthor() string     { return "" }

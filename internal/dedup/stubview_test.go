// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

// stubView is a canned metadata.View used by predicate and cascade tests,
// standing in for a parsed record payload.
type stubView struct {
	title           string
	isbns           []string
	uniqueIDs       []string
	issns           []string
	format          string
	year            int
	pages           int
	seriesISSN      string
	seriesNumbering string
	author          string
}

func (v *stubView) Title(bool) string        { return v.title }
func (v *stubView) FullTitle() string         { return v.title }
func (v *stubView) ISBNs() []string           { return v.isbns }
func (v *stubView) UniqueIDs() []string       { return v.uniqueIDs }
func (v *stubView) ISSNs() []string           { return v.issns }
func (v *stubView) Format() string            { return v.format }
func (v *stubView) PublicationYear() int      { return v.year }
func (v *stubView) PageCount() int            { return v.pages }
func (v *stubView) SeriesISSN() string        { return v.seriesISSN }
func (v *stubView) SeriesNumbering() string   { return v.seriesNumbering }
func (v *stubView) MainAuthor() string        { return v.author }

// stubFormatMapper maps every (sourceID, format) pair to format itself
// unless an override is registered, letting tests exercise rule 4's veto
// without a real format-map configuration.
type stubFormatMapper struct {
	overrides map[string]string
}

func newStubFormatMapper() *stubFormatMapper {
	return &stubFormatMapper{overrides: map[string]string{}}
}

func (m *stubFormatMapper) MapFormat(sourceID, format string) string {
	if mapped, ok := m.overrides[sourceID+"|"+format]; ok {
		return mapped
	}
	return format
}

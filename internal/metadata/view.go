// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metadata implements the record factory and MetadataView
// collaborators of the dedup engine: a read-only, on-demand projection of a
// Record's raw payload, dispatched by format.
package metadata

// View is a derived, read-only projection built on demand from a Record's
// raw payload. All accessors return the zero value when the underlying
// field is absent, letting the Match Predicate treat "absent" and "empty"
// uniformly per spec.
type View interface {
	// Title returns the record's primary title. If normalized is true,
	// the title has already been run through strutil.Normalize.
	Title(normalized bool) string

	// FullTitle returns the record's title as stored in the payload,
	// without normalization. The bundled views read the same field as
	// Title; the dedup engine derives candidate keys from Title(true).
	FullTitle() string

	// ISBNs returns the record's ISBN identifiers, normalized.
	ISBNs() []string

	// UniqueIDs returns other stable identifiers (e.g. national
	// bibliographic numbers) besides ISBN/ISSN.
	UniqueIDs() []string

	// ISSNs returns the record's ISSN identifiers, normalized.
	ISSNs() []string

	// Format returns the view's format tag as declared by the source
	// (e.g. "marc", "dc"); the format-veto rule maps it to a canonical
	// format through the format mapper.
	Format() string

	// PublicationYear returns the publication year, or 0 if unknown.
	PublicationYear() int

	// PageCount returns the page count, or 0 if unknown.
	PageCount() int

	// SeriesISSN returns the ISSN of the series this record belongs to,
	// or "" if none.
	SeriesISSN() string

	// SeriesNumbering returns the record's position within its series
	// (e.g. "vol. 3"), or "" if none.
	SeriesNumbering() string

	// MainAuthor returns the normalized primary author/creator name, or
	// "" if unknown.
	MainAuthor() string
}

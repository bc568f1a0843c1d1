// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models holds the persisted shapes the dedup engine operates on:
// Record and DedupGroup. Both are plain data — no store or parsing logic
// lives here, only the field contracts of the data model.
package models

import "time"

// Record is a bibliographic unit harvested from one source catalog.
type Record struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	Format   string `json:"format"`
	OAIID    string `json:"oai_id,omitempty"`
	Deleted  bool   `json:"deleted"`

	// Raw is the opaque serialized metadata payload, parsed on demand via
	// the record factory (internal/metadata) into a MetadataView.
	Raw []byte `json:"raw,omitempty"`

	// TitleKeys, ISBNKeys, IDKeys are candidate-generation indexes kept in
	// sync with Raw via UpdateDedupCandidateKeys. Absent (nil) when empty,
	// never an empty-but-non-nil slice, so a zero-value Record round-trips
	// cleanly through the store.
	TitleKeys []string `json:"title_keys,omitempty"`
	ISBNKeys  []string `json:"isbn_keys,omitempty"`
	IDKeys    []string `json:"id_keys,omitempty"`

	// HostRecordID, if non-empty, names the host record (local id within
	// this record's source) that this record is a component part of.
	HostRecordID string `json:"host_record_id,omitempty"`

	// LinkingID is the local identifier component parts use to reference
	// this record as their host.
	LinkingID string `json:"linking_id,omitempty"`

	DedupID      string    `json:"dedup_id,omitempty"`
	UpdateNeeded bool      `json:"update_needed"`
	Updated      time.Time `json:"updated"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsComponentPart reports whether this record is a component part of some
// host record, i.e. it has a non-empty HostRecordID.
func (r *Record) IsComponentPart() bool {
	return r.HostRecordID != ""
}

// HasKey reports whether the given normalized key appears in any of the
// record's candidate-generation index sets.
func (r *Record) HasKey(key string) bool {
	return contains(r.ISBNKeys, key) || contains(r.IDKeys, key) || contains(r.TitleKeys, key)
}

// SharesISBNKey reports whether r and other have at least one ISBN key in
// common.
func (r *Record) SharesISBNKey(other *Record) bool {
	return sharesAny(r.ISBNKeys, other.ISBNKeys)
}

// SharesIDKey reports whether r and other have at least one id key in
// common.
func (r *Record) SharesIDKey(other *Record) bool {
	return sharesAny(r.IDKeys, other.IDKeys)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func sharesAny(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

// DedupGroup is a persistent equivalence class of Record ids believed to
// describe the same work.
type DedupGroup struct {
	ID        string    `json:"id"`
	IDs       []string  `json:"ids"`
	Deleted   bool      `json:"deleted"`
	Changed   time.Time `json:"changed"`
	CreatedAt time.Time `json:"created_at"`
}

// Contains reports whether id is a member of the group.
func (g *DedupGroup) Contains(id string) bool {
	return contains(g.IDs, id)
}

// Add appends id to the group's insertion-ordered member list if absent.
// Returns true if the id was newly added.
func (g *DedupGroup) Add(id string) bool {
	if g.Contains(id) {
		return false
	}
	g.IDs = append(g.IDs, id)
	return true
}

// Remove deletes id from the group's member list if present. Returns true
// if the id was found and removed.
func (g *DedupGroup) Remove(id string) bool {
	for i, v := range g.IDs {
		if v == id {
			g.IDs = append(g.IDs[:i], g.IDs[i+1:]...)
			return true
		}
	}
	return false
}

// Live reports whether the group satisfies invariant 1: not deleted and at
// least two members.
func (g *DedupGroup) Live() bool {
	return !g.Deleted && len(g.IDs) >= 2
}

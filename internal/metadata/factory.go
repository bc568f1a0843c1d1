// SPDX-License-Identifier: AGPL-3.0-or-later

package metadata

import (
	"fmt"

	"github.com/goccy/go-json"
)

// NewView is the record factory: createRecord(format, raw, oai_id,
// source_id) -> MetadataView. It is polymorphic over format and pure with
// respect to its inputs.
//
// Only a small, explicit set of formats is understood (marc, dc); anything
// else yields a genericView rather than an error, keeping the factory
// total — format-specific metadata parsing beyond this minimal adapter
// layer is out of scope.
func NewView(format string, raw []byte, oaiID, sourceID string) (View, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, fmt.Errorf("metadata: parse raw payload for source %s: %w", sourceID, err)
	}

	switch format {
	case "marc":
		return &marcView{fields: fields}, nil
	case "dc":
		return &dcView{fields: fields}, nil
	default:
		return &genericView{format: format}, nil
	}
}

// parseFields decodes the raw payload into a flat field map. Both bundled
// views are adapters over this shared shape; only the field names they
// look up differ.
func parseFields(raw []byte) (map[string]json.RawMessage, error) {
	if len(raw) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// stringField decodes a single string-valued field, returning "" if absent
// or malformed.
func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// stringSliceField decodes a string-slice-valued field, returning nil if
// absent or malformed.
func stringSliceField(fields map[string]json.RawMessage, key string) []string {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var s []string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return s
}

// intField decodes an int-valued field, returning 0 if absent or
// malformed.
func intField(fields map[string]json.RawMessage, key string) int {
	raw, ok := fields[key]
	if !ok {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

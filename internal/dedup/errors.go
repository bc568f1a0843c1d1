// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

import "errors"

// ErrMissingLinkingID is returned by the Component-Part Cascader when the
// host record submitted to it has no linking_id.
var ErrMissingLinkingID = errors.New("dedup: host record has no linking id")

// ErrDanglingReference describes a Record/DedupGroup back-link that points
// at a missing counterpart. The engine does not construct it: the call
// sites that meet a dangling reference (candidate filtering, cascading,
// leave's re-dedup loop) log the store error and skip the reference.
type ErrDanglingReference struct {
	GroupID  string
	RecordID string
	Reason   string
}

func (e *ErrDanglingReference) Error() string {
	return "dedup: dangling reference group=" + e.GroupID + " record=" + e.RecordID + ": " + e.Reason
}

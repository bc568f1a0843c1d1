// SPDX-License-Identifier: AGPL-3.0-or-later

package strutil

import (
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// idCollator produces collation keys under a fixed, neutral locale so that
// sort keys are stable across process restarts and platforms. A Collator
// keeps per-call iteration state, so concurrent callers are serialized by
// idCollatorMu.
var (
	idCollatorMu sync.Mutex
	idCollator   = collate.New(language.Und)
)

// IDSortKey returns an opaque, comparable sort key for id. The only
// requirement is that two sources listing the same set of component ids in
// differently-ordered storage sort into aligned order when the components
// truly correspond 1:1; a language-neutral collation key satisfies that
// without requiring callers to reason about raw byte order across
// differently-encoded ids.
func IDSortKey(id string) []byte {
	idCollatorMu.Lock()
	defer idCollatorMu.Unlock()
	return idCollator.Key(new(collate.Buffer), []byte(id))
}

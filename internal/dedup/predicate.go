// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

import (
	"github.com/bibliodedup/core/internal/metadata"
	"github.com/bibliodedup/core/internal/metrics"
	"github.com/bibliodedup/core/internal/models"
	"github.com/bibliodedup/core/internal/strutil"
)

// titleRatioVeto is the title-gate threshold (rule 8): a ratio of
// exactly 10.00 vetoes the match, 9.99 passes.
const titleRatioVeto = 10.0

// authorRatioVeto is the author-gate fallback threshold (rule 9).
const authorRatioVeto = 20.0

// pageCountTolerance is the largest acceptable |p_R - p_C| (rule 6).
const pageCountTolerance = 10

// MatchPredicate decides whether two records represent the same work,
// given their MetadataViews, under the fixed short-circuit rule ladder of
// the fixed rule ladder below. It is pure aside from delegating to formatMapper.
type MatchPredicate struct {
	formatMapper FormatMapper
}

// NewMatchPredicate builds a predicate that consults formatMapper for
// rule 4's format veto.
func NewMatchPredicate(formatMapper FormatMapper) *MatchPredicate {
	return &MatchPredicate{formatMapper: formatMapper}
}

// Match runs the rule ladder for record pair (r, rm) vs (c, cm). The
// first decisive rule wins; later rules are never consulted once one
// fires (I5).
func (p *MatchPredicate) Match(r *models.Record, rm metadata.View, c *models.Record, cm metadata.View) bool {
	// Rule 1: shared ISBN.
	if intersects(rm.ISBNs(), cm.ISBNs()) {
		metrics.Matches.WithLabelValues("isbn").Inc()
		return true
	}

	// Rule 2: shared unique id.
	if intersects(rm.UniqueIDs(), cm.UniqueIDs()) {
		metrics.Matches.WithLabelValues("unique_id").Inc()
		return true
	}

	// Rule 3: ISSN veto.
	rISSN, cISSN := rm.ISSNs(), cm.ISSNs()
	if len(rISSN) > 0 && len(cISSN) > 0 && !intersects(rISSN, cISSN) {
		return false
	}

	// Rule 4: format veto.
	if rm.Format() != cm.Format() {
		mappedR := p.formatMapper.MapFormat(r.SourceID, rm.Format())
		mappedC := p.formatMapper.MapFormat(c.SourceID, cm.Format())
		if mappedR != mappedC {
			return false
		}
	}

	// Rule 5: year veto.
	rYear, cYear := rm.PublicationYear(), cm.PublicationYear()
	if rYear != 0 && cYear != 0 && rYear != cYear {
		return false
	}

	// Rule 6: page-count veto.
	rPages, cPages := rm.PageCount(), cm.PageCount()
	if rPages != 0 && cPages != 0 && absInt(rPages-cPages) > pageCountTolerance {
		return false
	}

	// Rule 7: series veto.
	if rm.SeriesISSN() != cm.SeriesISSN() || rm.SeriesNumbering() != cm.SeriesNumbering() {
		return false
	}

	// Rule 8: title gate.
	tR := strutil.Truncate255(rm.Title(true))
	tC := strutil.Truncate255(cm.Title(true))
	if tR == "" || tC == "" {
		return false
	}
	d := strutil.Levenshtein(tR, tC)
	if strutil.RatioPercent(tR, d) >= titleRatioVeto {
		return false
	}

	// Rule 9: author gate.
	aR := rm.MainAuthor()
	aC := cm.MainAuthor()
	switch {
	case aR == "" && aC == "":
		// skip
	case aR == "" || aC == "":
		return false
	default:
		if !strutil.AuthorMatch(aR, aC) {
			at := strutil.Truncate255(aR)
			ac := strutil.Truncate255(aC)
			da := strutil.Levenshtein(at, ac)
			if strutil.RatioPercent(at, da) > authorRatioVeto {
				return false
			}
		}
	}

	// Rule 10: default match.
	metrics.Matches.WithLabelValues("default").Inc()
	return true
}

func intersects(a, b []string) bool {
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

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Package policy decides which code-search match, if any, qualifies a candidate
package policy

import (
	"context"
	"slices"
	"strings"

	"contractscout/internal/core/contract"
)

// Prober answers whether a match's source contains a keyword
type Prober interface {
	Contains(ctx context.Context, m contract.Match, keyword string) (bool, error)
}

// ProberFunc adapts a function to Prober
type ProberFunc func(ctx context.Context, m contract.Match, keyword string) (bool, error)

// Contains implements Prober
func (f ProberFunc) Contains(ctx context.Context, m contract.Match, keyword string) (bool, error) {
	return f(ctx, m, keyword)
}

// Reason explains why a match was discarded
type Reason string

// Discard reasons
const (
	ReasonRank       Reason = "rank_above_ceiling"
	ReasonTotal      Reason = "total_above_ceiling"
	ReasonEngagement Reason = "engagement_below_minimum"
	ReasonArtifact   Reason = "artifact_type_mismatch"
	ReasonKeyword    Reason = "keyword_missing"
)

// Check applies the static predicates to one match; ok is false with the first failing reason.
// A query whose reported hit count exceeds the ceiling is too generic to trust at any rank
func Check(m contract.Match, site contract.Site) (Reason, bool) {
	switch {
	case m.Total > site.ResultCeiling:
		return ReasonTotal, false
	case m.Rank > site.ResultCeiling:
		return ReasonRank, false
	case m.Engagement < site.MinEngagement:
		return ReasonEngagement, false
	case site.ArtifactFilter != "" && !strings.EqualFold(string(m.Artifact), string(site.ArtifactFilter)):
		return ReasonArtifact, false
	}
	return "", true
}

// Screen keeps the matches passing the rank, engagement and artifact predicates,
// best first: lower rank wins, ties go to higher engagement
func Screen(matches []contract.Match, site contract.Site) []contract.Match {
	out := make([]contract.Match, 0, len(matches))
	for _, m := range matches {
		if _, ok := Check(m, site); ok {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b contract.Match) int {
		if a.Rank != b.Rank {
			return a.Rank - b.Rank
		}
		return b.Engagement - a.Engagement
	})
	return out
}

// Accept returns the best match that survives every predicate. When the site
// requires a keyword each survivor is probed in order until one contains it.
// A prober error aborts the decision so the candidate can be retried later
func Accept(ctx context.Context, matches []contract.Match, site contract.Site, prober Prober) (contract.Match, bool, error) {
	for _, m := range Screen(matches, site) {
		if site.RequiredKeyword == "" {
			return m, true, nil
		}
		if prober == nil {
			return contract.Match{}, false, nil
		}
		ok, err := prober.Contains(ctx, m, site.RequiredKeyword)
		if err != nil {
			return contract.Match{}, false, err
		}
		if ok {
			return m, true, nil
		}
	}
	return contract.Match{}, false, nil
}

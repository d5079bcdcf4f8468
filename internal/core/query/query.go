// Package query derives code-search queries from contract candidates
package query

import (
	"strings"

	"contractscout/internal/core/contract"
)

// Query is one code-search request derived from a candidate
type Query struct {
	Strategy contract.Strategy
	Term     string
	Keyword  string // only set by name_keyword
	Language string
	Artifact contract.ArtifactType
}

// String renders the search expression sent to the code-search service
func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.Term)
	if q.Keyword != "" {
		b.WriteString(" ")
		b.WriteString(quote(q.Keyword))
	}
	if q.Language != "" && q.Artifact != contract.ArtifactUsers && q.Artifact != contract.ArtifactTopics {
		b.WriteString(" language:")
		b.WriteString(q.Language)
	}
	return b.String()
}

// Build derives the query for one strategy. ok is false when the candidate lacks
// the input the strategy needs (an unnamed contract has no name query)
func Build(s contract.Strategy, c contract.Candidate, site contract.Site) (Query, bool) {
	q := Query{Strategy: s, Language: site.Language, Artifact: site.ArtifactSearch}
	switch s {
	case contract.StrategyAddress:
		addr := strings.ToLower(c.Address)
		if addr == "" {
			return Query{}, false
		}
		q.Term = addr
	case contract.StrategyName:
		name := cleanName(c.Name)
		if name == "" {
			return Query{}, false
		}
		q.Term = name
	case contract.StrategyNameKeyword:
		name := cleanName(c.Name)
		if name == "" || site.RequiredKeyword == "" {
			return Query{}, false
		}
		q.Term = name
		q.Keyword = site.RequiredKeyword
	default:
		return Query{}, false
	}
	return q, true
}

// Plan returns the site's queries for c in strategy order, skipping inapplicable ones
func Plan(c contract.Candidate, site contract.Site) []Query {
	out := make([]Query, 0, len(site.Strategies))
	for _, s := range site.Strategies {
		if q, ok := Build(s, c, site); ok {
			out = append(out, q)
		}
	}
	return out
}

// cleanName drops search operators and whitespace runs from a contract name
func cleanName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '"', ':', '(', ')', '\\':
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func quote(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}

// Package domain defines the collaborators and observable state of the poll loops
package domain

import (
	"context"

	"contractscout/internal/core/contract"
	"contractscout/internal/core/query"
)

// PageFetcher returns the rendered listing page of a site
type PageFetcher interface {
	Fetch(ctx context.Context, site contract.Site) (string, error)
}

// Extractor turns a rendered page into candidates in page order
type Extractor interface {
	Extract(site contract.Site, page string) ([]contract.Candidate, error)
}

// Searcher runs one code search and returns at most ceiling ranked matches
type Searcher interface {
	Search(ctx context.Context, q query.Query, ceiling int) ([]contract.Match, error)
}

// Notifier announces a matched candidate
type Notifier interface {
	Notify(ctx context.Context, c contract.Candidate, m contract.Match) error
}

// RunnerPort runs every site loop until ctx is done
type RunnerPort interface {
	Run(ctx context.Context) error
}

// StatusPort exposes loop state to the status API
type StatusPort interface {
	Sites() []SiteStatus
	Site(id string) (SiteStatus, bool)
}

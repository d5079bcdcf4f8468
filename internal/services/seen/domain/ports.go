// Package domain defines the ports of the seen-contracts store
package domain

import (
	"context"

	"contractscout/internal/core/contract"
)

// StorePort is the single source of truth for which candidates were resolved.
// Records are append-only: at most one per (site, address), never mutated
type StorePort interface {
	// Has is an in-memory lookup; the index is rebuilt from durable storage at open
	Has(site, address string) bool

	// Record durably appends the resolution of c before returning.
	// Recording an existing key is a no-op
	Record(ctx context.Context, c contract.Candidate, o contract.Outcome) error

	// Records returns the site's records in recording order
	Records(ctx context.Context, site string) ([]contract.SeenRecord, error)

	// Len is the number of indexed keys for site
	Len(site string) int

	Close() error
}

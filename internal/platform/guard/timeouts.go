// Package guard holds per-phase time budgets for a poll cycle
package guard

import (
	"context"
	"time"
)

// Timeouts bundles the budget of each external phase of a cycle.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Cycle is the overall budget for one poll cycle
	Cycle time.Duration

	// Fetch caps the explorer page fetch, retries included
	Fetch time.Duration

	// Search caps one candidate's correlation (all strategies and probes)
	Search time.Duration

	// Notify caps one notification dispatch, retries included
	Notify time.Duration

	// Persist caps one SeenStore write
	Persist time.Duration
}

// ForCycle returns a context limited by the cycle budget without extending any parent deadline
func ForCycle(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Cycle)
}

// ForFetch returns a sub context for the fetch phase
func ForFetch(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Fetch)
}

// ForSearch returns a sub context for correlating one candidate
func ForSearch(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Search)
}

// ForNotify returns a sub context for one notification
func ForNotify(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Notify)
}

// ForPersist returns a context for one durable write. It is detached from
// parent cancellation so a write that has started completes during shutdown
func ForPersist(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(context.WithoutCancel(parent), t.Persist)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of d and the parent remainder.
// Never extends the parent deadline; d <= 0 yields a cancelable child
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}

package testkit

import (
	"sync"
	"testing"
)

// seams guards package-level variables that tests replace
var seams sync.Mutex

// Swap points *target at v until t finishes
func Swap[T any](t *testing.T, target *T, v T) {
	t.Helper()
	prev := *target
	*target = v
	t.Cleanup(func() { *target = prev })
}

// Serial holds the seam lock for the rest of t. Call it before Swap in any test
// that may run in parallel with another test touching the same variable
func Serial(t *testing.T) {
	t.Helper()
	seams.Lock()
	t.Cleanup(seams.Unlock)
}

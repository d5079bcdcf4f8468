package guard

import (
	"context"
	"testing"
	"time"
)

func TestChildNeverExtendsParent(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ctx, c2 := ForFetch(parent, Timeouts{Fetch: time.Hour})
	defer c2()
	if rem := Remaining(ctx); rem <= 0 || rem > 50*time.Millisecond {
		t.Fatalf("remaining = %v, want <= 50ms", rem)
	}
}

func TestChildTightensParent(t *testing.T) {
	ctx, cancel := ForSearch(context.Background(), Timeouts{Search: 20 * time.Millisecond})
	defer cancel()
	if rem := Remaining(ctx); rem <= 0 || rem > 20*time.Millisecond {
		t.Fatalf("remaining = %v, want <= 20ms", rem)
	}
}

func TestZeroMeansInherit(t *testing.T) {
	ctx, cancel := ForNotify(context.Background(), Timeouts{})
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatalf("zero budget must not set a deadline")
	}
	if Remaining(ctx) != 0 {
		t.Fatalf("Remaining without deadline must be zero")
	}
}

func TestPersistSurvivesParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, c2 := ForPersist(parent, Timeouts{Persist: time.Second})
	defer c2()
	cancel()
	if err := ctx.Err(); err != nil {
		t.Fatalf("persist ctx cancelled with parent: %v", err)
	}
	if rem := Remaining(ctx); rem <= 0 {
		t.Fatalf("persist ctx lost its own budget")
	}
}

func TestCycleBudget(t *testing.T) {
	ctx, cancel := ForCycle(context.Background(), Timeouts{Cycle: time.Millisecond})
	defer cancel()
	<-ctx.Done()
	if ctx.Err() != context.DeadlineExceeded {
		t.Fatalf("err = %v", ctx.Err())
	}
}

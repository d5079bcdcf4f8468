package testkit

import (
	"context"
	"testing"
	"time"
)

func TestMustPanic(t *testing.T) {
	t.Parallel()

	MustPanic(t, func() {
		panic("boom")
	})
}

func TestMustNotPanic(t *testing.T) {
	t.Parallel()

	MustNotPanic(t, func() {
		// no panic
	})
}

func TestMustContain(t *testing.T) {
	t.Parallel()

	haystack := "alpha beta gamma"
	MustContain(t, haystack, "beta")
}

func TestWriteFileAndFixtureRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := WriteFile(t, dir, "page.html", "<table></table>")
	MustContain(t, p, "page.html")
}

func TestSleeperRecords(t *testing.T) {
	t.Parallel()

	var s Sleeper
	calls := 0
	s.OnCall = func(n int) { calls = n }
	ctx := context.Background()
	_ = s.Sleep(ctx, time.Second)
	_ = s.Sleep(ctx, 2*time.Second)
	if got := s.Total(); got != 3*time.Second {
		t.Fatalf("Total = %v, want 3s", got)
	}
	if calls != 2 {
		t.Fatalf("OnCall last n = %d, want 2", calls)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.Sleep(cctx, time.Millisecond); err == nil {
		t.Fatalf("expected ctx error after cancel")
	}
}

package testkit

import (
	"context"
	"sync"
	"time"
)

// Sleeper records requested sleeps instead of blocking; it satisfies the
// func(ctx, d) error sleep seams used by retry and the poll loop
type Sleeper struct {
	mu     sync.Mutex
	slept  []time.Duration
	OnCall func(n int) // optional hook, n is the 1-based call index
}

// Sleep records d and returns ctx.Err() so cancellation still ends loops
func (s *Sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.slept = append(s.slept, d)
	n := len(s.slept)
	hook := s.OnCall
	s.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return ctx.Err()
}

// Calls returns a copy of the recorded sleeps
func (s *Sleeper) Calls() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.slept...)
}

// Total returns the sum of recorded sleeps
func (s *Sleeper) Total() time.Duration {
	var sum time.Duration
	for _, d := range s.Calls() {
		sum += d
	}
	return sum
}

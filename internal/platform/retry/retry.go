// Package retry runs an operation under a bounded exponential backoff schedule
package retry

import (
	"context"
	stderrs "errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes a bounded backoff schedule.
// Attempt i (0-based) waits at most min(Base*2^i, Max) * (1 + Jitter) before the next try
type Policy struct {
	Base    time.Duration
	Max     time.Duration
	Retries int     // retries after the first call; Retries+1 calls in total
	Jitter  float64 // randomization factor in [0, 1]
}

// Default is the schedule used by the external adapters unless configured otherwise
var Default = Policy{Base: 500 * time.Millisecond, Max: 30 * time.Second, Retries: 4, Jitter: 0.2}

// Bound returns the largest total sleep the policy can produce without server hints
func (p Policy) Bound() time.Duration {
	p = p.normalized()
	var sum float64
	d := p.Base
	for range p.Retries {
		sum += float64(min(d, p.Max)) * (1 + p.Jitter)
		if d < p.Max {
			d *= 2
		}
	}
	return time.Duration(sum)
}

func (p Policy) normalized() Policy {
	if p.Base <= 0 {
		p.Base = Default.Base
	}
	if p.Max < p.Base {
		p.Max = p.Base
	}
	if p.Retries < 0 {
		p.Retries = 0
	}
	p.Jitter = min(max(p.Jitter, 0), 1)
	return p
}

// schedule builds the cenkalti generator for one Do call
func (p Policy) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Base
	b.Multiplier = 2
	b.RandomizationFactor = p.Jitter
	b.MaxInterval = p.Max
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Sleeper waits d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Option tweaks a single Do call
type Option func(*runOpts)

type runOpts struct {
	sleep  Sleeper
	notify func(err error, attempt int, wait time.Duration)
}

// WithSleeper injects the sleep function (tests use a recorder)
func WithSleeper(s Sleeper) Option { return func(o *runOpts) { o.sleep = s } }

// WithNotify is called before every sleep with the failure that caused it
func WithNotify(fn func(err error, attempt int, wait time.Duration)) Option {
	return func(o *runOpts) { o.notify = fn }
}

// Do calls op until it succeeds, returns a permanent error, the context ends or
// the retry budget is spent. The last op error is returned on exhaustion
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error, opts ...Option) error {
	o := runOpts{sleep: SleepCtx}
	for _, fn := range opts {
		fn(&o)
	}
	p = p.normalized()
	sched := p.schedule()

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if stderrs.As(err, &perm) {
			return perm.err
		}
		// our own context ending is not a transient failure of op
		if ctx.Err() != nil {
			return err
		}
		if attempt >= p.Retries {
			return err
		}

		wait := sched.NextBackOff()
		if hint, ok := hintOf(err); ok && hint > wait {
			// server hints win but never beyond the cap
			wait = min(hint, p.Max)
		}
		if o.notify != nil {
			o.notify(err, attempt+1, wait)
		}
		if se := o.sleep(ctx, wait); se != nil {
			return se
		}
	}
}

// SleepCtx waits d or until ctx is done
func SleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; Do returns the inner error
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var perm *permanentError
	return stderrs.As(err, &perm)
}

type afterError struct {
	err   error
	after time.Duration
}

func (e *afterError) Error() string { return e.err.Error() }
func (e *afterError) Unwrap() error { return e.err }

// After attaches a server supplied wait hint (Retry-After, rate-limit reset) to err
func After(err error, d time.Duration) error {
	if err == nil {
		return nil
	}
	return &afterError{err: err, after: d}
}

func hintOf(err error) (time.Duration, bool) {
	var ae *afterError
	if stderrs.As(err, &ae) && ae.after > 0 {
		return ae.after, true
	}
	return 0, false
}

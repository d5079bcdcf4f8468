// Package notify formats and dispatches match notifications
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"contractscout/internal/core/contract"
	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/logger"
	"contractscout/internal/platform/retry"
)

// Sender delivers one message; one call is one attempt
type Sender interface {
	Send(ctx context.Context, text string) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, text string) error

// Send implements Sender
func (f SenderFunc) Send(ctx context.Context, text string) error { return f(ctx, text) }

// LogSender writes messages to the log instead of a chat
type LogSender struct{ log logger.Logger }

// NewLogSender returns the channel used when no chat credentials are configured
func NewLogSender() *LogSender { return &LogSender{log: *logger.Named("notify")} }

// Send implements Sender
func (s *LogSender) Send(_ context.Context, text string) error {
	s.log.Info().Str("channel", "log").Str("text", text).Msg("notification")
	return nil
}

// Notifier retries dispatch and delivers at most once per candidate key within the process
type Notifier struct {
	sender Sender
	policy retry.Policy
	sleep  retry.Sleeper
	log    logger.Logger

	mu    sync.Mutex
	sent  map[contract.Key]struct{}
	locks map[contract.Key]*keyLock // only keys with a dispatch in flight
}

// keyLock serializes dispatch for one key; refs counts holders and waiters
type keyLock struct {
	sync.Mutex
	refs int
}

// New constructs a Notifier over sender with the given retry schedule
func New(sender Sender, p retry.Policy) *Notifier {
	return &Notifier{
		sender: sender,
		policy: p,
		sleep:  retry.SleepCtx,
		log:    *logger.Named("notify"),
		sent:   map[contract.Key]struct{}{},
		locks:  map[contract.Key]*keyLock{},
	}
}

// Format renders the message for a matched candidate
func Format(c contract.Candidate, m contract.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New %s Contract on Github:\n%s\n\n", c.Site, m.URL)
	name := c.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(&b, "%s %s", name, c.Address)
	if c.URL != "" {
		fmt.Fprintf(&b, "\n%s", c.URL)
	}
	return b.String()
}

// Notify dispatches the message for c. A key already delivered is a no-op.
// Exhausted or rejected dispatch returns ErrorCodeNotify
func (n *Notifier) Notify(ctx context.Context, c contract.Candidate, m contract.Match) error {
	k := c.Key()
	lk := n.acquire(k)
	defer n.release(k, lk)

	if n.wasSent(k) {
		return nil
	}

	text := Format(c, m)
	err := retry.Do(ctx, n.policy, func(ctx context.Context) error { return n.sender.Send(ctx, text) },
		retry.WithSleeper(n.sleep),
		retry.WithNotify(func(err error, attempt int, wait time.Duration) {
			n.log.Warn().Err(err).Str("site", c.Site).Str("address", k.Address).Int("attempt", attempt).
				Dur("retry_in", wait).Msg("notification retrying")
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return perr.Wrapf(err, perr.ErrorCodeNotify, "notify %s", k.String())
	}

	n.mu.Lock()
	n.sent[k] = struct{}{}
	n.mu.Unlock()
	return nil
}

func (n *Notifier) acquire(k contract.Key) *keyLock {
	n.mu.Lock()
	lk := n.locks[k]
	if lk == nil {
		lk = &keyLock{}
		n.locks[k] = lk
	}
	lk.refs++
	n.mu.Unlock()
	lk.Lock()
	return lk
}

func (n *Notifier) release(k contract.Key, lk *keyLock) {
	lk.Unlock()
	n.mu.Lock()
	defer n.mu.Unlock()
	if lk.refs--; lk.refs == 0 {
		delete(n.locks, k)
	}
}

// inflight reports how many keys currently hold a dispatch lock
func (n *Notifier) inflight() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.locks)
}

func (n *Notifier) wasSent(k contract.Key) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.sent[k]
	return ok
}

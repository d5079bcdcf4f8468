package notify

import (
	"context"
	stderrs "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"contractscout/internal/core/contract"
	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/retry"
	kit "contractscout/internal/platform/testkit"
)

var (
	foo   = contract.Candidate{Site: "etherscan.io", Address: "0xaaaa000000000000000000000000000000000001", Name: "Foo", URL: "https://etherscan.io/address/0xaaaa000000000000000000000000000000000001"}
	match = contract.Match{URL: "https://github.com/alice/foo"}
	quick = retry.Policy{Base: time.Millisecond, Max: 10 * time.Millisecond, Retries: 3}
)

func newTestNotifier(s Sender) (*Notifier, *kit.Sleeper) {
	n := New(s, quick)
	sl := &kit.Sleeper{}
	n.sleep = sl.Sleep
	return n, sl
}

func TestFormat(t *testing.T) {
	got := Format(foo, match)
	kit.MustContain(t, got, "New etherscan.io Contract on Github:\nhttps://github.com/alice/foo")
	kit.MustContain(t, got, "Foo 0xaaaa000000000000000000000000000000000001")
	kit.MustContain(t, got, foo.URL)

	unnamed := foo
	unnamed.Name, unnamed.URL = "", ""
	kit.MustContain(t, Format(unnamed, match), "(unnamed)")
}

func TestNotifyOncePerKey(t *testing.T) {
	var sends atomic.Int32
	n, _ := newTestNotifier(SenderFunc(func(context.Context, string) error { sends.Add(1); return nil }))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := n.Notify(context.Background(), foo, match); err != nil {
				t.Errorf("Notify: %v", err)
			}
		}()
	}
	wg.Wait()
	if sends.Load() != 1 {
		t.Fatalf("sends = %d, want 1", sends.Load())
	}
	if n.inflight() != 0 {
		t.Fatalf("locks retained = %d", n.inflight())
	}
}

func TestNotifyReleasesKeyLocks(t *testing.T) {
	fail := true
	n, _ := newTestNotifier(SenderFunc(func(context.Context, string) error {
		if fail {
			return retry.Permanent(stderrs.New("chat not found"))
		}
		return nil
	}))
	for i := range 50 {
		c := foo
		c.Address = fmt.Sprintf("0x%040x", i+1)
		_ = n.Notify(context.Background(), c, match)
		fail = !fail
	}
	if n.inflight() != 0 {
		t.Fatalf("locks retained after 50 keys = %d", n.inflight())
	}
}

func TestNotifyRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	n, sl := newTestNotifier(SenderFunc(func(context.Context, string) error {
		if calls.Add(1) < 3 {
			return perr.Unavailablef("telegram 502")
		}
		return nil
	}))
	if err := n.Notify(context.Background(), foo, match); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if calls.Load() != 3 || len(sl.Calls()) != 2 {
		t.Fatalf("calls=%d sleeps=%d", calls.Load(), len(sl.Calls()))
	}
}

func TestNotifyExhaustionIsNotifyError(t *testing.T) {
	var calls atomic.Int32
	n, _ := newTestNotifier(SenderFunc(func(context.Context, string) error {
		calls.Add(1)
		return perr.Unavailablef("down")
	}))
	err := n.Notify(context.Background(), foo, match)
	if !perr.IsCode(err, perr.ErrorCodeNotify) {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != int32(quick.Retries+1) {
		t.Fatalf("calls = %d", calls.Load())
	}

	// a failed key can be tried again later
	calls.Store(0)
	n.sender = SenderFunc(func(context.Context, string) error { calls.Add(1); return nil })
	if err := n.Notify(context.Background(), foo, match); err != nil || calls.Load() != 1 {
		t.Fatalf("retry after failure: err=%v calls=%d", err, calls.Load())
	}
}

func TestNotifyPermanentRejection(t *testing.T) {
	var calls atomic.Int32
	n, _ := newTestNotifier(SenderFunc(func(context.Context, string) error {
		calls.Add(1)
		return retry.Permanent(stderrs.New("chat not found"))
	}))
	err := n.Notify(context.Background(), foo, match)
	if !perr.IsCode(err, perr.ErrorCodeNotify) || calls.Load() != 1 {
		t.Fatalf("err=%v calls=%d", err, calls.Load())
	}
}

func TestLogSender(t *testing.T) {
	if err := NewLogSender().Send(context.Background(), "hello"); err != nil {
		t.Fatalf("LogSender: %v", err)
	}
}

package explorer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"contractscout/internal/core/contract"
	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/retry"
	kit "contractscout/internal/platform/testkit"
)

func newTestFetcher(t *testing.T, h http.Handler) (*Fetcher, contract.Site, *kit.Sleeper) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	f := New(Options{PageSize: 100, Retry: retry.Policy{Base: 10 * time.Millisecond, Max: time.Second, Retries: 2}})
	s := &kit.Sleeper{}
	f.sleep = s.Sleep
	return f, contract.Site{ID: "etherscan.io", BaseURL: srv.URL}, s
}

func TestFetchVerified(t *testing.T) {
	f, site, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contractsVerified/1" || r.URL.Query().Get("ps") != "100" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing user agent")
		}
		_, _ = fmt.Fprint(w, "<table></table>")
	}))
	page, err := f.Fetch(context.Background(), site)
	if err != nil || page != "<table></table>" {
		t.Fatalf("Fetch = %q, %v", page, err)
	}
}

func TestFetchSearchURL(t *testing.T) {
	f, site, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/searchcontractlist" || q.Get("q") != "uniswap v2" || q.Get("a") != "all" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_, _ = fmt.Fprint(w, "cards")
	}))
	if _, err := f.FetchSearch(context.Background(), site, "uniswap v2"); err != nil {
		t.Fatalf("FetchSearch: %v", err)
	}
}

func TestFetchRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	f, site, s := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	_, err := f.Fetch(context.Background(), site)
	if !perr.IsCode(err, perr.ErrorCodeFetch) {
		t.Fatalf("err = %v, want fetch error", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
	for _, d := range s.Calls() {
		if d != time.Second {
			t.Fatalf("retry-after not honoured: %v", s.Calls())
		}
	}
}

func TestFetchNotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	f, site, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	_, err := f.Fetch(context.Background(), site)
	if !perr.IsCode(err, perr.ErrorCodeFetch) || calls.Load() != 1 {
		t.Fatalf("err=%v calls=%d", err, calls.Load())
	}
}

type extractFunc func(site contract.Site, page string) ([]contract.Candidate, error)

func (f extractFunc) Extract(site contract.Site, page string) ([]contract.Candidate, error) {
	return f(site, page)
}

// pageNumbered yields two candidates per page; pages past last repeat the final page
func pageNumbered(last int) extractFunc {
	return func(site contract.Site, page string) ([]contract.Candidate, error) {
		var n int
		if _, err := fmt.Sscanf(page, "page=%d", &n); err != nil {
			return nil, perr.Extractionf("no listing")
		}
		n = min(n, last)
		return []contract.Candidate{
			{Site: site.ID, Address: fmt.Sprintf("0x%040x", 2*n)},
			{Site: site.ID, Address: fmt.Sprintf("0x%040x", 2*n+1)},
		}, nil
	}
}

func searchPages(pages int, calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		n := 1
		if p := r.URL.Query().Get("p"); p != "" {
			_, _ = fmt.Sscanf(p, "%d", &n)
		}
		fmt.Fprintf(w, "page=%d\n", n)
		if n < pages {
			fmt.Fprintf(w, `<ul><li><a href="?p=%d">Next &gt;</a></li></ul>`, n+1)
		} else {
			fmt.Fprint(w, `<ul><li class="disabled"><a href="#">Next &gt;</a></li></ul>`)
		}
	}
}

func TestSearchAllFollowsNextUntilLastPage(t *testing.T) {
	var calls atomic.Int32
	f, site, _ := newTestFetcher(t, searchPages(3, &calls))
	got, err := f.SearchAll(context.Background(), site, "token", 0, pageNumbered(3))
	if err != nil || len(got) != 6 || calls.Load() != 3 {
		t.Fatalf("SearchAll = %d candidates, %d requests, err=%v", len(got), calls.Load(), err)
	}
}

func TestSearchAllStopsAtLimit(t *testing.T) {
	var calls atomic.Int32
	f, site, _ := newTestFetcher(t, searchPages(10, &calls))
	got, err := f.SearchAll(context.Background(), site, "token", 3, pageNumbered(10))
	if err != nil || len(got) != 3 || calls.Load() != 2 {
		t.Fatalf("SearchAll = %d candidates, %d requests, err=%v", len(got), calls.Load(), err)
	}
}

func TestSearchAllStopsWhenPagesRepeat(t *testing.T) {
	var calls atomic.Int32
	// the site keeps offering Next but serves page 2 forever
	f, site, _ := newTestFetcher(t, searchPages(100, &calls))
	got, err := f.SearchAll(context.Background(), site, "token", 0, pageNumbered(2))
	if err != nil || len(got) != 4 || calls.Load() != 3 {
		t.Fatalf("SearchAll = %d candidates, %d requests, err=%v", len(got), calls.Load(), err)
	}
}

func TestHasNext(t *testing.T) {
	cases := map[string]bool{
		`<a href="/contractsVerified/2">Next</a>`:                    true,
		`<li class="page-item disabled"><a href="#">Next</a></li>`: false,
		`<a href="/x" aria-disabled="true">Next</a>`:                 false,
		`<a href="/contractsVerified/1">First</a>`:                   false,
	}
	for page, want := range cases {
		if got := HasNext(page); got != want {
			t.Fatalf("HasNext(%q) = %v", page, got)
		}
	}
}

// Package explorer fetches rendered listing pages from block explorers
package explorer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"contractscout/internal/core/contract"
	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/logger"
	"contractscout/internal/platform/retry"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultPageSize = 100
	// browsers get the server-rendered table; bare clients are often challenged
	defaultUA    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxPageBytes = 8 << 20
)

// Options configures the Fetcher
type Options struct {
	Timeout   time.Duration // per attempt
	UserAgent string
	PageSize  int
	Retry     retry.Policy
}

// Fetcher GETs explorer pages over plain HTTP with retries
type Fetcher struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	sleep retry.Sleeper
}

// New constructs a Fetcher with defaults applied
func New(o Options) *Fetcher {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.PageSize <= 0 {
		o.PageSize = defaultPageSize
	}
	if o.Retry == (retry.Policy{}) {
		o.Retry = retry.Default
	}
	return &Fetcher{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("explorer"),
		sleep: retry.SleepCtx,
	}
}

// VerifiedURL is the first page of the site's recently verified contracts
func (f *Fetcher) VerifiedURL(site contract.Site, page int) string {
	return fmt.Sprintf("%s/contractsVerified/%d?ps=%d", site.BaseURL, max(page, 1), f.opts.PageSize)
}

// SearchURL is one page of the site's contract search for keyword
func (f *Fetcher) SearchURL(site contract.Site, keyword string, page int) string {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("a", "all")
	q.Set("ps", strconv.Itoa(f.opts.PageSize))
	if page > 1 {
		q.Set("p", strconv.Itoa(page))
	}
	return site.BaseURL + "/searchcontractlist?" + q.Encode()
}

// Fetch returns the newest verified-contracts listing of site
func (f *Fetcher) Fetch(ctx context.Context, site contract.Site) (string, error) {
	return f.get(ctx, site, f.VerifiedURL(site, 1))
}

// FetchSearch returns the first contract search page for keyword
func (f *Fetcher) FetchSearch(ctx context.Context, site contract.Site, keyword string) (string, error) {
	return f.FetchSearchPage(ctx, site, keyword, 1)
}

// FetchSearchPage returns page n (1-based) of the contract search for keyword
func (f *Fetcher) FetchSearchPage(ctx context.Context, site contract.Site, keyword string, n int) (string, error) {
	return f.get(ctx, site, f.SearchURL(site, keyword, n))
}

func (f *Fetcher) get(ctx context.Context, site contract.Site, target string) (string, error) {
	var page string
	err := retry.Do(ctx, f.opts.Retry, func(ctx context.Context) error {
		b, err := f.attempt(ctx, target)
		if err != nil {
			return err
		}
		page = string(b)
		return nil
	},
		retry.WithSleeper(f.sleep),
		retry.WithNotify(func(err error, attempt int, wait time.Duration) {
			f.log.Warn().Err(err).Str("site", site.ID).Int("attempt", attempt).Dur("retry_in", wait).Msg("explorer fetch retrying")
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", perr.Wrapf(err, perr.ErrorCodeFetch, "fetch %s", target)
	}
	return page, nil
}

func (f *Fetcher) attempt(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, retry.Permanent(perr.Wrap(err, perr.ErrorCodeInvalidArgument, "explorer new request failed"))
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "explorer do failed")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "explorer read body failed")
		}
		return b, nil
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusForbidden, resp.StatusCode >= 500:
		// rate limits and bot challenges clear up with time
		err := perr.Newf(perr.ErrorCodeUnavailable, "explorer status %d", resp.StatusCode)
		if s := resp.Header.Get("Retry-After"); s != "" {
			if sec, convErr := strconv.Atoi(s); convErr == nil && sec > 0 {
				return nil, retry.After(err, time.Duration(sec)*time.Second)
			}
		}
		return nil, err
	default:
		return nil, retry.Permanent(perr.Newf(perr.ErrorCodeNotFound, "explorer status %d", resp.StatusCode))
	}
}

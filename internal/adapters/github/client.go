// Package github provides a rate-limited GitHub REST v3 client for code search
package github

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/logger"
	"contractscout/internal/platform/retry"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	baseURLDefault     = "https://api.github.com"
	defaultTimeout     = 10 * time.Second
	defaultUA          = "contractscout"
	defaultMaxInFlight = 4
	maxBodyBytes       = 4 << 20

	acceptJSON = "application/vnd.github+json"
	acceptRaw  = "application/vnd.github.raw+json"
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration // per attempt

	// Comma separated tokens, rotated round robin.
	// Empty means tokenless which is very low quota and cannot use code search
	TokensCSV string

	// Retry schedule for transport errors, 5xx and rate limits
	Retry retry.Policy

	// Aggregate budget shared by every caller of this client.
	// RatePerSec <= 0 disables the token bucket
	RatePerSec  float64
	Burst       int
	MaxInFlight int64
}

// Client is a minimal GitHub REST client with token rotation, retries and a request budget
type Client struct {
	http    *http.Client
	opts    Options
	tokens  []string
	cur     atomic.Int32
	log     logger.Logger
	now     func() time.Time
	sleep   retry.Sleeper
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Retry == (retry.Policy{}) {
		o.Retry = retry.Default
	}
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = defaultMaxInFlight
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if o.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(o.RatePerSec), max(o.Burst, 1))
	}
	var toks []string
	if s := strings.TrimSpace(o.TokensCSV); s != "" {
		for t := range strings.SplitSeq(s, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				toks = append(toks, t)
			}
		}
	}
	return &Client{
		http:    &http.Client{Timeout: o.Timeout},
		opts:    o,
		tokens:  toks,
		log:     *logger.Named("github"),
		now:     time.Now,
		sleep:   retry.SleepCtx,
		limiter: lim,
		sem:     semaphore.NewWeighted(o.MaxInFlight),
	}
}

// getToken returns the next token in a round robin rotation
func (c *Client) getToken() string {
	n := int(c.cur.Add(1))
	if len(c.tokens) == 0 {
		return ""
	}
	return c.tokens[n%len(c.tokens)]
}

// Get fetches path (relative to BaseURL, or an absolute URL on BaseURL's host)
// with retries. The body is returned on 2xx. Exhausted retries return the last
// transient error; 4xx answers other than rate limits are returned at once
func (c *Client) Get(ctx context.Context, path string, q url.Values, accept string) ([]byte, error) {
	target, err := c.resolve(path, q)
	if err != nil {
		return nil, err
	}
	if accept == "" {
		accept = acceptJSON
	}

	var body []byte
	err = retry.Do(ctx, c.opts.Retry, func(ctx context.Context) error {
		b, err := c.attempt(ctx, target, accept)
		if err != nil {
			return err
		}
		body = b
		return nil
	},
		retry.WithSleeper(c.sleep),
		retry.WithNotify(func(err error, attempt int, wait time.Duration) {
			c.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Str("path", path).Msg("github request retrying")
		}),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) resolve(path string, q url.Values) (string, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.opts.BaseURL + path
	} else if !strings.HasPrefix(path, c.opts.BaseURL+"/") {
		// never send tokens to another host
		return "", perr.InvalidArgf("github url %q is outside %s", path, c.opts.BaseURL)
	}
	if len(q) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + q.Encode()
	}
	return target, nil
}

// attempt performs one budgeted request and classifies the answer for retry
func (c *Client) attempt(ctx context.Context, target, accept string) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, retry.Permanent(perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "github new request failed"))
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if tok := c.getToken(); tok != "" {
		req.Header.Set("Authorization", "token "+tok)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	lat := c.now().Sub(start)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "github do failed")
	}
	defer func() { _ = drainAndClose(resp.Body) }()

	rem, reset, retryAfter := parseRateHeaders(resp.Header)
	c.log.Debug().
		Str("url", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Int("rate_remaining", rem).
		Time("rate_reset", reset).
		Int("retry_after_s", retryAfter).
		Msg("github http response")

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "github read body failed")
		}
		return b, nil

	case resp.StatusCode == http.StatusTooManyRequests, isRateLimited403(resp, retryAfter):
		// Respect Retry-After and X-RateLimit-Reset when present
		rl := &StatusError{Status: resp.StatusCode, Err: perr.Newf(perr.ErrorCodeTooManyRequests, "github rate limited (%d)", resp.StatusCode)}
		if wait := computeWait(rem, reset, retryAfter, c.now()); wait > 0 {
			return nil, retry.After(rl, wait)
		}
		return nil, rl

	case resp.StatusCode >= 500:
		return nil, &StatusError{Status: resp.StatusCode, Err: perr.Newf(perr.ErrorCodeUnavailable, "github transient server error %d", resp.StatusCode)}

	default:
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		code := perr.ErrorCodeUnknown
		switch resp.StatusCode {
		case http.StatusNotFound:
			code = perr.ErrorCodeNotFound
		case http.StatusUnprocessableEntity, http.StatusBadRequest:
			code = perr.ErrorCodeInvalidArgument
		}
		return nil, retry.Permanent(&StatusError{
			Status: resp.StatusCode,
			Body:   string(tail),
			Err:    perr.Newf(code, "github unexpected status %d", resp.StatusCode),
		})
	}
}

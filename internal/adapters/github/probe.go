package github

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"contractscout/internal/core/contract"
	"contractscout/internal/core/policy"
	perr "contractscout/internal/platform/errors"
)

// Prober answers keyword questions about a match's source. It satisfies policy.Prober
type Prober struct{ c *Client }

// NewProber constructs a Prober using the given GitHub client
func NewProber(c *Client) *Prober { return &Prober{c: c} }

// Contains reports whether the match's source mentions keyword, case-insensitively.
// Code results are read directly; other results are checked with a code search
// scoped to the matched repository
func (p *Prober) Contains(ctx context.Context, m contract.Match, keyword string) (bool, error) {
	if keyword == "" {
		return true, nil
	}
	switch {
	case m.ContentURL != "":
		body, err := p.c.Get(ctx, m.ContentURL, nil, acceptRaw)
		if err != nil {
			if perr.IsCode(err, perr.ErrorCodeNotFound) {
				return false, nil
			}
			return false, p.wrap(ctx, err, m)
		}
		return policy.ContainsFold(string(body), keyword), nil

	case m.OwnerRepo != "":
		params := url.Values{}
		params.Set("q", strconv.Quote(keyword)+" repo:"+m.OwnerRepo)
		params.Set("per_page", "1")
		body, err := p.c.Get(ctx, "/search/code", params, "")
		if err != nil {
			if perr.IsCode(err, perr.ErrorCodeInvalidArgument) || perr.IsCode(err, perr.ErrorCodeNotFound) {
				return false, nil
			}
			return false, p.wrap(ctx, err, m)
		}
		var page searchPage
		if err := json.Unmarshal(body, &page); err != nil {
			return false, perr.Wrap(err, perr.ErrorCodeSearchUnavailable, "decode github probe page")
		}
		return page.TotalCount > 0, nil
	}
	// nothing to look at
	return false, nil
}

func (p *Prober) wrap(ctx context.Context, err error, m contract.Match) error {
	if ctx.Err() != nil {
		return err
	}
	return perr.Wrapf(err, perr.ErrorCodeSearchUnavailable, "github probe %s", m.URL)
}

var _ policy.Prober = (*Prober)(nil)

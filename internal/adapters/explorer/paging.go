package explorer

import (
	"context"
	"strings"

	"contractscout/internal/core/contract"
	perr "contractscout/internal/platform/errors"

	"github.com/PuerkitoBio/goquery"
)

// maxSearchPages caps a search walk when the listing never runs out
const maxSearchPages = 50

// PageExtractor turns one listing page into candidates
type PageExtractor interface {
	Extract(site contract.Site, page string) ([]contract.Candidate, error)
}

// SearchAll walks the keyword search page by page until limit candidates are
// collected, a page has no "Next" link, or a page adds nothing new. limit <= 0
// collects every page up to maxSearchPages
func (f *Fetcher) SearchAll(ctx context.Context, site contract.Site, keyword string, limit int, ex PageExtractor) ([]contract.Candidate, error) {
	var out []contract.Candidate
	seen := map[contract.Key]struct{}{}

	for n := 1; n <= maxSearchPages; n++ {
		page, err := f.FetchSearchPage(ctx, site, keyword, n)
		if err != nil {
			return out, err
		}
		cands, err := ex.Extract(site, page)
		if err != nil {
			// past the first page an unrecognised listing is the end of results
			if n > 1 && perr.IsCode(err, perr.ErrorCodeExtraction) {
				break
			}
			return out, err
		}

		added := 0
		for _, c := range cands {
			if _, dup := seen[c.Key()]; dup {
				continue
			}
			seen[c.Key()] = struct{}{}
			out = append(out, c)
			added++
			if limit > 0 && len(out) == limit {
				return out, nil
			}
		}
		f.log.Debug().Str("site", site.ID).Int("page", n).Int("added", added).Msg("search page collected")
		if added == 0 || !HasNext(page) {
			break
		}
	}
	return out, nil
}

// HasNext reports whether page links to a following page that is not disabled
func HasNext(page string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return false
	}
	found := false
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !strings.Contains(a.Text(), "Next") {
			return true
		}
		if a.AttrOr("aria-disabled", "") == "true" || a.HasClass("disabled") || a.Parent().HasClass("disabled") {
			return true
		}
		if href, ok := a.Attr("href"); !ok || href == "" || href == "#" {
			return true
		}
		found = true
		return false
	})
	return found
}

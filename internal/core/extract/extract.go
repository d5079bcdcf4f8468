// Package extract turns a rendered explorer listing page into contract candidates
package extract

import (
	"strings"
	"time"

	"contractscout/internal/core/contract"
	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/logger"

	"github.com/PuerkitoBio/goquery"
)

// positional defaults of the verified-contracts table
const (
	defaultAddressCol  = 0
	defaultNameCol     = 1
	defaultCompilerCol = 2
)

// Extractor parses listing pages. It performs no network access
type Extractor struct {
	log *logger.Logger
	now func() time.Time
}

// New returns an Extractor logging under the "extract" component
func New() *Extractor {
	return &Extractor{log: logger.Named("extract"), now: time.Now}
}

// columns maps field names to cell indexes for one table
type columns struct {
	address, name, compiler int
}

// Extract returns the candidates of page in page order. A row with a missing or
// malformed address is logged and skipped; a row without a name is kept.
// Duplicate addresses keep their first occurrence.
// It fails with ErrorCodeExtraction only when no listing is recognised at all
func (e *Extractor) Extract(site contract.Site, page string) ([]contract.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeExtraction, "parse listing html")
	}
	at := e.now().UTC()

	if rows := doc.Find("table tbody tr"); rows.Length() > 0 {
		return e.fromTable(site, doc, rows, at)
	}
	if cards := doc.Find(".card-body"); cards.Length() > 0 {
		return e.fromCards(site, cards, at)
	}
	return nil, perr.Extractionf("no listing table or result cards on %s page", site.ID)
}

func (e *Extractor) fromTable(site contract.Site, doc *goquery.Document, rows *goquery.Selection, at time.Time) ([]contract.Candidate, error) {
	cols := headerColumns(doc.Find("table thead th"))

	var (
		out          []contract.Candidate
		seen         = map[string]struct{}{}
		placeholders int
	)
	rows.Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() <= 1 {
			// "no matching entries" style row
			placeholders++
			return
		}
		addr, href, ok := addressIn(cells.Eq(cols.address))
		if !ok {
			// layout drift: look anywhere in the row
			addr, href, ok = addressIn(tr)
		}
		if !ok {
			e.skip(site, i, "malformed or missing address")
			return
		}
		if _, dup := seen[addr]; dup {
			e.skip(site, i, "duplicate address on page")
			return
		}
		seen[addr] = struct{}{}

		c := contract.Candidate{
			Site:         site.ID,
			Address:      addr,
			URL:          absLink(site, href, addr),
			DiscoveredAt: at,
		}
		if cols.name >= 0 && cols.name < cells.Length() {
			c.Name = cellText(cells.Eq(cols.name))
		}
		if cols.compiler >= 0 && cols.compiler < cells.Length() {
			c.Compiler = cellText(cells.Eq(cols.compiler))
		}
		out = append(out, c)
	})

	if len(out) == 0 && placeholders < rows.Length() {
		return nil, perr.Extractionf("listing on %s has %d rows but none carries an address", site.ID, rows.Length())
	}
	return out, nil
}

// fromCards reads the card layout of the explorer's contract search results
func (e *Extractor) fromCards(site contract.Site, cards *goquery.Selection, at time.Time) ([]contract.Candidate, error) {
	var (
		out  []contract.Candidate
		seen = map[string]struct{}{}
	)
	cards.Each(func(i int, card *goquery.Selection) {
		addr, href, ok := addressIn(card)
		if !ok {
			e.skip(site, i, "card without address")
			return
		}
		if _, dup := seen[addr]; dup {
			return
		}
		seen[addr] = struct{}{}

		name := cellText(card.Find("h5, h6, .card-title").First())
		if name == "" {
			card.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
				t := cellText(a)
				if _, isAddr := contract.NormalizeAddress(t); t != "" && !isAddr {
					name = t
					return false
				}
				return true
			})
		}
		out = append(out, contract.Candidate{
			Site:         site.ID,
			Address:      addr,
			Name:         name,
			URL:          absLink(site, href, addr),
			DiscoveredAt: at,
		})
	})
	if len(out) == 0 {
		return nil, perr.Extractionf("%d result cards on %s but none carries an address", cards.Length(), site.ID)
	}
	return out, nil
}

func (e *Extractor) skip(site contract.Site, row int, reason string) {
	e.log.Warn().Str("site", site.ID).Int("row", row).Str("reason", reason).Msg("listing row skipped")
}

// headerColumns resolves column positions by header text, falling back to positional defaults
func headerColumns(ths *goquery.Selection) columns {
	cols := columns{address: -1, name: -1, compiler: -1}
	ths.Each(func(i int, th *goquery.Selection) {
		h := strings.ToLower(cellText(th))
		switch {
		case cols.address < 0 && strings.Contains(h, "address"):
			cols.address = i
		case cols.name < 0 && strings.Contains(h, "name"):
			cols.name = i
		case cols.compiler < 0 && strings.Contains(h, "compiler"):
			cols.compiler = i
		}
	})
	if cols.address < 0 {
		cols.address = defaultAddressCol
	}
	if cols.name < 0 && ths.Length() == 0 {
		cols.name = defaultNameCol
	}
	if cols.compiler < 0 && ths.Length() == 0 {
		cols.compiler = defaultCompilerCol
	}
	return cols
}

// addressIn finds an address inside s, preferring explorer address links over text
func addressIn(s *goquery.Selection) (addr, href string, ok bool) {
	s.Find("a[href*='/address/']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h, _ := a.Attr("href")
		if v, good := contract.NormalizeAddress(h); good {
			addr, href, ok = v, h, true
			return false
		}
		return true
	})
	if ok {
		return addr, href, ok
	}
	addr, ok = contract.NormalizeAddress(cellText(s))
	return addr, "", ok
}

func absLink(site contract.Site, href, addr string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	switch {
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "/") && site.BaseURL != "":
		return strings.TrimRight(site.BaseURL, "/") + href
	case site.BaseURL != "":
		return site.ExplorerLink(addr)
	}
	return ""
}

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// Package contract holds the data model shared by the discovery pipeline
package contract

import (
	"regexp"
	"strings"
	"time"

	ptime "contractscout/internal/platform/time"
)

var addrRe = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)

// NormalizeAddress returns the lowercased 0x address found in s.
// ok is false when s carries no well-formed address
func NormalizeAddress(s string) (string, bool) {
	m := addrRe.FindString(s)
	if m == "" {
		return "", false
	}
	// reject longer hex runs such as tx hashes
	idx := strings.Index(s, m)
	if end := idx + len(m); end < len(s) && isHex(s[end]) {
		return "", false
	}
	return strings.ToLower(m), true
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// Key identifies a contract on one site
type Key struct {
	Site    string
	Address string
}

// String renders the key as site/address
func (k Key) String() string { return k.Site + "/" + k.Address }

// Candidate is one verified contract listed on an explorer page
type Candidate struct {
	Site         string
	Address      string // lowercased 0x + 40 hex
	Name         string // may be empty
	URL          string // explorer link, when the listing had one
	Compiler     string
	DiscoveredAt time.Time
}

// Key returns the dedup identity of the candidate
func (c Candidate) Key() Key { return Key{Site: c.Site, Address: strings.ToLower(c.Address)} }

// ArtifactType is the code-search result kind
type ArtifactType string

// Supported artifact types
const (
	ArtifactRepositories     ArtifactType = "repositories"
	ArtifactCode             ArtifactType = "code"
	ArtifactCommits          ArtifactType = "commits"
	ArtifactIssues           ArtifactType = "issues"
	ArtifactDiscussions      ArtifactType = "discussions"
	ArtifactRegistryPackages ArtifactType = "registrypackages"
	ArtifactMarketplace      ArtifactType = "marketplace"
	ArtifactTopics           ArtifactType = "topics"
	ArtifactWikis            ArtifactType = "wikis"
	ArtifactUsers            ArtifactType = "users"
)

// Strategy names how a search term is derived from a candidate
type Strategy string

// Query strategies
const (
	StrategyAddress     Strategy = "address"
	StrategyName        Strategy = "name"
	StrategyNameKeyword Strategy = "name_keyword"
)

// Match is one code-search result
type Match struct {
	URL        string       `json:"url"`
	OwnerRepo  string       `json:"owner_repo"`
	Language   string       `json:"language,omitempty"` // empty means unknown
	Engagement int          `json:"engagement"`
	Rank       int          `json:"rank"`  // 0-based position in the result list
	Total      int          `json:"total"` // hits reported for the query; 0 when unknown
	Artifact   ArtifactType `json:"artifact"`
	ContentURL string       `json:"-"` // raw file API url for code results
}

// Outcome is the resolution of one candidate in a cycle
type Outcome struct {
	Match      *Match // nil when nothing qualified
	NotifiedAt time.Time
}

// Matched reports whether a qualifying match was found
func (o Outcome) Matched() bool { return o.Match != nil }

// SeenRecord is the durable fact that a candidate has been resolved
type SeenRecord struct {
	Site       string     `json:"site"`
	Address    string     `json:"address"`
	Name       string     `json:"name"`
	URL        string     `json:"url,omitempty"`
	Compiler   string     `json:"compiler,omitempty"`
	Matched    bool       `json:"matched"`
	MatchURL   string     `json:"match_url,omitempty"`
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// Key returns the dedup identity of the record
func (r SeenRecord) Key() Key { return Key{Site: r.Site, Address: strings.ToLower(r.Address)} }

// NewRecord builds the record for a resolved candidate
func NewRecord(c Candidate, o Outcome, now time.Time) SeenRecord {
	r := SeenRecord{
		Site:       c.Site,
		Address:    strings.ToLower(c.Address),
		Name:       c.Name,
		URL:        c.URL,
		Compiler:   c.Compiler,
		Matched:    o.Matched(),
		RecordedAt: now.UTC(),
	}
	if o.Match != nil {
		r.MatchURL = o.Match.URL
	}
	r.NotifiedAt = ptime.UTCPtr(o.NotifiedAt)
	return r
}

// Site is the immutable per-site configuration of one poll loop
type Site struct {
	ID              string
	BaseURL         string
	PollInterval    time.Duration
	ResultCeiling   int
	MinEngagement   int
	RequiredKeyword string
	ArtifactFilter  ArtifactType // empty accepts any type
	ArtifactSearch  ArtifactType // what the searcher queries
	Language        string
	Strategies      []Strategy
	Window          int
	Baseline        bool
	Jitter          float64
}

// ExplorerLink returns the explorer page for address on this site
func (s Site) ExplorerLink(address string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/address/" + address
}

// Slug is the site id with dots replaced by dashes, used for file names
func (s Site) Slug() string { return Slug(s.ID) }

// Slug turns a site id into a file-name safe token
func Slug(site string) string { return strings.ReplaceAll(site, ".", "-") }

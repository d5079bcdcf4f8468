package github

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"contractscout/internal/core/contract"
	"contractscout/internal/core/query"
	perr "contractscout/internal/platform/errors"
)

const maxPerPage = 100

// Searcher runs derived queries against the GitHub search API
type Searcher struct{ c *Client }

// NewSearcher constructs a Searcher on c
func NewSearcher(c *Client) *Searcher { return &Searcher{c: c} }

// Search returns at most ceiling matches for q in GitHub's relevance order; rank is
// the 0-based position and Total carries the hit count GitHub reported. Retries are exhausted inside the client; what remains is
// reported as ErrorCodeSearchUnavailable. A query GitHub refuses as invalid yields no matches
func (s *Searcher) Search(ctx context.Context, q query.Query, ceiling int) ([]contract.Match, error) {
	if ceiling <= 0 {
		return nil, nil
	}
	artifact := q.Artifact
	if artifact == "" {
		artifact = contract.ArtifactRepositories
	}
	params := url.Values{}
	params.Set("q", q.String())
	params.Set("per_page", strconv.Itoa(min(ceiling, maxPerPage)))
	params.Set("page", "1")

	body, err := s.c.Get(ctx, "/search/"+string(artifact), params, "")
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			s.c.log.Warn().Err(err).Str("query", q.String()).Msg("github rejected query; treating as no results")
			return nil, nil
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeSearchUnavailable, "github search %s", q.Strategy)
	}

	var page searchPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeSearchUnavailable, "decode github search page")
	}

	out := make([]contract.Match, 0, min(len(page.Items), ceiling))
	for _, raw := range page.Items {
		if len(out) == ceiling {
			break
		}
		m, ok := decodeItem(artifact, raw)
		if !ok {
			continue
		}
		m.Rank = len(out)
		m.Total = page.TotalCount
		m.Artifact = artifact
		out = append(out, m)
	}
	return out, nil
}

// decodeItem maps one search item to a Match; engagement follows the artifact kind
func decodeItem(artifact contract.ArtifactType, raw json.RawMessage) (contract.Match, bool) {
	switch artifact {
	case contract.ArtifactRepositories:
		var it repoItem
		if json.Unmarshal(raw, &it) != nil || it.HTMLURL == "" {
			return contract.Match{}, false
		}
		return contract.Match{URL: it.HTMLURL, OwnerRepo: it.FullName, Language: it.Language, Engagement: max(it.Stargazers, 0)}, true

	case contract.ArtifactCode:
		var it codeItem
		if json.Unmarshal(raw, &it) != nil || it.HTMLURL == "" {
			return contract.Match{}, false
		}
		return contract.Match{URL: it.HTMLURL, OwnerRepo: it.Repository.FullName, Language: it.Repository.Language,
			Engagement: max(it.Repository.Stargazers, 0), ContentURL: it.APIURL}, true

	case contract.ArtifactIssues:
		var it issueItem
		if json.Unmarshal(raw, &it) != nil || it.HTMLURL == "" {
			return contract.Match{}, false
		}
		return contract.Match{URL: it.HTMLURL, OwnerRepo: ownerRepoFromAPI(it.RepositoryURL), Engagement: max(it.Comments, 0)}, true

	case contract.ArtifactCommits:
		var it commitItem
		if json.Unmarshal(raw, &it) != nil || it.HTMLURL == "" {
			return contract.Match{}, false
		}
		return contract.Match{URL: it.HTMLURL, OwnerRepo: it.Repository.FullName, Language: it.Repository.Language}, true

	case contract.ArtifactUsers:
		var it userItem
		if json.Unmarshal(raw, &it) != nil || it.HTMLURL == "" {
			return contract.Match{}, false
		}
		return contract.Match{URL: it.HTMLURL, OwnerRepo: it.Login}, true

	case contract.ArtifactTopics:
		var it topicItem
		if json.Unmarshal(raw, &it) != nil || it.Name == "" {
			return contract.Match{}, false
		}
		return contract.Match{URL: "https://github.com/topics/" + url.PathEscape(it.Name)}, true

	default:
		var it genericItem
		if json.Unmarshal(raw, &it) != nil || it.HTMLURL == "" {
			return contract.Match{}, false
		}
		return contract.Match{URL: it.HTMLURL}, true
	}
}

// ownerRepoFromAPI turns https://api.github.com/repos/o/r into o/r
func ownerRepoFromAPI(u string) string {
	_, rest, ok := strings.Cut(u, "/repos/")
	if !ok {
		return ""
	}
	return rest
}

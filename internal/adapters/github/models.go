package github

import "encoding/json"

// searchPage is the envelope of every /search/* answer
type searchPage struct {
	TotalCount        int               `json:"total_count"`
	IncompleteResults bool              `json:"incomplete_results"`
	Items             []json.RawMessage `json:"items"`
}

// repoItem is a partial repository search item
type repoItem struct {
	FullName   string `json:"full_name"`
	HTMLURL    string `json:"html_url"`
	Language   string `json:"language"`
	Stargazers int    `json:"stargazers_count"`
}

// codeItem is a partial code search item
type codeItem struct {
	Path       string   `json:"path"`
	HTMLURL    string   `json:"html_url"`
	APIURL     string   `json:"url"`
	Repository repoItem `json:"repository"`
}

// issueItem is a partial issue search item
type issueItem struct {
	HTMLURL       string `json:"html_url"`
	RepositoryURL string `json:"repository_url"`
	Comments      int    `json:"comments"`
}

// commitItem is a partial commit search item
type commitItem struct {
	HTMLURL    string   `json:"html_url"`
	Repository repoItem `json:"repository"`
}

// userItem is a partial user search item
type userItem struct {
	Login   string `json:"login"`
	HTMLURL string `json:"html_url"`
}

// topicItem is a partial topic search item
type topicItem struct {
	Name string `json:"name"`
}

// genericItem covers the remaining artifact kinds
type genericItem struct {
	HTMLURL string `json:"html_url"`
}

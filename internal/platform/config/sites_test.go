package config

import (
	"strings"
	"testing"
	"time"

	perr "contractscout/internal/platform/errors"
	kit "contractscout/internal/platform/testkit"
)

func TestParseSitesDefaults(t *testing.T) {
	doc := `
sites:
  - site: Etherscan.io
  - site: ftmscan.com
    poll_interval: 2m
    result_ceiling: 3
    min_engagement: 5
    required_keyword: Ownable
    artifact_type: Code
    strategies: [name_keyword, address]
    window: 10
    baseline: true
    jitter: 0.5
`
	sites, err := ParseSites(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseSites: %v", err)
	}
	if len(sites) != 2 {
		t.Fatalf("len = %d, want 2", len(sites))
	}

	a := sites[0]
	if a.Site != "etherscan.io" || a.BaseURL != "https://etherscan.io" {
		t.Fatalf("site/base = %q/%q", a.Site, a.BaseURL)
	}
	if a.PollInterval != DefaultPollInterval || a.ResultCeiling != 7 || a.Window != 15 {
		t.Fatalf("defaults not applied: %+v", a)
	}
	if a.ArtifactType != "repositories" || a.Language != "Solidity" {
		t.Fatalf("artifact/language = %q/%q", a.ArtifactType, a.Language)
	}
	if len(a.Strategies) != 2 || a.Strategies[0] != "address" || a.Strategies[1] != "name" {
		t.Fatalf("strategies = %v", a.Strategies)
	}

	b := sites[1]
	if b.PollInterval != 2*time.Minute || b.ResultCeiling != 3 || b.MinEngagement != 5 {
		t.Fatalf("explicit values lost: %+v", b)
	}
	if b.ArtifactType != "code" || !b.Baseline || b.Jitter != 0.5 || b.Window != 10 {
		t.Fatalf("explicit values lost: %+v", b)
	}
}

func TestParseSitesRejects(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", ``, "empty"},
		{"no sites", "sites: []\n", "sites"},
		{"unknown key", "sites:\n  - site: etherscan.io\n    pol_interval: 1s\n", "pol_interval"},
		{"bad host", "sites:\n  - site: https://etherscan.io\n", "host"},
		{"ceiling too big", "sites:\n  - site: etherscan.io\n    result_ceiling: 500\n", "result_ceiling"},
		{"negative engagement", "sites:\n  - site: etherscan.io\n    min_engagement: -1\n", "min_engagement"},
		{"bad artifact", "sites:\n  - site: etherscan.io\n    artifact_type: gists\n", "artifact_type"},
		{"bad strategy", "sites:\n  - site: etherscan.io\n    strategies: [bytecode]\n", "strategies"},
		{"tiny interval", "sites:\n  - site: etherscan.io\n    poll_interval: 10ms\n", "poll_interval"},
		{"duplicate", "sites:\n  - site: etherscan.io\n  - site: ETHERSCAN.io\n", "twice"},
		{"keyword strategy without keyword", "sites:\n  - site: etherscan.io\n    strategies: [name_keyword]\n", "required_keyword"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSites(strings.NewReader(tc.doc))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !perr.IsCode(err, perr.ErrorCodeConfig) {
				t.Fatalf("code = %v, want config (%v)", perr.CodeOf(err), err)
			}
			kit.MustContain(t, err.Error(), tc.want)
		})
	}
}

func TestLoadSitesFile(t *testing.T) {
	dir := t.TempDir()
	p := kit.WriteFile(t, dir, "sites.yaml", "sites:\n  - site: goerli.etherscan.io\n")
	sites, err := LoadSites(p)
	if err != nil {
		t.Fatalf("LoadSites: %v", err)
	}
	if sites[0].BaseURL != "https://goerli.etherscan.io" {
		t.Fatalf("base = %q", sites[0].BaseURL)
	}

	_, err = LoadSites(dir + "/missing.yaml")
	if !perr.IsCode(err, perr.ErrorCodeConfig) {
		t.Fatalf("missing file code = %v", perr.CodeOf(err))
	}
}

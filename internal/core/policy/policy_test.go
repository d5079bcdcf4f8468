package policy

import (
	"context"
	stderrs "errors"
	"math/rand"
	"testing"

	"contractscout/internal/core/contract"
)

func site() contract.Site {
	return contract.Site{ID: "etherscan.io", ResultCeiling: 7, ArtifactFilter: contract.ArtifactRepositories}
}

func repo(url string, rank, stars int) contract.Match {
	return contract.Match{URL: url, Rank: rank, Engagement: stars, Artifact: contract.ArtifactRepositories}
}

func TestScreenOrderAndPredicates(t *testing.T) {
	s := site()
	s.MinEngagement = 2
	in := []contract.Match{
		repo("low-stars", 0, 1),
		repo("b", 2, 5),
		repo("a", 1, 3),
		repo("too-deep", 8, 100),
		{URL: "issue", Rank: 0, Engagement: 50, Artifact: contract.ArtifactIssues},
		repo("a-tie-more", 1, 9),
	}
	got := Screen(in, s)
	want := []string{"a-tie-more", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("Screen = %+v", got)
	}
	for i := range want {
		if got[i].URL != want[i] {
			t.Fatalf("Screen[%d] = %q, want %q", i, got[i].URL, want[i])
		}
	}
}

func TestCheckReasons(t *testing.T) {
	s := site()
	s.MinEngagement = 1
	cases := []struct {
		m    contract.Match
		want Reason
	}{
		{repo("r", 8, 10), ReasonRank},
		{contract.Match{Rank: 0, Engagement: 10, Total: 48213, Artifact: contract.ArtifactRepositories}, ReasonTotal},
		{repo("e", 0, 0), ReasonEngagement},
		{contract.Match{Rank: 0, Engagement: 5, Artifact: "Code"}, ReasonArtifact},
	}
	for _, tc := range cases {
		if r, ok := Check(tc.m, s); ok || r != tc.want {
			t.Fatalf("Check(%+v) = %q,%v want %q", tc.m, r, ok, tc.want)
		}
	}
	// artifact comparison is case-insensitive and empty filter accepts anything
	if _, ok := Check(contract.Match{Artifact: "REPOSITORIES"}, site()); !ok {
		t.Fatalf("case-insensitive artifact filter failed")
	}
	open := site()
	open.ArtifactFilter = ""
	if _, ok := Check(contract.Match{Artifact: contract.ArtifactCode}, open); !ok {
		t.Fatalf("empty filter must accept")
	}
}

func TestAcceptWithoutKeyword(t *testing.T) {
	m, ok, err := Accept(context.Background(), []contract.Match{repo("x", 3, 0), repo("y", 0, 0)}, site(), nil)
	if err != nil || !ok || m.URL != "y" {
		t.Fatalf("Accept = %+v,%v,%v", m, ok, err)
	}
	_, ok, _ = Accept(context.Background(), nil, site(), nil)
	if ok {
		t.Fatalf("empty matches must not accept")
	}
}

func TestAcceptProbesInOrder(t *testing.T) {
	s := site()
	s.RequiredKeyword = "Ownable"
	var probed []string
	prober := ProberFunc(func(_ context.Context, m contract.Match, kw string) (bool, error) {
		probed = append(probed, m.URL)
		return m.URL == "second", nil
	})
	m, ok, err := Accept(context.Background(), []contract.Match{repo("second", 1, 0), repo("first", 0, 0)}, s, prober)
	if err != nil || !ok || m.URL != "second" {
		t.Fatalf("Accept = %+v,%v,%v", m, ok, err)
	}
	if len(probed) != 2 || probed[0] != "first" {
		t.Fatalf("probe order = %v", probed)
	}
}

func TestAcceptProberErrorDefers(t *testing.T) {
	s := site()
	s.RequiredKeyword = "Ownable"
	boom := stderrs.New("search down")
	_, ok, err := Accept(context.Background(), []contract.Match{repo("a", 0, 0)}, s,
		ProberFunc(func(context.Context, contract.Match, string) (bool, error) { return false, boom }))
	if ok || !stderrs.Is(err, boom) {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

// tightening any predicate never grows the accepted set
func TestScreenIsMonotonic(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for range 200 {
		var in []contract.Match
		for i := range 12 {
			m := repo("m"+string(rune('a'+i)), r.Intn(12), r.Intn(20))
			m.Total = r.Intn(14)
			in = append(in, m)
		}
		loose := site()
		loose.MinEngagement = r.Intn(10)
		loose.ResultCeiling = 3 + r.Intn(8)

		tight := loose
		tight.MinEngagement += 1 + r.Intn(5)
		tight.ResultCeiling -= r.Intn(3)

		accepted := map[string]bool{}
		for _, m := range Screen(in, loose) {
			accepted[m.URL] = true
		}
		for _, m := range Screen(in, tight) {
			if !accepted[m.URL] {
				t.Fatalf("tight policy accepted %q that loose policy rejected", m.URL)
			}
		}
	}
}

func TestContainsFold(t *testing.T) {
	cases := []struct {
		hay, needle string
		want        bool
	}{
		{"contract Foo is OWNABLE {", "ownable", true},
		{"STRASSE", "straße", true},
		{"Ｏｗｎａｂｌｅ", "ownable", true},
		{"Own\u200bable", "ownable", true},
		{"contract Foo", "ownable", false},
		{"anything", "", true},
	}
	for _, tc := range cases {
		if got := ContainsFold(tc.hay, tc.needle); got != tc.want {
			t.Fatalf("ContainsFold(%q,%q) = %v, want %v", tc.hay, tc.needle, got, tc.want)
		}
	}
}

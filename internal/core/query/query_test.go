package query

import (
	"testing"

	"contractscout/internal/core/contract"
)

var site = contract.Site{
	ID:              "etherscan.io",
	Language:        "Solidity",
	ArtifactSearch:  contract.ArtifactRepositories,
	RequiredKeyword: "Ownable",
	Strategies: []contract.Strategy{
		contract.StrategyAddress, contract.StrategyName, contract.StrategyNameKeyword,
	},
}

func TestPlanOrderAndTerms(t *testing.T) {
	c := contract.Candidate{Address: "0xABC0000000000000000000000000000000000001", Name: ` Foo "Token" `}
	qs := Plan(c, site)
	if len(qs) != 3 {
		t.Fatalf("len = %d, want 3", len(qs))
	}
	want := []string{
		"0xabc0000000000000000000000000000000000001 language:Solidity",
		"Foo Token language:Solidity",
		"Foo Token Ownable language:Solidity",
	}
	for i, q := range qs {
		if q.Strategy != site.Strategies[i] {
			t.Fatalf("strategy[%d] = %q", i, q.Strategy)
		}
		if got := q.String(); got != want[i] {
			t.Fatalf("query[%d] = %q, want %q", i, got, want[i])
		}
	}
}

func TestPlanSkipsUnnamed(t *testing.T) {
	c := contract.Candidate{Address: "0x0000000000000000000000000000000000000001"}
	qs := Plan(c, site)
	if len(qs) != 1 || qs[0].Strategy != contract.StrategyAddress {
		t.Fatalf("plan = %+v", qs)
	}
}

func TestBuildUnknownStrategy(t *testing.T) {
	if _, ok := Build("bytecode", contract.Candidate{Address: "0x1"}, site); ok {
		t.Fatalf("unknown strategy must not build")
	}
	noKw := site
	noKw.RequiredKeyword = ""
	if _, ok := Build(contract.StrategyNameKeyword, contract.Candidate{Name: "Foo"}, noKw); ok {
		t.Fatalf("name_keyword without keyword must not build")
	}
}

func TestStringQuotesKeywordAndOmitsLanguageForUsers(t *testing.T) {
	q := Query{Term: "Foo", Keyword: "only owner", Language: "Solidity", Artifact: contract.ArtifactCode}
	if got := q.String(); got != `Foo "only owner" language:Solidity` {
		t.Fatalf("String = %q", got)
	}
	q = Query{Term: "Foo", Language: "Solidity", Artifact: contract.ArtifactUsers}
	if got := q.String(); got != "Foo" {
		t.Fatalf("String = %q", got)
	}
}

//go:build integration_pg

package repo

import (
	"context"
	"testing"
	"time"

	"contractscout/internal/core/contract"
	"contractscout/internal/platform/store/pg/pgtest"
)

func TestPGStore_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	db := pgtest.Open(t)
	s, err := OpenPG(ctx, db)
	if err != nil {
		t.Fatalf("OpenPG: %v", err)
	}

	foo := cand("etherscan.io", addrFoo, "Foo")
	now := time.Now()
	if err := s.Record(ctx, foo, contract.Outcome{Match: &contract.Match{URL: "https://github.com/o/foo"}, NotifiedAt: now}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(ctx, foo, contract.Outcome{}); err != nil {
		t.Fatalf("second Record must be a no-op: %v", err)
	}
	if err := s.Record(ctx, cand("etherscan.io", addrBar, ""), contract.Outcome{}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// a fresh store sees the same keys
	re, err := OpenPG(ctx, db)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !re.Has("etherscan.io", addrFoo) || !re.Has("etherscan.io", addrBar) || re.Len("etherscan.io") != 2 {
		t.Fatalf("index not rebuilt from table")
	}
	recs, err := re.Records(ctx, "etherscan.io")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %+v", recs)
	}
	byAddr := map[string]contract.SeenRecord{}
	for _, r := range recs {
		byAddr[r.Address] = r
	}
	if r := byAddr[addrFoo]; !r.Matched || r.NotifiedAt == nil || r.MatchURL != "https://github.com/o/foo" {
		t.Fatalf("foo record = %+v", r)
	}
	if r := byAddr[addrBar]; r.Matched || r.NotifiedAt != nil {
		t.Fatalf("bar record = %+v", r)
	}
}

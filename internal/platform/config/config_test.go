package config

import (
	"slices"
	"testing"
	"time"

	kit "contractscout/internal/platform/testkit"
)

func TestPrefixNests(t *testing.T) {
	if got := New().Prefix("WATCH_").Prefix("HTTP_").key("ADDR"); got != "WATCH_HTTP_ADDR" {
		t.Fatalf("key = %q", got)
	}
	t.Setenv("GH_RPS", "2")
	if New().MayString("RPS", "") != "" || New().Prefix("GH_").MayString("RPS", "") != "2" {
		t.Fatalf("prefix not applied")
	}
}

func TestMayScalars(t *testing.T) {
	c := New().Prefix("T_")
	t.Setenv("T_POOL", " 7 ")
	t.Setenv("T_RPS", "0.5")
	t.Setenv("T_PPROF", "true")
	t.Setenv("T_TIMEOUT", "90s")
	t.Setenv("T_BLANK", "   ")
	t.Setenv("T_JUNK", "seven")

	if c.MayInt("POOL", 4) != 7 || c.MayInt("MISSING", 4) != 4 || c.MayInt("JUNK", 4) != 4 {
		t.Fatalf("MayInt")
	}
	if c.MayFloat64("RPS", 1) != 0.5 || c.MayFloat64("JUNK", 1) != 1 {
		t.Fatalf("MayFloat64")
	}
	if !c.MayBool("PPROF", false) || c.MayBool("JUNK", false) || !c.MayBool("MISSING", true) {
		t.Fatalf("MayBool")
	}
	if c.MayDuration("TIMEOUT", time.Second) != 90*time.Second || c.MayDuration("JUNK", time.Minute) != time.Minute {
		t.Fatalf("MayDuration")
	}
	if c.MayString("BLANK", "def") != "def" || c.MayString("POOL", "") != "7" {
		t.Fatalf("MayString must trim and treat blank as unset")
	}
}

func TestMayCSV(t *testing.T) {
	c := New().Prefix("CSV_")
	t.Setenv("CSV_ORIGINS", " https://a.io, ,https://b.io ,, ")
	if got := c.MayCSV("ORIGINS", nil); !slices.Equal(got, []string{"https://a.io", "https://b.io"}) {
		t.Fatalf("MayCSV = %#v", got)
	}
	t.Setenv("CSV_EMPTY", " , ,")
	if got := c.MayCSV("EMPTY", []string{"*"}); !slices.Equal(got, []string{"*"}) {
		t.Fatalf("all-blank items = %#v", got)
	}
	if got := c.MayCSV("MISSING", nil); got != nil {
		t.Fatalf("missing = %#v", got)
	}
}

func TestMayEnum(t *testing.T) {
	c := New().Prefix("STORE_")
	if got := c.MayEnum("BACKEND", "file", "file", "pg"); got != "file" {
		t.Fatalf("default = %q", got)
	}
	t.Setenv("STORE_BACKEND", "PG")
	if got := c.MayEnum("BACKEND", "file", "file", "pg"); got != "pg" {
		t.Fatalf("canonical spelling = %q", got)
	}
	t.Setenv("STORE_BACKEND", "redis")
	kit.MustPanic(t, func() { _ = c.MayEnum("BACKEND", "file", "file", "pg") })
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"contractscout/internal/core/contract"
	perr "contractscout/internal/platform/errors"
	phttp "contractscout/internal/platform/net/http"
	kit "contractscout/internal/platform/testkit"
	"contractscout/internal/services/seen/repo"
	"contractscout/internal/services/watch/domain"
)

type fakeStatus []domain.SiteStatus

func (f fakeStatus) Sites() []domain.SiteStatus { return f }

func (f fakeStatus) Site(id string) (domain.SiteStatus, bool) {
	for _, s := range f {
		if s.Site == id {
			return s, true
		}
	}
	return domain.SiteStatus{}, false
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := repo.OpenFile(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	c := contract.Candidate{Site: "etherscan.io", Address: "0xaaaa00000000000000000000000000000000aaaa", Name: "Foo"}
	m := contract.Match{URL: "https://github.com/alice/foo"}
	if err := store.Record(context.Background(), c, contract.Outcome{Match: &m}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	status := fakeStatus{{Site: "etherscan.io", State: domain.StateSleeping, Seen: 1, Cycles: 3}}
	srv := phttp.NewServer("")
	New(status, store).Mount(srv.Router())
	return srv.Router().Mux()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) phttp.Envelope {
	t.Helper()
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestHealthAndSites(t *testing.T) {
	h := newRouter(t)

	rec := get(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}

	rec = get(t, h, "/v1/sites")
	env := envelope(t, rec)
	list, ok := env.Data.([]any)
	if rec.Code != http.StatusOK || !ok || len(list) != 1 {
		t.Fatalf("sites = %d %#v", rec.Code, env.Data)
	}

	rec = get(t, h, "/v1/sites/Etherscan.io")
	env = envelope(t, rec)
	site, _ := env.Data.(map[string]any)
	if rec.Code != http.StatusOK || site["state"] != "sleeping" {
		t.Fatalf("site = %d %#v", rec.Code, env.Data)
	}

	rec = get(t, h, "/v1/sites/unknown.io")
	if rec.Code != http.StatusNotFound || envelope(t, rec).Code != perr.ErrorCodeNotFound {
		t.Fatalf("unknown site = %d", rec.Code)
	}
}

func TestSeenFormats(t *testing.T) {
	h := newRouter(t)

	rec := get(t, h, "/v1/sites/etherscan.io/seen")
	env := envelope(t, rec)
	recs, _ := env.Data.([]any)
	if rec.Code != http.StatusOK || len(recs) != 1 {
		t.Fatalf("json seen = %d %#v", rec.Code, env.Data)
	}

	rec = get(t, h, "/v1/sites/etherscan.io/seen?format=csv")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("csv seen = %d %v", rec.Code, rec.Header())
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %q", lines)
	}
	kit.MustContain(t, lines[0], "address")
	kit.MustContain(t, lines[1], "https://github.com/alice/foo")
	kit.MustContain(t, rec.Header().Get("Content-Disposition"), "etherscan-io.csv")

	rec = get(t, h, "/v1/sites/etherscan.io/seen?format=xml")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad format = %d", rec.Code)
	}
	rec = get(t, h, "/v1/sites/unknown.io/seen")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown seen = %d", rec.Code)
	}
}

func TestDocListsEveryRoute(t *testing.T) {
	var doc struct {
		OpenAPI string         `json:"openapi"`
		Paths   map[string]any `json:"paths"`
	}
	if err := json.Unmarshal([]byte(Doc()), &doc); err != nil {
		t.Fatalf("doc is not JSON: %v", err)
	}
	if doc.OpenAPI != "3.0.3" {
		t.Fatalf("openapi = %q", doc.OpenAPI)
	}
	for _, p := range []string{"/healthz", "/v1/sites/", "/v1/sites/{site}", "/v1/sites/{site}/seen"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Fatalf("doc misses %s", p)
		}
	}
}

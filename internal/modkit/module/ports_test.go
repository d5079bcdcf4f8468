package module

import (
	"testing"

	phttp "contractscout/internal/platform/net/http"
	kit "contractscout/internal/platform/testkit"
)

type starter interface{ Start() string }
type stopper interface{ Stop() }

type engine struct{}

func (engine) Start() string { return "started" }

type stubModule struct{ ports any }

func (s stubModule) MountRoutes(phttp.Router) {}
func (s stubModule) Ports() any               { return s.ports }
func (s stubModule) Name() string             { return "stub" }

func TestPortsOf(t *testing.T) {
	type portSet struct {
		Engine starter
		hidden starter
	}
	cases := []struct {
		name  string
		ports any
		ok    bool
	}{
		{"nil", nil, false},
		{"direct", engine{}, true},
		{"field", portSet{Engine: engine{}}, true},
		{"unexported field only", portSet{hidden: engine{}}, false},
		{"not a struct", 42, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := PortsOf[starter](stubModule{ports: tc.ports})
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got.Start() != "started" {
				t.Fatalf("wrong port")
			}
		})
	}
}

func TestMustPortsOf(t *testing.T) {
	m := stubModule{ports: engine{}}
	kit.MustNotPanic(t, func() { _ = MustPortsOf[starter](m) })
	kit.MustPanic(t, func() { _ = MustPortsOf[stopper](m) })
}

package repo

import (
	"strings"
	"sync"

	"contractscout/internal/core/contract"
)

// index is the in-memory view of every recorded key, partitioned by site
type index struct {
	mu    sync.RWMutex
	sites map[string]map[string]struct{}
}

func newIndex() *index { return &index{sites: map[string]map[string]struct{}{}} }

func (x *index) has(site, address string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.sites[site][strings.ToLower(address)]
	return ok
}

func (x *index) add(k contract.Key) {
	x.mu.Lock()
	defer x.mu.Unlock()
	m := x.sites[k.Site]
	if m == nil {
		m = map[string]struct{}{}
		x.sites[k.Site] = m
	}
	m[k.Address] = struct{}{}
}

func (x *index) len(site string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.sites[site])
}

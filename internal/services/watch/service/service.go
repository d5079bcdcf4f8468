// Package service runs one poll loop per configured site
package service

import (
	"context"
	"time"

	"contractscout/internal/core/contract"
	"contractscout/internal/core/policy"
	"contractscout/internal/platform/guard"
	"contractscout/internal/platform/logger"
	seendomain "contractscout/internal/services/seen/domain"
	"contractscout/internal/services/watch/domain"

	"golang.org/x/sync/errgroup"
)

// DefaultPool is the number of candidates correlated in parallel per cycle
const DefaultPool = 4

// DefaultTimeouts are the phase budgets used when none are configured
var DefaultTimeouts = guard.Timeouts{
	Cycle:   10 * time.Minute,
	Fetch:   2 * time.Minute,
	Search:  3 * time.Minute,
	Notify:  2 * time.Minute,
	Persist: 10 * time.Second,
}

// Deps are the collaborators shared by every site loop
type Deps struct {
	Fetcher   domain.PageFetcher
	Extractor domain.Extractor
	Searcher  domain.Searcher
	Prober    policy.Prober // only consulted for sites with a required keyword
	Notifier  domain.Notifier
	Store     seendomain.StorePort
}

// Config carries the runtime knobs of the loops
type Config struct {
	Pool     int
	Timeouts guard.Timeouts
}

func (c Config) withDefaults() Config {
	if c.Pool <= 0 {
		c.Pool = DefaultPool
	}
	if c.Timeouts == (guard.Timeouts{}) {
		c.Timeouts = DefaultTimeouts
	}
	return c
}

// Svc implements the watch ports over a fixed set of site loops
type Svc struct {
	loops []*Loop
	byID  map[string]*Loop
}

// New constructs one loop per site
func New(sites []contract.Site, deps Deps, cfg Config) *Svc {
	s := &Svc{byID: make(map[string]*Loop, len(sites))}
	for _, site := range sites {
		l := NewLoop(site, deps, cfg)
		s.loops = append(s.loops, l)
		s.byID[site.ID] = l
	}
	return s
}

// Run starts every loop and blocks until all have stopped.
// Loops are independent: none is cancelled when another returns
func (s *Svc) Run(ctx context.Context) error {
	log := logger.Named("watch")
	log.Info().Int("sites", len(s.loops)).Msg("watch starting")
	var g errgroup.Group
	for _, l := range s.loops {
		g.Go(func() error { return l.Run(ctx) })
	}
	err := g.Wait()
	log.Info().Msg("watch stopped")
	return err
}

// Loops returns the loops in configuration order
func (s *Svc) Loops() []*Loop { return s.loops }

// Sites implements domain.StatusPort
func (s *Svc) Sites() []domain.SiteStatus {
	out := make([]domain.SiteStatus, 0, len(s.loops))
	for _, l := range s.loops {
		out = append(out, l.Status())
	}
	return out
}

// Site implements domain.StatusPort
func (s *Svc) Site(id string) (domain.SiteStatus, bool) {
	l, ok := s.byID[id]
	if !ok {
		return domain.SiteStatus{}, false
	}
	return l.Status(), true
}

var (
	_ domain.RunnerPort = (*Svc)(nil)
	_ domain.StatusPort = (*Svc)(nil)
)

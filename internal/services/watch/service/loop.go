package service

import (
	"context"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"contractscout/internal/core/contract"
	"contractscout/internal/core/policy"
	"contractscout/internal/core/query"
	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/guard"
	"contractscout/internal/platform/logger"
	"contractscout/internal/platform/retry"
	"contractscout/internal/services/watch/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Loop polls one site forever. Cycles never overlap
type Loop struct {
	site contract.Site
	deps Deps
	cfg  Config

	state atomic.Value // domain.State

	mu        sync.Mutex
	last      *domain.CycleStats
	cycles    int64
	nextCycle time.Time
	baselined bool

	sleep  retry.Sleeper
	now    func() time.Time
	jitter func() float64 // uniform in [0, 1)
	newID  func() string
}

// NewLoop constructs the loop for site
func NewLoop(site contract.Site, deps Deps, cfg Config) *Loop {
	l := &Loop{
		site:   site,
		deps:   deps,
		cfg:    cfg.withDefaults(),
		sleep:  retry.SleepCtx,
		now:    time.Now,
		jitter: rand.Float64,
		newID:  uuid.NewString,
	}
	l.state.Store(domain.StateIdle)
	return l
}

// Site returns the loop's site configuration
func (l *Loop) Site() contract.Site { return l.site }

// State returns the current phase
func (l *Loop) State() domain.State { return l.state.Load().(domain.State) }

func (l *Loop) setState(s domain.State) { l.state.Store(s) }

// Status snapshots the loop for the status API
func (l *Loop) Status() domain.SiteStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := domain.SiteStatus{
		Site:      l.site.ID,
		State:     l.State(),
		Seen:      l.deps.Store.Len(l.site.ID),
		Cycles:    l.cycles,
		NextCycle: l.nextCycle,
	}
	if l.last != nil {
		last := *l.last
		st.Last = &last
	}
	return st
}

// Run cycles until ctx is done. Cycle failures are logged and never end the loop
func (l *Loop) Run(ctx context.Context) error {
	log := logger.Named("watch").With().Str("site", l.site.ID).Logger()
	log.Info().Dur("interval", l.site.PollInterval).Int("window", l.site.Window).Msg("site loop started")
	defer l.setState(domain.StateIdle)

	for {
		if ctx.Err() != nil {
			log.Info().Msg("site loop stopped")
			return nil
		}
		l.setState(domain.StateIdle)
		if _, err := l.RunCycle(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("code", perr.CodeOf(err).String()).Msg("cycle failed")
		}

		d := l.nextSleep()
		l.mu.Lock()
		l.nextCycle = l.now().Add(d)
		l.mu.Unlock()

		l.setState(domain.StateSleeping)
		if err := l.sleep(ctx, d); err != nil {
			log.Info().Msg("site loop stopped")
			return nil
		}
	}
}

// nextSleep is the poll interval scaled by a uniform factor in [1-jitter, 1+jitter]
func (l *Loop) nextSleep() time.Duration {
	j := min(max(l.site.Jitter, 0), 1)
	f := 1 + j*(2*l.jitter()-1)
	return time.Duration(float64(l.site.PollInterval) * f)
}

// resolution is the correlation result of one candidate
type resolution struct {
	match *contract.Match
	err   error
}

// RunCycle performs one fetch, extract, filter, search, notify and persist pass.
// A panic inside the cycle is recovered and returned as ErrorCodePanic
func (l *Loop) RunCycle(ctx context.Context) (st domain.CycleStats, err error) {
	id := l.newID()
	ctx = logger.WithCycle(ctx, l.site.ID, id)
	log := logger.C(ctx)
	st = domain.CycleStats{CycleID: id, StartedAt: l.now()}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("cycle panic recovered")
			err = perr.Newf(perr.ErrorCodePanic, "cycle panic: %v", r)
		}
		st.FinishedAt = l.now()
		if err != nil {
			st.Error = err.Error()
		}
		l.finish(st)
		log.Info().
			Int("listed", st.Listed).Int("new", st.New).Int("searches", st.Searches).
			Int("matched", st.Matched).Int("notified", st.Notified).
			Int("deferred", st.Deferred).Int("recorded", st.Recorded).
			Dur("elapsed", st.FinishedAt.Sub(st.StartedAt)).
			Msg("cycle done")
	}()

	cctx, cancel := guard.ForCycle(ctx, l.cfg.Timeouts)
	defer cancel()

	l.setState(domain.StateFetching)
	fctx, fcancel := guard.ForFetch(cctx, l.cfg.Timeouts)
	page, err := l.deps.Fetcher.Fetch(fctx, l.site)
	fcancel()
	if err != nil {
		return st, err
	}

	l.setState(domain.StateExtracting)
	cands, err := l.deps.Extractor.Extract(l.site, page)
	if err != nil {
		return st, err
	}
	if w := l.site.Window; w > 0 && len(cands) > w {
		cands = cands[:w]
	}
	st.Listed = len(cands)

	l.setState(domain.StateFilteringNew)
	fresh := make([]contract.Candidate, 0, len(cands))
	for _, c := range cands {
		if l.deps.Store.Has(c.Site, c.Address) {
			continue
		}
		fresh = append(fresh, c)
	}
	st.New = len(fresh)
	if len(fresh) == 0 {
		return st, nil
	}

	if l.needsBaseline() {
		st.Baseline = true
		l.setState(domain.StatePersisting)
		for _, c := range fresh {
			if err := l.record(cctx, c, contract.Outcome{}); err != nil {
				return st, err
			}
			st.Recorded++
		}
		l.mu.Lock()
		l.baselined = true
		l.mu.Unlock()
		log.Info().Int("recorded", st.Recorded).Msg("baseline recorded without searching")
		return st, nil
	}

	l.setState(domain.StateSearching)
	var searches atomic.Int64
	res := l.correlate(cctx, fresh, &searches)
	st.Searches = int(searches.Load())

	// notify and persist in page order
	for i, c := range fresh {
		if cctx.Err() != nil {
			st.Deferred += len(fresh) - i
			log.Warn().Int("deferred", len(fresh)-i).Msg("cycle budget spent; remaining candidates deferred")
			break
		}
		r := res[i]
		if r.err != nil {
			st.Deferred++
			log.Warn().Err(r.err).Str("address", c.Address).Str("reason", "search_unavailable").Msg("candidate deferred")
			continue
		}

		var out contract.Outcome
		if r.match != nil {
			st.Matched++
			out.Match = r.match

			l.setState(domain.StateNotifying)
			nctx, ncancel := guard.ForNotify(cctx, l.cfg.Timeouts)
			nerr := l.deps.Notifier.Notify(nctx, c, *r.match)
			ncancel()
			switch {
			case nerr == nil:
				out.NotifiedAt = l.now()
				st.Notified++
			case cctx.Err() != nil:
				// interrupted rather than failed; leave it for the next run
				st.Deferred++
				log.Warn().Err(nerr).Str("address", c.Address).Str("reason", "notify_interrupted").Msg("candidate deferred")
				continue
			default:
				log.Error().Err(nerr).Str("address", c.Address).Str("match", r.match.URL).
					Str("reason", "notify_failed").Msg("notification lost; recording match without notified_at")
			}
		} else {
			log.Info().Str("address", c.Address).Str("name", c.Name).Str("reason", "no_qualifying_match").Msg("candidate skipped")
		}

		l.setState(domain.StatePersisting)
		if err := l.record(cctx, c, out); err != nil {
			st.Deferred++
			log.Error().Err(err).Str("address", c.Address).Str("reason", "persist_failed").Msg("candidate deferred")
			continue
		}
		st.Recorded++
	}
	return st, nil
}

// needsBaseline reports whether this is the first cycle of a baseline site with an empty store
func (l *Loop) needsBaseline() bool {
	if !l.site.Baseline {
		return false
	}
	l.mu.Lock()
	done := l.baselined
	l.mu.Unlock()
	if done {
		return false
	}
	if l.deps.Store.Len(l.site.ID) > 0 {
		l.mu.Lock()
		l.baselined = true
		l.mu.Unlock()
		return false
	}
	return true
}

func (l *Loop) record(ctx context.Context, c contract.Candidate, out contract.Outcome) error {
	pctx, cancel := guard.ForPersist(ctx, l.cfg.Timeouts)
	defer cancel()
	return l.deps.Store.Record(pctx, c, out)
}

// correlate searches every candidate in a bounded pool. Results are indexed like cands
func (l *Loop) correlate(ctx context.Context, cands []contract.Candidate, searches *atomic.Int64) []resolution {
	res := make([]resolution, len(cands))
	// a plain group: one candidate failing must not cancel its siblings
	var g errgroup.Group
	g.SetLimit(l.cfg.Pool)
	for i, c := range cands {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.C(ctx).Error().Interface("panic", r).Str("address", c.Address).Msg("correlation panic recovered")
					res[i] = resolution{err: perr.Newf(perr.ErrorCodePanic, "correlate %s: %v", c.Address, r)}
				}
			}()
			sctx, cancel := guard.ForSearch(ctx, l.cfg.Timeouts)
			defer cancel()
			res[i] = l.resolve(sctx, c, searches)
			return nil
		})
	}
	_ = g.Wait()
	return res
}

// resolve tries each planned query in order and stops at the first qualifying match
func (l *Loop) resolve(ctx context.Context, c contract.Candidate, searches *atomic.Int64) resolution {
	log := logger.C(ctx)
	for _, q := range query.Plan(c, l.site) {
		searches.Add(1)
		matches, err := l.deps.Searcher.Search(ctx, q, l.site.ResultCeiling)
		if err != nil {
			return resolution{err: err}
		}
		for _, m := range matches {
			if reason, ok := policy.Check(m, l.site); !ok {
				log.Debug().Str("address", c.Address).Str("query", q.String()).Str("match", m.URL).
					Str("reason", string(reason)).Msg("match discarded")
			}
		}
		m, ok, err := policy.Accept(ctx, matches, l.site, l.deps.Prober)
		if err != nil {
			return resolution{err: err}
		}
		if ok {
			log.Info().Str("address", c.Address).Str("strategy", string(q.Strategy)).Str("match", m.URL).Msg("match accepted")
			return resolution{match: &m}
		}
	}
	return resolution{}
}

func (l *Loop) finish(st domain.CycleStats) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cycles++
	l.last = &st
}

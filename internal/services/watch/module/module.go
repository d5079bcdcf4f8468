// Package module wires the watch service and exposes its ports
package module

import (
	"strings"

	"contractscout/internal/adapters/explorer"
	gh "contractscout/internal/adapters/github"
	"contractscout/internal/adapters/telegram"
	"contractscout/internal/core/contract"
	"contractscout/internal/core/extract"
	"contractscout/internal/modkit"
	"contractscout/internal/platform/config"
	perr "contractscout/internal/platform/errors"
	phttp "contractscout/internal/platform/net/http"
	"contractscout/internal/services/notify"
	"contractscout/internal/services/watch/api"
	"contractscout/internal/services/watch/domain"
	"contractscout/internal/services/watch/service"
)

// Ports is the watch module's port set
type Ports struct {
	Runner domain.RunnerPort
	Status domain.StatusPort
}

// Module defines the watch module
type Module struct {
	deps  modkit.Deps
	opts  Options
	svc   *service.Svc
	ports Ports
}

// New constructs the watch module for sites. The seen store in deps is required
func New(deps modkit.Deps, sites []config.Site, overrides Options) (*Module, error) {
	if deps.Seen == nil {
		return nil, perr.Configf("watch module requires a seen store")
	}
	if len(sites) == 0 {
		return nil, perr.Configf("watch module requires at least one site")
	}
	opts := FromConfig(deps.Cfg).merge(overrides)
	log := deps.Log.With().Str("component", "watch").Logger()

	csites := make([]contract.Site, 0, len(sites))
	for _, s := range sites {
		cs := ToContract(s)
		if cs.ArtifactSearch == contract.ArtifactCode && opts.GitHub.TokensCSV == "" {
			log.Warn().Str("site", cs.ID).Msg("code search needs a GitHub token; searches will be rejected")
		}
		csites = append(csites, cs)
	}

	var sender notify.Sender
	if opts.Telegram.Configured() {
		sender = telegram.New(opts.Telegram)
	} else {
		log.Warn().Msg("telegram credentials missing; notifications go to the log")
		sender = notify.NewLogSender()
	}

	client := gh.NewClient(opts.GitHub)
	svc := service.New(csites, service.Deps{
		Fetcher:   explorer.New(opts.Explorer),
		Extractor: extract.New(),
		Searcher:  gh.NewSearcher(client),
		Prober:    gh.NewProber(client),
		Notifier:  notify.New(sender, opts.Retry),
		Store:     deps.Seen,
	}, service.Config{Pool: opts.Pool, Timeouts: opts.Timeouts})

	return &Module{
		deps:  deps,
		opts:  opts,
		svc:   svc,
		ports: Ports{Runner: svc, Status: svc},
	}, nil
}

// ToContract maps a validated sites-file entry to the loop's site model
func ToContract(s config.Site) contract.Site {
	strategies := make([]contract.Strategy, 0, len(s.Strategies))
	for _, st := range s.Strategies {
		strategies = append(strategies, contract.Strategy(strings.ToLower(st)))
	}
	artifact := contract.ArtifactType(strings.ToLower(s.ArtifactType))
	return contract.Site{
		ID:              s.Site,
		BaseURL:         s.BaseURL,
		PollInterval:    s.PollInterval,
		ResultCeiling:   s.ResultCeiling,
		MinEngagement:   s.MinEngagement,
		RequiredKeyword: s.RequiredKeyword,
		ArtifactFilter:  artifact,
		ArtifactSearch:  artifact,
		Language:        s.Language,
		Strategies:      strategies,
		Window:          s.Window,
		Baseline:        s.Baseline,
		Jitter:          s.Jitter,
	}
}

// Name returns the module name
func (m *Module) Name() string { return "watch" }

// Ports returns the module ports (Runner, Status)
func (m *Module) Ports() any { return m.ports }

// Options returns the effective options after env and overrides
func (m *Module) Options() Options { return m.opts }

// MountRoutes mounts the status API
func (m *Module) MountRoutes(r phttp.Router) { api.New(m.svc, m.deps.Seen).Mount(r) }

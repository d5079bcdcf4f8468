package module

import (
	"time"

	"contractscout/internal/adapters/explorer"
	gh "contractscout/internal/adapters/github"
	"contractscout/internal/adapters/telegram"
	"contractscout/internal/platform/config"
	"contractscout/internal/platform/guard"
	"contractscout/internal/platform/retry"
	"contractscout/internal/services/watch/service"
)

// Options controls the watch module. Values come from env and may be overridden by flags
type Options struct {
	SitesFile string
	Pool      int
	Timeouts  guard.Timeouts
	Retry     retry.Policy

	GitHub   gh.Options
	Explorer explorer.Options
	Telegram telegram.Options

	StatusAddr  string // empty disables the status API
	Pprof       bool
	Swagger     bool
	CORSOrigins []string
}

// FromConfig reads options using the WATCH_, GH_, EXPLORER_ and TELEGRAM_ prefixes
func FromConfig(cfg config.Conf) Options {
	w := cfg.Prefix("WATCH_")
	g := cfg.Prefix("GH_")
	e := cfg.Prefix("EXPLORER_")
	tg := cfg.Prefix("TELEGRAM_")

	p := retry.Policy{
		Base:    w.MayDuration("RETRY_BASE", retry.Default.Base),
		Max:     w.MayDuration("RETRY_MAX", retry.Default.Max),
		Retries: w.MayInt("RETRY_COUNT", retry.Default.Retries),
		Jitter:  w.MayFloat64("RETRY_JITTER", retry.Default.Jitter),
	}
	d := service.DefaultTimeouts

	return Options{
		SitesFile: w.MayString("SITES_FILE", "sites.yaml"),
		Pool:      w.MayInt("POOL", service.DefaultPool),
		Timeouts: guard.Timeouts{
			Cycle:   w.MayDuration("CYCLE_TIMEOUT", d.Cycle),
			Fetch:   w.MayDuration("FETCH_TIMEOUT", d.Fetch),
			Search:  w.MayDuration("SEARCH_TIMEOUT", d.Search),
			Notify:  w.MayDuration("NOTIFY_TIMEOUT", d.Notify),
			Persist: w.MayDuration("PERSIST_TIMEOUT", d.Persist),
		},
		Retry: p,
		GitHub: gh.Options{
			BaseURL: g.MayString("API_URL", ""),
			Timeout: g.MayDuration("TIMEOUT", 20*time.Second),
			// GITHUB_TOKENS is the name the .env file uses
			TokensCSV:   g.MayString("TOKENS", cfg.MayString("GITHUB_TOKENS", "")),
			Retry:       p,
			RatePerSec:  g.MayFloat64("RPS", 0.5),
			Burst:       g.MayInt("BURST", 2),
			MaxInFlight: int64(g.MayInt("MAX_INFLIGHT", 4)),
		},
		Explorer: explorer.Options{
			Timeout:   e.MayDuration("TIMEOUT", 15*time.Second),
			UserAgent: e.MayString("USER_AGENT", ""),
			PageSize:  e.MayInt("PAGE_SIZE", 100),
			Retry:     p,
		},
		Telegram: telegram.Options{
			BaseURL: tg.MayString("API_URL", ""),
			Token:   tg.MayString("TOKEN", ""),
			ChatID:  tg.MayString("CHAT_ID", ""),
			Timeout: tg.MayDuration("TIMEOUT", 10*time.Second),
		},
		StatusAddr:  w.MayString("STATUS_ADDR", ""),
		Pprof:       w.MayBool("PPROF", false),
		Swagger:     w.MayBool("SWAGGER", false),
		CORSOrigins: w.MayCSV("CORS_ORIGINS", nil),
	}
}

// merge applies non-zero overrides on top of o
func (o Options) merge(ov Options) Options {
	if ov.SitesFile != "" {
		o.SitesFile = ov.SitesFile
	}
	if ov.Pool != 0 {
		o.Pool = ov.Pool
	}
	if ov.GitHub.TokensCSV != "" {
		o.GitHub.TokensCSV = ov.GitHub.TokensCSV
	}
	if ov.GitHub.RatePerSec != 0 {
		o.GitHub.RatePerSec = ov.GitHub.RatePerSec
	}
	if ov.GitHub.BaseURL != "" {
		o.GitHub.BaseURL = ov.GitHub.BaseURL
	}
	if ov.Telegram.BaseURL != "" {
		o.Telegram.BaseURL = ov.Telegram.BaseURL
	}
	if ov.StatusAddr != "" {
		o.StatusAddr = ov.StatusAddr
	}
	if ov.Pprof {
		o.Pprof = true
	}
	if ov.Swagger {
		o.Swagger = true
	}
	return o
}

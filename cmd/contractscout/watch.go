package main

import (
	"context"

	gh "contractscout/internal/adapters/github"
	"contractscout/internal/modkit"
	"contractscout/internal/modkit/module"
	"contractscout/internal/platform/config"
	"contractscout/internal/platform/logger"
	phttp "contractscout/internal/platform/net/http"
	"contractscout/internal/platform/net/middleware"
	"contractscout/internal/services/seen/repo"
	"contractscout/internal/services/watch/api"
	"contractscout/internal/services/watch/domain"
	watchmod "contractscout/internal/services/watch/module"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func watchCmd() *cobra.Command {
	var (
		sitesFile  string
		statusAddr string
		pool       int
		rps        float64
		swagger    bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll every configured site until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.New()
			l := logger.Get()

			opts := watchmod.FromConfig(cfg)
			if sitesFile != "" {
				opts.SitesFile = sitesFile
			}
			sites, err := config.LoadSites(opts.SitesFile)
			if err != nil {
				return err
			}

			seen, err := repo.Open(ctx, repo.OptionsFromConfig(cfg))
			if err != nil {
				return err
			}
			defer func() {
				if err := seen.Close(); err != nil {
					l.Error().Err(err).Msg("failed to close seen store")
				}
			}()

			m, err := watchmod.New(modkit.Deps{Log: *l, Cfg: cfg, Seen: seen}, sites, watchmod.Options{
				SitesFile:  opts.SitesFile,
				Pool:       pool,
				StatusAddr: statusAddr,
				GitHub:     gh.Options{RatePerSec: rps},
				Swagger:    swagger,
			})
			if err != nil {
				return err
			}
			runner := module.MustPortsOf[domain.RunnerPort](m)

			var g errgroup.Group
			g.Go(func() error { return runner.Run(ctx) })

			if addr := m.Options().StatusAddr; addr != "" {
				srv := phttp.NewServer(addr, func(mx *chi.Mux) {
					mx.Use(middleware.Defaults(0)...)
					mx.Use(middleware.CORS(middleware.CORSOptions{AllowedOrigins: m.Options().CORSOrigins}))
				})
				m.MountRoutes(srv.Router())
				phttp.MountProfiler(srv.Router(), "/debug", m.Options().Pprof)
				phttp.MountSwagger(srv.Router(), "/docs", m.Options().Swagger, api.Doc)
				g.Go(func() error { return serveStatus(ctx, l, srv) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVarP(&sitesFile, "sites", "s", "", "sites YAML file (default $WATCH_SITES_FILE or sites.yaml)")
	cmd.Flags().StringVar(&statusAddr, "status-addr", "", "serve the status API on this address")
	cmd.Flags().IntVar(&pool, "pool", 0, "candidates correlated in parallel per cycle")
	cmd.Flags().Float64Var(&rps, "rps", 0, "aggregate GitHub requests per second")
	cmd.Flags().BoolVar(&swagger, "swagger", false, "serve the swagger UI under /docs on the status API")
	return cmd
}

// serveStatus runs srv until ctx ends. A bind or serve failure is logged at once;
// the watch loops keep running and the error surfaces again when they stop
func serveStatus(ctx context.Context, l *logger.Logger, srv *phttp.Server) error {
	err := srv.Run(ctx)
	if err != nil {
		l.Error().Err(err).Str("addr", srv.Addr()).Msg("status api stopped")
	}
	return err
}

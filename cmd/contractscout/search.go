package main

import (
	"io"
	"strconv"
	"strings"

	"contractscout/internal/adapters/explorer"
	"contractscout/internal/core/extract"
	"contractscout/internal/platform/config"
	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/logger"
	"contractscout/internal/services/seen/export"
	watchmod "contractscout/internal/services/watch/module"

	"github.com/spf13/cobra"
)

func searchCmd() *cobra.Command {
	var (
		out   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "search <site> <keyword>",
		Short: "Search a site's verified contracts by keyword and write the listing as CSV",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			site, keyword := strings.ToLower(strings.TrimSpace(args[0])), strings.TrimSpace(args[1])
			if keyword == "" {
				return perr.InvalidArgf("keyword is empty")
			}
			// run the site through the sites file rules so defaults and validation match watch
			sites, err := config.ParseSites(strings.NewReader("sites:\n  - site: " + strconv.Quote(site) + "\n"))
			if err != nil {
				return err
			}
			if limit < 0 {
				return perr.InvalidArgf("limit must not be negative")
			}
			opts := watchmod.FromConfig(config.New())

			cands, err := explorer.New(opts.Explorer).SearchAll(cmd.Context(), watchmod.ToContract(sites[0]), keyword, limit, extract.New())
			if err != nil && len(cands) == 0 {
				return err
			}
			if err != nil {
				logger.Named("search").Warn().Err(err).Int("collected", len(cands)).Msg("search stopped early; writing what was collected")
			}
			return withOutput(out, func(w io.Writer) error { return export.WriteCandidates(w, cands) })
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum contracts to collect across result pages, 0 for all")
	return cmd
}

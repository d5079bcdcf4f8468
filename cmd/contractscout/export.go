package main

import (
	"io"
	"os"
	"strings"

	"contractscout/internal/core/contract"
	"contractscout/internal/platform/config"
	perr "contractscout/internal/platform/errors"
	"contractscout/internal/services/seen/export"
	"contractscout/internal/services/seen/repo"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var (
		sitesFile string
		out       string
	)
	cmd := &cobra.Command{
		Use:   "export [site...]",
		Short: "Write the seen records of the given sites (default: every configured site) as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			ids := make([]string, 0, len(args))
			for _, a := range args {
				ids = append(ids, strings.ToLower(strings.TrimSpace(a)))
			}
			if len(ids) == 0 {
				if sitesFile == "" {
					sitesFile = cfg.MayString("WATCH_SITES_FILE", "sites.yaml")
				}
				sites, err := config.LoadSites(sitesFile)
				if err != nil {
					return err
				}
				for _, s := range sites {
					ids = append(ids, s.Site)
				}
			}

			seen, err := repo.Open(cmd.Context(), repo.OptionsFromConfig(cfg))
			if err != nil {
				return err
			}
			defer func() { _ = seen.Close() }()

			var all []contract.SeenRecord
			for _, id := range ids {
				recs, err := seen.Records(cmd.Context(), id)
				if err != nil {
					return err
				}
				all = append(all, recs...)
			}
			return withOutput(out, func(w io.Writer) error { return export.WriteRecords(w, all) })
		},
	}
	cmd.Flags().StringVarP(&sitesFile, "sites", "s", "", "sites YAML file used when no site is given")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}

// withOutput runs write against stdout or a freshly created file
func withOutput(path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return perr.WrapIf(f.Close(), perr.ErrorCodeStorage, "close "+path)
}

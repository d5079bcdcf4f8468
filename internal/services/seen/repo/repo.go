// Package repo implements the seen-contracts store on JSON-lines files or Postgres
package repo

import (
	"context"

	"contractscout/internal/platform/config"
	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/logger"
	"contractscout/internal/platform/store/pg"
	"contractscout/internal/services/seen/domain"
)

// Backends
const (
	BackendFile = "file"
	BackendPG   = "pg"
)

// Options selects and configures a backend
type Options struct {
	Backend string
	Dir     string // file backend
	PGURL   string // pg backend
	SlowMs  int
	LogSQL  bool
}

// OptionsFromConfig reads the STORE_ prefix
func OptionsFromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("STORE_")
	return Options{
		Backend: c.MayEnum("BACKEND", BackendFile, BackendFile, BackendPG),
		Dir:     c.MayString("DIR", "log_files"),
		PGURL:   c.MayString("PG_URL", ""),
		SlowMs:  c.MayInt("SLOW_MS", 500),
		LogSQL:  c.MayBool("LOG_SQL", false),
	}
}

// Open returns the configured store with its index loaded
func Open(ctx context.Context, o Options) (domain.StorePort, error) {
	switch o.Backend {
	case "", BackendFile:
		return OpenFile(o.Dir)
	case BackendPG:
		var tr pg.QueryTracer
		if o.LogSQL {
			tr = pg.Tracer(*logger.Named("seen"))
		}
		db, err := pg.Open(ctx, pg.Config{URL: o.PGURL, SlowMs: o.SlowMs}, tr)
		if err != nil {
			return nil, perr.WithOp(err, "open seen store")
		}
		s, err := OpenPG(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	}
	return nil, perr.Configf("unknown seen store backend %q", o.Backend)
}

var (
	_ domain.StorePort = (*FileStore)(nil)
	_ domain.StorePort = (*PGStore)(nil)
)

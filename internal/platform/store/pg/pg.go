// Package pg provides a Postgres client using pgxpool with optional query tracing
package pg

import (
	"context"
	"time"

	perr "contractscout/internal/platform/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the pool. Zero values keep the pgx defaults except ConnectTimeout
type Config struct {
	URL            string
	MaxConns       int32
	ConnectTimeout time.Duration
	SlowMs         int
}

// defaultConnectTimeout bounds each dial so a dead server fails a cycle's persist instead of hanging it
const defaultConnectTimeout = 5 * time.Second

// PG wraps a pool; every statement is reported to Tracer when set
type PG struct {
	Pool   *pgxpool.Pool
	Tracer QueryTracer
	SlowMs int
}

var newPool = pgxpool.NewWithConfig

// Open parses cfg and builds the pool. Connections are made lazily by pgx
func Open(ctx context.Context, cfg Config, tracer QueryTracer) (*PG, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		// the parse error echoes the URL, password included
		return nil, perr.Configf("invalid postgres url")
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pcfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	if pcfg.ConnConfig.ConnectTimeout <= 0 {
		pcfg.ConnConfig.ConnectTimeout = defaultConnectTimeout
	}
	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "create postgres pool")
	}
	return &PG{Pool: pool, Tracer: tracer, SlowMs: cfg.SlowMs}, nil
}

// Close closes the pool; safe on nil
func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// Exec runs sql on the pool and reports it to the tracer
func (p *PG) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := p.Pool.Exec(ctx, sql, args...)
	p.trace(ctx, sql, args, start, err)
	return tag, err
}

// Query runs sql on the pool and reports it to the tracer; callers close rows
func (p *PG) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	start := time.Now()
	rows, err := p.Pool.Query(ctx, sql, args...)
	p.trace(ctx, sql, args, start, err)
	return rows, err
}

func (p *PG) trace(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if p.Tracer == nil {
		return
	}
	el := time.Since(start)
	p.Tracer.OnQuery(ctx, QueryEvent{
		SQL:       sql,
		Args:      args,
		ElapsedUS: el.Microseconds(),
		Err:       err,
		Slow:      p.SlowMs > 0 && el >= time.Duration(p.SlowMs)*time.Millisecond,
	})
}

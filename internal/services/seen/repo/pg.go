package repo

import (
	"context"
	"time"

	"contractscout/internal/core/contract"
	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/retry"
	"contractscout/internal/platform/store/pg"
)

const schema = `
create table if not exists seen_records (
	site        text        not null,
	address     text        not null,
	name        text        not null default '',
	url         text        not null default '',
	compiler    text        not null default '',
	matched     boolean     not null default false,
	match_url   text        not null default '',
	notified_at timestamptz,
	recorded_at timestamptz not null,
	primary key (site, address)
)`

const insertRecord = `
insert into seen_records (site, address, name, url, compiler, matched, match_url, notified_at, recorded_at)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
on conflict (site, address) do nothing`

const selectRecords = `
select site, address, name, url, compiler, matched, match_url, notified_at, recorded_at
from seen_records where site = $1 order by recorded_at, address`

// pgRetry covers serialization failures and failovers
var pgRetry = retry.Policy{Base: 100 * time.Millisecond, Max: 2 * time.Second, Retries: 3, Jitter: 0.2}

// PGStore keeps records in the seen_records table
type PGStore struct {
	db  *pg.PG
	idx *index
	now func() time.Time
}

// OpenPG ensures the schema exists and loads every key into the index
func OpenPG(ctx context.Context, db *pg.PG) (*PGStore, error) {
	s := &PGStore{db: db, idx: newIndex(), now: time.Now}
	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, perr.Wrap(perr.FromPostgres(err, "create seen_records"), perr.ErrorCodeStorage, "migrate seen store")
	}
	rows, err := db.Query(ctx, `select site, address from seen_records`)
	if err != nil {
		return nil, perr.Wrap(perr.FromPostgres(err, "load seen keys"), perr.ErrorCodeStorage, "load seen store")
	}
	defer rows.Close()
	for rows.Next() {
		var k contract.Key
		if err := rows.Scan(&k.Site, &k.Address); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeStorage, "scan seen key")
		}
		s.idx.add(k)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.Wrap(perr.FromPostgres(err, "load seen keys"), perr.ErrorCodeStorage, "load seen store")
	}
	return s, nil
}

// Has implements domain.StorePort
func (s *PGStore) Has(site, address string) bool { return s.idx.has(site, address) }

// Len implements domain.StorePort
func (s *PGStore) Len(site string) int { return s.idx.len(site) }

// Record implements domain.StorePort; the insert is committed before the index learns the key
func (s *PGStore) Record(ctx context.Context, c contract.Candidate, o contract.Outcome) error {
	k := c.Key()
	if s.idx.has(k.Site, k.Address) {
		return nil
	}
	r := contract.NewRecord(c, o, s.now())
	err := retry.Do(ctx, pgRetry, func(ctx context.Context) error {
		_, err := s.db.Exec(ctx, insertRecord,
			r.Site, r.Address, r.Name, r.URL, r.Compiler, r.Matched, r.MatchURL, r.NotifiedAt, r.RecordedAt)
		if err != nil && !perr.Retryable(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return perr.Wrap(perr.FromPostgres(err, "insert seen record"), perr.ErrorCodeStorage, "record "+k.String())
	}
	s.idx.add(k)
	return nil
}

// Records implements domain.StorePort
func (s *PGStore) Records(ctx context.Context, site string) ([]contract.SeenRecord, error) {
	rows, err := s.db.Query(ctx, selectRecords, site)
	if err != nil {
		return nil, perr.Wrap(perr.FromPostgres(err, "select seen records"), perr.ErrorCodeStorage, "read seen store")
	}
	defer rows.Close()
	var out []contract.SeenRecord
	for rows.Next() {
		var r contract.SeenRecord
		if err := rows.Scan(&r.Site, &r.Address, &r.Name, &r.URL, &r.Compiler, &r.Matched, &r.MatchURL, &r.NotifiedAt, &r.RecordedAt); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeStorage, "scan seen record")
		}
		r.RecordedAt = r.RecordedAt.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeStorage, "read seen store")
	}
	return out, nil
}

// Close closes the pool
func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

package repo

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"contractscout/internal/core/contract"
	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/logger"
)

const fileExt = ".jsonl"

// FileStore keeps one JSON-lines log per site under dir
type FileStore struct {
	dir string
	idx *index
	log   logger.Logger
	now   func() time.Time
	write func(*os.File, []byte) (int, error)

	mu    sync.Mutex
	sites map[string]*siteLog
}

// siteLog serializes appends for one site
type siteLog struct {
	mu   sync.Mutex
	path string
	f    *os.File // opened on first append
}

// OpenFile loads every site log under dir into the index, creating dir when missing
func OpenFile(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "create store dir %s", dir)
	}
	s := &FileStore{
		dir:   dir,
		idx:   newIndex(),
		log:   *logger.Named("seen"),
		now:   time.Now,
		write: (*os.File).Write,
		sites: map[string]*siteLog{},
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*"+fileExt))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeStorage, "list store dir")
	}
	for _, p := range paths {
		if err := s.load(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *FileStore) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	n := 0
	err = scanRecords(f, func(r contract.SeenRecord) {
		s.idx.add(r.Key())
		n++
	}, func(line int, cause error) {
		s.log.Warn().Err(cause).Str("file", path).Int("line", line).Msg("skipping unreadable seen record")
	})
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "read %s", path)
	}
	s.log.Debug().Str("file", path).Int("records", n).Msg("seen log loaded")
	return nil
}

// scanRecords decodes one record per line; bad lines (torn writes, garbage) go to onBad
func scanRecords(r io.Reader, onRecord func(contract.SeenRecord), onBad func(line int, err error)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var rec contract.SeenRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			onBad(line, err)
			continue
		}
		if _, ok := contract.NormalizeAddress(rec.Address); !ok || rec.Site == "" {
			onBad(line, perr.InvalidArgf("record without site or address"))
			continue
		}
		onRecord(rec)
	}
	return sc.Err()
}

// Has implements domain.StorePort
func (s *FileStore) Has(site, address string) bool { return s.idx.has(site, address) }

// Len implements domain.StorePort
func (s *FileStore) Len(site string) int { return s.idx.len(site) }

func (s *FileStore) siteLog(site string) *siteLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := s.sites[site]
	if sl == nil {
		sl = &siteLog{path: filepath.Join(s.dir, contract.Slug(site)+fileExt)}
		s.sites[site] = sl
	}
	return sl
}

// Record implements domain.StorePort. The line is fsynced before the index learns the key
func (s *FileStore) Record(ctx context.Context, c contract.Candidate, o contract.Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := c.Key()
	if _, ok := contract.NormalizeAddress(k.Address); !ok || k.Site == "" {
		return perr.InvalidArgf("cannot record candidate %q", k.String())
	}

	sl := s.siteLog(k.Site)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if s.idx.has(k.Site, k.Address) {
		return nil
	}
	if err := sl.open(); err != nil {
		return err
	}

	b, err := json.Marshal(contract.NewRecord(c, o, s.now()))
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode seen record")
	}
	b = append(b, '\n')
	var size int64 = -1
	if st, err := sl.f.Stat(); err == nil {
		size = st.Size()
	}
	if _, err := s.write(sl.f, b); err != nil {
		sl.discard(size)
		return perr.Wrapf(err, perr.ErrorCodeStorage, "append %s", sl.path)
	}
	if err := sl.f.Sync(); err != nil {
		sl.discard(size)
		return perr.Wrapf(err, perr.ErrorCodeStorage, "sync %s", sl.path)
	}
	s.idx.add(k)
	return nil
}

// discard drops the handle after a failed append, cutting the log back to size when known.
// The next open terminates whatever fragment survives.
func (sl *siteLog) discard(size int64) {
	if size >= 0 {
		_ = sl.f.Truncate(size)
	}
	_ = sl.f.Close()
	sl.f = nil
}

// open prepares the append handle; a torn last line gets terminated first
func (sl *siteLog) open() error {
	if sl.f != nil {
		return nil
	}
	f, err := os.OpenFile(sl.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "open %s", sl.path)
	}
	if st, err := f.Stat(); err == nil && st.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, st.Size()-1); err == nil && last[0] != '\n' {
			if _, err := f.Write([]byte{'\n'}); err != nil {
				_ = f.Close()
				return perr.Wrapf(err, perr.ErrorCodeStorage, "terminate torn line in %s", sl.path)
			}
		}
	}
	sl.f = f
	return nil
}

// Records implements domain.StorePort
func (s *FileStore) Records(ctx context.Context, site string) ([]contract.SeenRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sl := s.siteLog(site)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	f, err := os.Open(sl.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "open %s", sl.path)
	}
	defer func() { _ = f.Close() }()

	var out []contract.SeenRecord
	seen := map[contract.Key]struct{}{}
	err = scanRecords(f, func(r contract.SeenRecord) {
		// the first line for a key is authoritative
		if _, dup := seen[r.Key()]; dup {
			return
		}
		seen[r.Key()] = struct{}{}
		if r.Site == site {
			out = append(out, r)
		}
	}, func(int, error) {})
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "read %s", sl.path)
	}
	return out, nil
}

// Close releases every open site handle
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for _, sl := range s.sites {
		sl.mu.Lock()
		if sl.f != nil {
			if err := sl.f.Close(); err != nil && first == nil {
				first = perr.Wrapf(err, perr.ErrorCodeStorage, "close %s", sl.path)
			}
			sl.f = nil
		}
		sl.mu.Unlock()
	}
	return first
}

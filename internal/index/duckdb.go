package index

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/firstline/internal/errors"
)

// duckStore keeps entries in a two-column table.
type duckStore struct {
	db      *sql.DB
	release func()

	// hasTable is false for a read-only file that never received an entry.
	hasTable bool
}

const (
	duckCreateTable = `CREATE TABLE IF NOT EXISTS firstline (
		label     VARCHAR PRIMARY KEY,
		firstline VARCHAR NOT NULL
	)`
	duckTableExists = `SELECT count(*) FROM information_schema.tables WHERE table_name = 'firstline'`
	duckSelect      = `SELECT firstline FROM firstline WHERE label = ?`
	duckUpsert      = `INSERT OR REPLACE INTO firstline (label, firstline) VALUES (?, ?)`
	duckSelectAll   = `SELECT label, firstline FROM firstline ORDER BY label`
)

// isDuckLockError reports whether err is DuckDB refusing a file that is
// locked by another process.
func isDuckLockError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Could not set lock")
}

func openDuckDB(p openParams) (kv, error) {
	return retryLocked(p.timeout, func() (kv, error) {
		return openDuckDBOnce(p)
	})
}

// duckHolders tracks the DuckDB files this process has open. DuckDB's file
// lock only excludes other processes, so a second writer, or a reader next
// to a writer, is refused here with ErrStoreLocked like bbolt's flock would.
var duckHolders = struct {
	sync.Mutex
	m map[string]*duckHold
}{m: make(map[string]*duckHold)}

type duckHold struct {
	writer  bool
	readers int
}

// acquireDuck registers an open of path. The returned release must be
// called exactly once when the store is closed or the open fails.
func acquireDuck(path string, readOnly bool) (release func(), err error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	duckHolders.Lock()
	defer duckHolders.Unlock()

	h := duckHolders.m[key]
	switch {
	case h == nil:
		h = &duckHold{}
		duckHolders.m[key] = h
	case h.writer:
		return nil, fmt.Errorf("open %s: held by a writer in this process: %w", path, errors.ErrStoreLocked)
	case !readOnly:
		return nil, fmt.Errorf("open %s: held by %d readers in this process: %w", path, h.readers, errors.ErrStoreLocked)
	}
	if readOnly {
		h.readers++
	} else {
		h.writer = true
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			duckHolders.Lock()
			defer duckHolders.Unlock()
			if readOnly {
				h.readers--
			} else {
				h.writer = false
			}
			if !h.writer && h.readers == 0 {
				delete(duckHolders.m, key)
			}
		})
	}, nil
}

func openDuckDBOnce(p openParams) (_ kv, err error) {
	release, err := acquireDuck(p.path, p.readOnly)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			release()
		}
	}()

	dsn := p.path
	if p.readOnly {
		dsn += "?access_mode=read_only"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		if isDuckLockError(err) {
			return nil, fmt.Errorf("open %s: %v: %w", p.path, err, errors.ErrStoreLocked)
		}
		return nil, fmt.Errorf("open %s: %w", p.path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if isDuckLockError(err) {
			return nil, fmt.Errorf("open %s: %v: %w", p.path, err, errors.ErrStoreLocked)
		}
		return nil, fmt.Errorf("ping %s: %w", p.path, err)
	}

	s := &duckStore{db: db, release: release}
	if p.readOnly {
		var n int
		if err := db.QueryRowContext(ctx, duckTableExists).Scan(&n); err != nil {
			db.Close()
			return nil, fmt.Errorf("inspect %s: %w", p.path, err)
		}
		s.hasTable = n > 0
		return s, nil
	}

	if _, err := db.ExecContext(ctx, duckCreateTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	s.hasTable = true
	return s, nil
}

func (s *duckStore) get(label string) (string, bool, error) {
	if !s.hasTable {
		return "", false, nil
	}
	var value string
	err := s.db.QueryRow(duckSelect, label).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *duckStore) put(label, value string) error {
	_, err := s.db.Exec(duckUpsert, label, value)
	return err
}

func (s *duckStore) forEach(fn func(label, value string) error) error {
	if !s.hasTable {
		return nil
	}
	rows, err := s.db.Query(duckSelectAll)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var label, value string
		if err := rows.Scan(&label, &value); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		if err := fn(label, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *duckStore) close() error {
	defer s.release()
	return s.db.Close()
}

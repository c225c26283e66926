package index

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xtxerr/firstline/internal/errors"
)

// Backend selects the key-value store behind an Index.
type Backend int

const (
	// BackendBolt stores entries in a bbolt file. bbolt holds an flock on
	// the file: exclusive for writers, shared for readers.
	BackendBolt Backend = iota

	// BackendDuckDB stores entries in a DuckDB table. DuckDB refuses to
	// open a file another process holds for writing; opens within this
	// process are arbitrated by a registry of held paths.
	BackendDuckDB
)

// String returns the configuration name of the backend.
func (b Backend) String() string {
	switch b {
	case BackendBolt:
		return "bolt"
	case BackendDuckDB:
		return "duckdb"
	default:
		return fmt.Sprintf("unknown(%d)", b)
	}
}

// ParseBackend parses a backend name.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(s) {
	case "bolt", "bbolt", "":
		return BackendBolt, nil
	case "duckdb":
		return BackendDuckDB, nil
	default:
		return 0, errors.NewInvalidValue("backend", s, "must be one of: bolt, duckdb")
	}
}

// kv is the minimal key-value contract an Index needs from its backend.
// Keys are labels, values decimal strings.
type kv interface {
	get(label string) (value string, ok bool, err error)
	put(label, value string) error
	forEach(fn func(label, value string) error) error
	close() error
}

// openParams are passed to a backend opener.
type openParams struct {
	path     string
	readOnly bool

	// timeout is how long to wait for the file lock. Zero waits
	// indefinitely.
	timeout  time.Duration
	fileMode os.FileMode
}

// backendImpl bundles what an Index needs to know about a backend.
type backendImpl struct {
	open func(p openParams) (kv, error)

	// companions are suffixes of files that belong to the store and must
	// be copied along with it, e.g. a write-ahead log.
	companions []string
}

func (b Backend) impl() (backendImpl, error) {
	switch b {
	case BackendBolt:
		return backendImpl{open: openBolt}, nil
	case BackendDuckDB:
		return backendImpl{open: openDuckDB, companions: []string{".wal"}}, nil
	default:
		return backendImpl{}, errors.NewInvalidValue("backend", b, "unknown backend")
	}
}

// retryLocked calls open until it succeeds, fails with something other than
// ErrStoreLocked, or timeout expires. A zero timeout retries forever.
func retryLocked(timeout time.Duration, open func() (kv, error)) (kv, error) {
	const interval = 50 * time.Millisecond

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		store, err := open()
		if err == nil || !errors.Is(err, errors.ErrStoreLocked) {
			return store, err
		}
		if !deadline.IsZero() && time.Now().Add(interval).After(deadline) {
			return nil, err
		}
		time.Sleep(interval)
	}
}

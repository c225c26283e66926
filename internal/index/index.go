// Package index implements the firstline index: a durable mapping from
// granule label to the record-number of the first record that does not
// already occur in the preceding granule.
//
// The index is a key-value file. Keys are labels, values the decimal string
// of the firstline. A missing key means "not yet computed", never zero.
//
// Writers open the file exclusively and wait for the lock. Readers that find
// the file locked copy it into a private temporary directory and read the
// copy for the rest of their lifetime, trading freshness for availability.
// Close removes that directory.
package index

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xtxerr/firstline/config"
	"github.com/xtxerr/firstline/internal/errors"
	"github.com/xtxerr/firstline/internal/granule"
	"github.com/xtxerr/firstline/internal/logging"
	"github.com/xtxerr/firstline/internal/validation"
)

// Mode is the access mode of an Index.
type Mode int

const (
	// ModeRead opens an existing index read-only, falling back to a private
	// copy when the file is locked.
	ModeRead Mode = iota

	// ModeCreate opens the index read-write, creating it if absent. The
	// writer holds exclusive access and never falls back.
	ModeCreate
)

// String returns the dbm-style flag of the mode.
func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeCreate:
		return "c"
	default:
		return fmt.Sprintf("unknown(%d)", m)
	}
}

// ParseMode parses "r" or "c".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r", "read":
		return ModeRead, nil
	case "c", "create":
		return ModeCreate, nil
	default:
		return 0, errors.NewInvalidValue("mode", s, "must be r or c")
	}
}

// Options configures Open.
type Options struct {
	// Backend selects the key-value store.
	Backend Backend

	// ReadLockTimeout bounds how long a reader waits for the lock before
	// falling back to a copy.
	ReadLockTimeout time.Duration

	// WriteLockTimeout bounds how long a writer waits for the lock. Zero
	// waits indefinitely.
	WriteLockTimeout time.Duration

	// FileMode is used when the index file is created.
	FileMode os.FileMode

	// TempDir is the parent of fallback copies. Empty uses os.TempDir.
	TempDir string

	// Logger defaults to the "index" component logger.
	Logger *slog.Logger
}

// DefaultOptions returns default index options.
func DefaultOptions() Options {
	return Options{
		Backend:          BackendBolt,
		ReadLockTimeout:  config.DefaultReadLockTimeout,
		WriteLockTimeout: config.DefaultWriteLockTimeout,
		FileMode:         config.DefaultFileMode,
	}
}

// Index is an open firstline index.
//
// Index is safe for concurrent use.
type Index struct {
	mu     sync.RWMutex
	store  kv
	closed bool

	path     string // the index the caller asked for
	openPath string // the file actually open; differs in degraded mode
	mode     Mode
	tmpDir   string
	log      *slog.Logger
}

// Open opens the index at path.
//
// In ModeRead a locked file is copied into a new temporary directory and the
// copy is opened instead; ErrStoreLocked is never returned in that mode.
// The returned Index must be closed to release the store and remove any
// temporary copy.
func Open(path string, mode Mode, opts Options) (*Index, error) {
	impl, err := opts.Backend.impl()
	if err != nil {
		return nil, err
	}
	if opts.FileMode == 0 {
		opts.FileMode = config.DefaultFileMode
	}
	log := opts.Logger
	if log == nil {
		log = logging.Component("index")
	}

	idx := &Index{
		path:     path,
		openPath: path,
		mode:     mode,
		log:      log,
	}

	switch mode {
	case ModeCreate:
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create index directory: %w", err)
			}
		}
		idx.store, err = impl.open(openParams{
			path:     path,
			timeout:  opts.WriteLockTimeout,
			fileMode: opts.FileMode,
		})
		if err != nil {
			return nil, fmt.Errorf("open firstline index for writing: %w", err)
		}
		return idx, nil

	case ModeRead:
		idx.store, err = impl.open(openParams{
			path:     path,
			readOnly: true,
			timeout:  opts.ReadLockTimeout,
			fileMode: opts.FileMode,
		})
		if err == nil {
			return idx, nil
		}
		if !errors.Is(err, errors.ErrStoreLocked) {
			return nil, fmt.Errorf("open firstline index: %w", err)
		}
		if err := idx.openCopy(impl, opts, err); err != nil {
			return nil, err
		}
		return idx, nil

	default:
		return nil, errors.NewInvalidValue("mode", mode, "unknown mode")
	}
}

// openCopy copies the locked index into a fresh temporary directory and
// opens the copy read-only. The directory is removed again if anything
// fails.
func (idx *Index) openCopy(impl backendImpl, opts Options, lockErr error) (err error) {
	tmpDir, err := os.MkdirTemp(opts.TempDir, "firstline-*")
	if err != nil {
		return fmt.Errorf("create fallback directory: %w", err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(tmpDir)
		}
	}()

	copyPath := filepath.Join(tmpDir, filepath.Base(idx.path))
	idx.log.Warn("cannot read firstline index, presumably in use, copying",
		"path", idx.path,
		"copy", copyPath,
		"error", lockErr,
	)

	if err := copyFile(idx.path, copyPath); err != nil {
		return fmt.Errorf("copy locked index: %w", err)
	}
	for _, suffix := range impl.companions {
		err := copyFile(idx.path+suffix, copyPath+suffix)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("copy locked index: %w", err)
		}
	}

	store, err := impl.open(openParams{
		path:     copyPath,
		readOnly: true,
		timeout:  opts.ReadLockTimeout,
		fileMode: opts.FileMode,
	})
	if err != nil {
		return fmt.Errorf("open firstline index copy: %w", err)
	}

	idx.store = store
	idx.openPath = copyPath
	idx.tmpDir = tmpDir
	return nil
}

// copyFile copies src to dst, syncing dst before returning.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Use opens the index, calls fn and closes the index, whatever fn returns.
func Use(path string, mode Mode, opts Options, fn func(*Index) error) (err error) {
	idx, err := Open(path, mode, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := idx.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(idx)
}

// Close releases the store and removes the temporary copy, if any.
// Close is idempotent.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil
	}
	idx.closed = true

	var errs []error
	if err := idx.store.close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if idx.tmpDir != "" {
		if err := os.RemoveAll(idx.tmpDir); err != nil {
			errs = append(errs, fmt.Errorf("remove fallback copy: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Path returns the path the index was opened with.
func (idx *Index) Path() string {
	return idx.path
}

// OpenPath returns the file actually in use. It differs from Path when the
// index runs on a fallback copy.
func (idx *Index) OpenPath() string {
	return idx.openPath
}

// Mode returns the access mode.
func (idx *Index) Mode() Mode {
	return idx.mode
}

// Degraded reports whether the index reads a private copy because the
// original was locked. The copy may be stale.
func (idx *Index) Degraded() bool {
	return idx.tmpDir != ""
}

// Lookup returns the firstline stored for label. It fails with
// ErrLabelNotFound if the label has not been indexed.
func (idx *Index) Lookup(label string) (int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return 0, errors.ErrStoreClosed
	}

	value, ok, err := idx.store.get(label)
	if err != nil {
		return 0, fmt.Errorf("lookup %q: %w", label, err)
	}
	if !ok {
		return 0, errors.NewLabelNotFound(label)
	}
	return decode(label, value)
}

// Has reports whether label has an entry.
func (idx *Index) Has(label string) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return false, errors.ErrStoreClosed
	}
	_, ok, err := idx.store.get(label)
	if err != nil {
		return false, fmt.Errorf("lookup %q: %w", label, err)
	}
	return ok, nil
}

// Put stores firstline for label, replacing any previous entry. Each Put
// is committed on its own.
func (idx *Index) Put(label string, firstline int64) error {
	if err := validation.ValidateLabel(label); err != nil {
		return err
	}
	if firstline < 0 {
		return errors.NewInvalidValue("firstline", firstline, "must not be negative")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return errors.ErrStoreClosed
	}
	if idx.mode != ModeCreate {
		return fmt.Errorf("put %q: %w", label, errors.ErrReadOnly)
	}
	if err := idx.store.put(label, strconv.FormatInt(firstline, 10)); err != nil {
		return fmt.Errorf("put %q: %w", label, err)
	}
	return nil
}

// ForEach calls fn for every entry. Iteration stops at the first error.
func (idx *Index) ForEach(fn func(label string, firstline int64) error) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return errors.ErrStoreClosed
	}
	return idx.store.forEach(func(label, value string) error {
		n, err := decode(label, value)
		if err != nil {
			return err
		}
		return fn(label, n)
	})
}

// Len returns the number of entries.
func (idx *Index) Len() (int, error) {
	n := 0
	err := idx.ForEach(func(string, int64) error {
		n++
		return nil
	})
	return n, err
}

// Filter drops the records of granule label that already occur in its
// predecessor: it keeps records whose record-number is strictly greater
// than the stored firstline. If the firstline exceeds every record-number
// the granule is contained in its predecessor and no records are returned.
func (idx *Index) Filter(label string, records granule.Records) (granule.Records, error) {
	firstline, err := idx.Lookup(label)
	if err != nil {
		return nil, err
	}

	maxNumber, ok := records.MaxNumber()
	if !ok {
		return granule.Records{}, nil
	}
	if firstline > maxNumber {
		idx.log.Warn("full granule appears contained in previous one, refusing to return any lines",
			"label", label,
			"firstline", firstline,
			"max_record", maxNumber,
		)
		return granule.Records{}, nil
	}
	return records.After(firstline), nil
}

func decode(label, value string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("entry %q has value %q: %w", label, value, errors.ErrCorruptEntry)
	}
	return n, nil
}

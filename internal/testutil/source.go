package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/xtxerr/firstline/internal/errors"
	"github.com/xtxerr/firstline/internal/granule"
)

type memGranule struct {
	header  granule.Header
	records granule.Records
	err     error
}

// Source is an in-memory granule.Source.
//
// Granules are returned in ascending start-time order unless KeepOrder is
// set, in which case FindSorted returns them in insertion order. That
// allows feeding a builder input that violates its ordering precondition.
type Source struct {
	// KeepOrder disables sorting in FindSorted.
	KeepOrder bool

	mu       sync.Mutex
	refs     []granule.Ref
	granules map[granule.Ref]*memGranule
	reads    []granule.Ref
	lastOpts granule.ReadOptions
}

// NewSource creates an empty Source.
func NewSource() *Source {
	return &Source{granules: make(map[granule.Ref]*memGranule)}
}

// Add stores a granule and returns its ref. The records are copied.
func (s *Source) Add(h granule.Header, recs granule.Records) granule.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := granule.Ref(fmt.Sprintf("mem://%s/%d", h.Satellite, len(s.refs)))
	s.refs = append(s.refs, ref)
	s.granules[ref] = &memGranule{header: h.Clone(), records: recs.Clone()}
	return ref
}

// AddRecords stores a granule whose header is derived from the records.
func (s *Source) AddRecords(satellite string, recs granule.Records) granule.Ref {
	return s.Add(Header(satellite, recs), recs)
}

// Fail makes every Read of ref return err. A nil err is replaced by an
// ErrInvalidFile error.
func (s *Source) Fail(ref granule.Ref, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		err = fmt.Errorf("%s: truncated file: %w", ref, errors.ErrInvalidFile)
	}
	s.granules[ref].err = err
}

// FindSorted implements granule.Source.
func (s *Source) FindSorted(ctx context.Context, satellite string, start, end time.Time) ([]granule.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []granule.Entry
	for _, ref := range s.refs {
		h := s.granules[ref].header
		if h.Satellite != satellite || h.StartTime.Before(start) || !h.StartTime.Before(end) {
			continue
		}
		out = append(out, granule.Entry{StartTime: h.StartTime, Ref: ref})
	}
	if !s.KeepOrder {
		slices.SortStableFunc(out, func(a, b granule.Entry) int {
			return a.StartTime.Compare(b.StartTime)
		})
	}
	return out, nil
}

// Read implements granule.Source. It returns copies, so callers may mutate
// the result freely.
func (s *Source) Read(ctx context.Context, ref granule.Ref, opts granule.ReadOptions) (granule.Header, granule.Records, error) {
	if err := ctx.Err(); err != nil {
		return granule.Header{}, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads = append(s.reads, ref)
	s.lastOpts = opts

	g, ok := s.granules[ref]
	if !ok {
		return granule.Header{}, nil, fmt.Errorf("%s: %w", ref, errors.ErrInvalidFile)
	}
	if g.err != nil {
		return granule.Header{}, nil, g.err
	}
	return g.header.Clone(), g.records.Clone(), nil
}

// Label implements granule.Source with granule.DefaultLabel.
func (s *Source) Label(h granule.Header) string {
	return granule.DefaultLabel(h)
}

// LabelOf returns the label of the stored granule ref.
func (s *Source) LabelOf(ref granule.Ref) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Label(s.granules[ref].header)
}

// Reads returns the refs read so far, in order.
func (s *Source) Reads() []granule.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.reads)
}

// LastReadOptions returns the options of the most recent Read.
func (s *Source) LastReadOptions() granule.ReadOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOpts
}

var _ granule.Source = (*Source)(nil)

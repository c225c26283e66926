package granule

import (
	"context"
	"time"
)

// Ref identifies a granule within a Source, usually its file path.
type Ref string

// Entry is one result of Source.FindSorted.
type Entry struct {
	StartTime time.Time
	Ref       Ref
}

// ReadOptions controls the processing a Source applies while reading.
// The zero value applies everything.
type ReadOptions struct {
	SkipCalibration  bool
	SkipScaleFactors bool

	// SkipFlags keeps the values of flagged scanlines. Otherwise they are
	// replaced with NaN.
	SkipFlags bool

	// SkipOverlapFilter disables overlap resolution. The index builder
	// always sets it to avoid depending on the index it is building.
	SkipOverlapFilter bool
}

// Raw returns options that disable every processing step. The boundary
// computation only needs timestamps and record-numbers.
func Raw() ReadOptions {
	return ReadOptions{
		SkipCalibration:   true,
		SkipScaleFactors:  true,
		SkipFlags:         true,
		SkipOverlapFilter: true,
	}
}

// Labeler computes the label of a granule from its header. It must be
// deterministic and collision-free per distinct granule.
type Labeler func(Header) string

// Source finds, reads and labels granules.
type Source interface {
	// FindSorted returns the granules of satellite whose start time lies in
	// [start, end), in ascending start-time order.
	FindSorted(ctx context.Context, satellite string, start, end time.Time) ([]Entry, error)

	// Read returns the header and record table of a granule. Unreadable
	// granules yield an error wrapping errors.ErrGranuleRead.
	Read(ctx context.Context, ref Ref, opts ReadOptions) (Header, Records, error)

	// Label returns the label of the granule described by h.
	Label(h Header) string
}

// Package builder computes firstline boundaries for a chronological stream
// of granules and stores them in the firstline index.
//
// A build visits the granules of one satellite in ascending start-time
// order and compares every granule with the last one it could read. The
// first record newer than anything in the predecessor is the granule's
// firstline. The comparison itself is the pure function Step; Builder
// drives it against a granule.Source and an index.Index.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xtxerr/firstline/internal/errors"
	"github.com/xtxerr/firstline/internal/granule"
	"github.com/xtxerr/firstline/internal/index"
	"github.com/xtxerr/firstline/internal/logging"
	"github.com/xtxerr/firstline/internal/validation"
)

// Observer receives build progress. Update is called with the fraction of
// the requested time range covered so far, Finish once at the end.
type Observer interface {
	Update(fraction float64)
	Finish()
}

// NopObserver discards progress.
type NopObserver struct{}

func (NopObserver) Update(float64) {}
func (NopObserver) Finish()        {}

// Options configures a Builder.
type Options struct {
	Source granule.Source

	// Index must be open in index.ModeCreate.
	Index *index.Index

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Progress is optional.
	Progress Observer

	Logger *slog.Logger
}

// Result summarizes one Update.
type Result struct {
	// Total counts granules that were read successfully.
	Total int

	// Updated is the number of index entries written.
	Updated int

	// Failed counts granules that could not be read or had no records.
	Failed int

	// Skipped counts granules read successfully without writing an entry:
	// labels already indexed and the first granule of the range.
	Skipped int
}

// Builder updates the firstline index.
type Builder struct {
	src      granule.Source
	idx      *index.Index
	now      func() time.Time
	progress Observer
	log      *slog.Logger
}

// New creates a Builder.
func New(opts Options) (*Builder, error) {
	v := errors.NewValidationErrors()
	if opts.Source == nil {
		v.AddMissing("source")
	}
	if opts.Index == nil {
		v.AddMissing("index")
	} else if opts.Index.Mode() != index.ModeCreate {
		v.Add(fmt.Errorf("index: %w", errors.ErrReadOnly))
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	b := &Builder{
		src:      opts.Source,
		idx:      opts.Index,
		now:      opts.Now,
		progress: opts.Progress,
		log:      opts.Logger,
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.progress == nil {
		b.progress = NopObserver{}
	}
	if b.log == nil {
		b.log = logging.Component("builder")
	}
	return b, nil
}

// Update computes and stores the firstline of every granule of satellite
// starting in [start, end). Entries that exist are kept unless overwrite
// is set. An end in the future is clamped to now.
//
// Granules failing with ErrGranuleRead, empty ones included, are logged
// and skipped; they do not replace the previous granule. Other read errors
// abort the update. Update stops between granules when ctx is
// done. Entries written before an error or cancellation stay valid.
func (b *Builder) Update(ctx context.Context, satellite string, start, end time.Time, overwrite bool) (Result, error) {
	var res Result
	if err := validation.ValidateSatellite(satellite); err != nil {
		return res, err
	}
	log := b.log.With("satellite", satellite)

	if now := b.now(); end.After(now) {
		end = now
	}
	log.Info("updating firstline index",
		"index", b.idx.Path(),
		"start", start,
		"end", end,
		"overwrite", overwrite,
	)

	entries, err := b.src.FindSorted(ctx, satellite, start, end)
	if err != nil {
		return res, fmt.Errorf("find granules of %s: %w", satellite, err)
	}
	log.Debug("found granules", "count", len(entries))

	var (
		state     State
		prevStart time.Time
		span      = end.Sub(start)
	)
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			log.Warn("firstline update interrupted", "updated", res.Updated, "total", res.Total)
			return res, err
		}
		if i > 0 && e.StartTime.Before(prevStart) {
			log.Warn("granules out of chronological order, boundaries will be wrong",
				"ref", e.Ref,
				"start", e.StartTime,
				"previous_start", prevStart,
			)
		}
		prevStart = e.StartTime

		state, err = b.visit(ctx, log, state, e, overwrite, &res)
		if err != nil {
			return res, err
		}
		if span > 0 {
			b.progress.Update(float64(e.StartTime.Sub(start)) / float64(span))
		}
	}
	b.progress.Update(1)
	b.progress.Finish()

	log.Info("firstline update done",
		"updated", res.Updated,
		"total", res.Total,
		"failed", res.Failed,
		"skipped", res.Skipped,
	)
	return res, nil
}

// visit processes one granule and returns the state for the next one.
func (b *Builder) visit(ctx context.Context, log *slog.Logger, state State, e granule.Entry, overwrite bool, res *Result) (State, error) {
	h, recs, err := b.src.Read(ctx, e.Ref, granule.Raw())
	if err == nil && recs.Len() == 0 {
		err = fmt.Errorf("%s has no records: %w", e.Ref, errors.ErrInvalidData)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return state, ctxErr
		}
		if !errors.IsRecoverable(err) {
			return state, fmt.Errorf("read %s: %w", e.Ref, err)
		}
		log.Error("cannot read granule, skipping", "ref", e.Ref, "error", err)
		res.Failed++
		return state, nil
	}
	res.Total++

	label := b.src.Label(h)
	exists, err := b.idx.Has(label)
	if err != nil {
		return state, fmt.Errorf("check %s: %w", label, err)
	}

	next, d := Step(state, Snapshot{Label: label, Header: h, Records: recs}, exists, overwrite)
	switch d.Action {
	case ActionKeep:
		log.Debug("already present, not recomputing", "label", label)
		res.Skipped++
	case ActionSkipFirst:
		log.Debug("no previous granule, not computing boundary", "label", label)
		res.Skipped++
	case ActionWrite:
		if d.Contained {
			maxNumber, _ := recs.MaxNumber()
			log.Info("granule appears fully contained in previous one",
				"label", label,
				"previous", state.Header.Path,
				"max_record", maxNumber,
			)
		}
		if err := b.idx.Put(label, d.Firstline); err != nil {
			return state, fmt.Errorf("store firstline of %s: %w", label, err)
		}
		log.Debug("stored firstline", "label", label, "firstline", d.Firstline)
		res.Updated++
	}
	return next, nil
}

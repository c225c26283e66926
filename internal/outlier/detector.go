// Package outlier flags statistical outliers in measurement arrays using the
// median absolute deviation (MEDMAD).
//
// For each independent series the detector computes the median and the MAD,
// ignoring NaN entries, and flags entries with |x - median| / MAD > cutoff.
// Rank 1 and 2 inputs are one series; a rank 3 input of shape (a, b, c) is
// treated as c series along its last axis.
package outlier

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/firstline/config"
	"github.com/xtxerr/firstline/internal/errors"
	"github.com/xtxerr/firstline/internal/logging"
)

// Options configures a Detector.
type Options struct {
	// Cutoff is the threshold in units of MAD.
	Cutoff float64

	// Estimator selects exact or sketch based statistics.
	Estimator Estimator

	// SketchAccuracy is the DDSketch relative accuracy, used by
	// EstimatorSketch only.
	SketchAccuracy float64

	// Workers bounds the number of series processed concurrently.
	Workers int
}

// DefaultOptions returns default detector options.
func DefaultOptions() Options {
	return Options{
		Cutoff:         config.DefaultOutlierCutoff,
		Estimator:      EstimatorExact,
		SketchAccuracy: config.DefaultSketchAccuracy,
		Workers:        config.DefaultOutlierWorkers,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	v := errors.NewValidationErrors()
	if math.IsNaN(o.Cutoff) || o.Cutoff < 0 {
		v.Add(errors.NewInvalidValue("cutoff", o.Cutoff, "must be a non-negative number"))
	}
	if o.Estimator == EstimatorSketch && (o.SketchAccuracy <= 0 || o.SketchAccuracy >= 1) {
		v.Add(errors.NewInvalidValue("sketch_accuracy", o.SketchAccuracy, "must be between 0 and 1"))
	}
	if o.Estimator != EstimatorExact && o.Estimator != EstimatorSketch {
		v.Add(errors.NewInvalidValue("estimator", o.Estimator, "unknown estimator"))
	}
	return v.Err()
}

// Detector implements the MEDMAD outlier filter.
type Detector struct {
	opts   Options
	median medianFunc
	log    *slog.Logger
}

// New creates a Detector.
func New(opts Options) (*Detector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	d := &Detector{
		opts:   opts,
		median: exactMedian,
		log:    logging.Component("outlier"),
	}
	if opts.Estimator == EstimatorSketch {
		d.median = sketchMedian(opts.SketchAccuracy)
	}
	return d, nil
}

// Detect returns a mask of the same shape as samples, true where the
// sample is an outlier within its series. It fails with ErrInvalidShape
// for inputs of rank above 3.
func Detect(samples Array, cutoff float64) (Mask, error) {
	opts := DefaultOptions()
	opts.Cutoff = cutoff
	opts.Workers = 1
	d, err := New(opts)
	if err != nil {
		return Mask{}, err
	}
	return d.Detect(context.Background(), samples)
}

// Cutoff returns the configured cutoff.
func (d *Detector) Cutoff() float64 {
	return d.opts.Cutoff
}

// Detect flags the outliers of samples. Series are independent and are
// processed concurrently, bounded by Options.Workers.
func (d *Detector) Detect(ctx context.Context, samples Array) (Mask, error) {
	all, err := samples.split()
	if err != nil {
		return Mask{}, err
	}

	mask := Mask{
		Shape: append([]int(nil), samples.Shape...),
		Data:  make([]bool, len(samples.Data)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for k, s := range all {
		k, s := k, s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			med, mad, err := medianMAD(samples.values(s), d.median)
			if err != nil {
				return fmt.Errorf("series %d: %w", k, err)
			}
			// Series are disjoint, so each goroutine owns its mask entries.
			for i := 0; i < s.Count; i++ {
				idx := s.index(i)
				mask.Data[idx] = isOutlier(samples.Data[idx], med, mad, d.opts.Cutoff)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Mask{}, err
	}

	d.log.Debug("outlier detection done",
		"shape", samples.Shape,
		"series", len(all),
		"flagged", mask.Count(),
		"cutoff", d.opts.Cutoff,
		"estimator", d.opts.Estimator.String(),
	)
	return mask, nil
}

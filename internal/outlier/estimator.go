package outlier

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/firstline/internal/errors"
)

// Estimator selects how median and MAD are computed.
type Estimator int

const (
	// EstimatorExact sorts each series. Results match numpy's masked median.
	EstimatorExact Estimator = iota

	// EstimatorSketch uses a DDSketch per series. Memory is bounded by the
	// sketch size rather than the series length, at the price of a relative
	// error on median and MAD.
	EstimatorSketch
)

// String returns the configuration name of the estimator.
func (e Estimator) String() string {
	switch e {
	case EstimatorExact:
		return "exact"
	case EstimatorSketch:
		return "sketch"
	default:
		return fmt.Sprintf("unknown(%d)", e)
	}
}

// ParseEstimator parses an estimator name.
func ParseEstimator(s string) (Estimator, error) {
	switch strings.ToLower(s) {
	case "exact", "":
		return EstimatorExact, nil
	case "sketch", "ddsketch":
		return EstimatorSketch, nil
	default:
		return 0, errors.NewInvalidValue("estimator", s, "must be one of: exact, sketch")
	}
}

// medianFunc returns the median of values, which never contain NaN.
// An empty input yields NaN.
type medianFunc func(values []float64) (float64, error)

// exactMedian sorts a copy of values. Even counts average the two middle
// values.
func exactMedian(values []float64) (float64, error) {
	n := len(values)
	if n == 0 {
		return math.NaN(), nil
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	if n%2 == 1 {
		return sorted[n/2], nil
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2, nil
}

// sketchMedian returns a medianFunc backed by a DDSketch with the given
// relative accuracy. The sketch cannot hold infinities, so non-finite values
// are left out of the estimate. An input without finite values yields NaN.
func sketchMedian(accuracy float64) medianFunc {
	return func(values []float64) (float64, error) {
		sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
		if err != nil {
			return 0, fmt.Errorf("create sketch: %w", err)
		}
		for _, v := range values {
			if math.IsInf(v, 0) || math.IsNaN(v) {
				continue
			}
			if err := sketch.Add(v); err != nil {
				return 0, fmt.Errorf("add %g to sketch: %w", v, err)
			}
		}
		if sketch.IsEmpty() {
			return math.NaN(), nil
		}
		return sketch.GetValueAtQuantile(0.5)
	}
}

// medianMAD returns the median of values and the median absolute deviation
// around it.
func medianMAD(values []float64, median medianFunc) (med, mad float64, err error) {
	med, err = median(values)
	if err != nil || math.IsNaN(med) {
		return med, math.NaN(), err
	}
	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - med)
	}
	mad, err = median(dev)
	return med, mad, err
}

// isOutlier applies the MEDMAD rule to a single value. A zero MAD makes the
// ratio undefined: such values are outliers exactly when they differ from
// the median. NaN values are never outliers.
func isOutlier(x, med, mad, cutoff float64) bool {
	if math.IsNaN(x) || math.IsNaN(med) || math.IsNaN(mad) {
		return false
	}
	dev := math.Abs(x - med)
	if mad == 0 {
		return dev != 0
	}
	return dev/mad > cutoff
}

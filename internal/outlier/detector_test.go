package outlier

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/firstline/internal/errors"
)

// uniformNoise returns n values uniform in [-1, 1). Its MAD is about 0.5 and
// no value deviates more than about 2 MADs from the median.
func uniformNoise(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = 2*rng.Float64() - 1
	}
	return out
}

func TestDetect_NoiseHasNoOutliers(t *testing.T) {
	for _, cutoff := range []float64{4, 5, 10} {
		mask, err := Detect(Vector(uniformNoise(1, 1000)), cutoff)
		require.NoError(t, err)
		assert.Zero(t, mask.Count(), "cutoff=%v", cutoff)
	}
}

func TestDetect_SingleSpike(t *testing.T) {
	data := uniformNoise(2, 1000)
	sigma := 1 / math.Sqrt(3) // std of uniform [-1, 1)
	data[417] = 20 * sigma

	mask, err := Detect(Vector(data), 4)
	require.NoError(t, err)
	assert.Equal(t, []int{417}, mask.Indices())
	assert.Equal(t, []int{1000}, mask.Shape)
}

func TestDetect_ConstantSeries(t *testing.T) {
	data := []float64{3, 3, 3, 3, 3}

	mask, err := Detect(Vector(data), 4)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, false, false}, mask.Data)
}

func TestDetect_ZeroMADFlagsDeviatingValues(t *testing.T) {
	// More than half of the values equal the median, so MAD is zero.
	data := []float64{3, 3, 3, 3, 3, 3, 7}

	mask, err := Detect(Vector(data), 100)
	require.NoError(t, err)
	assert.Equal(t, []int{6}, mask.Indices())
}

func TestDetect_IgnoresNaN(t *testing.T) {
	nan := math.NaN()
	data := []float64{1, nan, 2, 1, 2, nan, 1, 100}

	mask, err := Detect(Vector(data), 4)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, mask.Indices())
	assert.False(t, mask.Data[1])
	assert.False(t, mask.Data[5])

	mask, err = Detect(Vector([]float64{nan, nan}), 4)
	require.NoError(t, err)
	assert.Zero(t, mask.Count())
}

func TestDetect_Rank2IsOneSeries(t *testing.T) {
	// Row 1 is far away from row 0 but rows are not independent series.
	data := append(uniformNoise(3, 50), uniformNoise(4, 50)...)
	data[60] = 50

	arr, err := NewArray([]int{2, 50}, data)
	require.NoError(t, err)

	mask, err := Detect(arr, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{60}, mask.Indices())
	assert.Equal(t, []int{2, 50}, mask.Shape)
}

func TestDetect_Rank3SeriesAlongLastAxis(t *testing.T) {
	const a, b, c = 10, 4, 3
	data := make([]float64, a*b*c)
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < a*b; i++ {
		for k := 0; k < c; k++ {
			// Channels live at very different levels.
			data[i*c+k] = float64(k)*1000 + rng.Float64()
		}
	}
	// Spike in channel 1 only; it is ordinary for channel 2's level.
	data[7*c+1] = 2000.5

	arr, err := NewArray([]int{a, b, c}, data)
	require.NoError(t, err)

	mask, err := Detect(arr, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{7*c + 1}, mask.Indices())
}

func TestDetect_RankAboveThreeFails(t *testing.T) {
	arr, err := NewArray([]int{2, 2, 2, 2}, make([]float64, 16))
	require.NoError(t, err)

	_, err = Detect(arr, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidShape))
	assert.Equal(t, errors.CodeInvalidShape, errors.ErrorToCode(err))
}

func TestNewArray_ShapeMismatch(t *testing.T) {
	_, err := NewArray([]int{2, 3}, make([]float64, 5))
	assert.True(t, errors.Is(err, errors.ErrInvalidShape))

	_, err = NewArray([]int{-1}, nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidShape))
}

func TestExactMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd", []float64{5, 1, 3}, 3},
		{"even", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := exactMedian(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := exactMedian(nil)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestDetector_SketchEstimator(t *testing.T) {
	opts := DefaultOptions()
	opts.Estimator = EstimatorSketch
	opts.Cutoff = 4
	d, err := New(opts)
	require.NoError(t, err)

	data := uniformNoise(6, 5000)
	data[1234] = 25
	data[4321] = -25

	mask, err := d.Detect(context.Background(), Vector(data))
	require.NoError(t, err)
	assert.Equal(t, []int{1234, 4321}, mask.Indices())
}

func TestDetector_InfiniteValues(t *testing.T) {
	for _, est := range []Estimator{EstimatorExact, EstimatorSketch} {
		t.Run(est.String(), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Estimator = est
			opts.Cutoff = 4
			d, err := New(opts)
			require.NoError(t, err)

			data := uniformNoise(7, 1000)
			data[10] = math.Inf(1)
			data[20] = math.Inf(-1)
			data[30] = 25

			mask, err := d.Detect(context.Background(), Vector(data))
			require.NoError(t, err)
			assert.Equal(t, []int{10, 20, 30}, mask.Indices())
		})
	}
}

func TestSketchMedian_NonFinite(t *testing.T) {
	median := sketchMedian(0.01)

	got, err := median([]float64{math.Inf(1), 2, math.Inf(-1)})
	require.NoError(t, err)
	assert.InDelta(t, 2, got, 0.02)

	got, err = median([]float64{math.Inf(1), math.Inf(-1)})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))

	got, err = median(nil)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestDetector_Canceled(t *testing.T) {
	d, err := New(DefaultOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	arr, err := NewArray([]int{1, 2, 3}, make([]float64, 6))
	require.NoError(t, err)
	_, err = d.Detect(ctx, arr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	opts := DefaultOptions()
	opts.Cutoff = -1
	assert.True(t, errors.IsValidation(opts.Validate()))

	opts = DefaultOptions()
	opts.Estimator = EstimatorSketch
	opts.SketchAccuracy = 0
	assert.Error(t, opts.Validate())

	_, err := New(Options{Cutoff: math.NaN()})
	assert.Error(t, err)
}

func TestParseEstimator(t *testing.T) {
	e, err := ParseEstimator("sketch")
	require.NoError(t, err)
	assert.Equal(t, EstimatorSketch, e)

	e, err = ParseEstimator("")
	require.NoError(t, err)
	assert.Equal(t, EstimatorExact, e)

	_, err = ParseEstimator("mean")
	assert.True(t, errors.IsValidation(err))
}

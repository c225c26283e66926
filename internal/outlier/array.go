package outlier

import (
	"fmt"

	"github.com/xtxerr/firstline/internal/errors"
)

// MaxRank is the highest array rank the detector accepts.
const MaxRank = 3

// Array is a dense row-major array of samples. NaN marks an invalid or
// missing entry.
type Array struct {
	Shape []int
	Data  []float64
}

// NewArray creates an Array after checking that data fills shape exactly.
func NewArray(shape []int, data []float64) (Array, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return Array{}, fmt.Errorf("negative dimension %d in shape %v: %w", d, shape, errors.ErrInvalidShape)
		}
		n *= d
	}
	if n != len(data) {
		return Array{}, fmt.Errorf("shape %v needs %d values, got %d: %w", shape, n, len(data), errors.ErrInvalidShape)
	}
	return Array{Shape: append([]int(nil), shape...), Data: data}, nil
}

// Vector wraps a flat series as a rank-1 array.
func Vector(data []float64) Array {
	return Array{Shape: []int{len(data)}, Data: data}
}

// Rank returns the number of dimensions.
func (a Array) Rank() int {
	return len(a.Shape)
}

// series describes one independent series inside the flat data slice:
// Count entries starting at Offset, Stride apart.
type series struct {
	Offset int
	Stride int
	Count  int
}

// index returns the flat index of the i-th element of the series.
func (s series) index(i int) int {
	return s.Offset + i*s.Stride
}

// split returns the independent series of a. Rank 1 and 2 arrays form a
// single series. A rank 3 array of shape (a, b, c) forms c series, series k
// holding every element [i, j, k].
func (a Array) split() ([]series, error) {
	switch rank := a.Rank(); {
	case rank < 1 || rank > MaxRank:
		return nil, fmt.Errorf("cannot filter outliers on input with %d dimensions (want 1..%d): %w",
			rank, MaxRank, errors.ErrInvalidShape)
	case rank < 3:
		return []series{{Offset: 0, Stride: 1, Count: len(a.Data)}}, nil
	default:
		c := a.Shape[2]
		out := make([]series, c)
		for k := 0; k < c; k++ {
			out[k] = series{Offset: k, Stride: c, Count: a.Shape[0] * a.Shape[1]}
		}
		return out, nil
	}
}

// values gathers the series' entries, dropping NaN.
func (a Array) values(s series) []float64 {
	out := make([]float64, 0, s.Count)
	for i := 0; i < s.Count; i++ {
		v := a.Data[s.index(i)]
		if v == v {
			out = append(out, v)
		}
	}
	return out
}

// Mask flags entries of an Array. It has the same shape as its input.
type Mask struct {
	Shape []int
	Data  []bool
}

// Count returns the number of flagged entries.
func (m Mask) Count() int {
	n := 0
	for _, f := range m.Data {
		if f {
			n++
		}
	}
	return n
}

// Indices returns the flat indices of the flagged entries.
func (m Mask) Indices() []int {
	var out []int
	for i, f := range m.Data {
		if f {
			out = append(out, i)
		}
	}
	return out
}

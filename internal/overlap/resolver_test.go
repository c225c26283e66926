package overlap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/firstline/internal/errors"
	"github.com/xtxerr/firstline/internal/granule"
	"github.com/xtxerr/firstline/internal/index"
	"github.com/xtxerr/firstline/internal/testutil"
)

func openIndex(t *testing.T) *index.Index {
	t.Helper()
	opts := index.DefaultOptions()
	opts.Logger, _ = testutil.NewLogger()
	idx, err := index.Open(filepath.Join(t.TempDir(), "gfl.db"), index.ModeCreate, opts)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestNull(t *testing.T) {
	recs := testutil.Scanlines(1, testutil.Epoch, 5)
	r, err := New(KindNull, Deps{})
	require.NoError(t, err)

	out, err := r.ResolveOverlap(context.Background(), "g", testutil.Header("noaa15", recs), recs)
	require.NoError(t, err)
	assert.Equal(t, recs, out)
}

func TestFirstline_Trims(t *testing.T) {
	idx := openIndex(t)
	recs := testutil.Scanlines(100, testutil.Epoch, 10)
	h := testutil.Header("noaa15", recs)
	require.NoError(t, idx.Put(granule.DefaultLabel(h), 104))

	r, err := New(KindFirstline, Deps{Index: idx, Labeler: granule.DefaultLabel})
	require.NoError(t, err)

	out, err := r.ResolveOverlap(context.Background(), "g", h, recs)
	require.NoError(t, err)
	assert.Equal(t, []int64{105, 106, 107, 108, 109}, out.Numbers())
}

func TestFirstline_Contained(t *testing.T) {
	idx := openIndex(t)
	recs := testutil.Scanlines(0, testutil.Epoch, 4)
	h := testutil.Header("noaa15", recs)
	require.NoError(t, idx.Put(granule.DefaultLabel(h), 4))

	r, err := NewFirstline(Deps{Index: idx, Labeler: granule.DefaultLabel})
	require.NoError(t, err)

	out, err := r.ResolveOverlap(context.Background(), "g", h, recs)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFirstline_MissingLabel(t *testing.T) {
	idx := openIndex(t)
	recs := testutil.Scanlines(0, testutil.Epoch, 4)
	h := testutil.Header("noaa15", recs)

	failing, err := New(KindFirstline, Deps{Index: idx, Labeler: granule.DefaultLabel})
	require.NoError(t, err)
	_, err = failing.ResolveOverlap(context.Background(), "g", h, recs)
	assert.ErrorIs(t, err, errors.ErrLabelNotFound)
	assert.True(t, errors.IsNotFound(err))

	passing, err := New(KindFirstline, Deps{Index: idx, Labeler: granule.DefaultLabel, Missing: MissingPassThrough})
	require.NoError(t, err)
	out, err := passing.ResolveOverlap(context.Background(), "g", h, recs)
	require.NoError(t, err)
	assert.Equal(t, recs.Numbers(), out.Numbers())
}

func TestFirstline_CustomLabeler(t *testing.T) {
	idx := openIndex(t)
	require.NoError(t, idx.Put("fixed", 1))

	r, err := NewFirstline(Deps{Index: idx, Labeler: func(granule.Header) string { return "fixed" }})
	require.NoError(t, err)

	recs := testutil.Scanlines(0, testutil.Epoch, 3)
	out, err := r.ResolveOverlap(context.Background(), "g", granule.Header{}, recs)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, out.Numbers())
}

func TestFirstline_RequiresDeps(t *testing.T) {
	_, err := New(KindFirstline, Deps{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingField)
}

func TestBestLine_NotImplemented(t *testing.T) {
	r, err := New(KindBestLine, Deps{})
	require.NoError(t, err)

	recs := testutil.Scanlines(0, testutil.Epoch, 3)
	_, err = r.ResolveOverlap(context.Background(), "g", granule.Header{}, recs)
	assert.ErrorIs(t, err, errors.ErrNotImplemented)
	assert.Equal(t, errors.CodeNotImplemented, errors.ErrorToCode(err))
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"null", KindNull},
		{"firstline", KindFirstline},
		{"", KindFirstline},
		{"bestline", KindBestLine},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		if tt.in != "" {
			assert.Equal(t, tt.in, got.String())
		}
	}

	_, err := ParseKind("median")
	assert.True(t, errors.IsValidation(err))

	p, err := ParseMissingPolicy("pass")
	require.NoError(t, err)
	assert.Equal(t, MissingPassThrough, p)
	_, err = ParseMissingPolicy("retry")
	assert.Error(t, err)
}

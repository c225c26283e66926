package parquetsrc_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/firstline/internal/builder"
	"github.com/xtxerr/firstline/internal/granule"
	"github.com/xtxerr/firstline/internal/granule/parquetsrc"
	"github.com/xtxerr/firstline/internal/index"
	"github.com/xtxerr/firstline/internal/overlap"
	"github.com/xtxerr/firstline/internal/testutil"
)

// Builds the index over Parquet granules and reads them back through the
// firstline resolver: no timestamp may be delivered twice.
func TestBuildThenResolve(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "gfl.db")
	log, _ := testutil.NewLogger()

	a := testutil.Scanlines(1, testutil.Epoch, 60)
	b := testutil.Overlapping(a, 12, 60, 1)
	c := testutil.Overlapping(b, 5, 60, 1)
	for _, recs := range []granule.Records{a, b, c} {
		_, err := parquetsrc.WriteGranule(dir, testutil.Header("noaa18", recs), recs,
			parquetsrc.WriterOptions{Compression: parquetsrc.CompressionZstd, PerSatellite: true})
		require.NoError(t, err)
	}

	src, err := parquetsrc.New(parquetsrc.Options{Dir: dir, Logger: log})
	require.NoError(t, err)

	idxOpts := index.DefaultOptions()
	idxOpts.Logger = log
	require.NoError(t, index.Use(dbPath, index.ModeCreate, idxOpts, func(idx *index.Index) error {
		bld, err := builder.New(builder.Options{Source: src, Index: idx, Logger: log})
		require.NoError(t, err)
		res, err := bld.Update(context.Background(), "noaa18",
			testutil.Epoch.Add(-time.Minute), testutil.Epoch.Add(time.Hour), false)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Updated)
		return nil
	}))

	idx, err := index.Open(dbPath, index.ModeRead, idxOpts)
	require.NoError(t, err)
	defer idx.Close()

	resolver, err := overlap.New(overlap.KindFirstline, overlap.Deps{
		Index:   idx,
		Labeler: src.Label,
		Missing: overlap.MissingPassThrough,
		Logger:  log,
	})
	require.NoError(t, err)
	src.SetResolver(resolver)

	entries, err := src.FindSorted(context.Background(), "noaa18", testutil.Epoch, testutil.Epoch.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	seen := map[int64]bool{}
	var counts []int
	for _, e := range entries {
		_, recs, err := src.Read(context.Background(), e.Ref, granule.ReadOptions{})
		require.NoError(t, err)
		counts = append(counts, len(recs))
		for _, ts := range recs.Timestamps() {
			assert.False(t, seen[ts], "timestamp %d delivered twice", ts)
			seen[ts] = true
		}
	}
	// The first granule is not indexed and passes through; the others
	// lose their repeated scanlines and the boundary scanline itself.
	assert.Equal(t, []int{60, 60 - 12 - 1, 60 - 5 - 1}, counts)
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/firstline/internal/errors"
	"github.com/xtxerr/firstline/internal/granule"
	"github.com/xtxerr/firstline/internal/granule/parquetsrc"
	"github.com/xtxerr/firstline/internal/index"
	"github.com/xtxerr/firstline/internal/testutil"
)

type fixture struct {
	dir    string
	db     string
	labels []string
	paths  []string
}

// newFixture writes three overlapping noaa18 granules. The first one carries
// a spike at record-number 11 in channel 0.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		dir: t.TempDir(),
		db:  filepath.Join(t.TempDir(), "gfl.db"),
	}

	a := testutil.Scanlines(1, testutil.Epoch, 60)
	a[10].Values[0] = 1000
	b := testutil.Overlapping(a, 12, 60, 1)
	c := testutil.Overlapping(b, 5, 60, 1)
	for _, recs := range []granule.Records{a, b, c} {
		h := testutil.Header("noaa18", recs)
		path, err := parquetsrc.WriteGranule(f.dir, h, recs, parquetsrc.DefaultWriterOptions())
		require.NoError(t, err)
		f.paths = append(f.paths, path)
		f.labels = append(f.labels, granule.DefaultLabel(h))
	}
	return f
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(strings.NewReader(""), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (f *fixture) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return run(t, append([]string{"--index", f.db, "--granules", f.dir}, args...)...)
}

func (f *fixture) update(t *testing.T, extra ...string) string {
	t.Helper()
	args := append([]string{"update", "-s", "noaa18",
		"--start", "2010-03-14", "--end", "2010-03-15", "--progress=false"}, extra...)
	out, _, err := f.run(t, args...)
	require.NoError(t, err)
	return out
}

func TestUpdateLookupDump(t *testing.T) {
	f := newFixture(t)

	out := f.update(t)
	assert.Equal(t, "updated 2/3 granules (0 unreadable, 1 skipped)\n", out)

	out, _, err := f.run(t, "lookup", f.labels[1], f.labels[2])
	require.NoError(t, err)
	assert.Equal(t, f.labels[1]+"\t13\n"+f.labels[2]+"\t6\n", out)

	out, _, err = f.run(t, "dump")
	require.NoError(t, err)
	assert.Equal(t, f.labels[1]+"\t13\n"+f.labels[2]+"\t6\n", out)

	// Entries exist now and nothing changes without --overwrite.
	out = f.update(t)
	assert.Equal(t, "updated 0/3 granules (0 unreadable, 3 skipped)\n", out)

	out = f.update(t, "--overwrite")
	assert.Equal(t, "updated 2/3 granules (0 unreadable, 1 skipped)\n", out)
}

func TestLookupMissingLabel(t *testing.T) {
	f := newFixture(t)
	f.update(t)

	out, _, err := f.run(t, "lookup", f.labels[0], f.labels[1])
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, f.labels[1]+"\t13\n", out)
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.run(t, "update", "--progress=false")
	assert.ErrorIs(t, err, errors.ErrMissingField)

	_, _, err = f.run(t, "update", "-s", "noaa18", "--start", "yesterday", "--progress=false")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	_, _, err = f.run(t, "update", "-s", "noaa18",
		"--start", "2010-03-15", "--end", "2010-03-14", "--progress=false")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	_, err = os.Stat(f.db)
	assert.True(t, os.IsNotExist(err), "index must not be created by a rejected update")
}

func TestFilter(t *testing.T) {
	f := newFixture(t)
	f.update(t)

	out, _, err := f.run(t, "filter", f.paths[1])
	require.NoError(t, err)
	assert.Equal(t, f.labels[1]+"\tfirstline\t47/60\n", out)

	out, _, err = f.run(t, "filter", "--resolver", "null", f.paths[1])
	require.NoError(t, err)
	assert.Equal(t, f.labels[1]+"\tnull\t60/60\n", out)

	_, _, err = f.run(t, "filter", "--resolver", "bestline", f.paths[1])
	assert.ErrorIs(t, err, errors.ErrNotImplemented)
}

func TestFilterMissingPolicy(t *testing.T) {
	f := newFixture(t)
	f.update(t)

	_, _, err := f.run(t, "filter", f.paths[0])
	assert.True(t, errors.IsNotFound(err))

	out, _, err := f.run(t, "filter", "--missing", "pass", f.paths[0])
	require.NoError(t, err)
	assert.Equal(t, f.labels[0]+"\tfirstline\t60/60\n", out)
}

func TestOutliers(t *testing.T) {
	f := newFixture(t)

	out, _, err := f.run(t, "outliers", f.paths[0])
	require.NoError(t, err)
	assert.Equal(t, "11\t0\t1000\n1 outliers in 120 values\n", out)

	// A cutoff below the spread of the ramp flags its ends as well.
	out, _, err = f.run(t, "outliers", "--cutoff", "1.5", f.paths[0])
	require.NoError(t, err)
	assert.NotEqual(t, "11\t0\t1000\n1 outliers in 120 values\n", out)
	assert.Contains(t, out, "11\t0\t1000\n")
}

func TestOutliersIgnoresFlaggedScanlines(t *testing.T) {
	dir := t.TempDir()
	recs := testutil.Scanlines(1, testutil.Epoch, 60)
	recs[10].Values[0] = 1000
	recs[10].Flags = 0x1
	path, err := parquetsrc.WriteGranule(dir, testutil.Header("noaa18", recs), recs, parquetsrc.DefaultWriterOptions())
	require.NoError(t, err)

	out, _, err := run(t, "--granules", dir, "outliers", path)
	require.NoError(t, err)
	assert.Equal(t, "0 outliers in 120 values\n", out)
}

func TestConfigFile(t *testing.T) {
	f := newFixture(t)
	cfgPath := filepath.Join(t.TempDir(), "firstline.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"index:\n  path: "+f.db+"\ngranules:\n  dir: "+f.dir+"\nlogging:\n  level: debug\n"), 0o644))

	_, stderr, err := run(t, "-c", cfgPath, "update", "-s", "noaa18",
		"--start", "2010-03-14", "--end", "2010-03-15", "--progress=false")
	require.NoError(t, err)
	assert.Contains(t, stderr, "firstline update done")

	out, _, err := run(t, "-c", cfgPath, "lookup", f.labels[2])
	require.NoError(t, err)
	assert.Equal(t, f.labels[2]+"\t6\n", out)
}

func TestConfigFileErrors(t *testing.T) {
	_, _, err := run(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "dump")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = run(t, "--index", "x.db", "--backend", "sqlite", "dump")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestShellExec(t *testing.T) {
	f := newFixture(t)
	f.update(t)

	idx, err := index.Open(f.db, index.ModeRead, index.DefaultOptions())
	require.NoError(t, err)
	defer idx.Close()

	var out bytes.Buffer
	sh := &shell{idx: idx, out: &out}

	assert.False(t, sh.exec("get "+f.labels[1]))
	assert.False(t, sh.exec("has "+f.labels[0]+" "+f.labels[2]))
	assert.False(t, sh.exec("count"))
	assert.False(t, sh.exec("   "))
	assert.False(t, sh.exec("frobnicate"))
	assert.False(t, sh.exec("get "+f.labels[0]))
	assert.True(t, sh.exec("exit"))
	assert.True(t, sh.exec("quit"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, f.labels[1]+"\t13", lines[0])
	assert.Equal(t, f.labels[0]+"\tfalse", lines[1])
	assert.Equal(t, f.labels[2]+"\ttrue", lines[2])
	assert.Equal(t, "2", lines[3])
	assert.Equal(t, `unknown command "frobnicate"`, lines[4])
	assert.True(t, strings.HasPrefix(lines[5], "error: "))

	out.Reset()
	sh.exec("dump")
	assert.Equal(t, f.labels[1]+"\t13\n"+f.labels[2]+"\t6\n", out.String())
}

func TestIsExit(t *testing.T) {
	assert.True(t, isExit(" exit "))
	assert.True(t, isExit("quit"))
	assert.False(t, isExit("exit now"))
	assert.False(t, isExit(""))
}

func TestParseTime(t *testing.T) {
	want := time.Date(2010, time.March, 14, 6, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"2010-03-14T06:30:00Z",
		"2010-03-14T08:30:00+02:00",
		"2010-03-14T06:30:00",
		"20100314T063000",
	} {
		got, err := parseTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	got, err := parseTime("2010-03-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2010, time.March, 14, 0, 0, 0, 0, time.UTC), got)

	_, err = parseTime("14.03.2010")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestChannelArray(t *testing.T) {
	recs := testutil.Scanlines(1, testutil.Epoch, 4)
	arr, err := channelArray(recs)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 1, 2}, arr.Shape)
	assert.Equal(t, []float64{0, 0, 1, 2, 2, 4, 3, 6}, arr.Data)

	_, err = channelArray(nil)
	assert.ErrorIs(t, err, errors.ErrInvalidShape)

	recs[2].Values = []float64{1}
	_, err = channelArray(recs)
	assert.ErrorIs(t, err, errors.ErrInvalidShape)
}

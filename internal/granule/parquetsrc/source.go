package parquetsrc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/firstline/config"
	"github.com/xtxerr/firstline/internal/errors"
	"github.com/xtxerr/firstline/internal/granule"
	"github.com/xtxerr/firstline/internal/logging"
	"github.com/xtxerr/firstline/internal/validation"
)

// Resolver is the overlap filter applied by Read unless
// ReadOptions.SkipOverlapFilter is set. overlap.Resolver satisfies it.
type Resolver interface {
	ResolveOverlap(ctx context.Context, ref granule.Ref, h granule.Header, recs granule.Records) (granule.Records, error)
}

// Options configures a Source.
type Options struct {
	// Dir is the root directory holding granule files.
	Dir string

	// Labeler defaults to granule.DefaultLabel.
	Labeler granule.Labeler

	// Resolver is optional. Without one, Read never filters overlap.
	Resolver Resolver

	Logger *slog.Logger
}

// Source reads granules from Parquet files.
type Source struct {
	dir      string
	labeler  granule.Labeler
	resolver Resolver
	log      *slog.Logger
}

// New creates a Source.
func New(opts Options) (*Source, error) {
	if opts.Dir == "" {
		opts.Dir = config.DefaultGranuleDir
	}
	if opts.Labeler == nil {
		opts.Labeler = granule.DefaultLabel
	}
	if opts.Logger == nil {
		opts.Logger = logging.Component("parquetsrc")
	}
	return &Source{
		dir:      opts.Dir,
		labeler:  opts.Labeler,
		resolver: opts.Resolver,
		log:      opts.Logger,
	}, nil
}

// SetResolver sets the overlap filter used by Read.
func (s *Source) SetResolver(r Resolver) {
	s.resolver = r
}

// Dir returns the root directory.
func (s *Source) Dir() string {
	return s.dir
}

// FindSorted implements granule.Source. It looks at the root directory and
// the satellite's subdirectory. Files whose names do not parse are ignored.
func (s *Source) FindSorted(ctx context.Context, satellite string, start, end time.Time) ([]granule.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validation.ValidateSatellite(satellite); err != nil {
		return nil, err
	}

	var out []granule.Entry
	for _, dir := range []string{s.dir, filepath.Join(s.dir, satellite)} {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		for _, de := range entries {
			if de.IsDir() {
				continue
			}
			t, ok := parseFileName(de.Name(), satellite)
			if !ok || t.Before(start) || !t.Before(end) {
				continue
			}
			out = append(out, granule.Entry{
				StartTime: t,
				Ref:       granule.Ref(filepath.Join(dir, de.Name())),
			})
		}
	}

	slices.SortFunc(out, func(a, b granule.Entry) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return strings.Compare(string(a.Ref), string(b.Ref))
	})
	s.log.Debug("found granules", "satellite", satellite, "count", len(out))
	return out, nil
}

func parseFileName(name, satellite string) (time.Time, bool) {
	rest, ok := strings.CutPrefix(name, satellite+"_")
	if !ok {
		return time.Time{}, false
	}
	stamp, ok := strings.CutSuffix(rest, config.DefaultGranuleExt)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(config.DefaultLabelTimeLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Read implements granule.Source.
//
// Files that are not Parquet or lack header metadata fail with
// ErrInvalidFile, files without scanlines with ErrInvalidData. Unless
// skipped by opts, values are multiplied by the scale factor, shifted by
// the calibration offset and overlap is resolved.
func (s *Source) Read(ctx context.Context, ref granule.Ref, opts granule.ReadOptions) (granule.Header, granule.Records, error) {
	if err := ctx.Err(); err != nil {
		return granule.Header{}, nil, err
	}
	path := string(ref)

	f, err := os.Open(path)
	if err != nil {
		return granule.Header{}, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return granule.Header{}, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return granule.Header{}, nil, fmt.Errorf("%s: %v: %w", path, err, errors.ErrInvalidFile)
	}

	h, err := readHeader(pf, path)
	if err != nil {
		return granule.Header{}, nil, err
	}
	if pf.NumRows() == 0 {
		return h, nil, fmt.Errorf("%s has no scanlines: %w", path, errors.ErrInvalidData)
	}

	recs, err := readRecords(f, pf.NumRows())
	if err != nil {
		return h, nil, fmt.Errorf("%s: %v: %w", path, err, errors.ErrInvalidData)
	}

	if err := applyCorrections(h, recs, opts); err != nil {
		return h, nil, fmt.Errorf("%s: %w", path, err)
	}
	if !opts.SkipFlags {
		maskFlagged(recs)
	}
	if !opts.SkipOverlapFilter && s.resolver != nil {
		recs, err = s.resolver.ResolveOverlap(ctx, ref, h, recs)
		if err != nil {
			return h, nil, err
		}
	}
	return h, recs, nil
}

// Label implements granule.Source.
func (s *Source) Label(h granule.Header) string {
	return s.labeler(h)
}

func readHeader(pf *parquet.File, path string) (granule.Header, error) {
	h := granule.Header{Path: path}

	sat, ok := pf.Lookup(MetaSatellite)
	if !ok || sat == "" {
		return h, fmt.Errorf("%s: no %s in metadata: %w", path, MetaSatellite, errors.ErrInvalidFile)
	}
	h.Satellite = sat

	for key, dst := range map[string]*time.Time{MetaStartTime: &h.StartTime, MetaEndTime: &h.EndTime} {
		v, ok := pf.Lookup(key)
		if !ok {
			return h, fmt.Errorf("%s: no %s in metadata: %w", path, key, errors.ErrInvalidFile)
		}
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return h, fmt.Errorf("%s: bad %s %q: %w", path, key, v, errors.ErrInvalidFile)
		}
		*dst = t
	}

	for _, k := range attrKeys {
		if v, ok := pf.Lookup(k); ok {
			if h.Attrs == nil {
				h.Attrs = make(map[string]string)
			}
			h.Attrs[k] = v
		}
	}
	return h, nil
}

func readRecords(f *os.File, numRows int64) (granule.Records, error) {
	reader := parquet.NewGenericReader[scanRow](f)
	defer reader.Close()

	rows := make([]scanRow, numRows)
	total := 0
	for total < len(rows) {
		n, err := reader.Read(rows[total:])
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
	}

	recs := make(granule.Records, total)
	for i := range recs {
		recs[i] = rowToRecord(&rows[i])
	}
	return recs, nil
}

// applyCorrections scales and calibrates values in place.
func applyCorrections(h granule.Header, recs granule.Records, opts granule.ReadOptions) error {
	scale, err := attrFloat(h, MetaScaleFactor, 1)
	if err != nil {
		return err
	}
	offset, err := attrFloat(h, MetaCalibrationOffset, 0)
	if err != nil {
		return err
	}
	if opts.SkipScaleFactors {
		scale = 1
	}
	if opts.SkipCalibration {
		offset = 0
	}
	if scale == 1 && offset == 0 {
		return nil
	}
	for i := range recs {
		for j, v := range recs[i].Values {
			recs[i].Values[j] = v*scale + offset
		}
	}
	return nil
}

// maskFlagged replaces the values of scanlines carrying any quality flag
// with NaN. Flags themselves are kept.
func maskFlagged(recs granule.Records) {
	for i := range recs {
		if recs[i].Flags == 0 {
			continue
		}
		for j := range recs[i].Values {
			recs[i].Values[j] = math.NaN()
		}
	}
}

func attrFloat(h granule.Header, key string, def float64) (float64, error) {
	v, ok := h.Attrs[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", key, v, errors.ErrInvalidFile)
	}
	return f, nil
}

var _ granule.Source = (*Source)(nil)

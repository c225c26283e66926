package parquetsrc

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/firstline/config"
	"github.com/xtxerr/firstline/internal/errors"
	"github.com/xtxerr/firstline/internal/granule"
	"github.com/xtxerr/firstline/internal/validation"
)

// WriterOptions configures WriteGranule.
type WriterOptions struct {
	Compression CompressionType

	// PerSatellite places the file in a subdirectory named after the
	// satellite.
	PerSatellite bool
}

// DefaultWriterOptions returns default writer options.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{Compression: CompressionZstd}
}

// FileName returns the file name of the granule starting at start.
func FileName(satellite string, start time.Time) string {
	return satellite + "_" + start.UTC().Format(config.DefaultLabelTimeLayout) + config.DefaultGranuleExt
}

// WriteGranule writes h and recs to a new granule file below dir and
// returns its path. An existing file is replaced.
func WriteGranule(dir string, h granule.Header, recs granule.Records, opts WriterOptions) (path string, err error) {
	if err := validation.ValidateSatellite(h.Satellite); err != nil {
		return "", err
	}
	if h.StartTime.IsZero() {
		return "", errors.NewMissingField("start_time")
	}

	if opts.PerSatellite {
		dir = filepath.Join(dir, h.Satellite)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	path = filepath.Join(dir, FileName(h.Satellite, h.StartTime))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(path)
		}
	}()

	writerOpts := []parquet.WriterOption{
		parquet.Compression(opts.Compression.codec()),
		parquet.KeyValueMetadata(MetaSatellite, h.Satellite),
		parquet.KeyValueMetadata(MetaStartTime, h.StartTime.UTC().Format(time.RFC3339Nano)),
		parquet.KeyValueMetadata(MetaEndTime, h.EndTime.UTC().Format(time.RFC3339Nano)),
	}
	for _, k := range attrKeys {
		if v, ok := h.Attrs[k]; ok {
			writerOpts = append(writerOpts, parquet.KeyValueMetadata(k, v))
		}
	}
	writer := parquet.NewGenericWriter[scanRow](f, writerOpts...)

	rows := make([]scanRow, len(recs))
	for i := range recs {
		rows[i] = recordToRow(&recs[i])
	}
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			writer.Close()
			return "", fmt.Errorf("write rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return path, nil
}

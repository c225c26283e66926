// Package parquetsrc stores granules as Parquet files and implements
// granule.Source over a directory of them.
//
// A granule file is named <satellite>_<start>.parquet, start formatted as
// 20060102T150405 in UTC, and lives either directly in the source
// directory or in a subdirectory named after the satellite. The header is
// kept in the file's key/value metadata; every row is one scanline.
package parquetsrc

import (
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/firstline/internal/granule"
)

// Key/value metadata keys.
const (
	MetaSatellite         = "satellite"
	MetaStartTime         = "start_time"
	MetaEndTime           = "end_time"
	MetaScaleFactor       = "scale_factor"
	MetaCalibrationOffset = "calibration_offset"
	MetaInstrument        = "instrument"
)

// attrKeys are the optional header fields carried in Header.Attrs.
var attrKeys = []string{MetaScaleFactor, MetaCalibrationOffset, MetaInstrument}

// scanRow is one scanline in Parquet format.
type scanRow struct {
	RecordNumber int64     `parquet:"record_number"`
	TimestampMs  int64     `parquet:"timestamp_ms"`
	Values       []float64 `parquet:"values,list"`
	Flags        uint32    `parquet:"flags"`
}

func recordToRow(r *granule.Record) scanRow {
	return scanRow{
		RecordNumber: r.Number,
		TimestampMs:  r.TimestampMs,
		Values:       r.Values,
		Flags:        r.Flags,
	}
}

func rowToRecord(r *scanRow) granule.Record {
	return granule.Record{
		Number:      r.RecordNumber,
		TimestampMs: r.TimestampMs,
		Values:      r.Values,
		Flags:       r.Flags,
	}
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// ParseCompressionType parses a compression type string. Unknown names
// select zstd.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

func (ct CompressionType) codec() compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

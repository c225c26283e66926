package testutil

import (
	"time"

	"github.com/xtxerr/firstline/internal/granule"
)

// Epoch is the start time used by the fixtures.
var Epoch = time.Date(2010, time.March, 14, 6, 0, 0, 0, time.UTC)

// ScanInterval is the time between two synthetic scanlines.
const ScanInterval = 500 * time.Millisecond

// Scanlines returns count records numbered from firstNumber, the first one
// scanned at start and each following one ScanInterval later.
func Scanlines(firstNumber int64, start time.Time, count int) granule.Records {
	rs := make(granule.Records, count)
	for i := range rs {
		rs[i] = granule.Record{
			Number:      firstNumber + int64(i),
			TimestampMs: start.Add(time.Duration(i) * ScanInterval).UnixMilli(),
			Values:      []float64{float64(i), float64(2 * i)},
		}
	}
	return rs
}

// Header returns a header for satellite covering the records.
func Header(satellite string, recs granule.Records) granule.Header {
	h := granule.Header{Satellite: satellite}
	if len(recs) == 0 {
		return h
	}
	h.StartTime = recs[0].Time()
	last, _ := recs.MaxTimestamp()
	h.EndTime = time.UnixMilli(last).UTC()
	return h
}

// Overlapping returns a record table that starts with the last overlap
// scanlines of prev and continues with count-overlap new ones. Record-numbers
// restart at firstNumber, as they do in a new file.
func Overlapping(prev granule.Records, overlap, count int, firstNumber int64) granule.Records {
	tail := prev[len(prev)-overlap:]
	start := tail[0].Time()
	return Scanlines(firstNumber, start, count)
}

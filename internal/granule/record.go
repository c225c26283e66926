package granule

import (
	"slices"
	"time"
)

// Record is one scanline of a granule.
type Record struct {
	// Number is the record-number as written by the instrument. It is not
	// necessarily 0-based and not contiguous across files.
	Number int64

	// TimestampMs is the scan time as Unix milliseconds.
	TimestampMs int64

	// Values holds the per-channel measurements of this scanline.
	Values []float64

	// Flags carries instrument quality bits.
	Flags uint32
}

// Time returns the timestamp as a time.Time.
func (r *Record) Time() time.Time {
	return time.UnixMilli(r.TimestampMs).UTC()
}

// Records is the ordered record table of a granule. Record-numbers are
// non-decreasing; timestamps are expected to be monotonic but may contain
// local inversions.
type Records []Record

// Len returns the number of records.
func (rs Records) Len() int {
	return len(rs)
}

// Numbers returns the record-number column.
func (rs Records) Numbers() []int64 {
	out := make([]int64, len(rs))
	for i := range rs {
		out[i] = rs[i].Number
	}
	return out
}

// Timestamps returns the timestamp column.
func (rs Records) Timestamps() []int64 {
	out := make([]int64, len(rs))
	for i := range rs {
		out[i] = rs[i].TimestampMs
	}
	return out
}

// MaxNumber returns the largest record-number. ok is false for an empty table.
func (rs Records) MaxNumber() (max int64, ok bool) {
	if len(rs) == 0 {
		return 0, false
	}
	max = rs[0].Number
	for _, r := range rs[1:] {
		if r.Number > max {
			max = r.Number
		}
	}
	return max, true
}

// MaxTimestamp returns the latest timestamp. ok is false for an empty table.
func (rs Records) MaxTimestamp() (max int64, ok bool) {
	if len(rs) == 0 {
		return 0, false
	}
	return slices.Max(rs.Timestamps()), true
}

// Select returns the records for which keep returns true, preserving order.
// The result never aliases the receiver's backing array.
func (rs Records) Select(keep func(*Record) bool) Records {
	out := make(Records, 0, len(rs))
	for i := range rs {
		if keep(&rs[i]) {
			out = append(out, rs[i])
		}
	}
	return out
}

// After returns the records whose record-number is strictly greater than
// firstline.
func (rs Records) After(firstline int64) Records {
	return rs.Select(func(r *Record) bool {
		return r.Number > firstline
	})
}

// Clone returns a deep copy, including each record's Values.
func (rs Records) Clone() Records {
	if rs == nil {
		return nil
	}
	out := make(Records, len(rs))
	for i, r := range rs {
		out[i] = r
		out[i].Values = slices.Clone(r.Values)
	}
	return out
}

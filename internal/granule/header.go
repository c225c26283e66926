package granule

import (
	"fmt"
	"maps"
	"time"

	"github.com/xtxerr/firstline/config"
)

// Header describes one granule: which satellite produced it and the time
// interval it covers.
type Header struct {
	Satellite string
	StartTime time.Time
	EndTime   time.Time

	// Path is where the granule was read from, if it came from a file.
	Path string

	// Attrs holds format specific header fields.
	Attrs map[string]string
}

// Clone returns a deep copy of the header.
func (h Header) Clone() Header {
	h.Attrs = maps.Clone(h.Attrs)
	return h
}

// Duration returns the time span covered by the granule.
func (h Header) Duration() time.Duration {
	return h.EndTime.Sub(h.StartTime)
}

// DefaultLabel derives a label from satellite and acquisition interval,
// e.g. "noaa18_20060102T150405_1542".
func DefaultLabel(h Header) string {
	return fmt.Sprintf("%s_%s_%s",
		h.Satellite,
		h.StartTime.UTC().Format(config.DefaultLabelTimeLayout),
		h.EndTime.UTC().Format("1504"),
	)
}

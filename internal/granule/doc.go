// Package granule defines the data types shared by the overlap resolution
// subsystem.
//
// Key types:
//   - Header: identity and time coverage of one granule
//   - Record: a single scanline with its record-number and timestamp
//   - Records: the ordered record table of a granule
//   - Source: the collaborator that finds, reads and labels granules
package granule

// Package config provides configuration defaults and utilities
// for the firstline tools.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or command line flags.
package config

import "time"

// =============================================================================
// Index Defaults
// =============================================================================

const (
	// DefaultIndexPath is the firstline index file.
	// Override via config: index.path
	DefaultIndexPath = "granules_firstline.db"

	// DefaultBackend is the key-value store backing the index.
	// One of: bolt, duckdb
	// Override via config: index.backend
	DefaultBackend = "bolt"

	// DefaultReadLockTimeout is how long a reader waits for the store lock
	// before falling back to a private copy of the index file.
	// Override via config: index.read_lock_timeout
	DefaultReadLockTimeout = time.Second

	// DefaultWriteLockTimeout is how long a writer waits for exclusive access.
	// Zero waits indefinitely; writers never fall back to a copy.
	// Override via config: index.write_lock_timeout
	DefaultWriteLockTimeout = 0 * time.Second

	// DefaultFileMode is the permission of a newly created index file.
	DefaultFileMode = 0o644
)

// =============================================================================
// Granule Source Defaults
// =============================================================================

const (
	// DefaultGranuleDir is the root directory holding granule files.
	// Override via config: granules.dir
	DefaultGranuleDir = "granules"

	// DefaultGranuleExt is the extension of granule files.
	DefaultGranuleExt = ".parquet"

	// DefaultLabelTimeLayout is the time layout used in default granule labels.
	DefaultLabelTimeLayout = "20060102T150405"
)

// =============================================================================
// Overlap Defaults
// =============================================================================

const (
	// DefaultResolver selects the overlap resolver variant.
	// One of: null, firstline, bestline
	// Override via config: overlap.resolver
	DefaultResolver = "firstline"

	// DefaultMissingPolicy decides what happens to granules without an
	// index entry. One of: fail, pass
	// Override via config: overlap.missing
	DefaultMissingPolicy = "fail"
)

// =============================================================================
// Outlier Defaults
// =============================================================================

const (
	// DefaultOutlierCutoff is the MEDMAD cutoff in units of MAD.
	// Override via config: outlier.cutoff
	DefaultOutlierCutoff = 10.0

	// DefaultEstimator computes median and MAD. One of: exact, sketch
	// Override via config: outlier.estimator
	DefaultEstimator = "exact"

	// DefaultSketchAccuracy is the DDSketch relative accuracy (0.01 = 1%).
	// Override via config: outlier.sketch_accuracy
	DefaultSketchAccuracy = 0.01

	// DefaultOutlierWorkers bounds concurrent per-series computations.
	// Override via config: outlier.workers
	DefaultOutlierWorkers = 4
)

// =============================================================================
// Logging Defaults
// =============================================================================

const (
	// DefaultLogLevel is one of: debug, info, warn, error
	// Override via config: logging.level
	DefaultLogLevel = "info"

	// DefaultLogJSON switches the log output to JSON.
	// Override via config: logging.json
	DefaultLogJSON = false
)

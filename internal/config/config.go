// Package config loads the YAML configuration of the firstline tools.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	defaults "github.com/xtxerr/firstline/config"
)

// Config represents the complete configuration.
type Config struct {
	// Index configures the firstline index file.
	Index IndexConfig `yaml:"index"`

	// Granules configures where granule files live.
	Granules GranulesConfig `yaml:"granules"`

	// Outlier configures the MEDMAD outlier detector.
	Outlier OutlierConfig `yaml:"outlier"`

	// Overlap configures overlap resolution on read.
	Overlap OverlapConfig `yaml:"overlap"`

	// Logging configures the process logger.
	Logging LoggingConfig `yaml:"logging"`
}

// IndexConfig configures the firstline index.
type IndexConfig struct {
	// Path is the index file.
	Path string `yaml:"path"`

	// Backend is the key-value store: bolt, duckdb.
	Backend string `yaml:"backend"`

	// ReadLockTimeout is how long a reader waits before copying a locked
	// index. Format: "500ms", "2s"
	ReadLockTimeout time.Duration `yaml:"read_lock_timeout"`

	// WriteLockTimeout is how long a writer waits for exclusive access.
	// Zero waits indefinitely.
	WriteLockTimeout time.Duration `yaml:"write_lock_timeout"`

	// TempDir holds fallback copies. Empty uses the system default.
	TempDir string `yaml:"temp_dir"`
}

// GranulesConfig configures the granule source.
type GranulesConfig struct {
	// Dir is the root directory of the granule files.
	Dir string `yaml:"dir"`

	// PerSatellite writes new files into one subdirectory per satellite.
	PerSatellite bool `yaml:"per_satellite"`

	// Compression is the Parquet codec for new files: snappy, zstd, lz4,
	// gzip, none.
	Compression string `yaml:"compression"`
}

// OutlierConfig configures the outlier detector.
type OutlierConfig struct {
	// Cutoff is the threshold in units of MAD.
	Cutoff float64 `yaml:"cutoff"`

	// Estimator is exact or sketch.
	Estimator string `yaml:"estimator"`

	// SketchAccuracy is the DDSketch relative accuracy (0.01 = 1% error).
	SketchAccuracy float64 `yaml:"sketch_accuracy"`

	// Workers bounds concurrently processed series.
	Workers int `yaml:"workers"`
}

// OverlapConfig configures overlap resolution.
type OverlapConfig struct {
	// Resolver is null, firstline or bestline.
	Resolver string `yaml:"resolver"`

	// Missing decides what happens to unindexed granules: fail, pass.
	Missing string `yaml:"missing"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// JSON switches to JSON output.
	JSON bool `yaml:"json"`
}

// Load loads configuration from a YAML file. Environment variables in the
// file are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a configuration with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Path:             defaults.DefaultIndexPath,
			Backend:          defaults.DefaultBackend,
			ReadLockTimeout:  defaults.DefaultReadLockTimeout,
			WriteLockTimeout: defaults.DefaultWriteLockTimeout,
		},
		Granules: GranulesConfig{
			Dir:         defaults.DefaultGranuleDir,
			Compression: "zstd",
		},
		Outlier: OutlierConfig{
			Cutoff:         defaults.DefaultOutlierCutoff,
			Estimator:      defaults.DefaultEstimator,
			SketchAccuracy: defaults.DefaultSketchAccuracy,
			Workers:        defaults.DefaultOutlierWorkers,
		},
		Overlap: OverlapConfig{
			Resolver: defaults.DefaultResolver,
			Missing:  defaults.DefaultMissingPolicy,
		},
		Logging: LoggingConfig{
			Level: defaults.DefaultLogLevel,
			JSON:  defaults.DefaultLogJSON,
		},
	}
}

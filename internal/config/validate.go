package config

import (
	"errors"
	"fmt"

	"github.com/xtxerr/firstline/internal/granule/parquetsrc"
	"github.com/xtxerr/firstline/internal/index"
	"github.com/xtxerr/firstline/internal/outlier"
	"github.com/xtxerr/firstline/internal/overlap"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Index.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("index: %w", err))
	}
	if c.Granules.Dir == "" {
		errs = append(errs, errors.New("granules: dir is required"))
	}
	if err := c.Outlier.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("outlier: %w", err))
	}
	if err := c.Overlap.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("overlap: %w", err))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Validate checks the index configuration.
func (c *IndexConfig) Validate() error {
	var errs []error

	if c.Path == "" {
		errs = append(errs, errors.New("path is required"))
	}
	if _, err := index.ParseBackend(c.Backend); err != nil {
		errs = append(errs, err)
	}
	if c.ReadLockTimeout < 0 {
		errs = append(errs, errors.New("read_lock_timeout must not be negative"))
	}
	if c.WriteLockTimeout < 0 {
		errs = append(errs, errors.New("write_lock_timeout must not be negative"))
	}

	return errors.Join(errs...)
}

// Validate checks the outlier configuration.
func (c *OutlierConfig) Validate() error {
	opts, err := c.DetectorOptions()
	if err != nil {
		return err
	}
	return opts.Validate()
}

// Validate checks the overlap configuration.
func (c *OverlapConfig) Validate() error {
	var errs []error
	if _, err := overlap.ParseKind(c.Resolver); err != nil {
		errs = append(errs, err)
	}
	if _, err := overlap.ParseMissingPolicy(c.Missing); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// IndexOptions converts the index section to index.Options.
func (c *Config) IndexOptions() (index.Options, error) {
	backend, err := index.ParseBackend(c.Index.Backend)
	if err != nil {
		return index.Options{}, err
	}
	opts := index.DefaultOptions()
	opts.Backend = backend
	opts.ReadLockTimeout = c.Index.ReadLockTimeout
	opts.WriteLockTimeout = c.Index.WriteLockTimeout
	opts.TempDir = c.Index.TempDir
	return opts, nil
}

// DetectorOptions converts the outlier section to outlier.Options.
func (c *OutlierConfig) DetectorOptions() (outlier.Options, error) {
	estimator, err := outlier.ParseEstimator(c.Estimator)
	if err != nil {
		return outlier.Options{}, err
	}
	return outlier.Options{
		Cutoff:         c.Cutoff,
		Estimator:      estimator,
		SketchAccuracy: c.SketchAccuracy,
		Workers:        c.Workers,
	}, nil
}

// DetectorOptions converts the outlier section to outlier.Options.
func (c *Config) DetectorOptions() (outlier.Options, error) {
	return c.Outlier.DetectorOptions()
}

// ResolverKind returns the configured overlap resolver.
func (c *Config) ResolverKind() (overlap.Kind, error) {
	return overlap.ParseKind(c.Overlap.Resolver)
}

// MissingPolicy returns the configured missing-label policy.
func (c *Config) MissingPolicy() (overlap.MissingPolicy, error) {
	return overlap.ParseMissingPolicy(c.Overlap.Missing)
}

// WriterOptions returns the options for new granule files.
func (c *Config) WriterOptions() parquetsrc.WriterOptions {
	return parquetsrc.WriterOptions{
		Compression:  parquetsrc.ParseCompressionType(c.Granules.Compression),
		PerSatellite: c.Granules.PerSatellite,
	}
}

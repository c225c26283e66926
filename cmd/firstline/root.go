package main

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/xtxerr/firstline/internal/config"
	"github.com/xtxerr/firstline/internal/errors"
	"github.com/xtxerr/firstline/internal/granule/parquetsrc"
	"github.com/xtxerr/firstline/internal/index"
	"github.com/xtxerr/firstline/internal/logging"
)

const defaultConfigPath = "firstline.yaml"

// app carries what every command needs once the configuration is loaded.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfgPath  string
	indexArg string
	backend  string
	dirArg   string
	logLevel string

	cfg *config.Config
	log *slog.Logger
}

// NewRootCommand builds the firstline command tree.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	rc := &cobra.Command{
		Use:   "firstline",
		Short: "Resolve overlap between successive satellite granules.",
		Long: `firstline maintains an index of where each granule stops repeating its
predecessor, trims granules with it and flags outliers in granule values.

Version: ` + Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup(cmd) },
	}

	flags := rc.PersistentFlags()
	flags.StringVarP(&a.cfgPath, "config", "c", "", "Configuration file (default "+defaultConfigPath+" if present).")
	flags.StringVar(&a.indexArg, "index", "", "Firstline index file (overrides config).")
	flags.StringVar(&a.backend, "backend", "", "Index backend: bolt or duckdb (overrides config).")
	flags.StringVar(&a.dirArg, "granules", "", "Granule directory (overrides config).")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config).")

	rc.AddCommand(newUpdateCommand(a))
	rc.AddCommand(newLookupCommand(a))
	rc.AddCommand(newDumpCommand(a))
	rc.AddCommand(newFilterCommand(a))
	rc.AddCommand(newOutliersCommand(a))
	rc.AddCommand(newShellCommand(a))

	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setup loads the configuration, applies flag overrides and initializes
// logging.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.cfgPath
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	switch {
	case err == nil:
	case a.cfgPath == "" && errors.Is(err, fs.ErrNotExist):
		cfg = config.DefaultConfig()
	default:
		return fmt.Errorf("%s: %w", path, err)
	}

	if a.indexArg != "" {
		cfg.Index.Path = a.indexArg
	}
	if a.backend != "" {
		cfg.Index.Backend = a.backend
	}
	if a.dirArg != "" {
		cfg.Granules.Dir = a.dirArg
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}

	logging.InitWithHandler(logging.NewHandler(a.stderr, logging.ParseLevel(cfg.Logging.Level), cfg.Logging.JSON))
	a.cfg = cfg
	a.log = logging.Component("cli").With("command", cmd.Name())
	return nil
}

// openIndex opens the configured index.
func (a *app) openIndex(mode index.Mode) (*index.Index, error) {
	opts, err := a.cfg.IndexOptions()
	if err != nil {
		return nil, err
	}
	idx, err := index.Open(a.cfg.Index.Path, mode, opts)
	if err != nil {
		return nil, err
	}
	if idx.Degraded() {
		a.log.Warn("reading a copy of a locked index, results may be stale", "index", idx.Path())
	}
	return idx, nil
}

func (a *app) source() (*parquetsrc.Source, error) {
	return parquetsrc.New(parquetsrc.Options{Dir: a.cfg.Granules.Dir})
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"20060102T150405",
	"2006-01-02",
}

// parseTime parses s in UTC using the first matching layout.
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.NewInvalidValue("time", s, "expected RFC 3339 or YYYY-MM-DD")
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xtxerr/firstline/internal/builder"
	"github.com/xtxerr/firstline/internal/errors"
	"github.com/xtxerr/firstline/internal/index"
	"github.com/xtxerr/firstline/internal/progress"
	"github.com/xtxerr/firstline/internal/validation"
)

func newUpdateCommand(a *app) *cobra.Command {
	var (
		satellite string
		startArg  string
		endArg    string
		overwrite bool
		showBar   bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Compute firstline boundaries for a range of granules.",
		Long: `
Visits the granules of one satellite in chronological order and stores, for
every granule, the record-number of its first scanline that is newer than
anything in the preceding granule. Existing entries are kept unless
--overwrite is given.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateSatellite(satellite); err != nil {
				return err
			}
			start, err := parseTime(startArg)
			if err != nil {
				return err
			}
			end := time.Now().UTC()
			if endArg != "" {
				if end, err = parseTime(endArg); err != nil {
					return err
				}
			}
			if !end.After(start) {
				return errors.NewInvalidValue("end", endArg, "must be after start")
			}

			src, err := a.source()
			if err != nil {
				return err
			}
			idx, err := a.openIndex(index.ModeCreate)
			if err != nil {
				return err
			}
			defer idx.Close()

			opts := builder.Options{Source: src, Index: idx}
			if showBar {
				opts.Progress = progress.New(a.stderr, satellite)
			}
			b, err := builder.New(opts)
			if err != nil {
				return err
			}

			res, err := b.Update(cmd.Context(), satellite, start, end, overwrite)
			fmt.Fprintf(a.stdout, "updated %d/%d granules (%d unreadable, %d skipped)\n",
				res.Updated, res.Total, res.Failed, res.Skipped)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&satellite, "satellite", "s", "", "Satellite name, e.g. noaa18.")
	flags.StringVar(&startArg, "start", "1970-01-01", "First granule start time to consider.")
	flags.StringVar(&endArg, "end", "", "End of the range, exclusive (default now).")
	flags.BoolVar(&overwrite, "overwrite", false, "Recompute entries that already exist.")
	flags.BoolVar(&showBar, "progress", progress.IsTerminal(os.Stderr), "Show a progress bar on stderr.")
	return cmd
}

var _ builder.Observer = (*progress.Bar)(nil)

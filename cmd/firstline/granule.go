package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xtxerr/firstline/internal/errors"
	"github.com/xtxerr/firstline/internal/granule"
	"github.com/xtxerr/firstline/internal/index"
	"github.com/xtxerr/firstline/internal/outlier"
	"github.com/xtxerr/firstline/internal/overlap"
)

func newFilterCommand(a *app) *cobra.Command {
	var (
		resolverArg string
		missingArg  string
	)

	cmd := &cobra.Command{
		Use:   "filter FILE",
		Short: "Read a granule and report how many scanlines survive overlap resolution.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if resolverArg != "" {
				a.cfg.Overlap.Resolver = resolverArg
			}
			if missingArg != "" {
				a.cfg.Overlap.Missing = missingArg
			}
			kind, err := a.cfg.ResolverKind()
			if err != nil {
				return err
			}
			missing, err := a.cfg.MissingPolicy()
			if err != nil {
				return err
			}

			src, err := a.source()
			if err != nil {
				return err
			}
			deps := overlap.Deps{Labeler: src.Label, Missing: missing}
			if kind == overlap.KindFirstline {
				idx, err := a.openIndex(index.ModeRead)
				if err != nil {
					return err
				}
				defer idx.Close()
				deps.Index = idx
			}
			resolver, err := overlap.New(kind, deps)
			if err != nil {
				return err
			}
			src.SetResolver(resolver)

			ref := granule.Ref(args[0])
			_, all, err := src.Read(cmd.Context(), ref, granule.ReadOptions{SkipOverlapFilter: true})
			if err != nil {
				return err
			}
			h, kept, err := src.Read(cmd.Context(), ref, granule.ReadOptions{})
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "%s\t%s\t%d/%d\n", src.Label(h), kind, kept.Len(), all.Len())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&resolverArg, "resolver", "", "Overlap resolver: null, firstline, bestline (overrides config).")
	flags.StringVar(&missingArg, "missing", "", "Unindexed granules: fail or pass (overrides config).")
	return cmd
}

func newOutliersCommand(a *app) *cobra.Command {
	var cutoff float64

	cmd := &cobra.Command{
		Use:   "outliers FILE",
		Short: "Flag outlying values per channel with the MEDMAD filter.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cfg.DetectorOptions()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("cutoff") {
				opts.Cutoff = cutoff
			}
			det, err := outlier.New(opts)
			if err != nil {
				return err
			}

			src, err := a.source()
			if err != nil {
				return err
			}
			_, recs, err := src.Read(cmd.Context(), granule.Ref(args[0]), granule.ReadOptions{SkipOverlapFilter: true})
			if err != nil {
				return err
			}

			samples, err := channelArray(recs)
			if err != nil {
				return err
			}
			mask, err := det.Detect(cmd.Context(), samples)
			if err != nil {
				return err
			}

			channels := samples.Shape[2]
			for _, i := range mask.Indices() {
				rec := recs[i/channels]
				fmt.Fprintf(a.stdout, "%d\t%d\t%g\n", rec.Number, i%channels, samples.Data[i])
			}
			fmt.Fprintf(a.stdout, "%d outliers in %d values\n", mask.Count(), len(samples.Data))
			return nil
		},
	}

	cmd.Flags().Float64Var(&cutoff, "cutoff", 0, "Cutoff in units of MAD (overrides config).")
	return cmd
}

// channelArray arranges the values of recs as a records x 1 x channels
// array, so every channel is one series.
func channelArray(recs granule.Records) (outlier.Array, error) {
	if recs.Len() == 0 {
		return outlier.Array{}, fmt.Errorf("no scanlines: %w", errors.ErrInvalidShape)
	}
	channels := len(recs[0].Values)
	data := make([]float64, 0, recs.Len()*channels)
	for i := range recs {
		if len(recs[i].Values) != channels {
			return outlier.Array{}, fmt.Errorf("scanline %d has %d channels, want %d: %w",
				recs[i].Number, len(recs[i].Values), channels, errors.ErrInvalidShape)
		}
		data = append(data, recs[i].Values...)
	}
	return outlier.NewArray([]int{recs.Len(), 1, channels}, data)
}

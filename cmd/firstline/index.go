package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/xtxerr/firstline/internal/errors"
	"github.com/xtxerr/firstline/internal/index"
)

func newLookupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup LABEL...",
		Short: "Print the firstline of granules.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := a.openIndex(index.ModeRead)
			if err != nil {
				return err
			}
			defer idx.Close()

			var errs []error
			for _, label := range args {
				n, err := idx.Lookup(label)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(a.stdout, "%s\t%d\n", label, n)
			}
			return errors.Join(errs...)
		},
	}
}

func newDumpCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every index entry, sorted by label.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := a.openIndex(index.ModeRead)
			if err != nil {
				return err
			}
			defer idx.Close()
			return dump(idx, a.stdout)
		},
	}
}

type entry struct {
	label     string
	firstline int64
}

func dump(idx *index.Index, w io.Writer) error {
	var entries []entry
	err := idx.ForEach(func(label string, n int64) error {
		entries = append(entries, entry{label, n})
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].label < entries[j].label })
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\n", e.label, e.firstline)
	}
	return nil
}

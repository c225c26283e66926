package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"

	"github.com/xtxerr/firstline/internal/index"
)

func newShellCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Inspect the firstline index interactively.",
		Long: `
Opens the index read-only and reads commands:

  get LABEL    print the firstline of LABEL
  has LABEL    report whether LABEL is indexed
  count        print the number of entries
  dump         print every entry
  exit         leave the shell
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := a.openIndex(index.ModeRead)
			if err != nil {
				return err
			}
			defer idx.Close()

			sh := &shell{idx: idx, out: a.stdout}
			p := prompt.New(
				func(line string) { sh.exec(line) },
				sh.complete,
				prompt.OptionPrefix("firstline> "),
				prompt.OptionTitle("firstline "+idx.Path()),
				prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
					return breakline && isExit(in)
				}),
			)
			p.Run()
			return nil
		},
	}
}

var shellCommands = []prompt.Suggest{
	{Text: "get", Description: "print the firstline of a label"},
	{Text: "has", Description: "report whether a label is indexed"},
	{Text: "count", Description: "print the number of entries"},
	{Text: "dump", Description: "print every entry"},
	{Text: "exit", Description: "leave the shell"},
}

// shell executes one line at a time against an open index.
type shell struct {
	idx *index.Index
	out io.Writer
}

func isExit(line string) bool {
	switch strings.TrimSpace(line) {
	case "exit", "quit":
		return true
	}
	return false
}

// exec runs line and reports whether the shell should stop.
func (s *shell) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch cmd, args := fields[0], fields[1:]; cmd {
	case "exit", "quit":
		return true
	case "get":
		for _, label := range args {
			n, err := s.idx.Lookup(label)
			if err != nil {
				fmt.Fprintf(s.out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(s.out, "%s\t%d\n", label, n)
		}
	case "has":
		for _, label := range args {
			ok, err := s.idx.Has(label)
			if err != nil {
				fmt.Fprintf(s.out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(s.out, "%s\t%t\n", label, ok)
		}
	case "count":
		n, err := s.idx.Len()
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			break
		}
		fmt.Fprintln(s.out, n)
	case "dump":
		if err := dump(s.idx, s.out); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	default:
		fmt.Fprintf(s.out, "unknown command %q\n", cmd)
	}
	return false
}

func (s *shell) complete(d prompt.Document) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}
	return prompt.FilterHasPrefix(shellCommands, d.GetWordBeforeCursor(), true)
}

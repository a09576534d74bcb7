package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/pitarchive/renderer"
	"github.com/google/subcommands"
)

type updateCmd struct {
	asset string
	all   bool
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "refresh the current partition of an asset" }
func (*updateCmd) Usage() string {
	return `update -a <asset> | -all

  Fetches the current partition of the asset and archives it if its content
  changed since the last successful ingestion.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asset, "a", "", "asset to update")
	f.BoolVar(&c.all, "all", false, "update every asset in the manifest")
}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if (c.asset == "") == !c.all {
		fmt.Fprintln(os.Stderr, "either -a <asset> or -all must be provided")
		return subcommands.ExitUsageError
	}

	archive, err := OpenArchive()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
		return subcommands.ExitFailure
	}

	names := []string{c.asset}
	if c.all {
		names = names[:0]
		for _, a := range archive.Manifest().Assets() {
			names = append(names, a.Name)
		}
	}

	status := subcommands.ExitSuccess
	for _, name := range names {
		summary, err := archive.Update(ctx, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error updating %s: %v\n", name, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Print(renderer.RunMarkdown(name, summary))
		if summary.Failed > 0 {
			status = subcommands.ExitFailure
		}
	}
	return status
}

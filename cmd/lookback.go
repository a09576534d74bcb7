package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/pitarchive/renderer"
	"github.com/google/subcommands"
)

type lookbackCmd struct {
	asset      string
	multiplier int
}

func (*lookbackCmd) Name() string     { return "lookback" }
func (*lookbackCmd) Synopsis() string { return "refresh an asset's recent partitions" }
func (*lookbackCmd) Usage() string {
	return `lookback -a <asset> [-x <multiplier>]

  Re-fetches the current partition plus the asset's lookback window and
  re-runs change detection on each, capturing late corrections to recent
  history. During disclosure peak months the enlarged peak window is used.
`
}

func (c *lookbackCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asset, "a", "", "asset to refresh")
	f.IntVar(&c.multiplier, "x", 1, "multiply the asset's lookback window")
}

func (c *lookbackCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.asset == "" {
		fmt.Fprintln(os.Stderr, "-a <asset> is required")
		return subcommands.ExitUsageError
	}

	archive, err := OpenArchive()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
		return subcommands.ExitFailure
	}

	summary, err := archive.UpdateWithLookback(ctx, c.asset, c.multiplier)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error refreshing %s: %v\n", c.asset, err)
		return subcommands.ExitFailure
	}
	fmt.Print(renderer.RunMarkdown(c.asset, summary))
	return exitStatus(summary)
}

package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/pitarchive"
	"github.com/etnz/pitarchive/date"
	"github.com/etnz/pitarchive/renderer"
	"github.com/google/subcommands"
)

type backfillCmd struct {
	asset string
	from  string
	to    string
	force bool
}

func (*backfillCmd) Name() string     { return "backfill" }
func (*backfillCmd) Synopsis() string { return "archive an asset's full history" }
func (*backfillCmd) Usage() string {
	return `backfill -a <asset> [-from <date>] [-to <date>] [-force]

  Archives every partition of the asset from its configured start date (or
  -from) to today (or -to). Partitions already archived are skipped, so an
  interrupted backfill can simply be re-run; -force refreshes them anyway.
`
}

func (c *backfillCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asset, "a", "", "asset to backfill")
	f.StringVar(&c.from, "from", "", "start date (defaults to the asset's backfill start)")
	f.StringVar(&c.to, "to", "", "end date (defaults to today)")
	f.BoolVar(&c.force, "force", false, "re-archive partitions already processed")
}

func (c *backfillCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.asset == "" {
		fmt.Fprintln(os.Stderr, "-a <asset> is required")
		return subcommands.ExitUsageError
	}
	var from, to date.Date
	var err error
	if c.from != "" {
		if from, err = date.Parse(c.from); err != nil {
			fmt.Fprintf(os.Stderr, "invalid -from: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	if c.to != "" {
		if to, err = date.Parse(c.to); err != nil {
			fmt.Fprintf(os.Stderr, "invalid -to: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	archive, err := OpenArchive()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
		return subcommands.ExitFailure
	}

	summary, err := archive.Backfill(ctx, c.asset, from, to, c.force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error backfilling %s: %v\n", c.asset, err)
		return subcommands.ExitFailure
	}
	fmt.Print(renderer.RunMarkdown(c.asset, summary))
	return exitStatus(summary)
}

// exitStatus maps partial failure onto the process exit code so schedulers
// notice without parsing output.
func exitStatus(s *pitarchive.RunSummary) subcommands.ExitStatus {
	if s.Failed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

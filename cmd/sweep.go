package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/pitarchive/renderer"
	"github.com/google/subcommands"
)

type sweepCmd struct{}

func (*sweepCmd) Name() string     { return "sweep" }
func (*sweepCmd) Synopsis() string { return "reconcile the archive after a crash" }
func (*sweepCmd) Usage() string {
	return `sweep

  Removes leftover staging files and rebuilds ledger entries for published
  artifacts that a crash left unrecorded. Do not run while an ingestion is
  in progress on the same archive.
`
}

func (*sweepCmd) SetFlags(f *flag.FlagSet) {}

func (*sweepCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	archive, err := OpenArchive()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
		return subcommands.ExitFailure
	}

	report, err := archive.Sweep()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sweeping archive: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Print(renderer.SweepMarkdown(report))
	if len(report.Orphans) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

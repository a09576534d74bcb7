package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/pitarchive"
	"github.com/etnz/pitarchive/renderer"
	"github.com/google/subcommands"
)

type summaryCmd struct {
	asset string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display archive contents per asset" }
func (*summaryCmd) Usage() string {
	return `summary [-a <asset>]

  Displays, per asset, how many partitions and versions are archived and how
  fresh they are. With -a, limits the report to one asset.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asset, "a", "", "asset to report on")
}

func (c *summaryCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	archive, err := OpenArchive()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
		return subcommands.ExitFailure
	}

	var summaries []*pitarchive.AssetSummary
	if c.asset != "" {
		s, err := archive.Summarize(c.asset)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error summarizing %s: %v\n", c.asset, err)
			return subcommands.ExitFailure
		}
		summaries = append(summaries, s)
	} else {
		if summaries, err = archive.SummarizeAll(); err != nil {
			fmt.Fprintf(os.Stderr, "Error summarizing archive: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	fmt.Print(renderer.SummaryMarkdown(summaries))
	return subcommands.ExitSuccess
}

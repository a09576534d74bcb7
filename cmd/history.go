package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/pitarchive/date"
	"github.com/etnz/pitarchive/renderer"
	"github.com/google/subcommands"
)

type historyCmd struct {
	asset string
	key   string
	asOf  string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display a partition's version history" }
func (*historyCmd) Usage() string {
	return `history -a <asset> -k <key> [-as-of <date>]

  Displays every ingestion of a partition in ledger order. With -as-of, also
  resolves which version a reader at that date would have seen.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asset, "a", "", "asset to report on")
	f.StringVar(&c.key, "k", "", "partition key to report on")
	f.StringVar(&c.asOf, "as-of", "", "resolve the version visible at this date")
}

func (c *historyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.asset == "" || c.key == "" {
		fmt.Fprintln(os.Stderr, "both -a and -k must be provided")
		return subcommands.ExitUsageError
	}

	archive, err := OpenArchive()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
		return subcommands.ExitFailure
	}

	entries, err := archive.Ledger().History(c.asset, c.key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Print(renderer.HistoryMarkdown(c.asset, c.key, entries))

	if c.asOf != "" {
		asOf, err := date.Parse(c.asOf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -as-of: %v\n", err)
			return subcommands.ExitUsageError
		}
		v, ok, err := archive.VersionAt(c.asset, c.key, asOf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving version: %v\n", err)
			return subcommands.ExitFailure
		}
		if !ok {
			fmt.Printf("\nAs of %s: absent\n", asOf)
		} else if v.DataFile == "" {
			fmt.Printf("\nAs of %s: empty partition (ingested %s)\n", asOf, v.IngestDate)
		} else {
			fmt.Printf("\nAs of %s: %s\n", asOf, v.DataFile)
		}
	}
	return subcommands.ExitSuccess
}

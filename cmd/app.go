// Package cmd implements the CLI application to manage a point-in-time
// archive.
package cmd

import (
	"flag"
	"os"
	"time"

	"github.com/etnz/pitarchive"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on
// the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&backfillCmd{}, "ingestion")
	c.Register(&updateCmd{}, "ingestion")
	c.Register(&lookbackCmd{}, "ingestion")

	c.Register(&historyCmd{}, "reporting")
	c.Register(&summaryCmd{}, "reporting")

	c.Register(&sweepCmd{}, "maintenance")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to
// use global variables.

var archivePath = flag.String("archive-path", envOr("PITA_ARCHIVE_PATH", "archive"), "Path to the archive storage root")
var manifestFile = flag.String("manifest", envOr("PITA_MANIFEST", "manifest.json"), "Path to the asset manifest file")
var sourcePath = flag.String("source-path", envOr("PITA_SOURCE_PATH", "payloads"), "Path to the payload source folder")
var workers = flag.Int("workers", pitarchive.DefaultWorkers, "Number of concurrent ingestion workers")
var fetchTimeout = flag.Duration("timeout", pitarchive.DefaultFetchTimeout, "Timeout for a single fetch attempt")

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// OpenArchive is the central function to open the configured archive.
func OpenArchive() (*pitarchive.Archive, error) {
	manifest, err := pitarchive.LoadManifest(*manifestFile)
	if err != nil {
		return nil, err
	}
	source := pitarchive.NewFileSource(*sourcePath)
	archive, err := pitarchive.Open(*archivePath, manifest, source)
	if err != nil {
		return nil, err
	}
	archive.Workers = *workers
	archive.FetchTimeout = *fetchTimeout
	archive.CommitTimeout = 30 * time.Second
	return archive, nil
}

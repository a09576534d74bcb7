package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/pitarchive"
	md "github.com/nao1215/markdown"
)

func RunMarkdown(asset string, s *pitarchive.RunSummary) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Run Summary for %s", asset))

	table := md.TableSet{
		Header: []string{"Outcome", "Partitions"},
		Rows: [][]string{
			{"Attempted", fmt.Sprintf("%d", s.Attempted)},
			{"Committed", fmt.Sprintf("%d", s.Committed)},
			{"Unchanged", fmt.Sprintf("%d", s.Unchanged)},
			{"Failed", fmt.Sprintf("%d", s.Failed)},
		},
	}
	doc.Table(table)

	if len(s.FailedKeys) > 0 {
		doc.H2("Failed Partitions")
		doc.BulletList(s.FailedKeys...)
	}

	return doc.String()
}

func SummaryMarkdown(summaries []*pitarchive.AssetSummary) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Archive Summary")

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignLeft,
		},
		Header: []string{"Asset", "Partitions", "Versions", "Empty", "Failures", "Last Ingest"},
		Rows:   [][]string{},
	}
	for _, s := range summaries {
		last := "-"
		if !s.LastIngest.IsZero() {
			last = s.LastIngest.String()
		}
		table.Rows = append(table.Rows, []string{
			s.Asset,
			fmt.Sprintf("%d", s.Partitions),
			fmt.Sprintf("%d", s.Versions),
			fmt.Sprintf("%d", s.Empty),
			fmt.Sprintf("%d", s.Failures),
			last,
		})
	}
	doc.Table(table)

	return doc.String()
}

func SweepMarkdown(r *pitarchive.SweepReport) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Sweep Report")
	doc.PlainText(fmt.Sprintf("Staging files removed: %d. Entries reconciled: %d. Orphans: %d.",
		len(r.StagingRemoved), len(r.Reconciled), len(r.Orphans)))

	if len(r.Reconciled) > 0 {
		doc.H2("Reconciled")
		var lines []string
		for _, e := range r.Reconciled {
			lines = append(lines, fmt.Sprintf("%s/%s ingest %s ordinal %d", e.Asset, e.Key, e.IngestDate, e.Ordinal))
		}
		doc.BulletList(lines...)
	}
	if len(r.Orphans) > 0 {
		doc.H2("Orphans")
		doc.BulletList(r.Orphans...)
	}

	return doc.String()
}

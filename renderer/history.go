// Package renderer turns archive reports into markdown for the CLI.
package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/pitarchive"
	md "github.com/nao1215/markdown"
)

func HistoryMarkdown(asset, key string, entries []pitarchive.Entry) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("History for %s/%s", asset, key))

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignLeft,
			md.AlignLeft,
		},
		Header: []string{"Ingest Date", "Status", "Ordinal", "Rows", "Fingerprint", "Reason"},
		Rows:   [][]string{},
	}
	for _, e := range entries {
		table.Rows = append(table.Rows, []string{
			e.IngestDate.String(),
			e.Status.String(),
			ordinal(e),
			fmt.Sprintf("%d", e.RowCount),
			shortFingerprint(e.Fingerprint),
			e.Reason,
		})
	}
	doc.Table(table)

	return doc.String()
}

func ordinal(e pitarchive.Entry) string {
	if e.Ordinal == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", e.Ordinal)
}

// shortFingerprint keeps the table readable; full hashes live in the ledger.
func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

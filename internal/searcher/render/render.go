// Package render prints query results as plain text.
package render

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/internal/searcher/resultset"
)

// Entries writes one "(id, score)" line per entry.
func Entries(w io.Writer, entries []resultset.Entry) error {
	bw := bufio.NewWriter(w)
	writeEntries(bw, entries)
	return bw.Flush()
}

// Report writes every section under a "=== Query: <title> ===" header,
// separated by blank lines.
func Report(w io.Writer, sections []resultset.Section) error {
	bw := bufio.NewWriter(w)
	for i, section := range sections {
		if i > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, "=== Query: %s ===\n", section.Title)
		writeEntries(bw, section.Entries)
	}
	return bw.Flush()
}

func writeEntries(w io.Writer, entries []resultset.Entry) {
	for _, entry := range entries {
		fmt.Fprintln(w, entry.String())
	}
}

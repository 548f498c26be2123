// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/europe-pmc/pkg/types"
)

// FormatList writes a tab-separated PMCID/PMID/PDF_URL table.
func FormatList(w io.Writer, items []Item) {
	fmt.Fprintln(w, "PMCID\tPMID\tPDF_URL")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", it.Record.PMCID(), it.Record.PMID(), it.Record.PDFURL())
	}
}

// FormatInfo writes each record as a JSON document. indent > 0 pretty
// prints with that many spaces; otherwise each record is one line.
// Non-ASCII text is written as is.
func FormatInfo(w io.Writer, items []Item, indent int) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	for _, it := range items {
		if err := enc.Encode(it.Record); err != nil {
			return fmt.Errorf("encoding record for %s: %w", it.Term, err)
		}
	}
	return nil
}

// FormatFailures writes one JSON object per failed term.
func FormatFailures(w io.Writer, failed []types.Failure) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, f := range failed {
		if err := enc.Encode(f); err != nil {
			return err
		}
	}
	return nil
}

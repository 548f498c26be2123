// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package europepmc

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Keys derived by the client rather than returned by Europe PMC.
const (
	KeySearch = "_search"
	KeyPDFURL = "pdf_url"
)

// Record is a single Europe PMC result: the JSON object returned by the
// service plus the derived keys _search and pdf_url. Numbers are held as
// json.Number.
type Record map[string]any

// Lookup returns the raw value stored under key.
func (r Record) Lookup(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// Text returns the value under key rendered as text. Nested objects and
// arrays are rendered as compact JSON; null renders as the empty string.
func (r Record) Text(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	return FormatValue(v), true
}

func (r Record) str(key string) string {
	s, _ := r.Text(key)
	return s
}

// PMID returns the PubMed identifier, or "" if the record has none.
func (r Record) PMID() string { return r.str("pmid") }

// PMCID returns the PubMed Central identifier, or "".
func (r Record) PMCID() string { return r.str("pmcid") }

// DOI returns the DOI, or "".
func (r Record) DOI() string { return r.str("doi") }

// Title returns the article title, or "".
func (r Record) Title() string { return r.str("title") }

// PDFURL returns the synthesized render URL, or "" when no PMCID was found.
func (r Record) PDFURL() string { return r.str(KeyPDFURL) }

// Search returns the "<term>[<type>]" annotation set by Fetch.
func (r Record) Search() string { return r.str(KeySearch) }

// HasPDF reports whether Europe PMC flags the article as having a PDF.
// A missing flag counts as no PDF.
func (r Record) HasPDF() bool {
	return strings.EqualFold(r.str("hasPDF"), "Y")
}

func (r Record) String() string {
	return fmt.Sprintf("Record<PMCID:%s>", r.PMCID())
}

// FormatValue renders a decoded JSON value as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool, float64, int, int64:
		return fmt.Sprint(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

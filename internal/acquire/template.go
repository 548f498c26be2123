// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/europe-pmc/internal/europepmc"
)

// ErrBadTemplate is returned when an output filename template cannot be
// expanded against a record.
var ErrBadTemplate = errors.New("bad outfile template")

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// pathReplacer keeps substituted values from introducing directories.
var pathReplacer = strings.NewReplacer("/", "_", `\`, "_")

// ExpandOutfile substitutes {field} placeholders in tmpl with values from
// rec, e.g. "{pubYear}.{pmid}.{title}.pdf". "{{" and "}}" produce literal
// braces. Unknown fields and malformed placeholders return ErrBadTemplate.
func ExpandOutfile(tmpl string, rec europepmc.Record) (string, error) {
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed '{' in %q", ErrBadTemplate, tmpl)
			}
			field := tmpl[i+1 : i+1+end]
			if !fieldPattern.MatchString(field) {
				return "", fmt.Errorf("%w: invalid field %q", ErrBadTemplate, field)
			}
			v, ok := rec.Text(field)
			if !ok {
				return "", fmt.Errorf("%w: unknown field %q", ErrBadTemplate, field)
			}
			b.WriteString(sanitize(v))
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("%w: single '}' in %q", ErrBadTemplate, tmpl)
		default:
			b.WriteByte(c)
		}
	}

	out := b.String()
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: empty filename", ErrBadTemplate)
	}
	return out, nil
}

func sanitize(s string) string {
	return pathReplacer.Replace(s)
}

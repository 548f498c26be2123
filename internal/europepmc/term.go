// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package europepmc

import "regexp"

// TermType classifies an input term.
type TermType int

const (
	TermTitle TermType = iota
	TermPMID
	TermPMCID
	TermDOI
)

// String returns the Europe PMC search field name for the type.
func (t TermType) String() string {
	switch t {
	case TermPMID:
		return "pmid"
	case TermPMCID:
		return "pmcid"
	case TermDOI:
		return "doi"
	default:
		return "title"
	}
}

// pmcidPattern matches a PMC prefix followed by seven digits: "PMC6039336".
var pmcidPattern = regexp.MustCompile(`(?i)^pmc\d{7}`)

// doiPattern matches the registrant prefix of a DOI: "10.1007/".
var doiPattern = regexp.MustCompile(`^\d{2}\.\d{4}/`)

// Classify labels a term by its shape. The first matching rule wins: PMCID,
// all-digit PMID, DOI prefix; anything else is searched as a title.
func Classify(term string) TermType {
	switch {
	case pmcidPattern.MatchString(term):
		return TermPMCID
	case isDigits(term):
		return TermPMID
	case doiPattern.MatchString(term):
		return TermDOI
	default:
		return TermTitle
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for europe-pmc.
package types

// Failure records a term that could not be resolved or downloaded.
type Failure struct {
	// Term is the input exactly as the user supplied it.
	Term string `json:"term" yaml:"term"`

	// Error is the human-readable reason.
	Error string `json:"error" yaml:"error"`
}

// Summary holds the outcome counts of a batch run.
type Summary struct {
	Terms      int `json:"terms"`
	Resolved   int `json:"resolved"`
	Duplicates int `json:"duplicates"`
	Downloaded int `json:"downloaded"`
	Failed     int `json:"failed"`
}

// HasFailures reports whether any term failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by the lookup client and the
// downloader.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "europe-pmc/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of retries on HTTP 429. Zero uses the
	// httputil default.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// LookupConfig holds settings for the Europe PMC lookup client.
type LookupConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIURL is the base URL of the Europe PMC REST service.
	APIURL string `json:"api_url" yaml:"api_url"`

	// RenderURL is the PDF render endpoint; the PMCID is passed as accid.
	RenderURL string `json:"render_url" yaml:"render_url"`

	// RateLimit is the maximum number of lookup requests per second.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`
}

// Mode selects what the batch run does with resolved records.
type Mode int

const (
	ModeDownload Mode = iota
	ModeList
	ModeInfo
)

func (m Mode) String() string {
	switch m {
	case ModeList:
		return "list"
	case ModeInfo:
		return "info"
	default:
		return "download"
	}
}

// DownloadConfig holds settings for batch resolution and PDF download.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline"`

	// OutDir is the directory PDFs are written to (default "pdf").
	OutDir string `json:"outdir" yaml:"outdir"`

	// OutFile is the filename template, e.g. "{pmcid}.pdf". Empty means the
	// server-provided filename is used.
	OutFile string `json:"outfile" yaml:"outfile"`

	// Threads is the download worker pool size (default 1).
	Threads int `json:"threads" yaml:"threads"`

	// ChunkSize is the read buffer size used when streaming a PDF to disk.
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// Progress enables the terminal progress bar.
	Progress bool `json:"progress" yaml:"progress"`

	// SkipExisting leaves an existing output file untouched instead of
	// downloading it again. Only applies when OutFile is set.
	SkipExisting bool `json:"skip_existing" yaml:"skip_existing"`

	// SaveInfo writes a YAML record next to every downloaded PDF.
	SaveInfo bool `json:"save_info" yaml:"save_info"`

	Mode Mode `json:"-" yaml:"-"`
}

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// Format is the output format (console, json).
	Format string `json:"format" yaml:"format"`
}

// Config groups all settings for a run.
type Config struct {
	Lookup   LookupConfig   `json:"lookup" yaml:"lookup"`
	Download DownloadConfig `json:"download" yaml:"download"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

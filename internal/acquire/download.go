// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/pdiddy/europe-pmc/internal/httputil"
	"github.com/pdiddy/europe-pmc/internal/progress"
	"github.com/pdiddy/europe-pmc/pkg/types"
)

// DefaultChunkSize is the read buffer size used when streaming downloads.
const DefaultChunkSize = 4 * 1024

// ErrNoFilename is returned when no filename was given and the response
// does not name one in its Content-Disposition header.
var ErrNoFilename = errors.New("cannot determine filename")

// dispositionFilename is the fallback for headers mime cannot parse.
var dispositionFilename = regexp.MustCompile(`filename="(.+)"`)

// Downloader streams URLs to files on disk.
type Downloader struct {
	Client     *http.Client
	UserAgent  string
	MaxRetries int
	ChunkSize  int

	// Progress receives the progress bar; nil disables it.
	Progress io.Writer
	Logger   zerolog.Logger
}

// NewDownloader creates a downloader from download settings. progressOut is
// only used when cfg.Progress is set.
func NewDownloader(cfg types.DownloadConfig, progressOut io.Writer, logger zerolog.Logger) *Downloader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	d := &Downloader{
		Client:     &http.Client{Timeout: timeout},
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
		ChunkSize:  cfg.ChunkSize,
		Logger:     logger,
	}
	if cfg.Progress {
		d.Progress = progressOut
	}
	return d
}

// Download fetches url into outdir and returns the written path. When
// filename is empty it is taken from the Content-Disposition header. The
// body is written to a temporary file that is renamed on success, so a
// failed download leaves nothing behind. A filename ending in ".gz" is
// written gzip-compressed.
func (d *Downloader) Download(ctx context.Context, url, filename, outdir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(d.Logger.WithContext(ctx), d.Client, req, d.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	if filename == "" {
		filename, err = FilenameFromHeader(resp.Header)
		if err != nil {
			return "", fmt.Errorf("%s: %w", url, err)
		}
	}

	destPath := filepath.Join(outdir, filename)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", filepath.Dir(destPath), err)
	}

	length := resp.ContentLength
	if length < 0 {
		length = 0
	}
	d.Logger.Debug().
		Str("path", destPath).
		Str("size", humanize.IBytes(uint64(length))).
		Msg("downloading")

	if err := d.writeBody(resp.Body, destPath, filename, length); err != nil {
		return "", err
	}
	return destPath, nil
}

func (d *Downloader) writeBody(body io.Reader, destPath, filename string, length int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	var out io.Writer = tmpFile
	var gz *gzip.Writer
	if strings.HasSuffix(destPath, ".gz") {
		gz = gzip.NewWriter(tmpFile)
		out = gz
	}

	w := out
	var bar *progress.Bar
	if d.Progress != nil {
		bar = progress.New(d.Progress, length, "downloading "+filename)
		w = io.MultiWriter(out, bar)
	}

	chunk := d.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	// Hide ReaderFrom/WriterTo so every read goes through the chunk buffer.
	_, copyErr := io.CopyBuffer(struct{ io.Writer }{w}, struct{ io.Reader }{body}, make([]byte, chunk))
	if bar != nil {
		bar.Finish()
	}
	if gz != nil {
		if err := gz.Close(); err != nil && copyErr == nil {
			copyErr = err
		}
	}
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// FilenameFromHeader extracts the filename parameter of a Content-Disposition
// header. Only the base name is returned.
func FilenameFromHeader(h http.Header) (string, error) {
	cd := h.Get("Content-Disposition")
	if cd == "" {
		return "", fmt.Errorf("%w: missing Content-Disposition header", ErrNoFilename)
	}

	var name string
	if _, params, err := mime.ParseMediaType(cd); err == nil {
		name = params["filename"]
	}
	if name == "" {
		if m := dispositionFilename.FindStringSubmatch(cd); m != nil {
			name = m[1]
		}
	}

	name = filepath.Base(filepath.Clean("/" + name))
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("%w: no filename in Content-Disposition %q", ErrNoFilename, cd)
	}
	return name, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/europe-pmc/pkg/types"
)

func TestFilenameFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		cd      string
		want    string
		wantErr bool
	}{
		{"attachment quoted", `attachment; filename="PMC6039336.pdf"`, "PMC6039336.pdf", false},
		{"inline unquoted", `inline; filename=PMC6039336.pdf`, "PMC6039336.pdf", false},
		{"regex fallback", `attachment; filename="bad name.pdf"; broken=`, "bad name.pdf", false},
		{"strips directories", `attachment; filename="../../etc/passwd"`, "passwd", false},
		{"missing header", "", "", true},
		{"no filename", "attachment", "", true},
		{"dot dot", `attachment; filename=".."`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.cd != "" {
				h.Set("Content-Disposition", tt.cd)
			}
			got, err := FilenameFromHeader(h)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNoFilename))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDownloadInfersFilenameAndCreatesDir(t *testing.T) {
	var gotUA, gotAccept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Disposition", `attachment; filename="PMC6039336.pdf"`)
		fmt.Fprint(w, fakePDFContent)
	}))
	defer ts.Close()

	outdir := filepath.Join(t.TempDir(), "pdf", "nested")
	d := testDownloader(ts)
	path, err := d.Download(context.Background(), ts.URL, "", outdir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outdir, "PMC6039336.pdf"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fakePDFContent, string(data))
	assert.Equal(t, "europe-pmc-test", gotUA)
	assert.Equal(t, "application/pdf", gotAccept)
}

func TestDownloadMissingHeaderLeavesNoFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fakePDFContent)
	}))
	defer ts.Close()

	outdir := t.TempDir()
	_, err := testDownloader(ts).Download(context.Background(), ts.URL, "", outdir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoFilename)

	entries, err := os.ReadDir(outdir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	_, err := testDownloader(ts).Download(context.Background(), ts.URL, "x.pdf", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestDownloadSmallChunksWithProgress(t *testing.T) {
	body := strings.Repeat("0123456789", 1000)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		fmt.Fprint(w, body)
	}))
	defer ts.Close()

	var bar bytes.Buffer
	d := testDownloader(ts)
	d.ChunkSize = 7
	d.Progress = &bar

	path, err := d.Download(context.Background(), ts.URL, "big.pdf", t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
	assert.Contains(t, bar.String(), "downloading big.pdf")
	assert.Contains(t, bar.String(), "100%")
}

func TestNewDownloader(t *testing.T) {
	var out bytes.Buffer
	cfg := types.DownloadConfig{
		HTTPConfig: types.HTTPConfig{UserAgent: "ua", MaxRetries: 2},
		ChunkSize:  1024,
	}

	d := NewDownloader(cfg, &out, zerolog.Nop())
	assert.Nil(t, d.Progress, "progress disabled unless configured")
	assert.Equal(t, "ua", d.UserAgent)
	assert.Equal(t, 2, d.MaxRetries)
	assert.Equal(t, 1024, d.ChunkSize)
	assert.NotZero(t, d.Client.Timeout)

	cfg.Progress = true
	d = NewDownloader(cfg, &out, zerolog.Nop())
	assert.NotNil(t, d.Progress)
}

func TestDownloadGzipSuffixCompresses(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, fakePDFContent)
	}))
	defer ts.Close()

	outdir := t.TempDir()
	var progressOut bytes.Buffer
	d := testDownloader(ts)
	d.Progress = &progressOut
	path, err := d.Download(context.Background(), ts.URL, "PMC6039336.pdf.gz", outdir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outdir, "PMC6039336.pdf.gz"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, fakePDFContent, string(data))
	assert.Contains(t, progressOut.String(), "13 B")

	entries, err := os.ReadDir(outdir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

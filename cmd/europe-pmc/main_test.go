// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakePDF = "%PDF-1.4 fake"

const articleJSON = `{"result": {
  "id": "30003000", "source": "MED", "pmid": "30003000", "pmcid": "PMC6039336",
  "title": "Identification of miRNAs in radish", "pubYear": "2018", "hasPDF": "Y"
}}`

const closedJSON = `{"result": {"id": "12345", "pmid": "12345", "hasPDF": "N"}}`

const pmcSearchJSON = `{"hitCount": 1, "resultList": {"result": [{
  "id": "30003000", "pmid": "30003000", "pmcid": "PMC6039336", "hasPDF": "Y", "pubYear": "2018"
}]}}`

// europePMC fakes the REST service under /rest and the render endpoint
// under /render, counting PDF downloads.
type europePMC struct {
	*httptest.Server
	pdfHits int32
}

func newEuropePMC(t *testing.T) *europePMC {
	t.Helper()
	e := &europePMC{}
	e.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/rest/article/MED/30003000":
			fmt.Fprint(w, articleJSON)
		case r.URL.Path == "/rest/article/MED/12345":
			fmt.Fprint(w, closedJSON)
		case strings.HasPrefix(r.URL.Path, "/rest/article/"):
			fmt.Fprint(w, `{}`)
		case r.URL.Path == "/rest/search":
			if r.URL.Query().Get("query") == "pmcid:PMC6039336" {
				fmt.Fprint(w, pmcSearchJSON)
				return
			}
			fmt.Fprint(w, `{"hitCount": 0, "resultList": {"result": []}}`)
		case r.URL.Path == "/render":
			atomic.AddInt32(&e.pdfHits, 1)
			accid := r.URL.Query().Get("accid")
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, accid))
			fmt.Fprint(w, fakePDF)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(e.Close)
	return e
}

// execute runs the command against the fake service and returns stdout,
// stderr and the command error.
func execute(t *testing.T, e *europePMC, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	base := []string{
		"--api-url", e.URL + "/rest",
		"--render-url", e.URL + "/render",
		"--rate-limit", "0",
		"--no-progress",
		"--log-format", "json",
	}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestListDeduplicates(t *testing.T) {
	e := newEuropePMC(t)
	stdout, _, err := execute(t, e, "--list", "30003000", "30003000", "PMC6039336")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "PMCID\tPMID\tPDF_URL", lines[0])
	assert.Equal(t, "PMC6039336\t30003000\t"+e.URL+"/render?accid=PMC6039336&blobtype=pdf", lines[1])
	assert.Equal(t, int32(0), atomic.LoadInt32(&e.pdfHits))
}

func TestDownloadDefaultNaming(t *testing.T) {
	e := newEuropePMC(t)
	out := filepath.Join(t.TempDir(), "pdf")

	_, stderr, err := execute(t, e, "30003000", "-O", out)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, "PMC6039336.pdf"))
	require.NoError(t, err)
	assert.Equal(t, fakePDF, string(data))
	assert.Contains(t, stderr, "all files are saved in: "+out)
	assert.Contains(t, stderr, "total times:")
}

func TestDownloadTemplateAndSaveInfo(t *testing.T) {
	e := newEuropePMC(t)
	out := t.TempDir()

	_, _, err := execute(t, e, "30003000", "-O", out, "-o", "{pubYear}.{pmid}.pdf", "--save-info", "--threads", "2")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "2018.30003000.pdf"))
	assert.FileExists(t, filepath.Join(out, "2018.30003000.yaml"))
}

func TestDownloadBadTemplateFallsBack(t *testing.T) {
	e := newEuropePMC(t)
	out := t.TempDir()

	_, stderr, err := execute(t, e, "30003000", "-O", out, "-o", "{nope}.pdf")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "30003000.pdf"))
	assert.Contains(t, stderr, "bad outfile format")
}

func TestInfoMode(t *testing.T) {
	e := newEuropePMC(t)
	stdout, _, err := execute(t, e, "--info", "--indent", "2", "30003000", "12345")
	require.NoError(t, err)

	assert.Contains(t, stdout, `  "pmid": "30003000",`)
	assert.Contains(t, stdout, `  "pmid": "12345"`)
	assert.Contains(t, stdout, `"_search": "30003000[pmid]"`)
	assert.Equal(t, int32(0), atomic.LoadInt32(&e.pdfHits))
}

func TestFailuresReported(t *testing.T) {
	e := newEuropePMC(t)
	out := t.TempDir()

	stdout, stderr, err := execute(t, e, "-O", out, "12345", "99999999", "30003000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 term(s) failed")

	assert.Contains(t, stdout, `{"term":"12345","error":"no pdf for PMID:12345"}`)
	assert.Contains(t, stdout, `{"term":"99999999","error":"no result found: 99999999 [MED]"}`)
	assert.Contains(t, stderr, "the failed terms are as follows:")
	assert.FileExists(t, filepath.Join(out, "PMC6039336.pdf"))
}

func TestTermFile(t *testing.T) {
	e := newEuropePMC(t)
	termFile := filepath.Join(t.TempDir(), "terms.txt")
	require.NoError(t, os.WriteFile(termFile, []byte("30003000,PMC6039336\n30003000\n"), 0o644))

	stdout, _, err := execute(t, e, "--list", termFile)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(stdout, "\n"))
}

func TestListAndInfoExclusive(t *testing.T) {
	e := newEuropePMC(t)
	_, _, err := execute(t, e, "--list", "--info", "30003000")
	require.Error(t, err)
}

func TestEnvironmentConfig(t *testing.T) {
	e := newEuropePMC(t)
	out := t.TempDir()
	t.Setenv("EUROPE_PMC_OUTFILE", "{pmcid}-env.pdf")

	_, _, err := execute(t, e, "30003000", "-O", out)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "PMC6039336-env.pdf"))
}

func TestConfigFile(t *testing.T) {
	e := newEuropePMC(t)
	out := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "europe-pmc.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("outfile: \"{pmid}-cfg.pdf\"\nthreads: 2\n"), 0o644))

	_, _, err := execute(t, e, "30003000", "-O", out, "--config", cfgPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "30003000-cfg.pdf"))
}

func TestMissingConfigFile(t *testing.T) {
	e := newEuropePMC(t)
	_, _, err := execute(t, e, "30003000", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestVersionFlag(t *testing.T) {
	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "europe-pmc "+version+"\n", stdout.String())
}

func TestNoArgsShowsHelp(t *testing.T) {
	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "europe-pmc [flags] term...")
}

func TestConfigFileInHomeDir(t *testing.T) {
	e := newEuropePMC(t)
	out := t.TempDir()
	home := t.TempDir()
	cfgDir := filepath.Join(home, ".config", "europe-pmc")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "europe-pmc.yaml"), []byte("outfile: \"{pmid}-home.pdf\"\n"), 0o644))

	t.Chdir(t.TempDir())
	t.Setenv("HOME", home)
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--api-url", e.URL + "/rest",
		"--render-url", e.URL + "/render",
		"--rate-limit", "0",
		"--no-progress",
		"-O", out,
		"30003000",
	})
	require.NoError(t, cmd.Execute())
	assert.FileExists(t, filepath.Join(out, "30003000-home.pdf"))

	usage := cmd.Flags().Lookup("config").Usage
	assert.Contains(t, usage, "europe-pmc.yaml")
	assert.Contains(t, usage, "~/.config/europe-pmc")
	assert.NotContains(t, usage, "config.yaml")
}

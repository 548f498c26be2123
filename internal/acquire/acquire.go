// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire turns a list of terms into Europe PMC records and
// downloads the open-access PDFs. Resolution is sequential; downloads run
// in a bounded worker pool.
package acquire

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/europe-pmc/internal/europepmc"
	"github.com/pdiddy/europe-pmc/pkg/types"
)

// Fetcher resolves a single term to a record.
type Fetcher interface {
	Fetch(ctx context.Context, term string) (europepmc.Record, error)
}

// Item is a resolved term ready to be listed, printed or downloaded.
type Item struct {
	Term   string
	Record europepmc.Record

	// OutPath is the destination file. Empty means the downloader names the
	// file from the response inside the configured output directory.
	OutPath string
}

// Plan is the outcome of resolving a batch of terms.
type Plan struct {
	Items      []Item
	Failed     []types.Failure
	Duplicates int
}

// ExpandTerms turns command line arguments into terms. An argument naming a
// regular file is replaced by the comma-separated terms on its lines; any
// other argument is a single term. Empty terms are dropped.
func ExpandTerms(args []string) ([]string, error) {
	var terms []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.Mode().IsRegular() {
			if arg != "" {
				terms = append(terms, arg)
			}
			continue
		}

		fileTerms, err := readTermFile(arg)
		if err != nil {
			return nil, err
		}
		terms = append(terms, fileTerms...)
	}
	return terms, nil
}

func readTermFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening term file: %w", err)
	}
	defer f.Close()

	var terms []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		for _, piece := range strings.Split(sc.Text(), ",") {
			if piece = strings.TrimSpace(piece); piece != "" {
				terms = append(terms, piece)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading term file %s: %w", path, err)
	}
	return terms, nil
}

// Resolve looks up every term in order. Lookup errors become failures and
// resolution continues. Records sharing a PMID are deduplicated, first
// occurrence wins. In list and download modes, records without a PDF
// become failures and the rest get an output path from cfg.OutFile.
func Resolve(ctx context.Context, f Fetcher, terms []string, cfg types.DownloadConfig, logger zerolog.Logger) Plan {
	var plan Plan
	seen := make(map[string]struct{})

	for _, term := range terms {
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Msg("resolution interrupted")
			break
		}

		rec, err := f.Fetch(ctx, term)
		if err != nil {
			logger.Error().Str("term", term).Msg(err.Error())
			plan.Failed = append(plan.Failed, types.Failure{Term: term, Error: err.Error()})
			continue
		}

		if pmid := rec.PMID(); pmid != "" {
			if _, dup := seen[pmid]; dup {
				logger.Debug().Str("term", term).Str("pmid", pmid).Msg("duplicate skipped")
				plan.Duplicates++
				continue
			}
			seen[pmid] = struct{}{}
		}

		if cfg.Mode == types.ModeInfo {
			plan.Items = append(plan.Items, Item{Term: term, Record: rec})
			continue
		}

		if !rec.HasPDF() || rec.PDFURL() == "" {
			plan.Failed = append(plan.Failed, types.Failure{
				Term:  term,
				Error: fmt.Sprintf("no pdf for PMID:%s", rec.PMID()),
			})
			continue
		}

		plan.Items = append(plan.Items, Item{
			Term:    term,
			Record:  rec,
			OutPath: outPath(term, rec, cfg, logger),
		})
	}
	return plan
}

// outPath expands the filename template for rec. A bad template falls back
// to "<term>.pdf".
func outPath(term string, rec europepmc.Record, cfg types.DownloadConfig, logger zerolog.Logger) string {
	if cfg.OutFile == "" {
		return ""
	}
	name, err := ExpandOutfile(cfg.OutFile, rec)
	if err != nil {
		logger.Warn().Str("outfile", cfg.OutFile).Err(err).Msg("bad outfile format")
		name = sanitize(term) + ".pdf"
	}
	return filepath.Join(cfg.OutDir, name)
}

// DownloadResult summarizes the download phase.
type DownloadResult struct {
	Downloaded int
	Skipped    int
	Paths      []string
	Failed     []types.Failure
}

// DownloadAll downloads every item using cfg.Threads workers. A failed
// download is logged and reported; it does not stop the other workers.
func DownloadAll(ctx context.Context, d *Downloader, items []Item, cfg types.DownloadConfig, logger zerolog.Logger) DownloadResult {
	threads := cfg.Threads
	if threads < 1 {
		threads = 1
	}

	var (
		mu     sync.Mutex
		result DownloadResult
		g      errgroup.Group
	)
	g.SetLimit(threads)

	for _, item := range items {
		g.Go(func() error {
			path, skipped, err := downloadItem(ctx, d, item, cfg)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				logger.Error().Str("term", item.Term).Err(err).Msg("download failed")
				result.Failed = append(result.Failed, types.Failure{Term: item.Term, Error: err.Error()})
			case skipped:
				logger.Info().Str("path", path).Msg("skipped (already exists)")
				result.Skipped++
			default:
				logger.Info().Str("term", item.Term).Str("path", path).Msg("saved")
				result.Downloaded++
				result.Paths = append(result.Paths, path)
			}
			return nil
		})
	}
	g.Wait()
	return result
}

func downloadItem(ctx context.Context, d *Downloader, item Item, cfg types.DownloadConfig) (path string, skipped bool, err error) {
	dir, name := cfg.OutDir, ""
	if item.OutPath != "" {
		if cfg.SkipExisting {
			if _, statErr := os.Stat(item.OutPath); statErr == nil {
				return item.OutPath, true, nil
			}
		}
		dir, name = filepath.Dir(item.OutPath), filepath.Base(item.OutPath)
	}

	path, err = d.Download(ctx, item.Record.PDFURL(), name, dir)
	if err != nil {
		return "", false, err
	}

	if cfg.SaveInfo {
		metaPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".yaml"
		if err := WriteMetadata(item.Record, metaPath); err != nil {
			return path, false, fmt.Errorf("writing metadata for %s: %w", item.Term, err)
		}
	}
	return path, false, nil
}

// WriteMetadata writes a record to a YAML file.
func WriteMetadata(rec europepmc.Record, path string) error {
	data, err := yaml.Marshal(map[string]any(rec))
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadMetadata reads a record written by WriteMetadata.
func ReadMetadata(path string) (europepmc.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec europepmc.Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the europe-pmc CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/europe-pmc/internal/acquire"
	"github.com/pdiddy/europe-pmc/internal/europepmc"
	"github.com/pdiddy/europe-pmc/internal/observability"
	"github.com/pdiddy/europe-pmc/pkg/types"
)

const (
	defaultTimeout = 60 * time.Second
	defaultOutDir  = "pdf"
)

// newRootCmd builds the europe-pmc command with its own viper instance.
func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "europe-pmc [flags] term...",
		Short: "Download open-access PDFs from Europe PMC",
		Long: `europe-pmc resolves PMIDs, PMCIDs, DOIs or titles against the Europe PMC
REST service and downloads the open-access PDF of each article.

A term that names a file is replaced by the comma-separated terms on its
lines. Terms resolving to the same PMID are processed once.

Examples:
  europe-pmc 30003000
  europe-pmc PMC6039336 10.1007/s13205-018-1330-z -o "{pmcid}.pdf"
  europe-pmc terms.txt --threads 4 -o "{pubYear}.{pmid}.{title}.pdf"
  europe-pmc 30003000 --info --indent 2`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return run(cmd, args, v)
		},
	}
	cmd.SetVersionTemplate("europe-pmc {{.Version}}\n")

	f := cmd.Flags()
	f.StringP("outdir", "O", defaultOutDir, "the output directory")
	f.StringP("outfile", "o", "", `the template of output filename, e.g. "{pmcid}.pdf", "{pubYear}.{pmid}.{title}.pdf"`)
	f.BoolP("list", "l", false, "list pdf urls only")
	f.BoolP("info", "i", false, "show information only")
	f.Int("indent", 0, "the indent for information output")
	f.Int("threads", 1, "the number of concurrent downloads")
	f.Bool("save-info", false, "write a YAML record next to each downloaded PDF")
	f.Bool("skip-existing", false, "do not download files that already exist")
	f.Bool("no-progress", false, "disable the download progress bar")
	f.Int("chunk-size", acquire.DefaultChunkSize, "read buffer size in bytes for downloads")
	f.Duration("timeout", defaultTimeout, "HTTP request timeout")
	f.Float64("rate-limit", europepmc.DefaultRateLimit, "maximum Europe PMC requests per second (0 = unlimited)")
	f.Int("retries", 3, "retries on HTTP 429 (negative disables)")
	f.String("user-agent", europepmc.DefaultUserAgent, "User-Agent header for HTTP requests")
	f.String("api-url", europepmc.DefaultBaseURL, "Europe PMC REST base URL")
	f.String("render-url", europepmc.DefaultRenderURL, "Europe PMC PDF render URL")
	f.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	f.String("log-format", "console", "log format (console, json)")
	f.BoolP("verbose", "v", false, "shorthand for --log-level debug")
	f.String("config", "", "config file (default: europe-pmc.yaml in . or ~/.config/europe-pmc)")
	cmd.MarkFlagsMutuallyExclusive("list", "info")

	return cmd
}

// initConfig binds flags, environment and the optional config file to v.
// Precedence: flag, EUROPE_PMC_* environment variable, config file, default.
func initConfig(cmd *cobra.Command, v *viper.Viper) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("europe-pmc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "europe-pmc"))
		}
	}

	v.SetEnvPrefix("EUROPE_PMC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// loadConfig assembles typed settings from v.
func loadConfig(v *viper.Viper) types.Config {
	httpCfg := types.HTTPConfig{
		Timeout:    v.GetDuration("timeout"),
		UserAgent:  v.GetString("user-agent"),
		MaxRetries: v.GetInt("retries"),
	}
	if httpCfg.Timeout <= 0 {
		httpCfg.Timeout = defaultTimeout
	}

	mode := types.ModeDownload
	switch {
	case v.GetBool("list"):
		mode = types.ModeList
	case v.GetBool("info"):
		mode = types.ModeInfo
	}

	level := v.GetString("log-level")
	if v.GetBool("verbose") {
		level = "debug"
	}

	return types.Config{
		Lookup: types.LookupConfig{
			HTTPConfig: httpCfg,
			APIURL:     v.GetString("api-url"),
			RenderURL:  v.GetString("render-url"),
			RateLimit:  v.GetFloat64("rate-limit"),
		},
		Download: types.DownloadConfig{
			HTTPConfig:   httpCfg,
			OutDir:       v.GetString("outdir"),
			OutFile:      v.GetString("outfile"),
			Threads:      v.GetInt("threads"),
			ChunkSize:    v.GetInt("chunk-size"),
			Progress:     !v.GetBool("no-progress"),
			SkipExisting: v.GetBool("skip-existing"),
			SaveInfo:     v.GetBool("save-info"),
			Mode:         mode,
		},
		Logging: types.LoggingConfig{
			Level:  level,
			Format: v.GetString("log-format"),
		},
	}
}

func run(cmd *cobra.Command, args []string, v *viper.Viper) error {
	start := time.Now()
	ctx := cmd.Context()
	cfg := loadConfig(v)
	logger := observability.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	out := cmd.OutOrStdout()

	terms, err := acquire.ExpandTerms(args)
	if err != nil {
		return err
	}
	logger.Debug().Int("terms", len(terms)).Msg("total terms")

	client := europepmc.NewClientFromConfig(cfg.Lookup, observability.WithComponent(logger, "EuropePMC"))
	plan := acquire.Resolve(ctx, client, terms, cfg.Download, logger)
	failed := plan.Failed
	summary := types.Summary{
		Terms:      len(terms),
		Resolved:   len(plan.Items),
		Duplicates: plan.Duplicates,
	}

	switch cfg.Download.Mode {
	case types.ModeList:
		acquire.FormatList(out, plan.Items)
	case types.ModeInfo:
		if err := acquire.FormatInfo(out, plan.Items, v.GetInt("indent")); err != nil {
			return err
		}
	default:
		d := acquire.NewDownloader(cfg.Download, cmd.ErrOrStderr(), observability.WithComponent(logger, "Download"))
		res := acquire.DownloadAll(ctx, d, plan.Items, cfg.Download, logger)
		failed = append(failed, res.Failed...)
		summary.Downloaded = res.Downloaded
		logger.Info().
			Int("downloaded", res.Downloaded).
			Int("skipped", res.Skipped).
			Msgf("all files are saved in: %s", cfg.Download.OutDir)
	}
	summary.Failed = len(failed)

	if summary.HasFailures() {
		logger.Warn().Msg("the failed terms are as follows:")
		if err := acquire.FormatFailures(out, failed); err != nil {
			return err
		}
	}

	logger.Info().
		Str("mode", cfg.Download.Mode.String()).
		Int("terms", summary.Terms).
		Int("resolved", summary.Resolved).
		Int("duplicates", summary.Duplicates).
		Int("failed", summary.Failed).
		Msgf("total times: %.1fs", time.Since(start).Seconds())

	if summary.HasFailures() {
		return fmt.Errorf("%d term(s) failed", summary.Failed)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

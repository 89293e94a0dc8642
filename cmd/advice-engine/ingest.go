// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/advice-engine/internal/extract"
	"github.com/pdiddy/advice-engine/internal/ingest"
	"github.com/pdiddy/advice-engine/internal/metrics"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract advice from transcripts into the advice index",
	Long: `Ingest reads every transcript in the transcripts directory, splits it into
speaker turns, drops sponsor reads, groups turns into chunks, and asks the
extraction model for advice in each chunk.

The advice index is rewritten after every transcript. Transcripts already
present in the index are skipped, so an interrupted run resumes where it
stopped. Use --sample to process three transcripts only.`,
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := ingestConfig()
	oracle, err := buildOracle(&cfg.AIConfig)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rule := strings.Repeat("=", 60)
	fmt.Fprintf(os.Stdout, "%s\nAdvice ingestion\n%s\n", rule, rule)
	fmt.Fprintf(os.Stdout, "provider: %s, model: %s\n", cfg.Provider, cfg.Model)

	client := extract.NewClient(oracle, extract.ClientOptions{
		Model:      cfg.Model,
		MaxTokens:  cfg.MaxTokens,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})

	opts := ingest.OptionsFromConfig(cfg)
	opts.Logger = logger
	var m *metrics.Ingest
	if cfg.MetricsTextfile != "" {
		m = metrics.NewIngest()
		opts.Metrics = m
	}

	summary, runErr := ingest.New(client, opts).Run(ctx, os.Stdout)
	if runErr == nil || errors.Is(runErr, context.Canceled) {
		ingest.PrintSummary(summary, os.Stdout)
	}

	if m != nil {
		if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("metrics not written", "err", err)
		}
	}
	if runErr != nil {
		return runErr
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d transcript(s) failed; run ingest again to retry them", summary.Failed)
	}
	return nil
}

func init() {
	f := ingestCmd.Flags()
	f.String("transcripts-dir", "transcripts", "directory of <Guest Name>.txt transcripts")
	f.String("index", defaultIndexPath, "advice index file to create or resume")
	f.String("provider", "anthropic", "extraction backend: anthropic or openai")
	f.String("model", defaultClaudeModel, "extraction model identifier (also INGEST_MODEL)")
	f.Int("max-tokens", extract.DefaultMaxTokens, "maximum tokens per extraction response")
	f.Int("max-retries", extract.DefaultMaxRetries, "retries for failed extraction calls")
	f.Bool("sample", false, "process the three sample transcripts only")
	f.StringSlice("sample-files", ingest.DefaultSampleFiles, "transcripts processed with --sample")
	f.Duration("delay", ingest.DefaultDelay, "minimum spacing between extraction calls")
	f.Int("chunk-target", 500, "soft chunk size in words")
	f.Int("chunk-max", 800, "hard chunk cap in words")
	f.StringSlice("ad-pattern", nil, "additional sponsor phrase to filter (repeatable)")
	f.String("metrics-textfile", "", "write Prometheus metrics to this file after the run")

	mustBind("ingest.transcripts_dir", f.Lookup("transcripts-dir"))
	mustBind("ingest.index_path", f.Lookup("index"))
	mustBind("ingest.provider", f.Lookup("provider"))
	mustBind("ingest.model", f.Lookup("model"))
	mustBind("ingest.max_tokens", f.Lookup("max-tokens"))
	mustBind("ingest.max_retries", f.Lookup("max-retries"))
	mustBind("ingest.sample", f.Lookup("sample"))
	mustBind("ingest.sample_files", f.Lookup("sample-files"))
	mustBind("ingest.delay", f.Lookup("delay"))
	mustBind("ingest.chunk_target_words", f.Lookup("chunk-target"))
	mustBind("ingest.chunk_max_words", f.Lookup("chunk-max"))
	mustBind("ingest.extra_ad_patterns", f.Lookup("ad-pattern"))
	mustBind("ingest.metrics_textfile", f.Lookup("metrics-textfile"))

	rootCmd.AddCommand(ingestCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/advice-engine/internal/extract"
	"github.com/pdiddy/advice-engine/internal/ingest"
	"github.com/pdiddy/advice-engine/internal/search"
	"github.com/pdiddy/advice-engine/internal/transcript"
)

// excerptChars bounds the transcript excerpt sent to each model.
const excerptChars = 2500

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run the extraction prompt against several models",
	Long: `Compare takes an excerpt of the first transcript (lines 50-150, at most
2500 characters) and sends the same extraction prompt to each model in
--models, reporting the raw output, parsed outcome, and token usage.`,
	RunE: runCompare,
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg := aiConfig("compare")
	models := viper.GetStringSlice("compare.models")
	if len(models) == 0 {
		return fmt.Errorf("at least one model is required (--models)")
	}

	oracle, err := buildOracle(&cfg)
	if err != nil {
		return err
	}

	dir := viper.GetString("compare.transcripts_dir")
	files, err := ingest.ListTranscripts(dir)
	if err != nil {
		return err
	}
	first := filepath.Join(dir, files[0])
	content, err := os.ReadFile(first)
	if err != nil {
		return fmt.Errorf("reading %s: %w", first, err)
	}
	guest := ingest.GuestName(first)
	excerpt := transcript.Excerpt(string(content), excerptChars)
	fmt.Fprintf(os.Stderr, "comparing %d models on %s (%d chars)\n", len(models), guest, len(excerpt))

	reports, err := extract.CompareModels(context.Background(), oracle, excerpt, guest, models, cfg.MaxTokens)
	if err != nil {
		return err
	}

	if viper.GetString("compare.format") == "json" {
		return search.FormatJSON(reports, os.Stdout)
	}
	data, err := yaml.Marshal(reports)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func init() {
	f := compareCmd.Flags()
	f.StringSlice("models", []string{defaultClaudeModel, "claude-sonnet-4-5"}, "models to compare")
	f.String("provider", "anthropic", "backend serving the models: anthropic or openai")
	f.Int("max-tokens", extract.DefaultMaxTokens, "maximum tokens per response")
	f.String("format", "yaml", "report format: yaml or json")
	f.String("transcripts-dir", "transcripts", "directory of transcripts; the first one is excerpted")

	mustBind("compare.models", f.Lookup("models"))
	mustBind("compare.provider", f.Lookup("provider"))
	mustBind("compare.max_tokens", f.Lookup("max-tokens"))
	mustBind("compare.format", f.Lookup("format"))
	mustBind("compare.transcripts_dir", f.Lookup("transcripts-dir"))

	rootCmd.AddCommand(compareCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/advice-engine/internal/index"
	"github.com/pdiddy/advice-engine/internal/search"
	"github.com/pdiddy/advice-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [topic...]",
	Short: "Look up advice for one or more topics",
	Long: `Search loads the advice index and returns the records that carry the most
requested topics. Topics are matched case-insensitively and common aliases
(pricing, pmf, ab-testing, ...) are accepted; unknown topics are ignored.

Use --save to keep a lookup as YAML and --load to print a saved one.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if path, _ := cmd.Flags().GetString("load"); path != "" {
		qf, err := search.ReadQueryFile(path)
		if err != nil {
			return err
		}
		return writeAdvice(qf.Response(), qf.Request.Topics, jsonOutput)
	}

	requested, _ := cmd.Flags().GetStringSlice("topics")
	requested = append(requested, args...)
	if len(requested) == 0 {
		return fmt.Errorf("at least one topic is required (valid: %s)", strings.Join(types.TopicStrings(), ", "))
	}

	cfg := searchConfig()
	engine, indexPath, err := loadEngine(cfg.IndexPath)
	if err != nil {
		return err
	}

	planSummary, _ := cmd.Flags().GetString("plan-summary")
	req := search.AdviceRequest{
		Topics:      requested,
		PlanSummary: planSummary,
		MaxResults:  cfg.MaxResults,
	}
	resp := engine.GetProductAdvice(req)

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := search.WriteQueryFile(path, req, resp, indexPath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved lookup to %s\n", path)
	}
	return writeAdvice(resp, requested, jsonOutput)
}

// loadEngine locates the advice index and builds a search engine over it.
func loadEngine(configured string) (*search.Engine, string, error) {
	idx, path, err := index.Locate(index.Candidates(configured))
	if err != nil {
		return nil, "", fmt.Errorf("loading advice index: %w", err)
	}
	logger.Debug("advice index loaded", "path", path, "records", len(idx.Chunks))
	return search.New(idx), path, nil
}

func writeAdvice(resp search.Response, requested []string, jsonOutput bool) error {
	if jsonOutput {
		return search.FormatJSON(resp, os.Stdout)
	}
	search.FormatAdvice(resp, requested, os.Stdout)
	return nil
}

func init() {
	f := searchCmd.Flags()
	f.StringSlice("topics", nil, "topics to look up (comma-separated or repeated)")
	f.String("plan-summary", "", "description of the plan being reviewed (recorded, not used for ranking)")
	f.Int("max-results", search.DefaultMaxResults, "maximum advice records to return")
	f.String("index", "", "advice index file (default: data/advice-index.json near the binary or working directory)")
	f.Bool("json", false, "output the response as JSON")
	f.String("save", "", "save the lookup to a YAML file")
	f.String("load", "", "print a lookup saved with --save instead of searching")

	mustBind("search.max_results", f.Lookup("max-results"))
	mustBind("search.index_path", f.Lookup("index"))

	rootCmd.AddCommand(searchCmd)
}

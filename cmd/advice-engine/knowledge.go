// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/advice-engine/internal/index"
	"github.com/pdiddy/advice-engine/internal/knowledge"
	"github.com/pdiddy/advice-engine/internal/topics"
	"github.com/pdiddy/advice-engine/pkg/types"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Mirror the advice index into SQLite (store, retrieve, export)",
	Long: `Knowledge maintains a local SQLite mirror of the advice index for ad-hoc
queries by text, topic, or guest. The JSON index stays the source of truth;
store copies new records into the mirror.`,
}

// --- store subcommand ---

var knowledgeStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Copy new advice records from the index into the mirror",
	Long: `Store loads the advice index and inserts records the mirror has not seen,
then writes knowledge/index/export.yaml. An index whose generation time
matches the last sync is skipped.`,
	RunE: runKnowledgeStore,
}

func runKnowledgeStore(cmd *cobra.Command, args []string) error {
	configured, _ := cmd.Flags().GetString("index")
	if configured == "" {
		configured = viper.GetString("search.index_path")
	}
	idx, indexPath, err := index.Locate(index.Candidates(configured))
	if err != nil {
		return fmt.Errorf("loading advice index: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.Sync(context.Background(), idx, indexPath, os.Stdout)
	return err
}

// --- retrieve subcommand ---

var knowledgeRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Query the mirror by text, topic, or guest",
	Long: `Retrieve searches insight, quote, and context for a substring, optionally
restricted to records carrying every --topic and to one --guest.

Use --trace with a record ID to print the transcript passage it came from.`,
	RunE: runKnowledgeRetrieve,
}

func runKnowledgeRetrieve(cmd *cobra.Command, args []string) error {
	traceID, _ := cmd.Flags().GetString("trace")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if traceID != "" {
		text, err := store.Trace(context.Background(), traceID)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}

	opts, err := queryOptsFromFlags(cmd, args)
	if err != nil {
		return err
	}
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --topic, or --guest")
	}

	results, err := store.Retrieve(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRetrieveOutput(results, jsonOutput)
}

func formatRetrieveOutput(results []types.AdviceRecord, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-24s  %-20s  %-50s  %s\n",
		"Rank", "ID", "Guest", "Insight", "Topics")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))

	for i, r := range results {
		fmt.Fprintf(os.Stdout, "%-4d  %-24s  %-20s  %-50s  %s\n",
			i+1, truncate(r.ID, 24), truncate(r.Guest, 20), truncate(r.Insight, 50), joinTopicList(r.Topics))
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func joinTopicList(ts []types.Topic) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

// --- export subcommand ---

var knowledgeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the mirror to YAML or JSON",
	Long: `Export writes the mirrored records (or a filtered subset) to
knowledge/index/export.yaml or export.json. Supports the same filter
flags as retrieve.`,
	RunE: runKnowledgeExport,
}

func runKnowledgeExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	opts, err := queryOptsFromFlags(cmd, args)
	if err != nil {
		return err
	}

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to knowledge/index/export.yaml")
	case "json":
		if err := store.ExportJSON(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to knowledge/index/export.json")
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	return nil
}

// --- topics subcommand ---

var knowledgeTopicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Count mirrored records per topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		counts, err := store.TopicCounts(context.Background())
		if err != nil {
			return err
		}
		for _, t := range types.Topics {
			fmt.Fprintf(os.Stdout, "%-24s %d\n", t, counts[t])
		}
		return nil
	},
}

// --- shared helpers ---

func openStore() (*knowledge.Store, error) {
	return knowledge.NewStore(knowledgeConfig(), viper.GetString("knowledge.transcripts_dir"))
}

// queryOptsFromFlags builds mirror query options. Topic filters go through
// the same normalizer as search, so aliases work here too.
func queryOptsFromFlags(cmd *cobra.Command, args []string) (knowledge.QueryOptions, error) {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}
	rawTopics, _ := cmd.Flags().GetStringSlice("topic")
	guest, _ := cmd.Flags().GetString("guest")
	limit, _ := cmd.Flags().GetInt("limit")

	ts, unknown := topics.NormalizeAll(rawTopics)
	if len(unknown) > 0 {
		return knowledge.QueryOptions{}, fmt.Errorf("unknown topic(s) %s (valid: %s)",
			strings.Join(unknown, ", "), strings.Join(types.TopicStrings(), ", "))
	}

	return knowledge.QueryOptions{
		Query:      queryText,
		Topics:     ts,
		Guest:      guest,
		MaxResults: limit,
	}, nil
}

func addFilterFlags(cmd *cobra.Command, limitHelp string) {
	cmd.Flags().String("query", "", "substring matched against insight, quote, and context")
	cmd.Flags().StringSlice("topic", nil, "require this topic (repeatable, AND semantics)")
	cmd.Flags().String("guest", "", "filter by guest name")
	cmd.Flags().Int("limit", 0, limitHelp)
}

func init() {
	pf := knowledgeCmd.PersistentFlags()
	pf.String("knowledge-dir", "knowledge", "base directory for the mirror (contains index/)")
	pf.String("transcripts-dir", "transcripts", "transcripts directory used by --trace")
	pf.Int("max-results", 20, "maximum number of query results")

	mustBind("knowledge.dir", pf.Lookup("knowledge-dir"))
	mustBind("knowledge.transcripts_dir", pf.Lookup("transcripts-dir"))
	mustBind("knowledge.max_results", pf.Lookup("max-results"))

	knowledgeStoreCmd.Flags().String("index", "", "advice index file to mirror")

	addFilterFlags(knowledgeRetrieveCmd, "maximum results (0 = use default)")
	knowledgeRetrieveCmd.Flags().String("trace", "", "show the transcript passage for a record ID")
	knowledgeRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	knowledgeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	addFilterFlags(knowledgeExportCmd, "maximum records to export (0 = all)")

	knowledgeCmd.AddCommand(knowledgeStoreCmd)
	knowledgeCmd.AddCommand(knowledgeRetrieveCmd)
	knowledgeCmd.AddCommand(knowledgeExportCmd)
	knowledgeCmd.AddCommand(knowledgeTopicsCmd)

	rootCmd.AddCommand(knowledgeCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the advice-engine CLI: ingest
// transcripts into an advice index, search it by topic, and mirror it into
// a SQLite knowledge base.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/advice-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger receives swallowed per-chunk failures and other diagnostics.
var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// rootCmd is the base command for the advice-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "advice-engine",
	Short: "Extract and search topic-tagged advice from interview transcripts",
	Long: `advice-engine turns long-form interview transcripts into short, attributed
advice records tagged with a fixed topic taxonomy, and answers multi-topic
lookups over the resulting index.

Run "ingest" to build or resume data/advice-index.json from transcripts/,
"search" and "topics" to query it, and "knowledge" to mirror it into SQLite.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if viper.GetBool("verbose") {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		s, err := secrets.Load(viper.GetString("secrets_dir"), os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./advice-engine.yaml or ~/.config/advice-engine/advice-engine.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of API key files")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	mustBind("secrets_dir", rootCmd.PersistentFlags().Lookup("secrets-dir"))
	mustBind("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("advice-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "advice-engine"))
		}
	}

	viper.SetEnvPrefix("ADVICE_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// INGEST_MODEL predates the prefixed variable and is still honoured.
	_ = viper.BindEnv("ingest.model", "ADVICE_ENGINE_INGEST_MODEL", "INGEST_MODEL")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/advice-engine/internal/search"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List topics and how many advice records each has",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, err := loadEngine(searchConfig().IndexPath)
		if err != nil {
			return err
		}
		stats := engine.Stats()
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return search.FormatJSON(stats, os.Stdout)
		}
		search.FormatTopics(stats, os.Stdout)
		return nil
	},
}

func init() {
	topicsCmd.Flags().Bool("json", false, "output statistics as JSON")
	rootCmd.AddCommand(topicsCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/advice-engine/pkg/types"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of advice-engine",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("advice-engine %s (index format %s)\n", version, types.IndexVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

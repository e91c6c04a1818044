package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "deskmesh",
	Short: "Support orchestration core",
	Long: `Deskmesh routes customer-support queries to specialized handlers,
preserves multi-turn conversational state, and tracks interaction quality.

The serve command starts the turn endpoint backed by the coordinator, the
session store and the quality tracker.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	debug       bool
	provider    string
	recordsPath string
	withOtel    bool
)

var rootCmd = &cobra.Command{
	Use:   "dieter",
	Short: "dieter turns meal descriptions and photos into nutrition records",
	Long: "dieter asks a generative model about a meal, normalizes the answer into a nutrition record, " +
		"tracks daily totals against recommended allowances and asks the recommendation service for the next meal.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Dump intermediate values")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "bedrock", "Model provider: bedrock, ollama or mock")
	rootCmd.PersistentFlags().StringVar(&recordsPath, "records", "", "Path to the records file (default $RECORDS_PATH)")
	rootCmd.PersistentFlags().BoolVar(&withOtel, "otel", false, "Export traces and metrics over OTLP")
}

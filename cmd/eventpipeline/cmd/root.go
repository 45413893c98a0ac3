package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "eventpipeline",
		Short: "Event pipeline - AI-assisted event scraper and library",
		Long: `eventpipeline discovers, extracts, and normalizes events from a configured
list of listing pages.

It supports:
- Browser-driven extraction with AI-assisted selector discovery
- Site adapter types for day-stepping calendars, protected static pages,
  and JSON-LD event feeds (this CLI registers none, so every source runs
  through the browser pipeline)
- A single embedded SQLite store for sources, selectors, events, settings,
  and run history`,
	}
)

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default: EVENTPIPELINE_LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console) (default: EVENTPIPELINE_LOG_FORMAT or json)")
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	logsListLimit          int
	logsClearOlderThanDays int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View and clear run logs",
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent run logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		runs, err := a.runlogs.List(logsListLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No run logs recorded.")
			return nil
		}

		fmt.Printf("%-28s %-8s %-6s %-6s %-6s %s\n", "TIMESTAMP", "MODE", "STATUS", "EVENTS", "FAILED", "WARNINGS")
		for _, r := range runs {
			fmt.Printf("%-28s %-8s %-6s %-6d %-6d %d\n",
				r.Timestamp.Format(time.RFC3339), r.Mode, r.Status, r.EventsFound, r.Failures, len(r.Warnings))
		}
		return nil
	},
}

var logsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete run logs older than a given age",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		cutoff := time.Now().AddDate(0, 0, -logsClearOlderThanDays)
		removed, err := a.runlogs.ClearOlderThan(cutoff)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d run log(s) older than %d days\n", removed, logsClearOlderThanDays)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsListCmd)
	logsCmd.AddCommand(logsClearCmd)

	logsListCmd.Flags().IntVar(&logsListLimit, "limit", 20, "maximum number of run logs to print")
	logsClearCmd.Flags().IntVar(&logsClearOlderThanDays, "days", 90, "delete run logs older than this many days")
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nordicstacks/eventpipeline/internal/model"
)

var runManual bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one extraction pass over every enabled source",
	Long: `Enumerate enabled source URLs, crawl each one under a bounded worker
pool, persist the resulting events, and record one run log entry.

Examples:
  eventpipeline run
  eventpipeline run --manual`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		driver, err := a.newDriver()
		if err != nil {
			return fmt.Errorf("launch browser: %w", err)
		}
		defer driver.Close()

		extractor := a.newExtractor()
		c := a.newCrawler(driver, extractor)
		orch := a.newOrchestrator(c)

		mode := model.RunModeAuto
		if runManual {
			mode = model.RunModeManual
		}
		orch.Options.Mode = mode

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runLog, err := orch.Run(ctx)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}

		for _, w := range runLog.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		fmt.Printf("Scraping complete: %d events, %d failures\n", runLog.EventsFound, runLog.Failures)

		if runLog.Status == model.RunStatusError {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runManual, "manual", false, "record this run as operator-triggered rather than scheduled")
}

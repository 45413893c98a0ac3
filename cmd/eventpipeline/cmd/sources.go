package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage configured source URLs",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured source URLs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		all, err := a.sources.ListAll()
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Println("No sources configured.")
			return nil
		}

		fmt.Printf("%-4s %-34s %-8s %s\n", "ID", "NAME", "ENABLED", "URL")
		for _, src := range all {
			fmt.Printf("%-4d %-34s %-8v %s\n", src.ID, src.Name, src.Enabled, src.URL)
		}
		return nil
	},
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add <url> <name>",
	Short: "Add a new source URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		id, err := a.sources.Add(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Added source %d: %s (%s)\n", id, args[1], args[0])
		return nil
	},
}

var sourcesEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a source URL",
	Args:  cobra.ExactArgs(1),
	RunE:  sourcesSetEnabledRunE(true),
}

var sourcesDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a source URL",
	Args:  cobra.ExactArgs(1),
	RunE:  sourcesSetEnabledRunE(false),
}

func sourcesSetEnabledRunE(enabled bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid source id %q: %w", args[0], err)
		}

		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := a.sources.SetEnabled(id, enabled); err != nil {
			return err
		}
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		fmt.Printf("Source %d %s\n", id, state)
		return nil
	}
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a source URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid source id %q: %w", args[0], err)
		}

		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := a.sources.Remove(id); err != nil {
			return err
		}
		fmt.Printf("Removed source %d\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesAddCmd)
	sourcesCmd.AddCommand(sourcesEnableCmd)
	sourcesCmd.AddCommand(sourcesDisableCmd)
	sourcesCmd.AddCommand(sourcesRemoveCmd)
}

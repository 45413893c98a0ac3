package cmd

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/nordicstacks/eventpipeline/internal/discoverer"
	"github.com/nordicstacks/eventpipeline/internal/model"
)

var selectorsCmd = &cobra.Command{
	Use:   "selectors",
	Short: "Inspect stored selector bundles",
}

var selectorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every stored selector bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		bundles, err := a.selsto.ListAll()
		if err != nil {
			return err
		}
		if len(bundles) == 0 {
			fmt.Println("No selector bundles stored.")
			return nil
		}

		fmt.Printf("%-28s %-20s %-24s %s\n", "DOMAIN", "URL PATTERN", "CONTAINER", "LAST UPDATED")
		for _, b := range bundles {
			fmt.Printf("%-28s %-20s %-24s %s\n", b.Domain, b.URLPattern, b.ContainerSelector, b.LastUpdated.Format(time.RFC3339))
		}
		return nil
	},
}

var selectorsShowCmd = &cobra.Command{
	Use:   "show <url>",
	Short: "Show the stored bundle matching a URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		bundle, ok, err := a.selsto.Get(args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("No bundle stored for that URL.")
			return nil
		}
		printBundle(bundle.ContainerSelector, bundle.ItemSelectors)
		return nil
	},
}

var selectorsDeleteCmd = &cobra.Command{
	Use:   "delete <domain> <url-pattern>",
	Short: "Delete a stored selector bundle",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := a.selsto.Delete(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Deleted bundle for %s%s\n", args[0], args[1])
		return nil
	},
}

// selectorsDiscoverCmd previews what the Discoverer would infer for a URL
// without writing anything to the store, even when the bundle would
// otherwise be trusted-and-cacheable.
var selectorsDiscoverCmd = &cobra.Command{
	Use:   "discover <url>",
	Short: "Preview the selector bundle the Discoverer would infer for a URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := loadApp()
		if err != nil {
			return err
		}
		defer cleanup()

		html, err := fetchStaticHTML(args[0])
		if err != nil {
			return fmt.Errorf("fetch %s: %w", args[0], err)
		}

		extractor := a.newExtractor()
		result, err := discoverer.Discover(extractor, args[0], html)
		if err != nil {
			return fmt.Errorf("discover: %w", err)
		}

		if result.UsedFallback {
			fmt.Printf("Fallback: one-shot AI event extraction (%d events found, nothing cached)\n", len(result.FallbackEvents))
			return nil
		}

		fmt.Printf("adjusted_confidence=%.2f trusted=%v (preview only, not written to the store)\n", result.AdjustedConfidence, result.Trusted)
		printBundle(result.Bundle.ContainerSelector, result.Bundle.ItemSelectors)
		return nil
	},
}

func printBundle(container string, items map[string]model.ItemSelector) {
	fmt.Printf("container: %s\n", container)
	for field, sel := range items {
		if sel.Attribute != "" {
			fmt.Printf("  %-14s %s [@%s]\n", field, sel.Selector, sel.Attribute)
			continue
		}
		fmt.Printf("  %-14s %s\n", field, sel.Selector)
	}
}

func fetchStaticHTML(rawURL string) (string, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func init() {
	rootCmd.AddCommand(selectorsCmd)
	selectorsCmd.AddCommand(selectorsListCmd)
	selectorsCmd.AddCommand(selectorsShowCmd)
	selectorsCmd.AddCommand(selectorsDeleteCmd)
	selectorsCmd.AddCommand(selectorsDiscoverCmd)
}

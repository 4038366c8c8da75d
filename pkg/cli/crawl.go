package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/taghound/taghound/pkg/types"
)

var (
	crawlDepth int
	crawlWait  bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <path>",
	Short: "Index a directory tree",
	Long:  `Ask the daemon to crawl a directory tree into the index.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCrawl,
}

func init() {
	crawlCmd.Flags().IntVar(&crawlDepth, "depth", 0, "Limit traversal depth (0 = daemon default)")
	crawlCmd.Flags().BoolVarP(&crawlWait, "wait", "w", false, "Wait for the crawl to finish")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		PrintError(err)
		return nil
	}

	client := getClient()

	var snapshot types.CrawlSnapshot
	payload := map[string]interface{}{"root": root, "depth": crawlDepth}
	if err := client.Post("/api/v1/crawls", payload, &snapshot); err != nil {
		PrintError(err)
		return nil
	}

	if !crawlWait {
		if PrintJSON(snapshot) {
			return nil
		}
		PrintSuccess("Crawl started")
		PrintNewline()
		PrintKeyValue("ID", snapshot.ID)
		PrintKeyValue("Root", snapshot.Root)
		PrintKeyValue("Generation", fmt.Sprintf("%d", snapshot.Generation))
		PrintHint("Watch progress with 'taghound status'")
		return nil
	}

	startedID := snapshot.ID
	err = RunSpinnerWithResult("Crawling "+root+"...", func() error {
		for {
			time.Sleep(500 * time.Millisecond)
			if err := client.Get("/api/v1/crawls/current", &snapshot); err != nil {
				return err
			}
			// A different ID means our crawl ended and another took over
			if !snapshot.FinishedAt.IsZero() || snapshot.ID != startedID {
				return nil
			}
		}
	})
	if err != nil {
		PrintError(err)
		return nil
	}

	if PrintJSON(snapshot) {
		return nil
	}
	printCrawlSummary(snapshot)
	return nil
}

func printCrawlSummary(snapshot types.CrawlSnapshot) {
	switch {
	case snapshot.Cancelled:
		PrintWarning("Crawl cancelled")
	case snapshot.Degraded:
		PrintWarning("Crawl finished with commit failures, index may be incomplete")
	case snapshot.Completed:
		PrintSuccess("Crawl finished")
	default:
		PrintWarning("Crawl stopped before completing")
	}

	PrintNewline()
	PrintKeyValue("Root", snapshot.Root)
	PrintKeyValue("Indexed", fmt.Sprintf("%d", snapshot.Visited))
	if snapshot.Skipped > 0 {
		PrintKeyValue("Skipped", fmt.Sprintf("%d", snapshot.Skipped))
	}
	if snapshot.Errors > 0 {
		PrintKeyValueStyled("Errors", fmt.Sprintf("%d", snapshot.Errors), WarningStyle)
	}
	if !snapshot.FinishedAt.IsZero() {
		PrintKeyValue("Took", snapshot.FinishedAt.Sub(snapshot.StartedAt).Round(time.Millisecond).String())
	}
	PrintNewline()
}

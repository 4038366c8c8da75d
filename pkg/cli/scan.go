package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/taghound/taghound/pkg/crawler"
	"github.com/taghound/taghound/pkg/metadata"
	"github.com/taghound/taghound/pkg/query"
	"github.com/taghound/taghound/pkg/store"
	"github.com/taghound/taghound/pkg/tags"
	"github.com/taghound/taghound/pkg/types"
)

var scanDepth int

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Index a directory without the daemon and print a summary",
	Long: `Crawl a directory tree into a throwaway in-memory index and print
what was found. Nothing persists after the command exits.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanDepth, "depth", 0, "Limit traversal depth (0 = unlimited)")
	rootCmd.AddCommand(scanCmd)
}

// scanResult is the JSON shape for --json output
type scanResult struct {
	Crawl types.CrawlSnapshot `json:"crawl"`
	Index types.StoreStats    `json:"index"`
	Tags  []types.TagCount    `json:"tags"`
}

func runScan(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		PrintError(err)
		return nil
	}

	// Crawl logs would tear through the spinner
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	indexStore, err := store.NewSQLiteStore("")
	if err != nil {
		PrintError(err)
		return nil
	}
	defer indexStore.Close()

	ctx := context.Background()
	fsCrawler := crawler.New(indexStore, metadata.NewExtractor(), tags.NewPlistDecoder(), crawler.Config{})

	var snapshot types.CrawlSnapshot
	err = RunSpinnerWithResult("Scanning "+root+"...", func() error {
		var runErr error
		snapshot, runErr = fsCrawler.Run(ctx, root, scanDepth)
		return runErr
	})
	if err != nil {
		PrintError(err)
		return nil
	}

	stats, err := indexStore.Stats(ctx)
	if err != nil {
		PrintError(err)
		return nil
	}

	engine := query.NewEngine(indexStore, fsCrawler, query.Config{})
	tagCounts, err := engine.ListTags(ctx)
	if err != nil {
		PrintError(err)
		return nil
	}

	if PrintJSON(scanResult{Crawl: snapshot, Index: stats, Tags: tagCounts}) {
		return nil
	}

	if snapshot.Errors > 0 {
		PrintWarning(fmt.Sprintf("Scanned %s with %d errors", root, snapshot.Errors))
	} else {
		PrintSuccessf("Scanned %s", root)
	}

	PrintNewline()
	PrintKeyValue("Files", fmt.Sprintf("%d", stats.Files))
	PrintKeyValue("Dirs", fmt.Sprintf("%d", stats.Directories))
	PrintKeyValue("Tagged", fmt.Sprintf("%d", stats.TaggedFiles))
	PrintKeyValue("Took", snapshot.FinishedAt.Sub(snapshot.StartedAt).Round(time.Millisecond).String())

	if len(tagCounts) > 0 {
		PrintHeader("Tags")
		table := NewTable("TAG", "FILES")
		for i, count := range tagCounts {
			if i == 10 {
				table.AddRow(DimStyle.Render(fmt.Sprintf("… %d more", len(tagCounts)-i)), "")
				break
			}
			table.AddRow(RenderTag(count.Name, count.Color), fmt.Sprintf("%d", count.Count))
		}
		table.Print()
	}
	PrintNewline()

	return nil
}

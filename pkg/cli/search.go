package cli

import (
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/taghound/taghound/pkg/types"
)

var (
	searchDir   string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed names, paths, and tags",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchDir, "dir", "d", "", "Restrict results to a directory subtree")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum number of results (0 = daemon default)")
	rootCmd.AddCommand(searchCmd)
}

// searchHit mirrors a single ranked result from the search API
type searchHit struct {
	types.FileRecord
	Score int `json:"score"`
}

// searchResponse mirrors the search API payload
type searchResponse struct {
	Hits      []searchHit `json:"hits"`
	Truncated bool        `json:"truncated"`
	Partial   bool        `json:"partial"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := url.Values{}
	query.Set("q", args[0])
	if searchDir != "" {
		dir, err := filepath.Abs(searchDir)
		if err != nil {
			PrintError(err)
			return nil
		}
		query.Set("dir", dir)
	}
	if searchLimit > 0 {
		query.Set("limit", strconv.Itoa(searchLimit))
	}

	var results searchResponse
	if err := getClient().Get("/api/v1/search?"+query.Encode(), &results); err != nil {
		PrintError(err)
		return nil
	}

	if PrintJSON(results) {
		return nil
	}

	if results.Partial {
		PrintWarning("A crawl is still running, results may be incomplete")
	}

	if len(results.Hits) == 0 {
		PrintInfo("No matches")
		return nil
	}

	table := NewTable("NAME", "PATH", "TAGS")
	for _, hit := range results.Hits {
		table.AddRow(formatName(&hit.FileRecord), DimStyle.Render(hit.Path), formatTags(hit.Tags))
	}
	table.Print()

	if results.Truncated {
		PrintNewline()
		PrintWarning("More matches exist, raise --limit to see them")
	}
	PrintNewline()

	return nil
}

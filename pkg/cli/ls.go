package cli

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/taghound/taghound/pkg/types"
)

var lsHidden bool

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List indexed entries in a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLs,
}

func init() {
	lsCmd.Flags().BoolVarP(&lsHidden, "all", "a", false, "Include hidden entries")
	rootCmd.AddCommand(lsCmd)
}

// listingResponse mirrors the files API payload
type listingResponse struct {
	Indexed  bool                `json:"indexed"`
	Dir      string              `json:"dir"`
	Partial  bool                `json:"partial,omitempty"`
	Children []*types.FileRecord `json:"children"`
}

func runLs(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		PrintError(err)
		return nil
	}

	query := url.Values{}
	query.Set("dir", dir)
	if lsHidden {
		query.Set("hidden", "true")
	}

	var listing listingResponse
	if err := getClient().Get("/api/v1/files?"+query.Encode(), &listing); err != nil {
		PrintError(err)
		return nil
	}

	if PrintJSON(listing) {
		return nil
	}

	if !listing.Indexed {
		PrintWarning(fmt.Sprintf("%s is not indexed yet", dir))
		PrintHint(fmt.Sprintf("Index it with 'taghound crawl %s'", dir))
		return nil
	}

	if listing.Partial {
		PrintWarning("A crawl is still running, this listing may be incomplete")
	}

	if len(listing.Children) == 0 {
		PrintInfo("Empty directory")
		return nil
	}

	table := NewTable("NAME", "SIZE", "MODIFIED", "TAGS")
	for _, record := range listing.Children {
		table.AddRow(formatName(record), formatSize(record), FormatRelativeTime(record.ModTime), formatTags(record.Tags))
	}
	table.Print()
	PrintNewline()

	return nil
}

func formatName(record *types.FileRecord) string {
	if record.IsDir {
		name := record.Name + "/"
		if record.Unreadable {
			return DirStyle.Render(name) + DimStyle.Render(" (unreadable)")
		}
		return DirStyle.Render(name)
	}
	return record.Name
}

func formatSize(record *types.FileRecord) string {
	if record.IsDir {
		return "-"
	}
	return humanize.Bytes(uint64(record.Size))
}

func formatTags(tags []types.TagAnnotation) string {
	if len(tags) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(tags))
	for _, tag := range tags {
		rendered = append(rendered, RenderTag(tag.Name, tag.Color))
	}
	return strings.Join(rendered, ", ")
}

package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/taghound/taghound/pkg/types"
)

var tagFilter string

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List all tags in the index",
	RunE:  runTags,
}

var tagCmd = &cobra.Command{
	Use:   "tag <name>",
	Short: "List files carrying a tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTag,
}

func init() {
	tagCmd.Flags().StringVarP(&tagFilter, "filter", "f", "", "Filter files by name substring")
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(tagCmd)
}

func runTags(cmd *cobra.Command, args []string) error {
	var counts []types.TagCount
	if err := getClient().Get("/api/v1/tags", &counts); err != nil {
		PrintError(err)
		return nil
	}

	if PrintJSON(counts) {
		return nil
	}

	if len(counts) == 0 {
		PrintInfo("No tags in the index")
		PrintHint("Crawl a directory that contains tagged files first")
		return nil
	}

	PrintHeader("Tags")

	table := NewTable("TAG", "COLOR", "FILES")
	for _, count := range counts {
		table.AddRow(RenderTag(count.Name, count.Color), count.Color.String(), fmt.Sprintf("%d", count.Count))
	}
	table.Print()
	PrintNewline()

	return nil
}

// tagFilesResponse mirrors the tag files API payload
type tagFilesResponse struct {
	Tag     string              `json:"tag"`
	Partial bool                `json:"partial"`
	Files   []*types.FileRecord `json:"files"`
}

func runTag(cmd *cobra.Command, args []string) error {
	name := args[0]

	path := "/api/v1/tags/" + url.PathEscape(name) + "/files"
	if tagFilter != "" {
		path += "?q=" + url.QueryEscape(tagFilter)
	}

	var tagFiles tagFilesResponse
	if err := getClient().Get(path, &tagFiles); err != nil {
		PrintError(err)
		return nil
	}

	if PrintJSON(tagFiles) {
		return nil
	}

	if tagFiles.Partial {
		PrintWarning("A crawl is still running, this listing may be incomplete")
	}

	if len(tagFiles.Files) == 0 {
		PrintInfof("No files tagged %q", name)
		return nil
	}

	table := NewTable("NAME", "PATH", "MODIFIED")
	for _, record := range tagFiles.Files {
		table.AddRow(formatName(record), DimStyle.Render(record.Path), FormatRelativeTime(record.ModTime))
	}
	table.Print()
	PrintNewline()

	return nil
}

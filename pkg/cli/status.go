package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/taghound/taghound/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Show the daemon version, index counts, and crawl progress.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusResponse mirrors the status API payload
type statusResponse struct {
	Version string               `json:"version"`
	Uptime  string               `json:"uptime"`
	Crawl   *types.CrawlSnapshot `json:"crawl,omitempty"`
	Index   types.StoreStats     `json:"index"`
	Process struct {
		PID        int32   `json:"pid"`
		RSSBytes   uint64  `json:"rss_bytes"`
		CPUPercent float64 `json:"cpu_percent"`
	} `json:"process"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	var status statusResponse
	if err := getClient().Get("/api/v1/status", &status); err != nil {
		if jsonOutput {
			PrintJSON(map[string]interface{}{"running": false, "error": err.Error()})
			return nil
		}
		PrintConnectionError(apiAddr, err)
		return nil
	}

	if PrintJSON(status) {
		return nil
	}

	PrintNewline()
	PrintKeyValueStyled("Status", "running", SuccessStyle)
	PrintKeyValue("Version", status.Version)
	PrintKeyValue("Uptime", status.Uptime)
	PrintKeyValue("PID", fmt.Sprintf("%d", status.Process.PID))
	PrintKeyValue("Memory", humanize.Bytes(status.Process.RSSBytes))
	PrintNewline()

	PrintKeyValue("Files", fmt.Sprintf("%d", status.Index.Files))
	PrintKeyValue("Dirs", fmt.Sprintf("%d", status.Index.Directories))
	PrintKeyValue("Tags", fmt.Sprintf("%d", status.Index.Tags))
	PrintKeyValue("Tagged", fmt.Sprintf("%d", status.Index.TaggedFiles))

	if crawl := status.Crawl; crawl != nil {
		PrintNewline()
		if crawl.Active() {
			PrintKeyValueStyled("Crawl", "running", InfoStyle)
		} else if crawl.Cancelled {
			PrintKeyValueStyled("Crawl", "cancelled", WarningStyle)
		} else if crawl.Degraded {
			PrintKeyValueStyled("Crawl", "degraded", WarningStyle)
		} else {
			PrintKeyValueStyled("Crawl", "finished", SuccessStyle)
		}
		PrintKeyValue("Root", crawl.Root)
		PrintKeyValue("Indexed", fmt.Sprintf("%d", crawl.Visited))
		if crawl.Errors > 0 {
			PrintKeyValueStyled("Errors", fmt.Sprintf("%d", crawl.Errors), WarningStyle)
		}
	}
	PrintNewline()

	return nil
}

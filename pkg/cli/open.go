package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

var openReveal bool

var openCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Open an indexed file with its handler",
	Long:  `Open an indexed file with its associated application, or reveal it in the platform file manager.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

func init() {
	openCmd.Flags().BoolVarP(&openReveal, "reveal", "r", false, "Reveal in the file manager instead of opening")
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		PrintError(err)
		return nil
	}

	payload := map[string]interface{}{"path": path, "reveal": openReveal}
	var result map[string]string
	if err := getClient().Post("/api/v1/open", payload, &result); err != nil {
		PrintError(err)
		return nil
	}

	if PrintJSON(result) {
		return nil
	}

	if openReveal {
		PrintSuccessf("Revealed %s", CodeStyle.Render(path))
	} else {
		PrintSuccessf("Opened %s", CodeStyle.Render(path))
	}
	return nil
}

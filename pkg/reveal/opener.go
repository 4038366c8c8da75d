package reveal

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
)

// Opener launches indexed files with the platform handler, or with a
// configured per-kind association. Launches are fire and forget: the
// child is started, never awaited by the caller.
type Opener struct {
	associations map[string]string
}

// NewOpener builds an opener. Association keys are file kinds
// ("pdf", "md"); values are executables invoked with the path as their
// only argument.
func NewOpener(associations map[string]string) *Opener {
	normalized := make(map[string]string, len(associations))
	for kind, handler := range associations {
		normalized[strings.ToLower(strings.TrimPrefix(kind, "."))] = handler
	}
	return &Opener{associations: normalized}
}

// Open launches the handler for path. A configured association for the
// file's kind wins over the platform default.
func (o *Opener) Open(path string) error {
	cmd, err := o.command(path)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	log.Debug().Str("path", path).Str("handler", cmd.Path).Msg("opened path")

	// Reap the child so it never zombies
	go cmd.Wait()
	return nil
}

// Reveal opens the file manager at the path's location.
func (o *Opener) Reveal(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", "-R", path)
	case "linux":
		cmd = exec.Command("xdg-open", filepath.Dir(path))
	case "windows":
		cmd = exec.Command("explorer", "/select,", path)
	default:
		return fmt.Errorf("unsupported platform")
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to reveal %s: %w", path, err)
	}
	go cmd.Wait()
	return nil
}

func (o *Opener) command(path string) (*exec.Cmd, error) {
	kind := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if handler, ok := o.associations[kind]; ok && kind != "" {
		return exec.Command(handler, path), nil
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path), nil
	case "linux":
		return exec.Command("xdg-open", path), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", path), nil
	default:
		return nil, fmt.Errorf("unsupported platform")
	}
}

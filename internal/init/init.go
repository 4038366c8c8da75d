// Package init sets up environment defaults before any other packages initialize.
// Import this package with a blank identifier as the first import to ensure
// logging defaults are set before anything logs.
package init

import (
	"os"

	"github.com/rs/zerolog"
)

func init() {
	// TAGHOUND_LOG_LEVEL overrides the default level, e.g. "debug" or "warn"
	if level, err := zerolog.ParseLevel(os.Getenv("TAGHOUND_LOG_LEVEL")); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	}
}

package main

import (
	"os"

	// Import init package first to set up logging defaults
	_ "github.com/taghound/taghound/internal/init"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taghound/taghound/pkg/common"
	"github.com/taghound/taghound/pkg/daemon"
	"github.com/taghound/taghound/pkg/types"
)

func main() {
	// Initialize logging
	configManager, err := common.NewConfigManager[types.AppConfig]()
	if err != nil {
		log.Fatal().Err(err).Msg("error creating config manager")
	}
	config := configManager.GetConfig()
	if config.PrettyLogs {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	d, err := daemon.NewDaemon()
	if err != nil {
		log.Fatal().Err(err).Msg("error creating daemon")
	}

	if err := d.Start(); err != nil {
		log.Fatal().Err(err).Msg("error running daemon")
	}
}

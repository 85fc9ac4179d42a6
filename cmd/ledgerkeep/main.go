package main

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/ledgerkeep/ledgerkeep/internal/commands"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "ledgerkeep",
	})
	if os.Getenv("LEDGERKEEP_DEBUG") != "" {
		logger.SetLevel(log.DebugLevel)
	}

	if err := commands.NewRootCommand(logger).Execute(); err != nil {
		os.Exit(1)
	}
}

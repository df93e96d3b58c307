// Package main is the Quantfolio CLI. It runs portfolio selections from
// scenario files without needing the HTTP server.
package main

import (
	"context"
	"os"

	"github.com/quantfolio/quantfolio/pkg/logger"
)

func main() {
	log := logger.New(logger.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	if err := Execute(context.Background()); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

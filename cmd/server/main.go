// Package main is the entry point for the catchme auth server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (flags, .env file, env vars)
// 2. Create dependencies (logger)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/sakif/catchme/internal/config"
	"github.com/sakif/catchme/internal/logger"
	"github.com/sakif/catchme/internal/server"
)

func main() {
	// === 1. FLAGS ===
	// --env-file points at a dotenv file loaded before the environment is
	// parsed. A missing file is fine; real env vars always win.
	var envFile string
	pflag.StringVar(&envFile, "env-file", ".env", "path to a .env file to load before reading the environment")
	pflag.Parse()

	// === 2. CONFIGURATION ===
	// Fail fast: a missing client ID or site URL must stop the process here,
	// not surface later as a broken login.
	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// === 3. LOGGING ===
	log, err := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

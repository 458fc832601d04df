package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"daybook-ndjson-backend/internal/config"
	"daybook-ndjson-backend/internal/logging"
	"daybook-ndjson-backend/internal/server"
)

func main() {
	// Load configuration (.env, optional CONFIG_FILE, environment)
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	if err := server.Run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}

package main

import (
	"log"

	"signtrack/internal/config"
	"signtrack/internal/infra/db"
	httpinfra "signtrack/internal/infra/http"
	"signtrack/internal/logging"
)

func main() {
	cfg := config.FromEnv()

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	store, err := db.NewStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	srv := httpinfra.NewServer(cfg, store, logger)
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

package cmd

import (
	"context"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"wordrace/config"
	"wordrace/httpserver"
	"wordrace/infrastructure"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	// Load .env if present; real environments set variables directly
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded environment from .env")
	}

	// Load configuration
	cfg := config.Get()

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	// Initialize model registry
	log.Info("Initializing model registry...")
	registry := infrastructure.NewRegistry(infrastructure.DefaultSpecs())

	// Initialize streaming adapter
	if cfg.APIKey == "" {
		log.Warn("MODEL_API_KEY is not set; model endpoints will reject requests")
	}
	adapter := infrastructure.NewOpenAIAdapter(cfg.APIKey)

	// Start HTTP server
	server := httpserver.New(registry, adapter)
	log.WithFields(log.Fields{
		"addr":        cfg.ListenAddr,
		"environment": cfg.Environment,
	}).Info("Server is running")

	return server.Start(ctx, cfg.ListenAddr)
}

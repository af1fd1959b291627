package main

import (
	"context"

	"kurskompass/scraper/internal/config"
	"kurskompass/scraper/internal/container"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.Info("Starting KursKompass scraper...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Info("Configuration loaded successfully")

	app, err := container.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer app.Close()

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("Application exited with error: %v", err)
	}

	log.Info("Application finished successfully")
}

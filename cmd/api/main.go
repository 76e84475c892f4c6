package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"smb_forecast/pkg/api/forecastapi"
	"smb_forecast/pkg/core/config"
	"smb_forecast/pkg/core/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	configPath := os.Getenv("APP_CONFIG")
	if configPath == "" {
		configPath = "config/app.yaml"
	}
	cfg, err := config.LoadAppConfig(configPath)
	if err != nil {
		log.Fatalf("[API] failed to load config: %v", err)
	}

	thresholds, err := config.LoadThresholds(cfg.Paths.Thresholds)
	if err != nil {
		log.Fatalf("[API] failed to load validation thresholds: %v", err)
	}

	// Persistence is optional: without DATABASE_URL the API still computes
	// forecasts, it just doesn't store them.
	var repo store.ForecastRepository
	if cfg.Database.URL != "" || os.Getenv("DATABASE_URL") != "" {
		if err := store.InitDB(context.Background()); err != nil {
			fmt.Printf("[WARNING] database unavailable, running without persistence: %v\n", err)
		} else {
			repo = store.NewForecastRepo()
			defer store.Close()
		}
	}

	handler := forecastapi.NewHandler(repo, thresholds)
	http.HandleFunc("/api/forecast", handler.HandleForecast)
	http.HandleFunc("/api/forecast/result", handler.HandleResult)

	fmt.Printf("Forecast API listening on %s\n", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, nil); err != nil {
		log.Fatalf("[API] server failed: %v", err)
	}
}

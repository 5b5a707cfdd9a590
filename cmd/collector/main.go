// cmd/collector/main.go

// Headless poller: fetches device state, derives events and writes to
// InfluxDB without serving the API. Use the gateway binary for the full
// dashboard backend; this one fits deployments where the collector runs
// next to the device and the API runs elsewhere.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/retea-se/halo-3c-dashboard/internal/alerting"
	"github.com/retea-se/halo-3c-dashboard/internal/collector"
	"github.com/retea-se/halo-3c-dashboard/internal/config"
	"github.com/retea-se/halo-3c-dashboard/internal/halo"
	"github.com/retea-se/halo-3c-dashboard/internal/logging"
	"github.com/retea-se/halo-3c-dashboard/internal/predictive"
	"github.com/retea-se/halo-3c-dashboard/internal/storage"
)

func main() {
	configPath := flag.String("config", ".", "Path to the configuration file directory")
	flag.Parse()

	logging.Setup(os.Stderr, slog.LevelDebug)

	if err := config.LoadConfig(*configPath); err != nil {
		log.Printf("Error loading config, continuing with defaults: %v", err)
	}
	cfg := &config.AppConfig

	store := storage.NewInfluxService(
		cfg.InfluxDB.URL, cfg.InfluxDB.Token, cfg.InfluxDB.Org, cfg.InfluxDB.Bucket,
		cfg.Halo.DeviceID)
	defer store.Close()

	device := halo.NewClient(cfg.Halo.Host, cfg.Halo.Username, cfg.Halo.Password,
		cfg.Halo.UseHTTPS, cfg.Halo.Timeout)

	// Health check before entering the loop.
	log.Printf("Performing health check...")
	checkCtx, checkCancel := context.WithTimeout(context.Background(), 30*time.Second)
	healthy := device.HealthCheck(checkCtx)
	checkCancel()
	if !healthy {
		log.Fatalf("Health check failed - device not accessible at %s", cfg.Halo.Host)
	}
	log.Printf("Health check passed")

	alerter := alerting.NewAlerter(store, nil)
	engine := predictive.NewEngine(cfg.Predictive.Rules)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coll := collector.New(device, store, alerter, engine, nil,
		cfg.Halo.DeviceID, cfg.Collector.Interval)
	go coll.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down collector...")
	cancel()
}

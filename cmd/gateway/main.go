// cmd/gateway/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/retea-se/halo-3c-dashboard/internal/alerting"
	"github.com/retea-se/halo-3c-dashboard/internal/api"
	"github.com/retea-se/halo-3c-dashboard/internal/auth"
	"github.com/retea-se/halo-3c-dashboard/internal/collector"
	"github.com/retea-se/halo-3c-dashboard/internal/config"
	"github.com/retea-se/halo-3c-dashboard/internal/halo"
	"github.com/retea-se/halo-3c-dashboard/internal/logging"
	"github.com/retea-se/halo-3c-dashboard/internal/occupancy"
	"github.com/retea-se/halo-3c-dashboard/internal/predictive"
	"github.com/retea-se/halo-3c-dashboard/internal/storage"
	"github.com/retea-se/halo-3c-dashboard/internal/websocket"
)

func main() {
	configPath := flag.String("config", ".", "Path to the configuration file directory")
	noCollector := flag.Bool("no-collector", false, "Serve the API without polling the device")
	flag.Parse()

	logging.Setup(os.Stderr, slog.LevelDebug)

	if err := config.LoadConfig(*configPath); err != nil {
		log.Printf("Error loading config, continuing with defaults: %v", err)
	}
	cfg := &config.AppConfig

	// --- Initialize components ---
	store := storage.NewInfluxService(
		cfg.InfluxDB.URL, cfg.InfluxDB.Token, cfg.InfluxDB.Org, cfg.InfluxDB.Bucket,
		cfg.Halo.DeviceID)
	defer store.Close()

	history := storage.NewEventBuffer()
	hub := websocket.NewHub(history)
	alerter := alerting.NewAlerter(store, hub)

	device := halo.NewClient(cfg.Halo.Host, cfg.Halo.Username, cfg.Halo.Password,
		cfg.Halo.UseHTTPS, cfg.Halo.Timeout)

	authUsers := make([]auth.User, 0, len(cfg.Auth.Users))
	for _, u := range cfg.Auth.Users {
		authUsers = append(authUsers, auth.User{
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			Role:         u.Role,
		})
	}
	authMgr := auth.NewManager(auth.Config{
		JWTSecret:   cfg.Auth.JWTSecret,
		TokenExpiry: cfg.Auth.TokenExpiry,
		APIKeys:     cfg.Auth.APIKeys,
		Users:       authUsers,
	})

	classifier := occupancy.NewClassifier()
	engine := predictive.NewEngine(cfg.Predictive.Rules)

	handler := api.NewHandler(store, hub, authMgr, device, classifier, engine, cfg.Halo.DeviceID)
	router := api.SetupRouter(handler, authMgr)

	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !*noCollector {
		coll := collector.New(device, store, alerter, engine, hub,
			cfg.Halo.DeviceID, cfg.Collector.Interval)
		go coll.Run(ctx)
	} else {
		log.Printf("Collector disabled; serving stored data only")
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting dashboard API on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server gracefully stopped.")
}

// cmd/mockgen/main.go

// Backfills InfluxDB with generated historical sensor data so dashboards
// and the predictive rules have something to show before a real device has
// been polled for months.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/retea-se/halo-3c-dashboard/internal/config"
	"github.com/retea-se/halo-3c-dashboard/internal/logging"
	"github.com/retea-se/halo-3c-dashboard/internal/mock"
	"github.com/retea-se/halo-3c-dashboard/internal/storage"
)

const batchSize = 5000

func main() {
	configPath := flag.String("config", ".", "Path to the configuration file directory")
	days := flag.Int("days", 365, "Days of history to generate")
	interval := flag.Duration("interval", 5*time.Minute, "Sample interval")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	logging.Setup(os.Stderr, slog.LevelInfo)

	if err := config.LoadConfig(*configPath); err != nil {
		log.Printf("Error loading config, continuing with defaults: %v", err)
	}
	cfg := &config.AppConfig

	store := storage.NewInfluxService(
		cfg.InfluxDB.URL, cfg.InfluxDB.Token, cfg.InfluxDB.Org, cfg.InfluxDB.Bucket,
		mock.DeviceID())
	defer store.Close()

	end := time.Now().UTC().Truncate(time.Hour)
	start := end.AddDate(0, 0, -*days)

	log.Printf("Generating mock data from %s to %s (interval %s)",
		start.Format("2006-01-02"), end.Format("2006-01-02"), *interval)
	log.Printf("Built-in degradation trends: sound +5dB/6mo, light -15%%/9mo, temperature +0.5C/12mo")

	ctx := context.Background()
	gen := mock.NewGenerator(*seed)

	var batch []*write.Point
	total := 0
	failed := false

	gen.Generate(start, end, *interval, func(s mock.Sample) bool {
		for sensorID, value := range s.Sensors {
			batch = append(batch, store.NewSensorPoint(sensorID, value, s.Timestamp))
		}
		if len(batch) >= batchSize {
			if err := store.WritePoints(ctx, batch...); err != nil {
				log.Printf("Write failed: %v", err)
				failed = true
				return false
			}
			total += len(batch)
			log.Printf("Written %d points (day %d/%d)", total, s.DayIndex+1, *days)
			batch = batch[:0]
		}
		return true
	})

	if !failed && len(batch) > 0 {
		if err := store.WritePoints(ctx, batch...); err != nil {
			log.Fatalf("Write failed: %v", err)
		}
		total += len(batch)
	}
	if failed {
		os.Exit(1)
	}

	log.Printf("Completed. Total points written: %d", total)
}

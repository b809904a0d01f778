package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"stratLab/config"
	"stratLab/internal/adapters/binanceclient"
	"stratLab/internal/adapters/logger"
	"stratLab/internal/utils"
)

func main() {
	startStr := flag.String("start", "", "start date (YYYY-MM-DD), defaults to one year ago")
	endStr := flag.String("end", "", "end date (YYYY-MM-DD), defaults to today")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	end := time.Now().UTC().Truncate(24 * time.Hour)
	if *endStr != "" {
		end, err = time.Parse("2006-01-02", *endStr)
		if err != nil {
			log.Fatalf("Invalid -end date: %v", err)
		}
	}
	start := end.AddDate(-1, 0, 0)
	if *startStr != "" {
		start, err = time.Parse("2006-01-02", *startStr)
		if err != nil {
			log.Fatalf("Invalid -start date: %v", err)
		}
	}
	if !start.Before(end) {
		log.Fatalf("start date %s must be before end date %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	client, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.UseTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("Failed to create Binance client: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	for _, symbol := range cfg.Symbols {
		bars, err := client.FetchBars(ctx, symbol, cfg.Interval, start, end)
		if err != nil {
			appLogger.Error(ctx, err, "Failed to fetch bars", map[string]interface{}{"symbol": symbol})
			continue
		}

		filename := filepath.Join(cfg.DataDir, fmt.Sprintf("%s_%s.csv", symbol, cfg.Interval))
		if err := utils.WriteBarsToCSV(bars, filename); err != nil {
			appLogger.Error(ctx, err, "Failed to write bars CSV", map[string]interface{}{"symbol": symbol})
			continue
		}
		appLogger.Info(ctx, "Saved bar series", map[string]interface{}{
			"symbol":   symbol,
			"bars":     len(bars),
			"filename": filename,
		})
	}
}

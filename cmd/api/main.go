package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ewilliams-labs/cadence/internal/app"
	"github.com/ewilliams-labs/cadence/internal/config"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file (default $CADENCE_CONFIG)")
	flag.Parse()

	// Crash early on unusable configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	defer a.Close()

	log.Println("------------------------------------------------")
	log.Printf("🎶 Cadence API is running on %s", cfg.Server.Addr)
	log.Println("------------------------------------------------")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.ListenAndServe(ctx); err != nil {
		log.Printf("ERROR api: %v", err)
		stop()
		a.Close()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/app"
	"fleetops/fleet-portal/fleet-portal-backend/internal/config"
	"fleetops/fleet-portal/fleet-portal-backend/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging, cfg.Server.Mode == config.ModeRelease)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	portal, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to wire portal", zap.Error(err))
	}
	defer portal.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Shutdown signal received")
		cancel()
	}()

	portal.Scheduler.RunOnce(ctx)
	if err := portal.Scheduler.Start(cfg.Dashboard.RefreshCron); err != nil {
		log.Fatal("Invalid dashboard refresh schedule", zap.Error(err), zap.String("cron", cfg.Dashboard.RefreshCron))
	}
	log.Info("Stats worker started", zap.Time("next_run", portal.Scheduler.NextRun()))

	archiver := &ArchiveWorker{
		documents:   portal.Documents,
		inspections: portal.Records,
		workOrders:  portal.WorkOrders,
		logger:      log,
		config:      DefaultArchiveWorkerConfig(),
	}
	archiver.Start(ctx)

	log.Info("Workers stopped")
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "fleetops/fleet-portal/fleet-portal-backend/api/v1"
	"fleetops/fleet-portal/fleet-portal-backend/internal/app"
	"fleetops/fleet-portal/fleet-portal-backend/internal/config"
	"fleetops/fleet-portal/fleet-portal-backend/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging, cfg.Server.Mode == gin.ReleaseMode)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	gin.SetMode(cfg.Server.Mode)

	portal, err := app.Build(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Failed to wire portal", zap.Error(err))
	}
	defer portal.Close()

	// Local mode has no separate worker process, so the API refreshes stats itself.
	if cfg.Persistence.Backend == config.BackendLocal {
		if err := portal.Scheduler.Start(cfg.Dashboard.RefreshCron); err != nil {
			log.Warn("Dashboard refresh disabled", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      v1.NewRouter(portal),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	log.Info("Server started",
		zap.String("addr", srv.Addr),
		zap.String("backend", cfg.Persistence.Backend))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exiting")
}

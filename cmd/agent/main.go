package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tally-agent/internal/api"
	"tally-agent/internal/connectivity"
	"tally-agent/internal/database"
	"tally-agent/internal/database/repositories"
	"tally-agent/internal/prefetch"
	"tally-agent/internal/syncd"
	"tally-agent/internal/upstream"
	"tally-agent/pkg/config"
	"tally-agent/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present; real env vars take precedence
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/agent.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	log := logger.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	log.Info("Starting tally agent...")

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations: %v", err)
	}

	submissionRepo := repositories.NewSubmissionRepository(db)
	syncLogRepo := repositories.NewSyncLogRepository(db)
	cacheRepo := repositories.NewCacheRepository(db)

	upstreamClient := upstream.NewClient(&cfg.Upstream)
	monitor := connectivity.NewMonitor(upstreamClient, cfg.Sync.ConnectivityProbe, log)
	engine := syncd.NewEngine(submissionRepo, syncLogRepo, upstreamClient, monitor.IsOnline, cfg.Sync.Interval, log)
	statusObserver := connectivity.NewStatusObserver(monitor, submissionRepo, cfg.Sync.StatusPollInterval, log)
	prefetcher := prefetch.NewPrefetcher(upstreamClient, cacheRepo, log)

	services := api.NewServices(db, engine, monitor, statusObserver, upstreamClient, prefetcher, log, cfg)
	if err := services.Start(); err != nil {
		log.Fatal("Failed to start services: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	api.SetupRoutes(router, services)

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Local API listening on %s", cfg.GetServerAddress())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down tally agent...")

	// Stop background services first so no new sweep starts, then drain
	// in-flight HTTP requests. Interrupted submissions stay pending and
	// sync on the next startup.
	services.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed: %v", err)
	}

	log.Info("Tally agent stopped")
}

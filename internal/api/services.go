package api

import (
	"database/sql"

	"tally-agent/internal/connectivity"
	"tally-agent/internal/database/repositories"
	"tally-agent/internal/prefetch"
	"tally-agent/internal/syncd"
	"tally-agent/internal/upstream"
	"tally-agent/pkg/config"
	"tally-agent/pkg/logger"
)

// Services contains all the dependencies for API handlers
type Services struct {
	// Core dependencies
	DB             *sql.DB
	SyncEngine     *syncd.Engine
	Monitor        *connectivity.Monitor
	StatusObserver *connectivity.StatusObserver
	Upstream       *upstream.Client
	Prefetcher     *prefetch.Prefetcher
	Logger         *logger.Logger
	Config         *config.Config

	// Repositories
	cacheRepository   *repositories.CacheRepository
	syncLogRepository *repositories.SyncLogRepository

	// Connectivity subscription, released on Stop
	connEvents <-chan connectivity.Event
}

// NewServices creates a new services container
func NewServices(
	db *sql.DB,
	syncEngine *syncd.Engine,
	monitor *connectivity.Monitor,
	statusObserver *connectivity.StatusObserver,
	upstreamClient *upstream.Client,
	prefetcher *prefetch.Prefetcher,
	logger *logger.Logger,
	config *config.Config,
) *Services {
	services := &Services{
		DB:             db,
		SyncEngine:     syncEngine,
		Monitor:        monitor,
		StatusObserver: statusObserver,
		Upstream:       upstreamClient,
		Prefetcher:     prefetcher,
		Logger:         logger,
		Config:         config,
	}

	services.cacheRepository = repositories.NewCacheRepository(db)
	services.syncLogRepository = repositories.NewSyncLogRepository(db)

	return services
}

// Start starts all background services
func (s *Services) Start() error {
	s.Logger.Info("Starting agent services...")

	if err := s.Monitor.Start(); err != nil {
		s.Logger.Error("Failed to start connectivity monitor: %v", err)
		return err
	}

	if err := s.SyncEngine.Start(); err != nil {
		s.Logger.Error("Failed to start sync engine: %v", err)
		return err
	}

	if err := s.StatusObserver.Start(); err != nil {
		s.Logger.Error("Failed to start status observer: %v", err)
		return err
	}

	// Wire network-restored transitions to an immediate sweep
	s.connEvents = s.Monitor.Subscribe()
	go s.forwardConnectivityEvents()

	s.Logger.Info("All agent services started successfully")
	return nil
}

// Stop stops all background services
func (s *Services) Stop() {
	s.Logger.Info("Stopping agent services...")

	s.StatusObserver.Stop()
	s.SyncEngine.Stop()
	if s.connEvents != nil {
		// Closes the channel so the forwarder goroutine exits
		s.Monitor.Unsubscribe(s.connEvents)
		s.connEvents = nil
	}
	s.Monitor.Stop()

	s.Logger.Info("All agent services stopped")
}

// forwardConnectivityEvents relays restored-connection transitions into the
// sync engine. Offline transitions carry no action; in-flight sends finish
// or fail on their own. The loop ends when Stop unsubscribes the channel.
func (s *Services) forwardConnectivityEvents() {
	for event := range s.connEvents {
		if event.Online {
			s.SyncEngine.OnOnline()
		}
	}
}

// IsHealthy checks if all critical services are healthy
func (s *Services) IsHealthy() bool {
	if err := s.DB.Ping(); err != nil {
		s.Logger.Error("Database health check failed: %v", err)
		return false
	}

	if !s.SyncEngine.IsRunning() {
		s.Logger.Warning("Sync engine is not running")
		return false
	}

	// Being offline is a normal operating mode, never a health failure
	return true
}

// Interface implementation methods
func (s *Services) GetLogger() *logger.Logger {
	return s.Logger
}

func (s *Services) GetSyncEngine() *syncd.Engine {
	return s.SyncEngine
}

func (s *Services) GetMonitor() *connectivity.Monitor {
	return s.Monitor
}

func (s *Services) GetStatusObserver() *connectivity.StatusObserver {
	return s.StatusObserver
}

func (s *Services) GetUpstream() *upstream.Client {
	return s.Upstream
}

func (s *Services) GetPrefetcher() *prefetch.Prefetcher {
	return s.Prefetcher
}

func (s *Services) CacheRepository() *repositories.CacheRepository {
	return s.cacheRepository
}

func (s *Services) SyncLogRepository() *repositories.SyncLogRepository {
	return s.syncLogRepository
}

package interfaces

import (
	"tally-agent/internal/connectivity"
	"tally-agent/internal/database/repositories"
	"tally-agent/internal/prefetch"
	"tally-agent/internal/syncd"
	"tally-agent/internal/upstream"
	"tally-agent/pkg/logger"
)

// Services defines the interface for API services
type Services interface {
	GetLogger() *logger.Logger
	GetSyncEngine() *syncd.Engine
	GetMonitor() *connectivity.Monitor
	GetStatusObserver() *connectivity.StatusObserver
	GetUpstream() *upstream.Client
	GetPrefetcher() *prefetch.Prefetcher
	CacheRepository() *repositories.CacheRepository
	SyncLogRepository() *repositories.SyncLogRepository
}

package prefetch

import (
	"context"

	"tally-agent/internal/database"
	"tally-agent/internal/database/repositories"
	"tally-agent/pkg/logger"
)

// Fetcher retrieves reference data from the central office server.
type Fetcher interface {
	FetchCandidates(ctx context.Context, constituencyID string) ([]database.CachedCandidate, error)
	FetchStations(ctx context.Context, constituencyID string) ([]database.CachedPollingStation, error)
	FetchBooths(ctx context.Context, constituencyID string) ([]database.CachedPollingBooth, error)
	FetchParties(ctx context.Context) ([]database.CachedParty, error)
}

// Prefetcher refreshes the local reference cache on agent login. The four
// fetches are independent: one failing is logged and skipped, and never blocks
// the others or the login itself. Consumers treat an empty cache as "not yet
// cached".
type Prefetcher struct {
	fetcher Fetcher
	cache   *repositories.CacheRepository
	log     *logger.Logger
}

// NewPrefetcher creates a new reference data prefetcher
func NewPrefetcher(fetcher Fetcher, cache *repositories.CacheRepository, log *logger.Logger) *Prefetcher {
	return &Prefetcher{
		fetcher: fetcher,
		cache:   cache,
		log:     log.WithComponent("prefetch"),
	}
}

// Prefetch refreshes all four reference data sets for a constituency.
func (p *Prefetcher) Prefetch(ctx context.Context, constituencyID string) {
	if candidates, err := p.fetcher.FetchCandidates(ctx, constituencyID); err != nil {
		p.log.Warning("Candidate prefetch failed, will retry on next login: %v", err)
	} else if err := p.cache.UpsertCandidates(candidates); err != nil {
		p.log.Warning("Candidate cache upsert failed: %v", err)
	}

	if stations, err := p.fetcher.FetchStations(ctx, constituencyID); err != nil {
		p.log.Warning("Station prefetch failed, will retry on next login: %v", err)
	} else if err := p.cache.UpsertStations(stations); err != nil {
		p.log.Warning("Station cache upsert failed: %v", err)
	}

	if booths, err := p.fetcher.FetchBooths(ctx, constituencyID); err != nil {
		p.log.Warning("Booth prefetch failed, will retry on next login: %v", err)
	} else if err := p.cache.UpsertBooths(booths); err != nil {
		p.log.Warning("Booth cache upsert failed: %v", err)
	}

	if parties, err := p.fetcher.FetchParties(ctx); err != nil {
		p.log.Warning("Party prefetch failed, will retry on next login: %v", err)
	} else if err := p.cache.UpsertParties(parties); err != nil {
		p.log.Warning("Party cache upsert failed: %v", err)
	}

	p.log.Info("Prefetch complete for constituency %s", constituencyID)
}

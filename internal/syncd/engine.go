package syncd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tally-agent/internal/database"
	"tally-agent/internal/database/repositories"
	"tally-agent/pkg/logger"
)

// Transport delivers one queued submission to the central office server.
type Transport interface {
	Send(ctx context.Context, sub *database.PendingSubmission) error
}

// Engine moves submissions from pending to synced against an unreliable link.
// Sweeps are mutually exclusive: a sweep requested while another runs is a
// no-op, and the next trigger picks up whatever it would have processed.
// Retries are unbounded with no backoff; retry_count is bookkeeping only and
// a record that never transmits stays pending forever.
type Engine struct {
	submissions *repositories.SubmissionRepository
	syncLog     *repositories.SyncLogRepository
	transport   Transport
	online      func() bool
	interval    time.Duration
	log         *logger.Logger

	sweepMu sync.Mutex // held for the duration of one sweep

	mu            sync.RWMutex
	isRunning     bool
	stopChan      chan struct{}
	lastSweepAt   time.Time
	lastSweepFull bool
}

// NewEngine creates a new sync engine. The online func is the connectivity
// monitor's current view; it gates the periodic sweep and the post-submit
// fast path only, never the sweep itself.
func NewEngine(
	submissions *repositories.SubmissionRepository,
	syncLog *repositories.SyncLogRepository,
	transport Transport,
	online func() bool,
	interval time.Duration,
	log *logger.Logger,
) *Engine {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Engine{
		submissions: submissions,
		syncLog:     syncLog,
		transport:   transport,
		online:      online,
		interval:    interval,
		log:         log.WithComponent("syncd"),
		stopChan:    make(chan struct{}),
	}
}

// SubmitResult reports the outcome of a submit operation to the UI.
type SubmitResult struct {
	LocalID int64  `json:"local_id"`
	Synced  bool   `json:"synced"`
	Offline bool   `json:"offline"`
	Message string `json:"message"`
}

// SubmitTally accepts a finalized submission. The record is durably persisted
// as pending before any network attempt; only a storage failure makes this
// call fail. If the link is up, one synchronous sweep runs immediately.
func (e *Engine) SubmitTally(ctx context.Context, payload, imageBase64 string) (*SubmitResult, error) {
	sub, err := e.submissions.Enqueue(payload, imageBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to persist submission: %w", err)
	}

	e.appendLog(database.LogActionSubmit, fmt.Sprintf("Submission %d saved to offline queue", sub.LocalID))

	if !e.online() {
		return &SubmitResult{
			LocalID: sub.LocalID,
			Offline: true,
			Message: "Tally saved offline. Will auto-sync when network returns.",
		}, nil
	}

	synced := e.AttemptSync(ctx)
	result := &SubmitResult{
		LocalID: sub.LocalID,
		Synced:  synced,
		Offline: !synced,
	}
	if synced {
		result.Message = "Tally submitted and synced successfully."
	} else {
		result.Message = "Tally saved locally. Sync pending."
	}
	return result, nil
}

// AttemptSync runs one sweep over all pending submissions, sequentially. It
// returns true only if every record in the batch reached the synced state.
// A concurrent call returns false immediately without transmitting anything.
func (e *Engine) AttemptSync(ctx context.Context) bool {
	if !e.sweepMu.TryLock() {
		return false
	}
	defer e.sweepMu.Unlock()

	pending, err := e.submissions.ListPending()
	if err != nil {
		e.log.Error("Failed to list pending submissions: %v", err)
		return false
	}

	e.recordSweep(len(pending) == 0)
	if len(pending) == 0 {
		return true
	}

	e.log.Info("Starting sync sweep of %d pending submissions", len(pending))

	allSynced := true
	syncedCount := 0
	for i := range pending {
		sub := &pending[i]

		if err := e.transport.Send(ctx, sub); err != nil {
			// Expected under poor connectivity; the record stays pending
			// and the next sweep retries it.
			if markErr := e.submissions.MarkFailed(sub.LocalID, err.Error()); markErr != nil {
				e.log.Error("Failed to record sync failure for %d: %v", sub.LocalID, markErr)
			}
			e.appendLog(database.LogActionSyncFail, fmt.Sprintf("Submission %d failed: %v", sub.LocalID, err))
			allSynced = false
			continue
		}

		if err := e.submissions.MarkSynced(sub.LocalID); err != nil {
			e.log.Error("Failed to mark submission %d synced: %v", sub.LocalID, err)
			allSynced = false
			continue
		}
		e.appendLog(database.LogActionSyncSuccess, fmt.Sprintf("Submission %d synced successfully", sub.LocalID))
		syncedCount++
	}

	e.recordSweep(allSynced)
	e.log.Info("Sync sweep completed. Synced: %d, Remaining: %d", syncedCount, len(pending)-syncedCount)

	return allSynced
}

// Start begins the periodic sweep loop
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isRunning {
		return fmt.Errorf("sync engine is already running")
	}

	e.isRunning = true
	go e.sweepLoop()

	e.log.Info("Sync engine started with interval: %v", e.interval)
	return nil
}

// Stop stops the periodic sweep loop. A sweep already in flight finishes its
// batch; interrupted records simply stay pending for the next startup.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isRunning {
		return
	}

	close(e.stopChan)
	e.isRunning = false

	e.log.Info("Sync engine stopped")
}

// IsRunning returns whether the periodic loop is active.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isRunning
}

// OnOnline is wired to the connectivity monitor's restored transition.
func (e *Engine) OnOnline() {
	e.log.Info("Network restored, starting sync sweep")
	go e.AttemptSync(context.Background())
}

// PendingCount returns the current queue depth.
func (e *Engine) PendingCount() (int, error) {
	return e.submissions.CountPending()
}

// LastSweep reports when the most recent sweep finished and whether it left
// the queue fully synced.
func (e *Engine) LastSweep() (time.Time, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSweepAt, e.lastSweepFull
}

func (e *Engine) sweepLoop() {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if e.online() {
				e.AttemptSync(context.Background())
			}

		case <-e.stopChan:
			e.log.Info("Sweep loop stopped")
			return
		}
	}
}

// appendLog is fire-and-forget: an audit failure must never affect the
// primary operation.
func (e *Engine) appendLog(action, details string) {
	if err := e.syncLog.Append(action, details); err != nil {
		e.log.Warning("Failed to append sync log entry: %v", err)
	}
}

func (e *Engine) recordSweep(full bool) {
	e.mu.Lock()
	e.lastSweepAt = time.Now().UTC()
	e.lastSweepFull = full
	e.mu.Unlock()
}

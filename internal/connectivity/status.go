package connectivity

import (
	"fmt"
	"sync"
	"time"

	"tally-agent/pkg/logger"
)

// PendingCounter reports the current queue depth.
type PendingCounter interface {
	CountPending() (int, error)
}

// Status is the aggregate state surfaced to the UI: an online boolean and the
// pending count, eventually consistent within one poll interval.
type Status struct {
	Online       bool      `json:"online"`
	PendingCount int       `json:"pending_count"`
	CheckedAt    time.Time `json:"checked_at"`
}

// StatusObserver polls the durable store for the pending count on a fixed
// interval instead of being pushed by the store; the UI tolerates up to that
// much staleness.
type StatusObserver struct {
	monitor      *Monitor
	counter      PendingCounter
	pollInterval time.Duration
	log          *logger.Logger

	mutex        sync.RWMutex
	isRunning    bool
	stopChan     chan struct{}
	pendingCount int
	checkedAt    time.Time
}

// NewStatusObserver creates a new status observer
func NewStatusObserver(monitor *Monitor, counter PendingCounter, pollInterval time.Duration, log *logger.Logger) *StatusObserver {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &StatusObserver{
		monitor:      monitor,
		counter:      counter,
		pollInterval: pollInterval,
		log:          log.WithComponent("status"),
		stopChan:     make(chan struct{}),
	}
}

// Snapshot returns the last observed aggregate status.
func (o *StatusObserver) Snapshot() Status {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	return Status{
		Online:       o.monitor.IsOnline(),
		PendingCount: o.pendingCount,
		CheckedAt:    o.checkedAt,
	}
}

// Start begins the pending-count poll loop
func (o *StatusObserver) Start() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.isRunning {
		return fmt.Errorf("status observer is already running")
	}

	o.isRunning = true
	go o.pollLoop()

	o.log.Info("Status observer started with poll interval: %v", o.pollInterval)
	return nil
}

// Stop stops the poll loop
func (o *StatusObserver) Stop() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if !o.isRunning {
		return
	}

	close(o.stopChan)
	o.isRunning = false

	o.log.Info("Status observer stopped")
}

func (o *StatusObserver) pollLoop() {
	o.refresh()

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.refresh()

		case <-o.stopChan:
			return
		}
	}
}

func (o *StatusObserver) refresh() {
	count, err := o.counter.CountPending()
	if err != nil {
		o.log.Warning("Failed to count pending submissions: %v", err)
		return
	}

	o.mutex.Lock()
	o.pendingCount = count
	o.checkedAt = time.Now().UTC()
	o.mutex.Unlock()
}

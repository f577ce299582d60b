package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tally-agent/pkg/logger"
)

// Pinger answers whether the central office server is currently reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Event is one connectivity transition.
type Event struct {
	Online bool
	At     time.Time
}

// Monitor bridges the network-state signal into the sync engine and the UI.
// It keeps nothing but a boolean mirror of the last probe; going offline is
// purely informational and never cancels in-flight work.
type Monitor struct {
	pinger        Pinger
	checkInterval time.Duration
	log           *logger.Logger

	mutex       sync.RWMutex
	isRunning   bool
	stopChan    chan struct{}
	online      bool
	subscribers []chan Event
}

// NewMonitor creates a new connectivity monitor
func NewMonitor(pinger Pinger, checkInterval time.Duration, log *logger.Logger) *Monitor {
	if checkInterval <= 0 {
		checkInterval = 10 * time.Second
	}
	return &Monitor{
		pinger:        pinger,
		checkInterval: checkInterval,
		log:           log.WithComponent("connectivity"),
		stopChan:      make(chan struct{}),
	}
}

// Subscribe returns a channel that receives every online/offline transition.
// Events are dropped for slow subscribers rather than blocking the monitor.
// Callers must Unsubscribe when done or the channel stays referenced for the
// life of the monitor.
func (m *Monitor) Subscribe() <-chan Event {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	ch := make(chan Event, 8)
	m.subscribers = append(m.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel so consumers
// ranging over it terminate. Unknown channels are a no-op.
func (m *Monitor) Unsubscribe(ch <-chan Event) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// IsOnline returns the current connectivity mirror.
func (m *Monitor) IsOnline() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.online
}

// Start begins connectivity monitoring
func (m *Monitor) Start() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.isRunning {
		return fmt.Errorf("connectivity monitor is already running")
	}

	m.isRunning = true
	go m.monitorLoop()

	m.log.Info("Connectivity monitor started with check interval: %v", m.checkInterval)
	return nil
}

// Stop stops the connectivity monitor
func (m *Monitor) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.isRunning {
		return
	}

	close(m.stopChan)
	m.isRunning = false

	m.log.Info("Connectivity monitor stopped")
}

// CheckNow performs an immediate probe and publishes any transition.
func (m *Monitor) CheckNow() bool {
	ctx, cancel := context.WithTimeout(context.Background(), m.checkInterval)
	defer cancel()

	online := m.pinger.Ping(ctx) == nil
	m.setOnline(online)
	return online
}

func (m *Monitor) monitorLoop() {
	// Establish the initial state before the first tick
	m.CheckNow()

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CheckNow()

		case <-m.stopChan:
			m.log.Info("Monitor loop stopped")
			return
		}
	}
}

func (m *Monitor) setOnline(online bool) {
	m.mutex.Lock()
	changed := online != m.online
	m.online = online

	// Publish under the lock so an Unsubscribe cannot close a channel with a
	// send in flight. Sends never block; slow subscribers drop the event.
	if changed {
		event := Event{Online: online, At: time.Now().UTC()}
		for _, ch := range m.subscribers {
			select {
			case ch <- event:
			default:
			}
		}
	}
	m.mutex.Unlock()

	if !changed {
		return
	}

	if online {
		m.log.Info("Central office server reachable, connection restored")
	} else {
		m.log.Warning("Central office server unreachable, working offline")
	}
}

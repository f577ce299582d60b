package syncd

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tally-agent/internal/database"
	"tally-agent/internal/database/repositories"
	"tally-agent/pkg/config"
	"tally-agent/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTransport scripts per-call outcomes and records every send.
type mockTransport struct {
	mu       sync.Mutex
	sends    []int64
	failures int           // fail this many calls before succeeding
	entered  chan struct{} // signaled on entry when set
	blockOn  chan struct{} // blocks each send until closed when set
}

func (m *mockTransport) Send(ctx context.Context, sub *database.PendingSubmission) error {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.blockOn != nil {
		<-m.blockOn
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sends = append(m.sends, sub.LocalID)
	if m.failures > 0 {
		m.failures--
		return errors.New("connection refused")
	}
	return nil
}

func (m *mockTransport) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sends)
}

func newTestEngine(t *testing.T, transport Transport, online bool) (*Engine, *repositories.SubmissionRepository, *sql.DB) {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "engine-test.db"),
	}
	db, err := database.NewConnection(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db))

	subs := repositories.NewSubmissionRepository(db)
	syncLog := repositories.NewSyncLogRepository(db)
	log := logger.NewLogger("error", "")

	engine := NewEngine(subs, syncLog, transport, func() bool { return online }, time.Hour, log)
	return engine, subs, db
}

func TestSubmitTallyOffline(t *testing.T) {
	transport := &mockTransport{}
	engine, subs, _ := newTestEngine(t, transport, false)

	result, err := engine.SubmitTally(context.Background(), `{"vote_batch":{"id":"b1"}}`, "")
	require.NoError(t, err)

	assert.True(t, result.Offline)
	assert.False(t, result.Synced)
	assert.Contains(t, result.Message, "offline")

	// No network attempt while offline; the record waits in the queue
	assert.Equal(t, 0, transport.sendCount())

	count, err := subs.CountPending()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubmitTallyOnlineSyncsImmediately(t *testing.T) {
	transport := &mockTransport{}
	engine, subs, _ := newTestEngine(t, transport, true)

	result, err := engine.SubmitTally(context.Background(), `{"vote_batch":{"id":"b1"}}`, "")
	require.NoError(t, err)

	assert.True(t, result.Synced)
	assert.False(t, result.Offline)
	assert.Equal(t, 1, transport.sendCount())

	count, err := subs.CountPending()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAttemptSyncMutualExclusion(t *testing.T) {
	transport := &mockTransport{
		entered: make(chan struct{}, 2),
		blockOn: make(chan struct{}),
	}
	engine, subs, _ := newTestEngine(t, transport, true)

	_, err := subs.Enqueue(`{"n":1}`, "")
	require.NoError(t, err)
	_, err = subs.Enqueue(`{"n":2}`, "")
	require.NoError(t, err)

	done := make(chan bool, 1)
	go func() {
		done <- engine.AttemptSync(context.Background())
	}()

	// Wait for the first sweep to take the lock and block inside Send
	select {
	case <-transport.entered:
	case <-time.After(time.Second):
		t.Fatal("First sweep never reached the transport")
	}

	// A concurrent trigger must bail out without transmitting anything
	assert.False(t, engine.AttemptSync(context.Background()))

	close(transport.blockOn)
	assert.True(t, <-done)

	// Each record was transmitted exactly once despite the second trigger
	assert.Equal(t, 2, transport.sendCount())

	count, err := subs.CountPending()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSweepContinuesPastFailures(t *testing.T) {
	transport := &mockTransport{failures: 1}
	engine, subs, _ := newTestEngine(t, transport, true)

	first, err := subs.Enqueue(`{"n":1}`, "")
	require.NoError(t, err)
	_, err = subs.Enqueue(`{"n":2}`, "")
	require.NoError(t, err)

	allSynced := engine.AttemptSync(context.Background())
	assert.False(t, allSynced, "A failed record means the sweep did not fully sync")

	// The failure on the first record must not stop the second from syncing
	assert.Equal(t, 2, transport.sendCount())

	count, err := subs.CountPending()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := subs.Get(first.LocalID)
	require.NoError(t, err)
	assert.Equal(t, database.SyncStatePending, stored.SyncState)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Equal(t, "connection refused", stored.LastError)
}

func TestUnboundedRetryEventuallyConverges(t *testing.T) {
	transport := &mockTransport{failures: 3}
	engine, subs, _ := newTestEngine(t, transport, true)

	sub, err := subs.Enqueue(`{"n":1}`, "")
	require.NoError(t, err)

	// Three failing sweeps, then the link comes back
	for i := 0; i < 3; i++ {
		assert.False(t, engine.AttemptSync(context.Background()))
	}
	assert.True(t, engine.AttemptSync(context.Background()))

	stored, err := subs.Get(sub.LocalID)
	require.NoError(t, err)
	assert.Equal(t, database.SyncStateSynced, stored.SyncState)
	assert.Equal(t, 3, stored.RetryCount, "Retry count is bookkeeping across failed sweeps")
	assert.NotNil(t, stored.SyncedAt)
}

func TestEmptySweepIsFullySynced(t *testing.T) {
	transport := &mockTransport{}
	engine, _, _ := newTestEngine(t, transport, true)

	assert.True(t, engine.AttemptSync(context.Background()))
	assert.Equal(t, 0, transport.sendCount())

	sweepAt, full := engine.LastSweep()
	assert.False(t, sweepAt.IsZero())
	assert.True(t, full)
}

func TestStartStop(t *testing.T) {
	transport := &mockTransport{}
	engine, _, _ := newTestEngine(t, transport, true)

	assert.False(t, engine.IsRunning())
	require.NoError(t, engine.Start())
	assert.True(t, engine.IsRunning())
	assert.Error(t, engine.Start(), "Double start must be rejected")

	engine.Stop()
	assert.False(t, engine.IsRunning())
}

func TestSyncLogRecordsLifecycle(t *testing.T) {
	transport := &mockTransport{failures: 1}
	engine, subs, db := newTestEngine(t, transport, true)

	_, err := engine.SubmitTally(context.Background(), `{"vote_batch":{"id":"b1"}}`, "")
	require.NoError(t, err)

	// Retry the failed record on a second sweep
	assert.True(t, engine.AttemptSync(context.Background()))

	count, err := subs.CountPending()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	entries, err := repositories.NewSyncLogRepository(db).List(10)
	require.NoError(t, err)

	actions := make(map[string]int)
	for _, e := range entries {
		actions[e.Action]++
	}
	assert.Equal(t, 1, actions[database.LogActionSubmit])
	assert.Equal(t, 1, actions[database.LogActionSyncFail])
	assert.Equal(t, 1, actions[database.LogActionSyncSuccess])
}

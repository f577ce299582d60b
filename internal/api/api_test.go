package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tally-agent/internal/connectivity"
	"tally-agent/internal/database"
	"tally-agent/internal/database/repositories"
	"tally-agent/internal/prefetch"
	"tally-agent/internal/syncd"
	"tally-agent/internal/upstream"
	"tally-agent/pkg/config"
	"tally-agent/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRouter wires a full services container against a temp database and an
// unreachable upstream, so every submit lands in the offline queue.
func newTestRouter(t *testing.T) (*gin.Engine, *sql.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Database = config.DatabaseConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "api-test.db"),
	}
	cfg.Upstream = config.UpstreamConfig{
		BaseURL:        "http://127.0.0.1:1",
		RequestTimeout: time.Second,
	}

	db, err := database.NewConnection(&cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db))

	log := logger.NewLogger("error", "")
	submissionRepo := repositories.NewSubmissionRepository(db)
	syncLogRepo := repositories.NewSyncLogRepository(db)
	cacheRepo := repositories.NewCacheRepository(db)

	upstreamClient := upstream.NewClient(&cfg.Upstream)
	monitor := connectivity.NewMonitor(upstreamClient, time.Minute, log)
	engine := syncd.NewEngine(submissionRepo, syncLogRepo, upstreamClient, monitor.IsOnline, time.Hour, log)
	statusObserver := connectivity.NewStatusObserver(monitor, submissionRepo, time.Minute, log)
	prefetcher := prefetch.NewPrefetcher(upstreamClient, cacheRepo, log)

	services := NewServices(db, engine, monitor, statusObserver, upstreamClient, prefetcher, log, cfg)

	router := gin.New()
	SetupRoutes(router, services)
	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func balancedState() map[string]interface{} {
	return map[string]interface{}{
		"constituency_id": "const-1",
		"booth_ids":       []string{"booth-1"},
		"fptp": map[string]interface{}{
			"total_cast": 450,
			"invalid":    12,
			"votes":      map[string]int{"c1": 300, "c2": 138},
		},
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitTallyEndpoint(t *testing.T) {
	t.Run("OfflineSubmitSavesToQueue", func(t *testing.T) {
		router, db := newTestRouter(t)

		w := doJSON(t, router, http.MethodPost, "/api/v1/tally", balancedState())
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Success bool `json:"success"`
			Data    struct {
				LocalID int64 `json:"local_id"`
				Synced  bool  `json:"synced"`
				Offline bool  `json:"offline"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.True(t, resp.Data.Offline, "Unreachable upstream means the tally is saved offline")
		assert.False(t, resp.Data.Synced)

		count, err := repositories.NewSubmissionRepository(db).CountPending()
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("UnbalancedTallyRejected", func(t *testing.T) {
		router, db := newTestRouter(t)

		state := balancedState()
		state["fptp"] = map[string]interface{}{
			"total_cast": 450,
			"invalid":    12,
			"votes":      map[string]int{"c1": 100},
		}

		w := doJSON(t, router, http.MethodPost, "/api/v1/tally", state)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "TALLY_NOT_BALANCED")

		// A rejected tally must never reach the queue
		count, err := repositories.NewSubmissionRepository(db).CountPending()
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("NoTrackRejected", func(t *testing.T) {
		router, _ := newTestRouter(t)

		state := balancedState()
		delete(state, "fptp")

		w := doJSON(t, router, http.MethodPost, "/api/v1/tally", state)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "NO_TRACK_PRESENT")
	})
}

func TestDiscrepancyEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	state := balancedState()
	state["registered_voters"] = 12500
	state["pr"] = map[string]interface{}{
		"total_cast": 820,
		"invalid":    20,
		"votes":      map[string]int{"p1": 800},
	}

	w := doJSON(t, router, http.MethodPost, "/api/v1/tally/discrepancy", state)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Applicable  bool `json:"applicable"`
			Discrepancy struct {
				Difference int  `json:"difference"`
				Threshold  int  `json:"threshold"`
				Flagged    bool `json:"flagged"`
			} `json:"discrepancy"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Applicable)
	assert.Equal(t, 370, resp.Data.Discrepancy.Difference)
	assert.Equal(t, 250, resp.Data.Discrepancy.Threshold)
	assert.True(t, resp.Data.Discrepancy.Flagged)
}

func TestStatusEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	// Enqueue one tally so the banner has something to report
	w := doJSON(t, router, http.MethodPost, "/api/v1/tally", balancedState())
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Online       bool `json:"online"`
			PendingCount int  `json:"pending_count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Online)
}

func TestDataEndpoints(t *testing.T) {
	router, db := newTestRouter(t)

	cacheRepo := repositories.NewCacheRepository(db)
	require.NoError(t, cacheRepo.UpsertCandidates([]database.CachedCandidate{
		{ID: "c1", Name: "Candidate One", ConstituencyID: "const-1"},
	}))

	t.Run("MissingParamRejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/data/candidates", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("CachedCandidatesServed", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/data/candidates?constituency_id=const-1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Candidate One")
	})

	t.Run("EmptyCacheIsNotAnError", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/data/booths?station_id=unknown", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestSyncLogEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	// A submit writes one audit entry
	w := doJSON(t, router, http.MethodPost, "/api/v1/tally", balancedState())
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/synclog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "submit")
}

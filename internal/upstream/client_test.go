package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tally-agent/internal/database"
	"tally-agent/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.UpstreamConfig{
		BaseURL:        baseURL,
		AgentToken:     "test-token",
		RequestTimeout: 5 * time.Second,
	})
}

func TestClientSend(t *testing.T) {
	t.Run("CarriesIdempotencyKeyAndAuth", func(t *testing.T) {
		var gotKey, gotAuth, gotPayload string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/votes", r.URL.Path)
			gotKey = r.Header.Get("X-Idempotency-Key")
			gotAuth = r.Header.Get("Authorization")

			var body struct {
				Payload string `json:"payload"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			gotPayload = body.Payload

			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		sub := &database.PendingSubmission{
			LocalID: 1,
			Payload: `{"vote_batch":{"id":"batch-abc"},"constituency_id":"const-1"}`,
		}

		require.NoError(t, client.Send(context.Background(), sub))
		assert.Equal(t, "batch-abc", gotKey, "Batch id doubles as the idempotency key")
		assert.Equal(t, "Bearer test-token", gotAuth)
		assert.JSONEq(t, sub.Payload, gotPayload, "Payload must pass through unchanged")
	})

	t.Run("NonSuccessStatusIsAFailure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		err := client.Send(context.Background(), &database.PendingSubmission{Payload: "{}"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("UnreachableServerIsAFailure", func(t *testing.T) {
		client := newTestClient("http://127.0.0.1:1")
		err := client.Send(context.Background(), &database.PendingSubmission{Payload: "{}"})
		assert.Error(t, err)
	})
}

func TestClientPing(t *testing.T) {
	t.Run("HealthyServer", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/health", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		assert.NoError(t, newTestClient(server.URL).Ping(context.Background()))
	})

	t.Run("ServerErrorMeansUnreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		assert.Error(t, newTestClient(server.URL).Ping(context.Background()))
	})
}

func TestClientLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth", r.URL.Path)

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))

		if creds["phone"] != "9800000000" || creds["pin"] != "1234" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"agent": map[string]string{
				"id":                 "agent-1",
				"name":               "Test Agent",
				"phone":              "9800000000",
				"constituency_id":    "const-1",
				"constituency_label": "Kathmandu-1",
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	session, err := client.Login(context.Background(), "9800000000", "1234")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", session.ID)
	assert.Equal(t, "const-1", session.ConstituencyID)
	assert.Equal(t, "Kathmandu-1", session.ConstituencyLabel)

	_, err = client.Login(context.Background(), "9800000000", "9999")
	assert.Error(t, err)
}

func TestClientFetchReferenceData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/data/candidates":
			assert.Equal(t, "const-1", r.URL.Query().Get("constituency_id"))
			json.NewEncoder(w).Encode([]database.CachedCandidate{
				{ID: "c1", Name: "Candidate One", ConstituencyID: "const-1"},
			})
		case "/api/data/parties":
			json.NewEncoder(w).Encode([]database.CachedParty{{ID: "p1", Name: "Party A"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	candidates, err := client.FetchCandidates(context.Background(), "const-1")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "c1", candidates[0].ID)

	parties, err := client.FetchParties(context.Background())
	require.NoError(t, err)
	assert.Len(t, parties, 1)

	_, err = client.FetchBooths(context.Background(), "const-1")
	assert.Error(t, err, "A 404 from the server must surface as an error")
}

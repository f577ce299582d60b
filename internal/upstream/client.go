package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"tally-agent/internal/database"
	"tally-agent/pkg/config"
)

// Client talks to the central office server. All calls carry the configured
// request timeout through the underlying http.Client so a dead link cannot
// hang a sync sweep indefinitely.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a new central office client
func NewClient(cfg *config.UpstreamConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.AgentToken,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Send transmits one queued submission. Any network error or non-2xx status
// is a transmission failure; the caller retries on a later sweep. The batch id
// inside the payload is surfaced as an idempotency key so a lost
// acknowledgment cannot double-count a tally server-side.
func (c *Client) Send(ctx context.Context, sub *database.PendingSubmission) error {
	body, err := json.Marshal(struct {
		Payload     string `json:"payload"`
		ImageBase64 string `json:"image_base64,omitempty"`
	}{
		Payload:     sub.Payload,
		ImageBase64: sub.ImageBase64,
	})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/votes", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := batchID(sub.Payload); key != "" {
		req.Header.Set("X-Idempotency-Key", key)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return nil
}

// Ping checks whether the central office server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return nil
}

// AgentSession is the server's answer to a successful login.
type AgentSession struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	ConstituencyID    string `json:"constituency_id"`
	ConstituencyLabel string `json:"constituency_label"`
}

// Login authenticates a field agent by phone and PIN.
func (c *Client) Login(ctx context.Context, phone, pin string) (*AgentSession, error) {
	body, err := json.Marshal(map[string]string{"phone": phone, "pin": pin})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed: HTTP %d", resp.StatusCode)
	}

	var result struct {
		Success bool         `json:"success"`
		Agent   AgentSession `json:"agent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("login rejected by server")
	}

	return &result.Agent, nil
}

// FetchCandidates retrieves the candidate list for a constituency.
func (c *Client) FetchCandidates(ctx context.Context, constituencyID string) ([]database.CachedCandidate, error) {
	var out []database.CachedCandidate
	err := c.getJSON(ctx, "/api/data/candidates?constituency_id="+url.QueryEscape(constituencyID), &out)
	return out, err
}

// FetchStations retrieves the polling stations for a constituency.
func (c *Client) FetchStations(ctx context.Context, constituencyID string) ([]database.CachedPollingStation, error) {
	var out []database.CachedPollingStation
	err := c.getJSON(ctx, "/api/data/stations?constituency_id="+url.QueryEscape(constituencyID), &out)
	return out, err
}

// FetchBooths retrieves the polling booths for a constituency.
func (c *Client) FetchBooths(ctx context.Context, constituencyID string) ([]database.CachedPollingBooth, error) {
	var out []database.CachedPollingBooth
	err := c.getJSON(ctx, "/api/data/booths?constituency_id="+url.QueryEscape(constituencyID), &out)
	return out, err
}

// FetchParties retrieves the global party list.
func (c *Client) FetchParties(ctx context.Context) ([]database.CachedParty, error) {
	var out []database.CachedParty
	err := c.getJSON(ctx, "/api/data/parties", &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// batchID extracts the client batch id from an otherwise opaque payload.
// Only the transport looks inside the payload, and only for this key.
func batchID(payload string) string {
	var probe struct {
		VoteBatch struct {
			ID string `json:"id"`
		} `json:"vote_batch"`
	}
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return ""
	}
	return probe.VoteBatch.ID
}

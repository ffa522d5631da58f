// History correlation client for the external playback-history log.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
)

// HistoryClient implements [History] against the history correlation
// endpoints. The backend computes completion from the reported position and
// duration; this client only ferries the numbers.
type HistoryClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHistoryClient creates a history client for the given base URL.
func NewHistoryClient(baseURL string, client *http.Client) *HistoryClient {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HistoryClient{baseURL: baseURL, httpClient: client}
}

type historyStartRequest struct {
	UserID string       `json:"user_id"`
	Track  models.Track `json:"track"`
	Source string       `json:"source"`
}

type historyStartResponse struct {
	HistoryID string `json:"history_id"`
}

type historyCompleteRequest struct {
	UserID     string `json:"user_id"`
	HistoryID  string `json:"history_id"`
	PositionMS int64  `json:"position_ms"`
	DurationMS int64  `json:"duration_ms"`
}

// Start opens a history entry for the track and returns its correlation id.
func (h *HistoryClient) Start(ctx context.Context, userID string, track models.Track, source string) (string, error) {
	var resp historyStartResponse
	err := h.post(ctx, "/history/start", historyStartRequest{
		UserID: userID,
		Track:  track,
		Source: source,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.HistoryID == "" {
		return "", fmt.Errorf("%w: history start returned no id", shared.ErrAPIRequest)
	}
	return resp.HistoryID, nil
}

// Complete finalizes a history entry with the last observed position.
func (h *HistoryClient) Complete(ctx context.Context, userID, historyID string, positionMS, durationMS int64) error {
	return h.post(ctx, "/history/complete", historyCompleteRequest{
		UserID:     userID,
		HistoryID:  historyID,
		PositionMS: positionMS,
		DurationMS: durationMS,
	}, nil)
}

// post performs a JSON POST and decodes the response into result when non-nil.
func (h *HistoryClient) post(ctx context.Context, path string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: history API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

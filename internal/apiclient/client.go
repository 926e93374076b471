// Package apiclient pushes finished sessions to a remote OpenPomo server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/yabswannalearn/OpenPomo/internal/model"
)

const requestTimeout = 5 * time.Second

// SessionPayload is the wire shape for a logged session.
type SessionPayload struct {
	Mode            string    `json:"mode"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int       `json:"duration_seconds"`
	TaskID          string    `json:"task_id,omitempty"`
	Completed       bool      `json:"completed"`
}

// Client logs sessions to a remote server, fire-and-forget. A network or
// server failure never blocks or rolls back the engine's mode advance.
type Client struct {
	baseURL    string
	token      string
	taskID     string
	httpClient *http.Client
	now        func() time.Time
}

// New creates a client for the given base URL. An empty URL yields a nil
// client; a nil client ignores all completions.
func New(baseURL, token, taskID string) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		taskID:     taskID,
		httpClient: &http.Client{Timeout: requestTimeout},
		now:        time.Now,
	}
}

// PhaseCompleted pushes the finished phase in the background.
func (c *Client) PhaseCompleted(mode model.Mode, durationSeconds int) {
	if c == nil {
		return
	}
	ended := c.now()
	payload := SessionPayload{
		Mode:            string(mode),
		StartedAt:       ended.Add(-time.Duration(durationSeconds) * time.Second),
		EndedAt:         ended,
		DurationSeconds: durationSeconds,
		Completed:       true,
	}
	if mode == model.ModeFocus {
		payload.TaskID = c.taskID
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := c.LogSession(ctx, payload); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync session: %v\n", err)
		}
	}()
}

// LogSession posts one session to the server.
func (c *Client) LogSession(ctx context.Context, payload SessionPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sessions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post session: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("server rejected session: %s", resp.Status)
	}
	return nil
}

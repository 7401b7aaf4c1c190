// Package backend is the REST client for the follow-up automation backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/naarad/internal/apperr"
	"github.com/starford/naarad/internal/models"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// Client talks to the backend under a single base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for baseURL. A zero timeout means none.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// UploadResult is the backend's answer to an upload.
type UploadResult struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// ToggleResult is the backend's answer to an auto-toggle.
type ToggleResult struct {
	Status string `json:"status"`
	Auto   bool   `json:"auto"`
}

// StatusResponse is the generic acknowledgement returned by write endpoints.
type StatusResponse struct {
	Status string `json:"status"`
}

// FetchClients returns the full client list.
func (c *Client) FetchClients(ctx context.Context) ([]models.Client, error) {
	var out []models.Client
	if err := c.do(ctx, "fetch clients", http.MethodGet, "/api/clients", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Client{}
	}
	return out, nil
}

// UploadClients posts the whole batch in one call.
func (c *Client) UploadClients(ctx context.Context, clients []models.Client) (*UploadResult, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "upload clients", http.MethodPost, "/api/clients/upload", clients, &raw); err != nil {
		var se *apperr.StatusError
		if errors.As(err, &se) {
			c.logger.Error("backend rejected upload",
				slog.Int("status", se.StatusCode),
				slog.String("body", se.Body))
		}
		return nil, fmt.Errorf("%w: %w", apperr.ErrUploadFailed, err)
	}
	// Older deployments echo the uploaded array instead of a summary.
	out := UploadResult{Count: len(clients)}
	_ = json.Unmarshal(raw, &out)
	return &out, nil
}

// SendReply records a manual reply for a client.
func (c *Client) SendReply(ctx context.Context, clientID, reply string) (*StatusResponse, error) {
	var out StatusResponse
	body := map[string]string{"reply": reply}
	if err := c.do(ctx, "send reply", http.MethodPost, clientPath(clientID, "reply"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleAuto sets the automation flag for a client.
func (c *Client) ToggleAuto(ctx context.Context, clientID string, auto bool) (*ToggleResult, error) {
	var out ToggleResult
	body := map[string]bool{"auto": auto}
	if err := c.do(ctx, "toggle auto", http.MethodPatch, clientPath(clientID, "auto-toggle"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClientHistory returns the interaction history for a client in stored order.
func (c *Client) ClientHistory(ctx context.Context, clientID string) ([]models.HistoryEntry, error) {
	var out []models.HistoryEntry
	if err := c.do(ctx, "client history", http.MethodGet, clientPath(clientID, "history"), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.HistoryEntry{}
	}
	return out, nil
}

// LogInteraction appends an arbitrary entry to a client's history.
func (c *Client) LogInteraction(ctx context.Context, clientID string, entry models.HistoryEntry) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.do(ctx, "log interaction", http.MethodPost, clientPath(clientID, "log"), entry, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func clientPath(id, action string) string {
	return "/api/clients/" + url.PathEscape(id) + "/" + action
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend call",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &apperr.StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexrabarts/ceo-agent/internal/api"
	"github.com/alexrabarts/ceo-agent/internal/tasks"
)

// Backend is where the TUI reads and changes tasks. It is either the HTTP
// API of a running agent or the task manager in this process.
type Backend interface {
	ListTasks(ctx context.Context, status string) ([]api.TaskResponse, error)
	SetStatus(ctx context.Context, ref, status string) (api.TaskResponse, error)
	Usage(ctx context.Context, days int) ([]api.UsageResponse, error)
}

// APIClient wraps HTTP calls to the remote API server
type APIClient struct {
	baseURL string
	authKey string
	client  *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL, authKey string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		authKey: authKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Helper to make authenticated requests and decode the JSON reply into out
func (c *APIClient) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.authKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *APIClient) ListTasks(ctx context.Context, status string) ([]api.TaskResponse, error) {
	path := "/api/tasks"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var out []api.TaskResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) SetStatus(ctx context.Context, ref, status string) (api.TaskResponse, error) {
	var out api.TaskResponse
	path := "/api/tasks/" + url.PathEscape(ref) + "/status"
	err := c.doRequest(ctx, http.MethodPost, path, api.StatusRequest{Status: status}, &out)
	return out, err
}

func (c *APIClient) Usage(ctx context.Context, days int) ([]api.UsageResponse, error) {
	var out []api.UsageResponse
	if err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/stats?days=%d", days), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LocalBackend reads the store directly, for running without the API server
type LocalBackend struct {
	tasks api.TaskService
	usage api.UsageSource
}

// NewLocalBackend wraps the task manager. usage may be nil.
func NewLocalBackend(taskService api.TaskService, usage api.UsageSource) *LocalBackend {
	return &LocalBackend{tasks: taskService, usage: usage}
}

func (b *LocalBackend) ListTasks(ctx context.Context, status string) ([]api.TaskResponse, error) {
	records, err := b.tasks.ListTasks(ctx, status)
	if err != nil {
		return nil, err
	}

	out := make([]api.TaskResponse, 0, len(records))
	for _, record := range records {
		out = append(out, api.NewTaskResponse(record))
	}
	return out, nil
}

func (b *LocalBackend) SetStatus(ctx context.Context, ref, status string) (api.TaskResponse, error) {
	parsed := tasks.ParseStatus(status)
	if !parsed.Known() {
		return api.TaskResponse{}, fmt.Errorf("invalid status %q", status)
	}

	record, err := b.tasks.SetStatus(ctx, ref, parsed)
	if err != nil {
		return api.TaskResponse{}, err
	}
	return api.NewTaskResponse(record), nil
}

func (b *LocalBackend) Usage(ctx context.Context, days int) ([]api.UsageResponse, error) {
	if b.usage == nil {
		return nil, nil
	}

	stats, err := b.usage.UsageStats(time.Now().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}

	out := make([]api.UsageResponse, 0, len(stats))
	for _, stat := range stats {
		out = append(out, api.UsageResponse(stat))
	}
	return out, nil
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shortsmith/internal/services"
)

// ErrDaemonUnavailable reports that the daemon API could not be reached.
var ErrDaemonUnavailable = errors.New("daemon unavailable")

// Client talks to the daemon HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient targets a daemon bind address such as "127.0.0.1:7487" or a full URL.
func NewClient(bind, token string) *Client {
	base := strings.TrimRight(strings.TrimSpace(bind), "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{baseURL: base, token: strings.TrimSpace(token), http: &http.Client{Timeout: 30 * time.Second}}
}

// Submit enqueues a script.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	var resp SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Status polls one job.
func (c *Client) Status(ctx context.Context, id string) (JobStatus, error) {
	var resp JobStatus
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id)+"/status", nil, &resp)
	return resp, err
}

// Describe fetches a job with scenes and config.
func (c *Client) Describe(ctx context.Context, id string) (Job, error) {
	var resp JobResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &resp)
	return resp.Job, err
}

// List fetches job summaries filtered by status.
func (c *Client) List(ctx context.Context, statuses ...string) ([]Job, error) {
	path := "/api/jobs"
	if len(statuses) > 0 {
		q := url.Values{}
		for _, s := range statuses {
			q.Add("status", s)
		}
		path += "?" + q.Encode()
	}
	var resp JobListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Edit replaces a job's scenes.
func (c *Client) Edit(ctx context.Context, id string, req EditRequest) (string, error) {
	var resp SubmitResponse
	if err := c.do(ctx, http.MethodPut, "/api/jobs/"+url.PathEscape(id)+"/scenes", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ClearFinished removes ready and failed jobs from the queue.
func (c *Client) ClearFinished(ctx context.Context) (int64, error) {
	var resp ClearResponse
	if err := c.do(ctx, http.MethodDelete, "/api/jobs", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// Retry requeues a failed job.
func (c *Client) Retry(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/retry", nil, nil)
}

// ReplaceVideos clears a scene's clips.
func (c *Client) ReplaceVideos(ctx context.Context, id string, sceneIndex int) error {
	path := "/api/jobs/" + url.PathEscape(id) + "/scenes/" + strconv.Itoa(sceneIndex) + "/videos"
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Plan compiles a script on the daemon.
func (c *Client) Plan(ctx context.Context, req SubmitRequest) (PlanPreview, error) {
	var resp PlanPreview
	err := c.do(ctx, http.MethodPost, "/api/plan", req, &resp)
	return resp, err
}

// Voices lists narration voices, optionally for one language.
func (c *Client) Voices(ctx context.Context, lang string) (VoiceListResponse, error) {
	path := "/api/voices"
	if lang = strings.TrimSpace(lang); lang != "" {
		path += "?language=" + url.QueryEscape(lang)
	}
	var resp VoiceListResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp, err
}

// DaemonStatus fetches the daemon runtime snapshot.
func (c *Client) DaemonStatus(ctx context.Context) (DaemonStatus, error) {
	var resp DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError rebuilds a typed error from an ErrorResponse body.
func decodeError(resp *http.Response) error {
	var payload ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(raw))
		if payload.Error == "" {
			payload.Error = resp.Status
		}
	}
	if marker := services.MarkerFor(services.Kind(payload.Kind)); marker != nil {
		return fmt.Errorf("%w: %s", marker, payload.Error)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("unauthorized: %s", payload.Error)
	}
	return fmt.Errorf("daemon returned %s: %s", resp.Status, payload.Error)
}

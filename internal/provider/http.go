package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	jobStatusInProgress = "in_progress"
	jobStatusDone       = "done"
	jobStatusFailed     = "failed"
)

// Config holds the credentials and timing knobs for the HTTP client.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	PollInterval time.Duration
	AwaitTimeout time.Duration
}

// HTTPClient implements Client against the provider's REST API.
type HTTPClient struct {
	cfg    Config
	client *http.Client
}

// NewHTTPClient creates an HTTPClient. The underlying http.Client
// timeout covers single requests; the await deadline is enforced
// separately in Await.
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.AwaitTimeout <= 0 {
		cfg.AwaitTimeout = 2 * time.Minute
	}
	return &HTTPClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *HTTPClient) authenticate(req *http.Request) {
	req.Header.Set("X-Api-Client-Id", c.cfg.ClientID)
	req.Header.Set("X-Api-Client-Secret", c.cfg.ClientSecret)
}

// Upload streams a source document to POST /assets.
func (c *HTTPClient) Upload(ctx context.Context, r io.Reader) (Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/assets", r)
	if err != nil {
		return Asset{}, fmt.Errorf("upload request: %w", err)
	}
	c.authenticate(req)
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := c.client.Do(req)
	if err != nil {
		return Asset{}, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Asset{}, statusError("upload", resp)
	}

	var asset Asset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return Asset{}, fmt.Errorf("decode upload response: %w", err)
	}
	return asset, nil
}

// Submit creates a job via POST /jobs.
func (c *HTTPClient) Submit(ctx context.Context, spec JobSpec) (JobHandle, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return JobHandle{}, fmt.Errorf("encode job spec: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return JobHandle{}, fmt.Errorf("submit request: %w", err)
	}
	c.authenticate(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return JobHandle{}, fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return JobHandle{}, statusError("submit", resp)
	}

	var handle JobHandle
	if err := json.NewDecoder(resp.Body).Decode(&handle); err != nil {
		return JobHandle{}, fmt.Errorf("decode submit response: %w", err)
	}
	return handle, nil
}

type jobStatus struct {
	Status string  `json:"status"`
	Error  string  `json:"error,omitempty"`
	Assets []Asset `json:"assets,omitempty"`
}

// Await polls GET /jobs/{id} until the job leaves in_progress or the
// await timeout elapses. Once submitted a job runs to completion
// server-side; there is no cancellation.
func (c *HTTPClient) Await(ctx context.Context, handle JobHandle) (Result, error) {
	deadline := time.Now().Add(c.cfg.AwaitTimeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	for {
		status, err := c.pollJob(ctx, handle)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, fmt.Errorf("job %s timed out after %s", handle.ID, c.cfg.AwaitTimeout)
			}
			return Result{}, err
		}

		switch status.Status {
		case jobStatusDone:
			if len(status.Assets) == 0 {
				return Result{}, fmt.Errorf("job %s completed with no output assets", handle.ID)
			}
			return Result{Assets: status.Assets}, nil
		case jobStatusFailed:
			return Result{}, fmt.Errorf("job %s failed: %s", handle.ID, status.Error)
		case jobStatusInProgress:
			// keep polling
		default:
			return Result{}, fmt.Errorf("job %s reported unknown status %q", handle.ID, status.Status)
		}

		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("job %s timed out after %s", handle.ID, c.cfg.AwaitTimeout)
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

func (c *HTTPClient) pollJob(ctx context.Context, handle JobHandle) (jobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/jobs/"+handle.ID, nil)
	if err != nil {
		return jobStatus{}, fmt.Errorf("poll request: %w", err)
	}
	c.authenticate(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return jobStatus{}, fmt.Errorf("poll job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return jobStatus{}, statusError("poll", resp)
	}

	var status jobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return jobStatus{}, fmt.Errorf("decode job status: %w", err)
	}
	return status, nil
}

// Fetch opens the content stream of a result asset.
func (c *HTTPClient) Fetch(ctx context.Context, asset Asset) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/assets/"+asset.ID+"/content", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch request: %w", err)
	}
	c.authenticate(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError("fetch", resp)
	}
	return resp.Body, nil
}

// statusError turns a non-2xx response into an error carrying the
// provider's own message, so the classifier can pattern-match it. A few
// statuses get an explicit hint because their bodies are often empty.
func statusError(stage string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		if msg == "" {
			msg = "quota exceeded"
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		if msg == "" {
			msg = "unauthorized"
		}
	case http.StatusServiceUnavailable:
		if msg == "" {
			msg = "service unavailable"
		}
	}

	return fmt.Errorf("provider %s: status %d: %s", stage, resp.StatusCode, msg)
}

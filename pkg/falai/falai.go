// Package falai is a thin client for the fal.ai queue API. The settlement
// core only consumes the terminal outcome of a job; queue mechanics stay in
// this package.
package falai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// JobResult is the terminal outcome of one generation job.
type JobResult struct {
	Success     bool
	ResultURL   string
	RequestID   string
	ErrorDetail string
}

// Runner submits a generation job and blocks until a terminal outcome.
type Runner interface {
	Run(ctx context.Context, modelID string, input map[string]any) (*JobResult, error)
}

type Client struct {
	apiKey       string
	queueBaseURL string
	httpClient   *http.Client
	pollInterval time.Duration
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:       apiKey,
		queueBaseURL: "https://queue.fal.run",
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		pollInterval: 3 * time.Second,
	}
}

type submitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// Run submits the job and polls until it completes or ctx is cancelled.
func (c *Client) Run(ctx context.Context, modelID string, input map[string]any) (*JobResult, error) {
	sub, err := c.submit(ctx, modelID, input)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, err := c.getJSON(ctx, sub.StatusURL)
		if err != nil {
			return nil, err
		}
		var st statusResponse
		if err := json.Unmarshal(status, &st); err != nil {
			return nil, fmt.Errorf("falai: decoding status: %w", err)
		}

		switch st.Status {
		case "COMPLETED":
			raw, err := c.getJSON(ctx, sub.ResponseURL)
			if err != nil {
				return nil, err
			}
			return c.parseResult(sub.RequestID, raw), nil
		case "FAILED", "CANCELLED":
			return &JobResult{
				Success:     false,
				RequestID:   sub.RequestID,
				ErrorDetail: fmt.Sprintf("job ended with status %s", st.Status),
			}, nil
		}
	}
}

func (c *Client) submit(ctx context.Context, modelID string, input map[string]any) (*submitResponse, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("falai: encoding input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queueBaseURL+"/"+modelID, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("falai: submit failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("falai: reading submit response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("falai: submit returned status %d: %s", resp.StatusCode, string(raw))
	}

	var sub submitResponse
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("falai: decoding submit response: %w", err)
	}
	if sub.RequestID == "" {
		return nil, fmt.Errorf("falai: submit response has no request id")
	}
	return &sub, nil
}

func (c *Client) getJSON(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("falai: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("falai: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("falai: unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

// parseResult pulls the artifact URL out of the provider response. Video
// models return {"video":{"url":...}}; image models return either an
// "images" array or a single "image" object.
func (c *Client) parseResult(requestID string, raw []byte) *JobResult {
	var payload struct {
		Video *struct {
			URL string `json:"url"`
		} `json:"video"`
		Image *struct {
			URL string `json:"url"`
		} `json:"image"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &JobResult{Success: false, RequestID: requestID, ErrorDetail: "unparseable provider response"}
	}

	switch {
	case payload.Video != nil && payload.Video.URL != "":
		return &JobResult{Success: true, RequestID: requestID, ResultURL: payload.Video.URL}
	case len(payload.Images) > 0 && payload.Images[0].URL != "":
		return &JobResult{Success: true, RequestID: requestID, ResultURL: payload.Images[0].URL}
	case payload.Image != nil && payload.Image.URL != "":
		return &JobResult{Success: true, RequestID: requestID, ResultURL: payload.Image.URL}
	}
	return &JobResult{Success: false, RequestID: requestID, ErrorDetail: "no artifact URL in provider response"}
}

// Package fal is a client for the fal.ai queue API.
//
// Jobs are submitted to {queue}/{model}; the queue answers with the request
// id and the URLs for polling status and fetching the result. The client
// never retries: transport failures and 5xx answers surface as
// ErrUnavailable, 429 as ErrQuotaExceeded.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"photo-studio-backend/internal/models"
)

var (
	ErrUnavailable   = errors.New("fal: service unavailable")
	ErrQuotaExceeded = errors.New("fal: quota exceeded")
)

// RequestError is a non-retryable rejection (4xx other than 429) from the
// queue, or the error body of a failed generation.
type RequestError struct {
	StatusCode int
	Detail     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("fal: request rejected with status %d: %s", e.StatusCode, e.Detail)
}

type Client struct {
	queueURL   string
	apiKey     string
	httpClient *http.Client
}

// Submission identifies a queued request.
type Submission struct {
	RequestID     string `json:"request_id"`
	StatusURL     string `json:"status_url"`
	ResponseURL   string `json:"response_url"`
	CancelURL     string `json:"cancel_url"`
	QueuePosition *int   `json:"queue_position,omitempty"`
}

// Queue states reported by the status endpoint.
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

type LogEntry struct {
	Message   string `json:"message"`
	Level     string `json:"level"`
	Timestamp string `json:"timestamp"`
}

type QueueStatus struct {
	Status        string     `json:"status"`
	QueuePosition *int       `json:"queue_position,omitempty"`
	ResponseURL   string     `json:"response_url,omitempty"`
	Logs          []LogEntry `json:"logs,omitempty"`
	Metrics       struct {
		InferenceTime *float64 `json:"inference_time,omitempty"`
	} `json:"metrics"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

func NewClient(queueURL, apiKey string) *Client {
	return &Client{
		queueURL: strings.TrimSuffix(queueURL, "/"),
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Submit queues a generation for model with the given input. When
// webhookURL is non-empty the queue calls it once the request finishes.
func (c *Client) Submit(ctx context.Context, model string, input map[string]any, webhookURL string) (Submission, error) {
	jsonData, err := json.Marshal(input)
	if err != nil {
		return Submission{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.queueURL + "/" + strings.Trim(model, "/")
	if webhookURL != "" {
		endpoint += "?fal_webhook=" + url.QueryEscape(webhookURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return Submission{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var sub Submission
	if err := c.do(req, &sub); err != nil {
		return Submission{}, fmt.Errorf("failed to submit to %s: %w", model, err)
	}
	if sub.RequestID == "" {
		return Submission{}, fmt.Errorf("%w: request_id is empty in response", ErrUnavailable)
	}
	if sub.StatusURL == "" {
		sub.StatusURL = c.requestURL(model, sub.RequestID) + "/status"
	}
	if sub.ResponseURL == "" {
		sub.ResponseURL = c.requestURL(model, sub.RequestID)
	}
	return sub, nil
}

// Status fetches the queue state of a submission.
func (c *Client) Status(ctx context.Context, sub Submission) (QueueStatus, error) {
	statusURL := sub.StatusURL
	if strings.Contains(statusURL, "?") {
		statusURL += "&logs=1"
	} else {
		statusURL += "?logs=1"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return QueueStatus{}, fmt.Errorf("failed to create request: %w", err)
	}

	var status QueueStatus
	if err := c.do(req, &status); err != nil {
		return QueueStatus{}, fmt.Errorf("failed to get status of %s: %w", sub.RequestID, err)
	}
	return status, nil
}

// Result fetches the output of a completed submission. A generation that
// failed on the provider side is reported as *RequestError.
func (c *Client) Result(ctx context.Context, sub Submission) (models.ProviderOutput, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sub.ResponseURL, nil)
	if err != nil {
		return models.ProviderOutput{}, fmt.Errorf("failed to create request: %w", err)
	}

	var out models.ProviderOutput
	if err := c.do(req, &out); err != nil {
		return models.ProviderOutput{}, fmt.Errorf("failed to get result of %s: %w", sub.RequestID, err)
	}
	return out, nil
}

// DownloadFile fetches a generated image. At most maxBytes are read when
// maxBytes is positive.
func (c *Client) DownloadFile(ctx context.Context, downloadURL string, maxBytes int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to execute request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("failed to download file: status %d, body: %s", resp.StatusCode, string(body))
	}

	var body io.Reader = resp.Body
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("file exceeds %d bytes", maxBytes)
	}

	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) requestURL(model, requestID string) string {
	// Request URLs are keyed on the application, i.e. the first two path
	// segments of the model id.
	parts := strings.SplitN(strings.Trim(model, "/"), "/", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return c.queueURL + "/" + strings.Join(parts, "/") + "/requests/" + requestID
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, errorDetail(body))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d, body: %s", ErrUnavailable, resp.StatusCode, string(body))
	case resp.StatusCode >= 400:
		return &RequestError{StatusCode: resp.StatusCode, Detail: errorDetail(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}
	return nil
}

// errorDetail extracts a readable message from a fal error body, whose
// "detail" is either a string or a list of validation entries.
func errorDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var entries []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &entries); err == nil && len(entries) > 0 {
		msgs := make([]string, 0, len(entries))
		for _, e := range entries {
			if len(e.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", e.Loc[len(e.Loc)-1], e.Msg))
			} else {
				msgs = append(msgs, e.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(envelope.Detail)
}

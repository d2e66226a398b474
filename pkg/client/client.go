// Package client is the Go SDK for the PersonaQuiz HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/PersonaQuiz/pkg/errors"
	dto "github.com/turtacn/PersonaQuiz/pkg/types/quiz"
)

const Version = "0.1.0"

// DefaultTimeout bounds every request unless WithTimeout or WithHTTPClient
// says otherwise.
const DefaultTimeout = 5 * time.Second

// Logger is the logging interface used by the Client.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}

// Client talks to a PersonaQuiz API server.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("personaquiz: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, e.Message, e.RequestID)
}

func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

func (e *APIError) IsServerError() bool { return e.StatusCode >= 500 && e.StatusCode < 600 }

// NewClient returns a client for baseURL. Requests are not retried unless
// WithRetryMax is given.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.InvalidParam("client: base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.InvalidParam("client: invalid base URL").WithCause(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.InvalidParam("client: base URL scheme must be http or https")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		userAgent:    "personaquiz-go-sdk/" + Version,
		logger:       noopLogger{},
		retryWaitMin: 200 * time.Millisecond,
		retryWaitMax: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server URL the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// GetQuestions fetches the ordered question set of testType in lang.
func (c *Client) GetQuestions(ctx context.Context, testType, lang string) ([]dto.Question, error) {
	path := "/questions/" + url.PathEscape(testType)
	if lang != "" {
		path += "?lang=" + url.QueryEscape(lang)
	}
	var out []dto.Question
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTests returns the catalog of available tests.
func (c *Client) ListTests(ctx context.Context, lang string) ([]dto.TestInfo, error) {
	path := "/tests"
	if lang != "" {
		path += "?lang=" + url.QueryEscape(lang)
	}
	var out []dto.TestInfo
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveProgress stores a progress snapshot.
func (c *Client) SaveProgress(ctx context.Context, req *dto.SaveProgressRequest) error {
	return c.post(ctx, "/save-progress", req, nil)
}

// GetProgress returns the stored snapshot of a session's test.
func (c *Client) GetProgress(ctx context.Context, sessionID, testType string) (*dto.SaveProgressRequest, error) {
	var out dto.SaveProgressRequest
	if err := c.get(ctx, "/progress/"+url.PathEscape(sessionID)+"/"+url.PathEscape(testType), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveResult stores a completed result, superseding any earlier one.
func (c *Client) SaveResult(ctx context.Context, req *dto.SaveResultRequest) error {
	return c.post(ctx, "/save-result", req, nil)
}

// GetResult fetches the latest result of a session's test.
func (c *Client) GetResult(ctx context.Context, sessionID, testType, lang string) (*dto.Result, error) {
	path := "/results/" + url.PathEscape(sessionID) + "/" + url.PathEscape(testType)
	if lang != "" {
		path += "?lang=" + url.QueryEscape(lang)
	}
	var out dto.Result
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportResult asks the server to render a PDF and returns its download URL.
func (c *Client) ExportResult(ctx context.Context, sessionID, testType, lang string) (*dto.ExportResponse, error) {
	path := "/results/" + url.PathEscape(sessionID) + "/" + url.PathEscape(testType) + "/export"
	if lang != "" {
		path += "?lang=" + url.QueryEscape(lang)
	}
	var out dto.ExportResponse
	if err := c.post(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.logger.Debugf("retry attempt %d after %v", attempt, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		requestID := uuid.New().String()
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Errorf("%s %s failed: %v", method, path, err)
			lastErr = err
			continue
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		c.logger.Debugf("%s %s %d (%v)", method, path, resp.StatusCode, time.Since(start))

		if resp.StatusCode >= 300 {
			apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}
			var er dto.ErrorResponse
			if len(respBody) > 0 && json.Unmarshal(respBody, &er) == nil && er.Code != "" {
				apiErr.Code = er.Code
				apiErr.Message = er.Message
			} else {
				apiErr.Message = strings.TrimSpace(string(respBody))
			}
			lastErr = apiErr
			if apiErr.IsServerError() {
				continue
			}
			return apiErr
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to unmarshal response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if d > c.retryWaitMax {
		d = c.retryWaitMax
	}
	if q := int64(d / 4); q > 0 {
		d += time.Duration(rand.Int63n(q))
	}
	return d
}

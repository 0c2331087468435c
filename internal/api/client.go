package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/internal/config"
	"github.com/lamim/nlpforge/internal/metrics"
	"github.com/lamim/nlpforge/pkg/models"
)

const (
	// DefaultBaseRetryDelay is the base delay for exponential backoff
	DefaultBaseRetryDelay = 1 * time.Second
	// RateLimitBackoffMultiplier is the multiplier for rate limit backoff (3^n)
	RateLimitBackoffMultiplier = 3
	// maxErrorBodyBytes caps how much of an unparseable error body ends up in a message
	maxErrorBodyBytes = 512
)

// Client talks to the NLP model-building service
type Client struct {
	baseURL         string
	token           string
	httpClient      *http.Client
	rateLimiterPool *RateLimiterPool
	rateLimit       int
	logger          *slog.Logger
	metrics         *metrics.Collector
	maxRetries      int
	baseRetryDelay  time.Duration
	maxBackoff      time.Duration
}

// NewClient creates a new service client from the [service] config section
func NewClient(cfg config.ServiceConfig, token string, logger *slog.Logger) *Client {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout(),
		},
		rateLimiterPool: NewRateLimiterPool(cfg.BurstPercent),
		rateLimit:       cfg.RateLimitPerMinute,
		logger:          logger,
		maxRetries:      maxRetries,
		baseRetryDelay:  DefaultBaseRetryDelay,
		maxBackoff:      cfg.MaxBackoff(),
	}
}

// SetMetrics attaches a metrics collector
func (c *Client) SetMetrics(m *metrics.Collector) {
	c.metrics = m
}

// BaseURL returns the service address the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AnalyzeProblem asks the service for a domain and clarifying questions.
// A response without domain or questions is a protocol error.
func (c *Client) AnalyzeProblem(ctx context.Context, problem string, provider models.LLMProvider) (*Analysis, error) {
	req := AnalyzeRequest{Problem: problem, LLMProvider: provider}
	var resp AnalyzeResponse
	if err := c.call(ctx, EndpointAnalyze, http.MethodPost, "/api/analyze-problem", req, &resp, true); err != nil {
		return nil, err
	}
	return ValidateAnalysis(resp)
}

// ValidateAnalysis checks an analyze-problem response and normalizes its questions
func ValidateAnalysis(resp AnalyzeResponse) (*Analysis, error) {
	if resp.Domain == "" || resp.Questions == nil {
		return nil, apperr.Protocol("missing domain or questions")
	}
	return &Analysis{
		Domain:    resp.Domain,
		Questions: models.NormalizeQuestions(*resp.Questions),
	}, nil
}

// GenerateEntitiesIntents asks the service to propose entities and intents
func (c *Client) GenerateEntitiesIntents(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var resp GenerateResponse
	if err := c.call(ctx, EndpointGenerate, http.MethodPost, "/api/generate-entities-intents", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartTraining submits a training job and returns its id. Never retried.
func (c *Client) StartTraining(ctx context.Context, req StartTrainingRequest) (string, error) {
	var resp StartTrainingResponse
	if err := c.call(ctx, EndpointStart, http.MethodPost, "/api/start-training", req, &resp, false); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", apperr.Protocol("start-training response has no job_id")
	}
	return resp.JobID, nil
}

// GetTrainingStatus fetches one status snapshot. Never retried.
func (c *Client) GetTrainingStatus(ctx context.Context, jobID string) (models.TrainingJob, error) {
	var job models.TrainingJob
	if err := c.call(ctx, EndpointStatus, http.MethodGet, "/api/training-status/"+url.PathEscape(jobID), nil, &job, false); err != nil {
		return models.TrainingJob{}, err
	}
	if job.JobID == "" {
		job.JobID = jobID
	}
	return job, nil
}

// StopTraining asks the service to stop a job and returns its message. Never retried.
// A reply whose status is not stopped (the job was queued, evaluating or had
// already finished) is a refusal and comes back as a stop error.
func (c *Client) StopTraining(ctx context.Context, jobID string) (string, error) {
	var resp StopResponse
	if err := c.call(ctx, EndpointStop, http.MethodPost, "/api/training-stop/"+url.PathEscape(jobID), nil, &resp, false); err != nil {
		return "", err
	}
	if resp.Status != models.StatusStopped {
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("service answered with status %q", resp.Status)
		}
		return "", apperr.Stop(msg, nil).WithDetails("status", string(resp.Status))
	}
	return resp.Message, nil
}

// ListTrainingJobs fetches the registry counters. Never retried.
func (c *Client) ListTrainingJobs(ctx context.Context) (models.RegistrySnapshot, error) {
	var snap models.RegistrySnapshot
	if err := c.call(ctx, EndpointJobs, http.MethodGet, "/api/training-jobs", nil, &snap, false); err != nil {
		return models.RegistrySnapshot{}, err
	}
	return snap, nil
}

// GetPresets fetches the preset catalogue keyed by preset id
func (c *Client) GetPresets(ctx context.Context) (map[string]models.Preset, error) {
	presets := make(map[string]models.Preset)
	if err := c.call(ctx, EndpointPresets, http.MethodGet, "/api/presets", nil, &presets, true); err != nil {
		return nil, err
	}
	return presets, nil
}

// Health checks that the service is up
func (c *Client) Health(ctx context.Context) error {
	var resp HealthResponse
	if err := c.call(ctx, EndpointHealth, http.MethodGet, "/api/health", nil, &resp, true); err != nil {
		return err
	}
	if resp.Status != "healthy" {
		return &APIError{Message: fmt.Sprintf("service reports status %q", resp.Status)}
	}
	return nil
}

// call runs one logical request, retrying with backoff only when retry is set
func (c *Client) call(ctx context.Context, endpoint, method, path string, in, out interface{}, retry bool) error {
	// Wait for rate limiter
	waitStart := time.Now()
	if err := c.rateLimiterPool.Wait(ctx, endpoint, c.rateLimit); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	c.metrics.RecordRateLimiterWait(endpoint, time.Since(waitStart))

	attempts := 0
	if retry {
		attempts = c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= attempts; attempt++ {
		if attempt > 0 {
			sleepDuration := c.backoff(attempt, lastErr)

			c.logger.Warn("Retrying API request",
				"attempt", attempt,
				"max_retries", attempts,
				"backoff", sleepDuration,
				"endpoint", endpoint,
				"is_rate_limit", isRateLimitError(lastErr))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleepDuration):
			}
		}

		start := time.Now()
		err := c.doRequest(ctx, method, path, in, out)
		c.metrics.RecordAPIRequest(endpoint, time.Since(start), err == nil)
		if err == nil {
			return nil
		}

		lastErr = err

		// Check if error is retryable
		if !isRetryable(err) {
			return err
		}
	}

	if attempts == 0 {
		return lastErr
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// backoff returns the delay before the given retry attempt, with ±10% jitter
func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseRetryDelay

	// Rate limit errors back off harder (3^n)
	if isRateLimitError(lastErr) {
		backoff = time.Duration(math.Pow(RateLimitBackoffMultiplier, float64(attempt))) * c.baseRetryDelay
	}
	if c.maxBackoff > 0 && backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}

	jitter := time.Duration(float64(backoff) * 0.1 * (2*rand.Float64() - 1))
	return backoff + jitter
}

func (c *Client) doRequest(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf := getBuffer()
		defer putBuffer(buf)

		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = buf
	}

	endpoint := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	httpReq.Header.Set("Accept", "application/json")
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.logger.Debug("API request", "method", method, "endpoint", endpoint, "has_token", c.token != "")

	// Send request
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &APIError{
			Message:    fmt.Sprintf("request failed: %v", err),
			StatusCode: 0,
			Retryable:  true,
		}
	}
	defer func() {
		if err := httpResp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	// Read response body
	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Check status code
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return newAPIError(httpResp.StatusCode, respBody)
	}

	// Parse response
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperr.Wrap(err, apperr.KindProtocol, "failed to parse response")
	}

	return nil
}

func newAPIError(statusCode int, respBody []byte) *APIError {
	isRetryable := isStatusCodeRetryable(statusCode)

	var errResp ErrorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil {
		if msg := errResp.Message(); msg != "" {
			return &APIError{
				Message:    msg,
				StatusCode: statusCode,
				Retryable:  isRetryable,
			}
		}
	}

	text := strings.TrimSpace(string(respBody))
	if len(text) > maxErrorBodyBytes {
		text = text[:maxErrorBodyBytes] + "..."
	}
	if text == "" {
		text = http.StatusText(statusCode)
	}
	return &APIError{
		Message:    fmt.Sprintf("API request failed with status %d: %s", statusCode, text),
		StatusCode: statusCode,
		Retryable:  isRetryable,
	}
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}

func isRateLimitError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

func isStatusCodeRetryable(statusCode int) bool {
	// Retry on rate limits and server errors
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusInternalServerError ||
		statusCode == http.StatusBadGateway ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout
}

// APIError represents an error returned by the service
type APIError struct {
	Message    string
	StatusCode int
	Retryable  bool
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MimeLyc/blueprint-sub-translator/pkg/log"
)

// ModelUnavailableError is returned when the gateway has exhausted its
// retry budget against the provider. It wraps the last underlying cause
// and is distinguishable from input or validation errors.
type ModelUnavailableError struct {
	Attempts int
	Waited   time.Duration
	Err      error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable after %d attempts (waited %s): %v", e.Attempts, e.Waited, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Err
}

// Client wraps a single external text-generation call with retry/backoff.
// Stateless across calls except for the initialized HTTP handle;
// safe for concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string

	// sleep is injectable so retry timing is testable with a recorder.
	sleep func(ctx context.Context, d time.Duration)
}

// NewClient creates a new LLM gateway client with the given configuration
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client := &Client{
		config:  config,
		baseURL: config.APIURL,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
		sleep: sleepContext,
	}

	return client, nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Invoke performs one prompt against the provider and returns the raw
// assistant text.
//
// Transport and provider failures are retried up to the configured
// attempt count with exponential backoff (initialBackoff * 2^(attempt-1)).
// Exhausting the budget yields a ModelUnavailableError. A missing model
// name is a programmer error and is never retried.
func (c *Client) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.config.Model
	}
	if model == "" {
		return "", fmt.Errorf("model name is required")
	}

	request := ChatRequest{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.temperature(opts),
	}
	if opts.Structured {
		request.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	maxAttempts := c.config.maxRetries()
	backoff := c.config.initialBackoff()

	var waited time.Duration
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		content, err := c.chatCompletion(ctx, request)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		delay := backoff << (attempt - 1)
		log.Warn("LLM call attempt %d/%d failed, retrying in %s: %v", attempt, maxAttempts, delay, err)
		c.sleep(ctx, delay)
		waited += delay
	}

	log.Error("LLM call failed after %d attempts (waited %s): %v", maxAttempts, waited, lastErr)
	return "", &ModelUnavailableError{
		Attempts: maxAttempts,
		Waited:   waited,
		Err:      lastErr,
	}
}

// Embed returns one embedding vector per input text.
// Used for glossary enrichment only, never on the translation path.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	model := c.config.EmbeddingModel
	if model == "" {
		return nil, fmt.Errorf("embedding model is not configured")
	}

	body, err := json.Marshal(EmbeddingRequest{Model: model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	raw, err := c.post(ctx, "/embeddings", body)
	if err != nil {
		return nil, err
	}

	var response EmbeddingResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("failed to parse embeddings response: %w", err)
	}
	if response.Error != nil && response.Error.Message != "" {
		return nil, response.Error
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response has %d vectors for %d inputs", len(response.Data), len(texts))
	}

	vectors := make([][]float64, len(texts))
	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embeddings response index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// chatCompletion makes one chat completions call and extracts the
// assistant content.
func (c *Client) chatCompletion(ctx context.Context, request ChatRequest) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	raw, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return "", err
	}

	var response ChatResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if response.Error != nil && response.Error.Message != "" {
		return "", response.Error
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return response.Choices[0].Message.Content, nil
}

// post makes a raw HTTP request to the configured LLM API
func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.config.GetHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(responseBody))
	}

	return responseBody, nil
}

func (c *Client) temperature(opts InvokeOptions) float64 {
	if opts.Temperature > 0 && opts.Temperature <= 2 {
		return opts.Temperature
	}
	return c.config.Temperature
}

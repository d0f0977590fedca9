// internal/common/genai/client.go
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"djia-agent/internal/common/logger"
)

var (
	ErrTimeout          = errors.New("LLM_TIMEOUT")
	ErrGenerationFailed = errors.New("LLM_SYNTHESIS_FAILED")
)

// Client is the text generation boundary used by every pipeline stage that
// talks to the model.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds settings for the GenAI HTTP client.
type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
}

// HTTPClient calls the GenAI gateway over plain HTTP.
type HTTPClient struct {
	config Config
	client *http.Client
	logger logger.Logger
}

func NewHTTPClient(config Config, log logger.Logger) *HTTPClient {
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	return &HTTPClient{
		config: config,
		client: &http.Client{
			// Rely on context deadlines, not a client-level timeout
		},
		logger: log.With(map[string]interface{}{
			"component": "genai",
		}),
	}
}

// Generate sends the prompt and returns the model's text response.
// Transient HTTP failures are retried with exponential backoff; a context
// deadline surfaces as ErrTimeout.
func (c *HTTPClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	requestBody := map[string]interface{}{
		"prompt":      prompt,
		"max_tokens":  c.config.MaxTokens,
		"temperature": c.config.Temperature,
	}

	body, _ := json.Marshal(requestBody)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
				// Continue with retry
			case <-ctx.Done():
				return "", ErrTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/api/ai/generate", bytes.NewBuffer(body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return "", ErrTimeout
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
	}

	if resp == nil {
		return "", fmt.Errorf("%w: no successful response after retries", ErrGenerationFailed)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Text       string   `json:"text"`
		Confidence float64  `json:"confidence"`
		Sources    []string `json:"sources"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrGenerationFailed, err)
	}

	text := strings.TrimSpace(apiResponse.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty response text", ErrGenerationFailed)
	}

	c.logger.Debug("generation completed", map[string]interface{}{
		"promptLength":   len(prompt),
		"responseLength": len(text),
	})

	return text, nil
}

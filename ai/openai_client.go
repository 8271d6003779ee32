package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"brandtrack/internal/errors"
	"brandtrack/internal/logx"
	"brandtrack/ports"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient talks to the OpenAI chat completions API directly over HTTP.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	timeout     time.Duration
	httpClient  *http.Client
	log         *logx.Logger
}

// NewOpenAIClient builds a client for the given model. Temperature applies to
// every completion; the per-call token cap comes from the caller.
func NewOpenAIClient(apiKey, model string, temperature float64) *OpenAIClient {
	timeout := 180 * time.Second
	return &OpenAIClient{
		apiKey:      apiKey,
		baseURL:     openAIBaseURL,
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		httpClient:  &http.Client{Timeout: timeout},
		log:         logx.Default.With("OpenAIClient"),
	}
}

// Provider returns the model identifier used as the model_name on stored
// responses.
func (c *OpenAIClient) Provider() string {
	return c.model
}

// ChatCompletion sends a prompt and returns the raw completion text.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := c.ChatCompletionWithUsage(ctx, prompt, maxTokens)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// ChatCompletionWithUsage sends a prompt and also reports token usage.
func (c *OpenAIClient) ChatCompletionWithUsage(ctx context.Context, prompt string, maxTokens int) (*ports.LLMResponse, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	type requestBody struct {
		Model               string    `json:"model"`
		Messages            []message `json:"messages"`
		Temperature         float64   `json:"temperature,omitempty"`
		MaxCompletionTokens int       `json:"max_completion_tokens,omitempty"`
	}

	reqBody := requestBody{
		Model: c.model,
		Messages: []message{
			{Role: "user", Content: prompt},
		},
		Temperature:         c.temperature,
		MaxCompletionTokens: maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.ProviderError(c.model, fmt.Errorf("failed to marshal request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, errors.ProviderError(c.model, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.log.Debug("Sending request - model=%s, promptLength=%d, maxTokens=%d", c.model, len(prompt), maxTokens)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.ProviderError(c.model, fmt.Errorf("request timeout after %v: %w", c.timeout, err))
		}
		return nil, errors.ProviderError(c.model, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ProviderError(c.model, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Error("API error - status=%d, body=%s", resp.StatusCode, truncate(string(body), 500))
		return nil, errors.ProviderError(c.model, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body)))
	}

	type openAIResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.ProviderError(c.model, fmt.Errorf("failed to parse response envelope: %w", err))
	}

	if len(parsed.Choices) == 0 {
		return nil, errors.ProviderError(c.model, fmt.Errorf("no choices in response"))
	}

	c.log.Debug("Completion received - length=%d, totalTokens=%d",
		len(parsed.Choices[0].Message.Content), parsed.Usage.TotalTokens)

	return &ports.LLMResponse{
		Content: parsed.Choices[0].Message.Content,
		Usage: &ports.UsageData{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
			Model:            c.model,
			Provider:         "openai",
		},
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

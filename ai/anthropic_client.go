package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"brandtrack/internal/errors"
	"brandtrack/internal/logx"
	"brandtrack/ports"
)

// AnthropicMessager is the subset of the Anthropic SDK used here, kept as an
// interface so tests can stub the API.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicClient implements ports.LLMClient against the Anthropic messages API.
type AnthropicClient struct {
	messages    AnthropicMessager
	model       string
	temperature float64
	log         *logx.Logger
}

// NewAnthropicClient builds a client for the given model.
func NewAnthropicClient(apiKey, model string, temperature float64) *AnthropicClient {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{
		messages:    &c.Messages,
		model:       model,
		temperature: temperature,
		log:         logx.Default.With("AnthropicClient"),
	}
}

// Provider returns the model identifier used as the model_name on stored
// responses.
func (c *AnthropicClient) Provider() string {
	return c.model
}

// ChatCompletion sends a prompt and returns the raw completion text.
func (c *AnthropicClient) ChatCompletion(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := c.ChatCompletionWithUsage(ctx, prompt, maxTokens)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// ChatCompletionWithUsage sends a prompt and also reports token usage.
func (c *AnthropicClient) ChatCompletionWithUsage(ctx context.Context, prompt string, maxTokens int) (*ports.LLMResponse, error) {
	c.log.Debug("Sending request - model=%s, promptLength=%d, maxTokens=%d", c.model, len(prompt), maxTokens)

	resp, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(maxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(c.temperature),
	})
	if err != nil {
		return nil, errors.ProviderError(c.model, err)
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}

	content := sb.String()
	if content == "" {
		return nil, errors.ProviderError(c.model, fmt.Errorf("empty completion"))
	}

	inputTokens := int(resp.Usage.InputTokens)
	outputTokens := int(resp.Usage.OutputTokens)

	c.log.Debug("Completion received - length=%d, totalTokens=%d", len(content), inputTokens+outputTokens)

	return &ports.LLMResponse{
		Content: content,
		Usage: &ports.UsageData{
			PromptTokens:     inputTokens,
			CompletionTokens: outputTokens,
			TotalTokens:      inputTokens + outputTokens,
			Model:            c.model,
			Provider:         "anthropic",
		},
	}, nil
}

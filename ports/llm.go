package ports

import "context"

// UsageData represents raw usage data from LLM provider APIs
type UsageData struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
	Provider         string `json:"provider"`
}

// LLMResponse represents an LLM response with usage data
type LLMResponse struct {
	Content string
	Usage   *UsageData
}

// LLMClient interface for LLM providers
type LLMClient interface {
	// Provider returns the provider label used as the model_name on
	// stored responses (e.g. "gpt-4o", "claude-sonnet")
	Provider() string

	// ChatCompletion sends a prompt and returns the raw completion text
	ChatCompletion(ctx context.Context, prompt string, maxTokens int) (string, error)

	// ChatCompletionWithUsage sends a prompt and also reports token usage
	ChatCompletionWithUsage(ctx context.Context, prompt string, maxTokens int) (*LLMResponse, error)
}

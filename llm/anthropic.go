package llm

import (
	"context"

	"github.com/liushuangls/go-anthropic/v2"
)

// defaultAnthropicModel is used when Config.Model is empty.
const defaultAnthropicModel = "claude-3-5-haiku-latest"

// anthropicMaxTokens bounds the completion; generated SQL is short.
const anthropicMaxTokens = 1024

// Anthropic is a Client backed by the Anthropic Messages API.
type Anthropic struct {
	client *anthropic.Client
	model  string
}

// NewAnthropic creates an Anthropic client from cfg.
func NewAnthropic(cfg Config) *Anthropic {
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{
		client: anthropic.NewClient(cfg.APIKey),
		model:  model,
	}
}

// GenerateSQL implements Client.
func (a *Anthropic) GenerateSQL(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}

	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			return CleanResponse(*block.Text), nil
		}
	}
	return "", ErrNoCandidate
}

package sleep

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// DefaultModel is the consolidation model. Review is a cheap classification
// task, so the smallest model is the default.
const DefaultModel = "claude-3-5-haiku-20241022"

// AnthropicReviewer implements Reviewer over the Anthropic Messages API.
// The API key is read from ANTHROPIC_API_KEY by the client.
type AnthropicReviewer struct {
	client anthropic.Client
	model  string
}

// NewAnthropicReviewer creates a reviewer using the given model, or
// DefaultModel when empty.
func NewAnthropicReviewer(model string) *AnthropicReviewer {
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicReviewer{
		client: anthropic.NewClient(),
		model:  model,
	}
}

// Review submits the batch prompt and returns the concatenated text blocks
// of the response.
func (r *AnthropicReviewer) Review(ctx context.Context, prompt string) (string, error) {
	resp, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: 2000,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		text += block.Text
	}
	return text, nil
}

// Package completion abstracts the text-completion service consumed by
// the memory engine and the chat engine: given a prompt, return text or
// fail.
package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Config configures the Anthropic-backed client.
type Config struct {
	// APIKey authenticates against the Anthropic API. Required.
	APIKey string

	// Model selects the Claude model. Empty uses a current default.
	Model string

	// MaxTokens caps response length. Zero means 1024.
	MaxTokens int64
}

// Client calls the Anthropic Messages API in a single-prompt shape.
type Client struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// New creates a completion client.
func New(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
	return &Client{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
	}
}

// Complete sends the prompt as a single user message and returns the
// concatenated text blocks of the response.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

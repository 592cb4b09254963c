package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

var claudeModels = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-5-20250929",
}

type claudeGenerator struct {
	model  string
	client anthropic.Client
}

func newClaudeGenerator(model string) *claudeGenerator {
	return &claudeGenerator{
		model:  model,
		client: anthropic.NewClient(),
	}
}

func (g *claudeGenerator) complete(ctx context.Context, system string, messages []chatMessage, maxTokens int64) (string, error) {
	modelID := claudeModels[g.model]
	if modelID == "" {
		modelID = claudeModels["haiku"]
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(modelID),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
	}
	for _, m := range messages {
		if m.role == roleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.text)))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.text)))
		}
	}

	message, err := g.client.Messages.New(ctx, params)
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("claude api: %v: %w", err, ErrRateLimited)
		}
		return "", fmt.Errorf("claude api: %w", err)
	}

	text := claudeText(message)
	if text == "" {
		return "", fmt.Errorf("empty response from Claude")
	}
	return text, nil
}

func claudeText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}

package enhance

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"istanbul-explorer/internal/models"
	errs "istanbul-explorer/pkg/errors"
)

// AnthropicEnhancer is the secondary provider in the fallback chain.
type AnthropicEnhancer struct {
	client *anthropic.Client
	model  anthropic.Model
}

func NewAnthropicEnhancer(apiKey string, model string) *AnthropicEnhancer {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaude3_5HaikuLatest
	}
	return &AnthropicEnhancer{client: &client, model: m}
}

func (e *AnthropicEnhancer) Name() string { return "anthropic" }

func (e *AnthropicEnhancer) Enhance(ctx context.Context, item models.StagingItem, cfg Config) (*Result, error) {
	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     e.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(cfg)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(item))),
		},
	})
	if err != nil {
		return nil, errs.NewExternal("anthropic.Enhance", "anthropic", "message call failed", err)
	}
	if len(resp.Content) == 0 {
		return nil, errs.NewExternal("anthropic.Enhance", "anthropic", "empty response", nil)
	}

	result, err := parseEnhancementJSON(resp.Content[0].Text)
	if err != nil {
		return nil, err
	}
	result.Model = string(e.model)
	return result, nil
}

package enhance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"istanbul-explorer/internal/models"
	errs "istanbul-explorer/pkg/errors"
)

// OpenAIEnhancer rewrites item text through the OpenAI chat completion API.
type OpenAIEnhancer struct {
	client *openai.Client
	model  string
}

func NewOpenAIEnhancer(apiKey, model string) *OpenAIEnhancer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIEnhancer{client: openai.NewClient(apiKey), model: model}
}

func (e *OpenAIEnhancer) Name() string { return "openai" }

func (e *OpenAIEnhancer) Enhance(ctx context.Context, item models.StagingItem, cfg Config) (*Result, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(cfg),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt(item),
			},
		},
		Temperature: 0.4,
		MaxTokens:   600,
	})
	if err != nil {
		return nil, errs.NewExternal("openai.Enhance", "openai", "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errs.NewExternal("openai.Enhance", "openai", "empty response", nil)
	}

	result, err := parseEnhancementJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	result.Model = e.model
	return result, nil
}

func systemPrompt(cfg Config) string {
	return fmt.Sprintf(`You are a travel content editor for an Istanbul city guide.
Rewrite the venue content for a %s audience in a %s style. Keep every fact
(names, prices, hours, numbers) intact; improve only the wording.
Requested rewrite scope: %s.

Respond with JSON only, no other text:
{
  "title": "rewritten title",
  "description": "rewritten description, 2-4 sentences",
  "highlights": ["up to 8 short highlight phrases"]
}`, cfg.Audience, cfg.Style, cfg.Type)
}

func userPrompt(item models.StagingItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\nCategory: %s\nLocation: Istanbul\n", item.Title, item.Category)
	if item.Raw.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", item.Raw.Description)
	}
	if len(item.Raw.Highlights) > 0 {
		fmt.Fprintf(&sb, "Highlights: %s\n", strings.Join(item.Raw.Highlights, "; "))
	}
	return sb.String()
}

// parseEnhancementJSON decodes the model's JSON payload, tolerating code
// fences and stray prose around the object.
func parseEnhancementJSON(content string) (*Result, error) {
	content = cleanJSONResponse(content)

	var parsed struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Highlights  []string `json:"highlights"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, errs.NewExternal("enhance.parse", "llm",
			fmt.Sprintf("unparseable response: %.120s", content), err)
	}
	if parsed.Title == "" && parsed.Description == "" && len(parsed.Highlights) == 0 {
		return nil, errs.NewExternal("enhance.parse", "llm", "response carried no fields", nil)
	}
	return &Result{
		Title:       parsed.Title,
		Description: parsed.Description,
		Highlights:  parsed.Highlights,
	}, nil
}

func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some model responses include extra prose around the JSON object.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

// Package openaiclient adapts the official OpenAI Go SDK to
// tracesvc.LLMClient. Grounded on features/model/openai/client.go's
// adapter shape (a narrow ChatClient capability interface wrapped by a
// Complete method translating request/response), ported from that
// file's sashabaranov/go-openai Chat Completions call onto the
// github.com/openai/openai-go SDK already pinned in this module's
// go.mod.
package openaiclient

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/huap-project/huap-core/plugin"
	"github.com/huap-project/huap-core/trace"
	"github.com/huap-project/huap-core/tracesvc"
)

func init() {
	plugin.Register("providers/openaiclient", func(settings map[string]any) (any, error) {
		apiKey, _ := settings["api_key"].(string)
		baseURL, _ := settings["base_url"].(string)
		defaultModel, _ := settings["default_model"].(string)
		return New(Config{APIKey: apiKey, BaseURL: baseURL, DefaultModel: defaultModel})
	})
}

// Config configures the client.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// Client adapts openai.Client to tracesvc.LLMClient.
type Client struct {
	sdk          openai.Client
	defaultModel string
}

var _ tracesvc.LLMClient = (*Client)(nil)

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openaiclient: api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{sdk: openai.NewClient(opts...), defaultModel: cfg.DefaultModel}, nil
}

// Complete implements tracesvc.LLMClient.
func (c *Client) Complete(ctx context.Context, req tracesvc.LLMRequest) (tracesvc.LLMResult, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		return tracesvc.LLMResult{}, fmt.Errorf("openaiclient: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return tracesvc.LLMResult{}, fmt.Errorf("openaiclient: complete: %w", err)
	}
	if len(resp.Choices) == 0 {
		return tracesvc.LLMResult{}, fmt.Errorf("openaiclient: empty choices in response")
	}

	return tracesvc.LLMResult{
		Text: resp.Choices[0].Message.Content,
		Usage: trace.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func convertMessages(messages []map[string]any) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)
		switch role {
		case "system":
			out = append(out, openai.SystemMessage(content))
		case "assistant":
			out = append(out, openai.AssistantMessage(content))
		case "user", "":
			out = append(out, openai.UserMessage(content))
		default:
			return nil, fmt.Errorf("unsupported message role %q", role)
		}
	}
	return out, nil
}

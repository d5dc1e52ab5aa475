// Package anthropicclient adapts the Anthropic SDK to tracesvc.LLMClient.
// Grounded on internal/agent/providers/anthropic.go's client construction
// and anthropic.MessageNewParams wiring, narrowed from that provider's
// streaming Messages.NewStreaming call to a single blocking
// Messages.New matching tracesvc.LLMClient.Complete's one-shot shape.
// Kept outside the five core subsystems (spec.md §1): core never
// imports this package.
package anthropicclient

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/huap-project/huap-core/plugin"
	"github.com/huap-project/huap-core/trace"
	"github.com/huap-project/huap-core/tracesvc"
)

func init() {
	plugin.Register("providers/anthropicclient", func(settings map[string]any) (any, error) {
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

// Client adapts anthropic.Client to tracesvc.LLMClient.
type Client struct {
	sdk          anthropic.Client
	defaultModel string
}

var _ tracesvc.LLMClient = (*Client)(nil)

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropicclient: api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{sdk: anthropic.NewClient(opts...), defaultModel: cfg.DefaultModel}, nil
}

// Complete implements tracesvc.LLMClient.
func (c *Client) Complete(ctx context.Context, req tracesvc.LLMRequest) (tracesvc.LLMResult, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	messages, system, err := convertMessages(req.Messages)
	if err != nil {
		return tracesvc.LLMResult{}, fmt.Errorf("anthropicclient: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return tracesvc.LLMResult{}, fmt.Errorf("anthropicclient: complete: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return tracesvc.LLMResult{
		Text: text,
		Usage: trace.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}

func convertMessages(messages []map[string]any) ([]anthropic.MessageParam, string, error) {
	var system string
	var out []anthropic.MessageParam
	for _, m := range messages {
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)
		if role == "system" {
			system = content
			continue
		}
		switch role {
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(content)))
		case "user", "":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(content)))
		default:
			return nil, "", fmt.Errorf("unsupported message role %q", role)
		}
	}
	return out, system, nil
}

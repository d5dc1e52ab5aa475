// Package bedrockclient adapts the AWS Bedrock runtime client to
// tracesvc.LLMClient. Grounded on
// internal/agent/providers/bedrock.go's AWS config/credential wiring and
// types.Message content-block construction, narrowed from that
// provider's streaming ConverseStream call to the blocking Converse
// call matching tracesvc.LLMClient.Complete's one-shot shape.
package bedrockclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/huap-project/huap-core/plugin"
	"github.com/huap-project/huap-core/trace"
	"github.com/huap-project/huap-core/tracesvc"
)

func init() {
	plugin.Register("providers/bedrockclient", func(settings map[string]any) (any, error) {
		region, _ := settings["region"].(string)
		accessKeyID, _ := settings["access_key_id"].(string)
		secretAccessKey, _ := settings["secret_access_key"].(string)
		sessionToken, _ := settings["session_token"].(string)
		defaultModel, _ := settings["default_model"].(string)
		return New(context.Background(), Config{
			Region:          region,
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
			SessionToken:    sessionToken,
			DefaultModel:    defaultModel,
		})
	})
}

// Config configures the client.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	DefaultModel    string
}

// Client adapts *bedrockruntime.Client to tracesvc.LLMClient.
type Client struct {
	sdk          *bedrockruntime.Client
	defaultModel string
}

var _ tracesvc.LLMClient = (*Client)(nil)

// New builds a Client from cfg, resolving AWS credentials via explicit
// static credentials (when both key fields are set) or the default
// credential chain (environment, IAM role, etc.) otherwise.
func New(ctx context.Context, cfg Config) (*Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := loadConfig(ctx, cfg, region)
	if err != nil {
		return nil, fmt.Errorf("bedrockclient: load aws config: %w", err)
	}

	return &Client{
		sdk:          bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func loadConfig(ctx context.Context, cfg Config, region string) (aws.Config, error) {
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		return config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		)
	}
	return config.LoadDefaultConfig(ctx, config.WithRegion(region))
}

// Complete implements tracesvc.LLMClient.
func (c *Client) Complete(ctx context.Context, req tracesvc.LLMRequest) (tracesvc.LLMResult, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		return tracesvc.LLMResult{}, fmt.Errorf("bedrockclient: %w", err)
	}

	maxTokens := int32(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	input := &bedrockruntime.ConverseInput{
		ModelId:  &model,
		Messages: messages,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens: &maxTokens,
		},
	}

	out, err := c.sdk.Converse(ctx, input)
	if err != nil {
		return tracesvc.LLMResult{}, fmt.Errorf("bedrockclient: converse: %w", err)
	}

	output, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return tracesvc.LLMResult{}, fmt.Errorf("bedrockclient: unexpected converse output shape")
	}

	var text string
	for _, block := range output.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			text += tb.Value
		}
	}

	usage := trace.Usage{}
	if out.Usage != nil {
		usage.PromptTokens = int(out.Usage.InputTokens)
		usage.CompletionTokens = int(out.Usage.OutputTokens)
		usage.TotalTokens = int(out.Usage.TotalTokens)
	}

	return tracesvc.LLMResult{Text: text, Usage: usage}, nil
}

func convertMessages(messages []map[string]any) ([]types.Message, error) {
	out := make([]types.Message, 0, len(messages))
	for _, m := range messages {
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)

		var msgRole types.ConversationRole
		switch role {
		case "assistant":
			msgRole = types.ConversationRoleAssistant
		case "user", "", "system":
			msgRole = types.ConversationRoleUser
		default:
			return nil, fmt.Errorf("unsupported message role %q", role)
		}

		out = append(out, types.Message{
			Role:    msgRole,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: content}},
		})
	}
	return out, nil
}

package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"fumble-backend/internal/llm"
	"fumble-backend/internal/shared/telemetry"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Config configures the OpenAI client.
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	BaseURL     string       // optional, tests and proxies
	HTTPClient  *http.Client // optional
}

// Client implements llm.Client using OpenAI Chat Completions with image input.
type Client struct {
	model       string
	temperature float64
	client      openaisdk.Client
}

// NewClient constructs a new OpenAI client. SDK retries are disabled: a
// failed call surfaces to the caller as is.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = llm.DefaultTemperature
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		model:       model,
		temperature: temperature,
		client:      openaisdk.NewClient(opts...),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// JudgeScreenshot sends the fixed prompt and the image, returning the first
// choice's message content.
func (c *Client) JudgeScreenshot(ctx context.Context, in llm.ScreenshotInput) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(llm.SystemPrompt()),
			openaisdk.UserMessage([]openaisdk.ChatCompletionContentPartUnionParam{
				openaisdk.TextContentPart(llm.UserPrompt),
				openaisdk.ImageContentPart(openaisdk.ChatCompletionContentPartImageImageURLParam{
					URL: in.DataURL(),
				}),
			}),
		},
		Temperature: openaisdk.Float(c.temperature),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	telemetry.Info("llm.response", map[string]any{
		"provider":          "openai",
		"model":             resp.Model,
		"choices":           len(resp.Choices),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	})

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

var _ llm.Client = (*Client)(nil)

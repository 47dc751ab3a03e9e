package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"fumble-backend/internal/llm"
	"fumble-backend/internal/shared/telemetry"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Client implements llm.Client on top of the Gemini API.
type Client struct {
	apiKey      string
	model       string
	temperature float32
}

// New constructs a Gemini client.
func New(apiKey, model string, temperature float64) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	if temperature <= 0 {
		temperature = llm.DefaultTemperature
	}
	return &Client{apiKey: apiKey, model: model, temperature: float32(temperature)}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// JudgeScreenshot sends the fixed prompt and the image and returns the first
// text part of the first candidate.
func (c *Client) JudgeScreenshot(ctx context.Context, in llm.ScreenshotInput) (string, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(c.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(c.temperature),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(llm.SystemPrompt())},
	}

	resp, err := m.GenerateContent(ctx,
		genai.Text(llm.UserPrompt),
		genai.Blob{MIMEType: in.MIMEType, Data: in.Image},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	telemetry.Info("llm.response", map[string]any{
		"provider":   "gemini",
		"model":      c.model,
		"candidates": candidateCount(resp),
	})
	return firstText(resp), nil
}

func candidateCount(resp *genai.GenerateContentResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Candidates)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }

var _ llm.Client = (*Client)(nil)

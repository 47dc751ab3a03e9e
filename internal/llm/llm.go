package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
)

// DefaultTemperature is the sampling temperature used for screenshot judgments.
const DefaultTemperature = 0.7

// Client abstracts vision model providers. JudgeScreenshot returns the raw
// text of the model's reply; an empty string with a nil error means the
// provider answered without content.
type Client interface {
	JudgeScreenshot(ctx context.Context, in ScreenshotInput) (string, error)
}

// ScreenshotInput is the image handed to the model.
type ScreenshotInput struct {
	Image    []byte
	MIMEType string
}

// DataURL returns the image as a base64 data URL.
func (in ScreenshotInput) DataURL() string {
	mime := strings.TrimSpace(in.MIMEType)
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(in.Image)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm provider not configured")

// PlaceholderClient is used when no provider credentials are configured.
type PlaceholderClient struct{}

// JudgeScreenshot returns ErrNotConfigured.
func (PlaceholderClient) JudgeScreenshot(ctx context.Context, in ScreenshotInput) (string, error) {
	_ = ctx
	_ = in
	return "", ErrNotConfigured
}

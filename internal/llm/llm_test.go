package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fumble-backend/internal/verdict"
)

func TestSystemPromptListsEveryOutcome(t *testing.T) {
	prompt := SystemPrompt()
	for _, o := range verdict.Outcomes() {
		if !strings.Contains(prompt, string(o)) {
			t.Fatalf("system prompt is missing outcome %q", o)
		}
	}
	if !strings.Contains(prompt, "Return ONLY valid JSON") {
		t.Fatalf("system prompt must ask for JSON only")
	}
}

func TestDataURL(t *testing.T) {
	in := ScreenshotInput{Image: []byte("abc"), MIMEType: "image/webp"}
	if got := in.DataURL(); got != "data:image/webp;base64,YWJj" {
		t.Fatalf("unexpected data URL: %s", got)
	}
	in.MIMEType = ""
	if got := in.DataURL(); !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Fatalf("expected png default, got %s", got)
	}
}

func TestPlaceholderClient(t *testing.T) {
	_, err := PlaceholderClient{}.JudgeScreenshot(context.Background(), ScreenshotInput{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

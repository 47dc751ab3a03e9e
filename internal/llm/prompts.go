package llm

import (
	_ "embed"
	"strings"
)

//go:embed prompts/screenshot_system.txt
var screenshotSystemPrompt string

// UserPrompt accompanies the image in the user turn.
const UserPrompt = "Analyze this chat screenshot."

// SystemPrompt returns the fixed instructions for screenshot judgments.
func SystemPrompt() string {
	return strings.TrimSpace(screenshotSystemPrompt)
}

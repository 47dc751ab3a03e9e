package verdict

import (
	"encoding/json"
	"strings"
)

type strategy func(text string) (any, bool)

// strategies run in order; the first one that decodes wins.
var strategies = []strategy{
	parseWhole,
	parseUnfenced,
	parseBraced,
}

// Extract recovers a single JSON value from free-form model text. It returns
// nil when nothing in text decodes.
func Extract(text string) any {
	if text == "" {
		return nil
	}
	for _, try := range strategies {
		if v, ok := try(text); ok {
			return v
		}
	}
	return nil
}

func parseWhole(text string) (any, bool) {
	return decode(text)
}

func parseUnfenced(text string) (any, bool) {
	return decode(stripFences(text))
}

// parseBraced decodes the greedy first-"{" to last-"}" slice of the unfenced text.
func parseBraced(text string) (any, bool) {
	stripped := stripFences(text)
	start := strings.Index(stripped, "{")
	if start < 0 {
		return nil, false
	}
	end := strings.LastIndex(stripped, "}")
	if end < start {
		return nil, false
	}
	return decode(stripped[start : end+1])
}

func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func decode(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

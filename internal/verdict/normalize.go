package verdict

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const candidateSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["outcome", "roast", "tip"],
  "properties": {
    "outcome": {"type": "string"},
    "roast": {"type": ["string", "number", "boolean"]},
    "tip": {"type": ["string", "number", "boolean"]}
  }
}`

var candidateSchema = jsonschema.MustCompileString("verdict-candidate.json", candidateSchemaJSON)

// Report describes which corrections Normalize applied.
type Report struct {
	// Fallback is set when the candidate failed the schema and the whole
	// fallback result was returned.
	Fallback bool
	// OutcomeReplaced is set when an unknown outcome label was swapped for
	// the fallback outcome.
	OutcomeReplaced bool
	// Truncated is set when roast or tip was cut to its bound.
	Truncated bool
	// Reason holds the schema violation when Fallback is set.
	Reason string
}

// Normalize coerces an untrusted decoded value into a Result. It never fails:
// anything that does not match the schema yields Fallback().
func Normalize(candidate any) Result {
	res, _ := NormalizeReport(candidate)
	return res
}

// NormalizeReport is Normalize plus a description of the corrections made.
func NormalizeReport(candidate any) (Result, Report) {
	valid, err := validate(candidate)
	if err != nil {
		return Fallback(), Report{Fallback: true, Reason: err.Error()}
	}

	var rep Report
	out := Result{Outcome: valid.outcome}
	if !out.Outcome.IsAllowed() {
		out.Outcome = fallback.Outcome
		rep.OutcomeReplaced = true
	}

	var cut bool
	out.Roast, cut = bound(toText(valid.roast), MaxRoastRunes)
	rep.Truncated = cut
	out.Tip, cut = bound(toText(valid.tip), MaxTipRunes)
	rep.Truncated = rep.Truncated || cut

	return out, rep
}

// validated is a candidate that passed the schema; roast and tip are still
// untyped scalars.
type validated struct {
	outcome Outcome
	roast   any
	tip     any
}

func validate(candidate any) (v validated, err error) {
	if candidate == nil {
		return validated{}, fmt.Errorf("candidate is null")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("candidate validation panicked: %v", r)
		}
	}()
	if err := candidateSchema.Validate(candidate); err != nil {
		return validated{}, err
	}
	obj, ok := candidate.(map[string]any)
	if !ok {
		return validated{}, fmt.Errorf("candidate is %T, want object", candidate)
	}
	outcome, ok := obj["outcome"].(string)
	if !ok {
		return validated{}, fmt.Errorf("outcome is %T, want string", obj["outcome"])
	}
	return validated{
		outcome: Outcome(outcome),
		roast:   obj["roast"],
		tip:     obj["tip"],
	}, nil
}

func toText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatNumber(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// formatNumber renders plain decimals below 1e21 and exponent form above.
func formatNumber(f float64) string {
	if math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// bound trims s and cuts it to at most max code points. The cut result is
// trimmed again so a second pass is a no-op.
func bound(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max])), true
}

package verdict

// Outcome is the verdict label for how the analyzed conversation went.
type Outcome string

const (
	OutcomeCooked      Outcome = "You cooked 🔥"
	OutcomeRecoverable Outcome = "Recoverable 😬"
	OutcomeFumbled     Outcome = "You fumbled 😭"
	OutcomeOver        Outcome = "Yeah… it’s over 💀"
)

const (
	// MaxRoastRunes bounds Result.Roast.
	MaxRoastRunes = 140
	// MaxTipRunes bounds Result.Tip.
	MaxTipRunes = 200
)

var allowedOutcomes = map[Outcome]struct{}{
	OutcomeCooked:      {},
	OutcomeRecoverable: {},
	OutcomeFumbled:     {},
	OutcomeOver:        {},
}

// Outcomes returns the allowed outcome labels in display order.
func Outcomes() []Outcome {
	return []Outcome{OutcomeCooked, OutcomeRecoverable, OutcomeFumbled, OutcomeOver}
}

// IsAllowed reports whether o is one of the four allowed labels.
func (o Outcome) IsAllowed() bool {
	_, ok := allowedOutcomes[o]
	return ok
}

// Result is the normalized verdict returned to callers.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Roast   string  `json:"roast"`
	Tip     string  `json:"tip"`
}

var fallback = Result{
	Outcome: OutcomeRecoverable,
	Roast:   "The vibe is… unclear, but we move.",
	Tip:     "Keep it short. Ask a question. Don’t over-explain.",
}

// Fallback returns the safe substitute used when a model reply cannot be
// parsed or validated.
func Fallback() Result {
	return fallback
}

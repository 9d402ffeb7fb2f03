package prompts

import "strings"

// Failure categories. UNKNOWN is terminal; the other three are resolved by
// the retry orchestrator.
const (
	CategoryContentPolicy = "CONTENT_POLICY"
	CategoryRateLimit     = "RATE_LIMIT"
	CategoryTimeout       = "TIMEOUT"
	CategoryUnknown       = "UNKNOWN"
)

// Trigger types.
const (
	TriggerName   = "NAME"
	TriggerTeam   = "TEAM"
	TriggerPhrase = "PHRASE"
)

// Trigger is one token in the prompt that likely contributed to a content
// policy rejection.
type Trigger struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Position int    `json:"position"`
}

// Classification is the classifier's verdict on one failed attempt.
type Classification struct {
	Category string    `json:"category"`
	Triggers []Trigger `json:"triggers,omitempty"`
}

// TriggerValues flattens trigger values for audit records.
func (c Classification) TriggerValues() []string {
	var vals []string
	for _, t := range c.Triggers {
		vals = append(vals, t.Value)
	}
	return vals
}

// Classifier maps raw provider failure text to a closed category. Behind an
// interface so the pattern table can change without touching the
// orchestrator.
type Classifier interface {
	Classify(errText, promptText string) Classification
}

// Substring tables coupled to KIE's VEO3 error vocabulary. Revisit when the
// provider changes its wording.
var contentPolicyPatterns = []string{
	"content policy",
	"public figure",
	"prominent people",
	"celebrity",
	"real person",
	"violates our",
	"flagged",
	"rejected by the safety",
	"sensitive content",
	"unsafe content",
}

var rateLimitPatterns = []string{
	"429",
	"rate limit",
	"too many requests",
	"frequency limit",
	"request limit",
}

var timeoutPatterns = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
}

// PatternClassifier is the production Classifier. Stateless and pure.
type PatternClassifier struct{}

func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{}
}

// Classify inspects the failure text and, for content policy hits, scans
// the prompt for the proper nouns that most often cause rejection.
func (pc *PatternClassifier) Classify(errText, promptText string) Classification {
	lower := strings.ToLower(errText)

	for _, p := range contentPolicyPatterns {
		if strings.Contains(lower, p) {
			return Classification{
				Category: CategoryContentPolicy,
				Triggers: extractTriggers(promptText),
			}
		}
	}
	for _, p := range rateLimitPatterns {
		if strings.Contains(lower, p) {
			return Classification{Category: CategoryRateLimit}
		}
	}
	for _, p := range timeoutPatterns {
		if strings.Contains(lower, p) {
			return Classification{Category: CategoryTimeout}
		}
	}
	return Classification{Category: CategoryUnknown}
}

// extractTriggers flags every known player and club name present in the
// prompt, with its byte position, longest names first so "Real Madrid"
// wins over "Madrid".
func extractTriggers(promptText string) []Trigger {
	lower := strings.ToLower(promptText)
	var triggers []Trigger
	seen := map[int]bool{}

	scan := func(names []string, kind string) {
		for _, name := range names {
			pos := strings.Index(lower, strings.ToLower(name))
			if pos < 0 || seen[pos] {
				continue
			}
			seen[pos] = true
			triggers = append(triggers, Trigger{Type: kind, Value: name, Position: pos})
		}
	}
	scan(KnownPlayerNames(), TriggerName)
	scan(KnownClubNames(), TriggerTeam)

	// surname + team co-occurrence is the pattern most often flagged
	var hasName, hasTeam bool
	for _, t := range triggers {
		if t.Type == TriggerName {
			hasName = true
		}
		if t.Type == TriggerTeam {
			hasTeam = true
		}
	}
	if hasName && hasTeam {
		triggers = append(triggers, Trigger{Type: TriggerPhrase, Value: "name+team co-occurrence", Position: 0})
	}
	return triggers
}

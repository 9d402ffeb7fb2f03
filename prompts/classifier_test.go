package prompts

import "testing"

func TestClassifyCategories(t *testing.T) {
	pc := NewPatternClassifier()
	cases := []struct {
		name    string
		errText string
		want    string
	}{
		{"policy flag", "Your prompt was flagged for prominent people", CategoryContentPolicy},
		{"policy generic", "request rejected: violates our content policy", CategoryContentPolicy},
		{"http 429", "HTTP 429 Too Many Requests", CategoryRateLimit},
		{"rate wording", "frequency limit reached, slow down", CategoryRateLimit},
		{"poll timeout", "polling timeout after 10m0s for task abc", CategoryTimeout},
		{"deadline", "context deadline exceeded", CategoryTimeout},
		{"opaque", "internal server error 500", CategoryUnknown},
		{"empty", "", CategoryUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pc.Classify(tc.errText, "")
			if got.Category != tc.want {
				t.Errorf("Classify(%q) = %s, want %s", tc.errText, got.Category, tc.want)
			}
		})
	}
}

func TestClassifyExtractsTriggers(t *testing.T) {
	pc := NewPatternClassifier()
	prompt := "Robert Lewandowski of Barcelona scores again"
	cls := pc.Classify("flagged as a public figure", prompt)

	if cls.Category != CategoryContentPolicy {
		t.Fatalf("category = %s, want %s", cls.Category, CategoryContentPolicy)
	}
	byValue := map[string]Trigger{}
	for _, tr := range cls.Triggers {
		byValue[tr.Value] = tr
	}
	name, ok := byValue["Robert Lewandowski"]
	if !ok || name.Type != TriggerName || name.Position != 0 {
		t.Errorf("full name trigger missing or misplaced: %+v", cls.Triggers)
	}
	team, ok := byValue["Barcelona"]
	if !ok || team.Type != TriggerTeam || team.Position != 22 {
		t.Errorf("team trigger missing or misplaced: %+v", cls.Triggers)
	}
	if _, ok := byValue["name+team co-occurrence"]; !ok {
		t.Errorf("co-occurrence phrase trigger missing: %+v", cls.Triggers)
	}
}

func TestClassifyNoTriggersForNonPolicyFailures(t *testing.T) {
	pc := NewPatternClassifier()
	cls := pc.Classify("429 too many requests", "Robert Lewandowski of Barcelona")
	if len(cls.Triggers) != 0 {
		t.Errorf("rate limit failures must not carry triggers: %+v", cls.Triggers)
	}
}

func TestTriggerValues(t *testing.T) {
	cls := Classification{Triggers: []Trigger{
		{Type: TriggerName, Value: "Lewandowski"},
		{Type: TriggerTeam, Value: "Barcelona"},
	}}
	vals := cls.TriggerValues()
	if len(vals) != 2 || vals[0] != "Lewandowski" || vals[1] != "Barcelona" {
		t.Errorf("TriggerValues() = %v", vals)
	}
}

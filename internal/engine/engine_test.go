package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openjudge/content-evaluator/internal/judge"
	"github.com/openjudge/content-evaluator/internal/models"
	"github.com/openjudge/content-evaluator/internal/schema"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// stubJudge answers by matching the scheme name inside the prompt against
// scripted responses, and counts how often each script was used.
type stubJudge struct {
	mu        sync.Mutex
	responses map[string]string
	errors    map[string]error
	calls     map[string]int
	prompts   []string
}

func newStubJudge() *stubJudge {
	return &stubJudge{
		responses: map[string]string{},
		errors:    map[string]error{},
		calls:     map[string]int{},
	}
}

func (s *stubJudge) Judge(ctx context.Context, req judge.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, req.UserPrompt)

	for key, err := range s.errors {
		if strings.Contains(req.UserPrompt, key) {
			s.calls[key]++
			return "", err
		}
	}
	for key, response := range s.responses {
		if strings.Contains(req.UserPrompt, key) {
			s.calls[key]++
			return response, nil
		}
	}
	return "", fmt.Errorf("no scripted response for prompt")
}

func (s *stubJudge) callCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func ordinalScheme(id string) *schema.Schema {
	return &schema.Schema{
		ID:          id,
		Name:        id,
		Dimension:   id,
		Kind:        schema.KindOrdinal,
		OutputRange: schema.OutputRange{Min: 1, Max: 5, Type: "int"},
		Anchors: []schema.Anchor{
			{Value: 5, Label: "Sehr gut", Criteria: "durchgehend neutral"},
			{Value: 4, Label: "Gut", Criteria: "weitgehend neutral"},
			{Value: 3, Label: "Mittel", Criteria: "teilweise neutral"},
			{Value: 2, Label: "Schwach", Criteria: "wenig neutral"},
			{Value: 1, Label: "Ungenügend", Criteria: "nicht neutral"},
		},
		Labels: map[string]string{
			"5": "Sehr gut", "4": "Gut", "3": "Mittel", "2": "Schwach", "1": "Ungenügend",
			"4.5-5.0": "Sehr gut", "3.5-4.4": "Gut", "2.5-3.4": "Mittel",
			"1.5-2.4": "Schwach", "1.0-1.4": "Ungenügend",
		},
	}
}

func checklistScheme(id string) *schema.Schema {
	return &schema.Schema{
		ID:          id,
		Name:        id,
		Dimension:   id,
		Kind:        schema.KindChecklist,
		OutputRange: schema.OutputRange{Min: 0, Max: 5, Type: "float"},
		Aggregator:  &schema.AggregatorSpec{ScaleFactor: 5.0},
		Items: []schema.ChecklistItem{
			{
				ID: "belege", Prompt: "Sind Aussagen belegt?", Weight: 2.0,
				Values: map[string]schema.LevelValue{
					"0": {Score: 0.0}, "1": {Score: 0.5}, "2": {Score: 1.0},
				},
			},
			{
				ID: "sprache", Prompt: "Ist die Sprache sachlich?", Weight: 1.0,
				Values: map[string]schema.LevelValue{
					"0": {Score: 0.0}, "1": {Score: 0.5}, "2": {Score: 1.0},
				},
				AllowNA: true,
			},
		},
		Labels: map[string]string{"0.0-2.4": "Unsachlich", "2.5-5.0": "Sachlich"},
	}
}

func gateScheme(id string) *schema.Schema {
	return &schema.Schema{
		ID:          id,
		Name:        id,
		Dimension:   id,
		Kind:        schema.KindBinaryGate,
		OutputRange: schema.OutputRange{Type: "boolean"},
		GateRules: []schema.GateRule{
			{
				ID: "gewalt", Description: "Gewaltdarstellung", Action: "reject",
				Reason: "Gewaltdarstellung ist unzulässig.", Severity: "high",
				LegalReference: "§ 4 JMStV", Scope: models.ContextContent,
			},
			{
				ID: "werbung", Description: "Unmarkierte Werbung", Action: "reject",
				Reason: "Werbung muss gekennzeichnet sein.", Severity: "medium",
				Scope: models.ContextPlatform,
			},
			{
				ID: "hassrede", Description: "Hassrede", Action: "reject",
				Reason: "Hassrede ist unzulässig.", Severity: "high",
				Scope: models.ContextBoth,
			},
		},
	}
}

func newTestEngine(t *testing.T, stub *stubJudge, schemes ...*schema.Schema) *Engine {
	t.Helper()
	registry, err := schema.NewRegistry(schemes)
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	return New(registry, stub, "stub-model", newTestLogger())
}

const sampleText = "Dies ist ein ausreichend langer Beispieltext für die Bewertung."

func TestEvaluateOrdinal(t *testing.T) {
	stub := newStubJudge()
	stub.responses["neutralitaet"] = `{"value": 4, "reasoning": "weitgehend sachlich", "confidence": 0.85}`

	eng := newTestEngine(t, stub, ordinalScheme("neutralitaet"))
	response := eng.Evaluate(context.Background(), Params{
		Text:             sampleText,
		SchemeIDs:        []string{"neutralitaet"},
		IncludeReasoning: true,
	})

	if len(response.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(response.Results))
	}
	result := response.Results[0]
	if result.Value != 4 {
		t.Errorf("expected value 4, got %v", result.Value)
	}
	if result.Label != "Gut" {
		t.Errorf("expected label Gut, got %q", result.Label)
	}
	if result.Confidence != 0.85 {
		t.Errorf("expected confidence 0.85, got %v", result.Confidence)
	}
	if result.Reasoning != "weitgehend sachlich" {
		t.Errorf("unexpected reasoning %q", result.Reasoning)
	}
}

func TestEvaluateOrdinalClampsOffScaleValue(t *testing.T) {
	stub := newStubJudge()
	stub.responses["neutralitaet"] = `{"value": 9, "reasoning": "übertrieben"}`

	eng := newTestEngine(t, stub, ordinalScheme("neutralitaet"))
	response := eng.Evaluate(context.Background(), Params{
		Text:      sampleText,
		SchemeIDs: []string{"neutralitaet"},
	})

	result := response.Results[0]
	if result.Value != 5 {
		t.Errorf("expected off-scale value snapped to 5, got %v", result.Value)
	}
	if result.Confidence != 0.8 {
		t.Errorf("expected default confidence 0.8, got %v", result.Confidence)
	}
}

func TestEvaluateOrdinalHandlesFencedJSON(t *testing.T) {
	stub := newStubJudge()
	stub.responses["neutralitaet"] = "```json\n{\"value\": 3, \"reasoning\": \"gemischt\"}\n```"

	eng := newTestEngine(t, stub, ordinalScheme("neutralitaet"))
	response := eng.Evaluate(context.Background(), Params{
		Text:      sampleText,
		SchemeIDs: []string{"neutralitaet"},
	})

	if response.Results[0].Value != 3 {
		t.Errorf("expected value 3 from fenced JSON, got %v", response.Results[0].Value)
	}
}

func TestEvaluateChecklistWeightedMean(t *testing.T) {
	stub := newStubJudge()
	stub.responses["sachlichkeit"] = `{
		"belege": {"level": 2, "reasoning": "gut belegt", "confidence": 0.9},
		"sprache": {"level": 1, "reasoning": "leicht wertend", "confidence": 0.7}
	}`

	eng := newTestEngine(t, stub, checklistScheme("sachlichkeit"))
	response := eng.Evaluate(context.Background(), Params{
		Text:             sampleText,
		SchemeIDs:        []string{"sachlichkeit"},
		IncludeReasoning: true,
	})

	result := response.Results[0]
	// (1.0*2 + 0.5*1) / 3 * 5 = 4.17
	if result.Value != 4.17 {
		t.Errorf("expected weighted mean 4.17, got %v", result.Value)
	}
	if result.Label != "Sachlich" {
		t.Errorf("expected range label Sachlich, got %q", result.Label)
	}
	// mean of the item confidences
	if math.Abs(result.Confidence-0.8) > 1e-9 {
		t.Errorf("expected confidence 0.8, got %v", result.Confidence)
	}
	if len(result.Criteria) != 2 {
		t.Errorf("expected 2 criteria entries, got %d", len(result.Criteria))
	}
}

func TestEvaluateChecklistMissingIgnore(t *testing.T) {
	stub := newStubJudge()
	stub.responses["sachlichkeit"] = `{
		"belege": {"level": 2, "reasoning": "gut belegt"},
		"sprache": {"level": "na", "reasoning": "nicht anwendbar"}
	}`

	eng := newTestEngine(t, stub, checklistScheme("sachlichkeit"))
	response := eng.Evaluate(context.Background(), Params{
		Text:      sampleText,
		SchemeIDs: []string{"sachlichkeit"},
	})

	// Only the answered item counts: 1.0 * 5 = 5.0
	if response.Results[0].Value != 5.0 {
		t.Errorf("expected na item ignored and value 5.0, got %v", response.Results[0].Value)
	}
}

func TestEvaluateChecklistMissingZero(t *testing.T) {
	s := checklistScheme("sachlichkeit")
	s.Aggregator.Missing = "zero"

	stub := newStubJudge()
	stub.responses["sachlichkeit"] = `{
		"belege": {"level": 2, "reasoning": "gut belegt"}
	}`

	eng := newTestEngine(t, stub, s)
	response := eng.Evaluate(context.Background(), Params{
		Text:      sampleText,
		SchemeIDs: []string{"sachlichkeit"},
	})

	// Missing item keeps its weight at score 0: 2/3 * 5 = 3.33
	if response.Results[0].Value != 3.33 {
		t.Errorf("expected missing item scored as zero giving 3.33, got %v", response.Results[0].Value)
	}
}

func TestEvaluateGateRejectWins(t *testing.T) {
	stub := newStubJudge()
	stub.responses["jugendschutz"] = `{
		"gewalt": {"triggered": true, "reasoning": "explizite Gewaltszene"},
		"hassrede": {"triggered": false}
	}`

	eng := newTestEngine(t, stub, gateScheme("jugendschutz"))
	response := eng.Evaluate(context.Background(), Params{
		Text:             sampleText,
		SchemeIDs:        []string{"jugendschutz"},
		Context:          models.ContextContent,
		IncludeReasoning: true,
	})

	result := response.Results[0]
	if result.Value != false {
		t.Fatalf("expected gate failed, got %v", result.Value)
	}
	if result.Label != "FAIL" {
		t.Errorf("expected label FAIL, got %q", result.Label)
	}
	if result.Reasoning != "Gewaltdarstellung ist unzulässig." {
		t.Errorf("expected rule reason, got %q", result.Reasoning)
	}
	if response.GatesPassed {
		t.Error("expected gates_passed false")
	}

	entry, ok := result.Criteria["gewalt"].(map[string]any)
	if !ok {
		t.Fatal("missing criteria entry for triggering rule")
	}
	if entry["severity"] != "high" {
		t.Errorf("expected severity high on triggering rule, got %v", entry["severity"])
	}
	if entry["legal_reference"] != "§ 4 JMStV" {
		t.Errorf("expected legal reference on triggering rule, got %v", entry["legal_reference"])
	}
}

func TestEvaluateGateDefaultPass(t *testing.T) {
	stub := newStubJudge()
	stub.responses["jugendschutz"] = `{
		"gewalt": {"triggered": false},
		"hassrede": {"triggered": false}
	}`

	eng := newTestEngine(t, stub, gateScheme("jugendschutz"))
	response := eng.Evaluate(context.Background(), Params{
		Text:      sampleText,
		SchemeIDs: []string{"jugendschutz"},
		Context:   models.ContextContent,
	})

	result := response.Results[0]
	if result.Value != true {
		t.Errorf("expected default pass, got %v", result.Value)
	}
	if !response.GatesPassed {
		t.Error("expected gates_passed true")
	}
}

func TestEvaluateGateOrLogicPassRule(t *testing.T) {
	gate := &schema.Schema{
		ID:            "ausnahme_gate",
		Name:          "ausnahme_gate",
		Dimension:     "ausnahme_gate",
		Kind:          schema.KindBinaryGate,
		OutputRange:   schema.OutputRange{Type: "boolean"},
		GateLogic:     "OR",
		DefaultAction: "reject",
		GateRules: []schema.GateRule{
			{
				ID: "gewalt", Description: "Gewaltdarstellung", Action: "reject",
				Reason: "Gewaltdarstellung ist unzulässig.", Scope: models.ContextBoth,
			},
			{
				ID: "satire", Description: "Erkennbare Satire", Action: "pass",
				Reason: "Satirische Inhalte sind zulässig.", Confidence: 0.8,
				Scope: models.ContextBoth,
			},
		},
	}

	stub := newStubJudge()
	stub.responses["ausnahme_gate"] = `{
		"gewalt": {"triggered": false},
		"satire": {"triggered": true, "reasoning": "klar überzeichnet"}
	}`

	eng := newTestEngine(t, stub, gate)
	response := eng.Evaluate(context.Background(), Params{
		Text:             sampleText,
		SchemeIDs:        []string{"ausnahme_gate"},
		IncludeReasoning: true,
	})

	result := response.Results[0]
	if result.Value != true {
		t.Errorf("expected triggered pass rule to pass the gate, got %v", result.Value)
	}
	if result.Reasoning != "Satirische Inhalte sind zulässig." {
		t.Errorf("expected the pass rule's reason, got %q", result.Reasoning)
	}
	if result.Confidence != 0.8 {
		t.Errorf("expected the pass rule's confidence 0.8, got %v", result.Confidence)
	}
	if !response.GatesPassed {
		t.Error("expected gates_passed true")
	}
}

func TestEvaluateGatePassRuleInformationalUnderAndLogic(t *testing.T) {
	gate := &schema.Schema{
		ID:            "ausnahme_gate",
		Name:          "ausnahme_gate",
		Dimension:     "ausnahme_gate",
		Kind:          schema.KindBinaryGate,
		OutputRange:   schema.OutputRange{Type: "boolean"},
		DefaultAction: "reject",
		GateRules: []schema.GateRule{
			{
				ID: "satire", Description: "Erkennbare Satire", Action: "pass",
				Reason: "Satirische Inhalte sind zulässig.", Scope: models.ContextBoth,
			},
		},
	}

	stub := newStubJudge()
	stub.responses["ausnahme_gate"] = `{"satire": {"triggered": true}}`

	eng := newTestEngine(t, stub, gate)
	response := eng.Evaluate(context.Background(), Params{
		Text:      sampleText,
		SchemeIDs: []string{"ausnahme_gate"},
	})

	// Without OR logic a triggered pass rule does not override the
	// default action.
	result := response.Results[0]
	if result.Value != false {
		t.Errorf("expected default_action reject to decide, got %v", result.Value)
	}
}

func TestGateScopeFiltering(t *testing.T) {
	cases := []struct {
		name     string
		context  models.ContextType
		expected []string
		excluded []string
	}{
		{"content", models.ContextContent, []string{"gewalt", "hassrede"}, []string{"werbung"}},
		{"platform", models.ContextPlatform, []string{"werbung", "hassrede"}, []string{"gewalt"}},
		{"both", models.ContextBoth, []string{"gewalt", "werbung", "hassrede"}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := newStubJudge()
			stub.responses["jugendschutz"] = `{}`

			eng := newTestEngine(t, stub, gateScheme("jugendschutz"))
			response := eng.Evaluate(context.Background(), Params{
				Text:             sampleText,
				SchemeIDs:        []string{"jugendschutz"},
				Context:          tc.context,
				IncludeReasoning: true,
			})

			result := response.Results[0]
			for _, id := range tc.expected {
				if _, ok := result.Criteria[id]; !ok {
					t.Errorf("expected rule %s in criteria under context %s", id, tc.context)
				}
			}
			for _, id := range tc.excluded {
				if _, ok := result.Criteria[id]; ok {
					t.Errorf("rule %s must be filtered out under context %s", id, tc.context)
				}
			}

			prompt := stub.prompts[len(stub.prompts)-1]
			for _, id := range tc.excluded {
				if strings.Contains(prompt, id) {
					t.Errorf("out-of-scope rule %s leaked into the prompt", id)
				}
			}
		})
	}
}

func derivedQualityScheme() *schema.Schema {
	return &schema.Schema{
		ID:           "gesamt",
		Name:         "gesamt",
		Dimension:    "gesamt",
		Kind:         schema.KindDerived,
		Dependencies: []string{"neutralitaet", "sachlichkeit"},
		OutputRange:  schema.OutputRange{Min: 1, Max: 5, Type: "float"},
		Rules: []schema.DerivedRule{
			{
				Conditions: []schema.Condition{
					{Dimension: "neutralitaet", Operator: ">=", Value: 1},
				},
				Value:     "weighted_average",
				Weights:   map[string]float64{"neutralitaet": 0.6, "sachlichkeit": 0.4},
				Reasoning: "Gewichteter Durchschnitt.",
			},
		},
	}
}

func TestDerivedWeightedAverage(t *testing.T) {
	stub := newStubJudge()
	stub.responses["neutralitaet"] = `{"value": 4, "reasoning": "neutral"}`
	stub.responses["sachlichkeit"] = `{
		"belege": {"level": 2},
		"sprache": {"level": 2}
	}`

	eng := newTestEngine(t, stub,
		ordinalScheme("neutralitaet"),
		checklistScheme("sachlichkeit"),
		derivedQualityScheme(),
	)
	response := eng.Evaluate(context.Background(), Params{
		Text:             sampleText,
		SchemeIDs:        []string{"gesamt"},
		IncludeReasoning: true,
	})

	result := response.Results[0]
	// neutralitaet 4, sachlichkeit 5.0: 4*0.6 + 5*0.4 = 4.4
	if result.Value != 4.4 {
		t.Errorf("expected weighted average 4.4, got %v", result.Value)
	}
	if len(result.Criteria) != 2 {
		t.Errorf("expected 2 dependency criteria, got %d", len(result.Criteria))
	}
	entry, ok := result.Criteria["neutralitaet"].(map[string]any)
	if !ok {
		t.Fatal("missing dependency entry for neutralitaet")
	}
	if entry["weight"] != 0.6 {
		t.Errorf("expected weight 0.6 in dependency entry, got %v", entry["weight"])
	}
}

func TestDerivedMemoizesSharedDependencies(t *testing.T) {
	stub := newStubJudge()
	stub.responses["neutralitaet"] = `{"value": 4}`
	stub.responses["sachlichkeit"] = `{"belege": {"level": 2}, "sprache": {"level": 2}}`

	eng := newTestEngine(t, stub,
		ordinalScheme("neutralitaet"),
		checklistScheme("sachlichkeit"),
		derivedQualityScheme(),
	)

	// The derived scheme and both of its leaves are requested directly;
	// each leaf must still be judged exactly once.
	response := eng.Evaluate(context.Background(), Params{
		Text:      sampleText,
		SchemeIDs: []string{"gesamt", "neutralitaet", "sachlichkeit"},
	})

	if stub.callCount("neutralitaet") != 1 {
		t.Errorf("expected 1 judge call for neutralitaet, got %d", stub.callCount("neutralitaet"))
	}
	if stub.callCount("sachlichkeit") != 1 {
		t.Errorf("expected 1 judge call for sachlichkeit, got %d", stub.callCount("sachlichkeit"))
	}

	// Shared evaluation must produce identical values at both positions.
	if response.Results[0].Criteria != nil {
		t.Error("expected criteria stripped when include_reasoning is false")
	}
	if response.Results[1].Value != 4 {
		t.Errorf("expected top-level neutralitaet value 4, got %v", response.Results[1].Value)
	}
}

func TestDerivedAndGate(t *testing.T) {
	gateA := gateScheme("gate_a")
	gateB := gateScheme("gate_b")
	gateB.Dimension = "gate_b"

	derived := &schema.Schema{
		ID:           "compliance",
		Name:         "compliance",
		Dimension:    "compliance",
		Kind:         schema.KindDerived,
		Dependencies: []string{"gate_a", "gate_b"},
		OutputRange:  schema.OutputRange{Type: "boolean"},
		Rules: []schema.DerivedRule{
			{Value: "and_gate", Label: "PASS"},
		},
	}

	stub := newStubJudge()
	stub.responses["gate_a"] = `{"gewalt": {"triggered": false}, "hassrede": {"triggered": false}}`
	stub.responses["gate_b"] = `{"gewalt": {"triggered": true, "reasoning": "Verstoß"}}`

	eng := newTestEngine(t, stub, gateA, gateB, derived)
	response := eng.Evaluate(context.Background(), Params{
		Text:      sampleText,
		SchemeIDs: []string{"compliance"},
		Context:   models.ContextContent,
	})

	if response.Results[0].Value != false {
		t.Errorf("expected and_gate false when one gate fails, got %v", response.Results[0].Value)
	}
}

func TestDerivedSumClampedToOutputRange(t *testing.T) {
	derived := &schema.Schema{
		ID:           "gesamtlast",
		Name:         "gesamtlast",
		Dimension:    "gesamtlast",
		Kind:         schema.KindDerived,
		Dependencies: []string{"neutralitaet", "transparenz"},
		OutputRange:  schema.OutputRange{Min: 1, Max: 5, Type: "float"},
		Rules: []schema.DerivedRule{
			{Value: "sum"},
		},
	}

	stub := newStubJudge()
	stub.responses["neutralitaet"] = `{"value": 4}`
	stub.responses["transparenz"] = `{"value": 4}`

	eng := newTestEngine(t, stub,
		ordinalScheme("neutralitaet"),
		ordinalScheme("transparenz"),
		derived,
	)
	response := eng.Evaluate(context.Background(), Params{
		Text:      sampleText,
		SchemeIDs: []string{"gesamtlast"},
	})

	// 4 + 4 = 8 exceeds the scheme's range and must be snapped to max.
	if response.Results[0].Value != 5.0 {
		t.Errorf("expected sum clamped to 5.0, got %v", response.Results[0].Value)
	}
}

func TestFailureLocalization(t *testing.T) {
	stub := newStubJudge()
	stub.responses["neutralitaet"] = `{"value": 4}`
	stub.errors["sachlichkeit"] = fmt.Errorf("model timeout")

	eng := newTestEngine(t, stub,
		ordinalScheme("neutralitaet"),
		checklistScheme("sachlichkeit"),
	)
	response := eng.Evaluate(context.Background(), Params{
		Text:      sampleText,
		SchemeIDs: []string{"neutralitaet", "sachlichkeit"},
	})

	if response.Results[0].Value != 4 {
		t.Errorf("healthy sibling must not be affected, got %v", response.Results[0].Value)
	}

	failed := response.Results[1]
	if failed.Label != "Unbewertet" {
		t.Errorf("expected fallback label Unbewertet, got %q", failed.Label)
	}
	if failed.Confidence != 0.0 {
		t.Errorf("expected fallback confidence 0, got %v", failed.Confidence)
	}

	if len(response.Metadata.ErroredSchemes) != 1 || response.Metadata.ErroredSchemes[0] != "sachlichkeit" {
		t.Errorf("expected errored_schemes [sachlichkeit], got %v", response.Metadata.ErroredSchemes)
	}
}

func TestUnknownSchemeID(t *testing.T) {
	stub := newStubJudge()
	stub.responses["neutralitaet"] = `{"value": 3}`

	eng := newTestEngine(t, stub, ordinalScheme("neutralitaet"))
	response := eng.Evaluate(context.Background(), Params{
		Text:      sampleText,
		SchemeIDs: []string{"neutralitaet", "gibt_es_nicht"},
	})

	unknown := response.Results[1]
	if unknown.SchemeID != "gibt_es_nicht" {
		t.Errorf("expected result slot for the unknown id, got %q", unknown.SchemeID)
	}
	if unknown.Label != "Unbewertet" {
		t.Errorf("expected label Unbewertet, got %q", unknown.Label)
	}
	if len(response.Metadata.ErroredSchemes) != 1 {
		t.Errorf("expected unknown scheme in errored_schemes, got %v", response.Metadata.ErroredSchemes)
	}
}

func TestResultsPreserveRequestOrder(t *testing.T) {
	stub := newStubJudge()
	stub.responses["neutralitaet"] = `{"value": 4}`
	stub.responses["sachlichkeit"] = `{"belege": {"level": 2}, "sprache": {"level": 2}}`
	stub.responses["jugendschutz"] = `{"gewalt": {"triggered": false}, "hassrede": {"triggered": false}}`

	eng := newTestEngine(t, stub,
		ordinalScheme("neutralitaet"),
		checklistScheme("sachlichkeit"),
		gateScheme("jugendschutz"),
	)

	ids := []string{"jugendschutz", "sachlichkeit", "neutralitaet"}
	response := eng.Evaluate(context.Background(), Params{
		Text:      sampleText,
		SchemeIDs: ids,
	})

	for i, id := range ids {
		if response.Results[i].SchemeID != id {
			t.Errorf("result %d: expected scheme %s, got %s", i, id, response.Results[i].SchemeID)
		}
	}
}

func TestRollupOverallScore(t *testing.T) {
	stub := newStubJudge()
	stub.responses["neutralitaet"] = `{"value": 4}`
	stub.responses["sachlichkeit"] = `{"belege": {"level": 2}, "sprache": {"level": 2}}`
	stub.responses["jugendschutz"] = `{"gewalt": {"triggered": false}, "hassrede": {"triggered": false}}`

	eng := newTestEngine(t, stub,
		ordinalScheme("neutralitaet"),
		checklistScheme("sachlichkeit"),
		gateScheme("jugendschutz"),
	)
	response := eng.Evaluate(context.Background(), Params{
		Text:      sampleText,
		SchemeIDs: []string{"neutralitaet", "sachlichkeit", "jugendschutz"},
	})

	if response.OverallScore == nil {
		t.Fatal("expected overall score over the numeric results")
	}
	// (4 + 5.0) / 2 = 4.5; the boolean gate does not contribute
	if *response.OverallScore != 4.5 {
		t.Errorf("expected overall score 4.5, got %v", *response.OverallScore)
	}
	if response.OverallLabel != "Sehr gut" {
		t.Errorf("expected overall label Gut, got %q", response.OverallLabel)
	}
	if !response.GatesPassed {
		t.Error("expected gates_passed true")
	}
}

func TestIncludeReasoningStripsPayload(t *testing.T) {
	stub := newStubJudge()
	stub.responses["jugendschutz"] = `{"gewalt": {"triggered": true, "reasoning": "Szene"}, "hassrede": {"triggered": false}}`

	eng := newTestEngine(t, stub, gateScheme("jugendschutz"))
	response := eng.Evaluate(context.Background(), Params{
		Text:      sampleText,
		SchemeIDs: []string{"jugendschutz"},
		Context:   models.ContextContent,
	})

	result := response.Results[0]
	if result.Reasoning != "" {
		t.Errorf("expected reasoning stripped, got %q", result.Reasoning)
	}
	if result.Criteria != nil {
		t.Error("expected criteria stripped")
	}
	// The verdict itself survives.
	if result.Value != false {
		t.Errorf("expected gate verdict kept, got %v", result.Value)
	}
}

func TestProvenanceAndMetadata(t *testing.T) {
	stub := newStubJudge()
	stub.responses["neutralitaet"] = `{"value": 4}`

	eng := newTestEngine(t, stub, ordinalScheme("neutralitaet"))
	response := eng.Evaluate(context.Background(), Params{
		Text:             sampleText,
		SchemeIDs:        []string{"neutralitaet"},
		IncludeReasoning: true,
	})

	if response.Provenance.APIVersion != "0.1.0" {
		t.Errorf("unexpected api version %q", response.Provenance.APIVersion)
	}
	if response.Provenance.SchemesCount != 1 {
		t.Errorf("expected schemes_count 1, got %d", response.Provenance.SchemesCount)
	}
	if response.Provenance.TextLength == 0 {
		t.Error("expected text_length set")
	}
	if response.Metadata.ModelUsed != "stub-model" {
		t.Errorf("unexpected model %q", response.Metadata.ModelUsed)
	}
	if !response.Metadata.IncludeReasoning {
		t.Error("expected include_reasoning echoed in metadata")
	}
}

package engine

import (
	"context"

	"github.com/openjudge/content-evaluator/internal/judge"
	"github.com/openjudge/content-evaluator/internal/models"
	"github.com/openjudge/content-evaluator/internal/schema"
)

// evaluateGate runs one judge call over the scope-filtered rules, then
// applies the gate logic deterministically in declaration order.
func (e *Engine) evaluateGate(ctx context.Context, s *schema.Schema, p Params) models.EvaluationResult {
	rules := filterGateRules(s, p.Context)
	if len(rules) == 0 {
		return e.shapeGateResult(s, nil, nil, p.Context)
	}

	prompt := buildGatePrompt(p.Text, s, rules)
	raw, err := e.judge.Judge(ctx, judge.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		Temperature:  gateTemperature,
		MaxTokens:    judgeMaxTokens,
	})
	if err != nil {
		return e.fallbackResult(s, err)
	}

	judgments := map[string]ruleJudgment{}
	if err := decodeResponse(raw, &judgments); err != nil {
		return e.fallbackResult(s, err)
	}

	return e.shapeGateResult(s, rules, judgments, p.Context)
}

// shapeGateResult applies the declaration-order gate logic: the first
// triggered reject rule fails the gate and supplies the result's fields;
// with gate_logic OR a triggered pass rule passes it; otherwise the
// default action decides. A rule the judge did not mention counts as not
// triggered.
func (e *Engine) shapeGateResult(s *schema.Schema, rules []schema.GateRule, judgments map[string]ruleJudgment, ctx models.ContextType) models.EvaluationResult {
	result := models.EvaluationResult{
		SchemeID:  s.ID,
		Dimension: s.Dimension,
		ScaleInfo: scaleInfo(s),
		Criteria:  map[string]any{},
	}

	var rejected *schema.GateRule
	var passedBy *schema.GateRule

	for i := range rules {
		rule := &rules[i]
		judgment := judgments[rule.ID]

		entry := map[string]any{
			"triggered": judgment.Triggered,
			"action":    rule.Action,
			"passed":    !(judgment.Triggered && rule.Action == "reject"),
		}
		if judgment.Reasoning != "" {
			entry["reasoning"] = judgment.Reasoning
		}
		result.Criteria[rule.ID] = entry

		if !judgment.Triggered {
			continue
		}
		if rule.Action == "reject" && rejected == nil {
			rejected = rule
		}
		if rule.Action == "pass" && passedBy == nil {
			passedBy = rule
		}
	}

	var passed bool
	switch {
	case rejected != nil:
		passed = false
		result.Reasoning = rejected.Reason
		result.Confidence = ruleConfidence(rejected.Confidence)
		entry := result.Criteria[rejected.ID].(map[string]any)
		entry["severity"] = rejected.Severity
		if rejected.LegalReference != "" {
			entry["legal_reference"] = rejected.LegalReference
		}
	case s.GateLogic == "OR" && passedBy != nil:
		passed = true
		result.Reasoning = passedBy.Reason
		result.Confidence = ruleConfidence(passedBy.Confidence)
	default:
		passed = s.DefaultAction == "pass"
		result.Confidence = 0.9
		if passed {
			result.Reasoning = "Keine Regel ausgelöst, Standardaktion: bestanden"
		} else {
			result.Reasoning = "Keine Regel ausgelöst, Standardaktion: abgelehnt"
		}
	}

	result.Value = passed
	result.Label = s.ResolveLabel(passed)
	if result.Label == "" {
		if passed {
			result.Label = "PASS"
		} else {
			result.Label = "FAIL"
		}
	}
	return result
}

func ruleConfidence(c float64) float64 {
	if c <= 0 {
		return 0.9
	}
	return c
}

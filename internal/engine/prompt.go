package engine

import (
	"fmt"
	"strings"

	"github.com/openjudge/content-evaluator/internal/models"
	"github.com/openjudge/content-evaluator/internal/schema"
)

// Prompt building per scheme kind. Every prompt instructs the model to
// answer with a single strict JSON object. Scheme internals the model has
// no use for (weights, aggregator config, output ranges) are never sent.

const systemPrompt = "You are a strict content-evaluation judge. " +
	"Evaluate only what you are asked. Respond with a single JSON object and nothing else: " +
	"no prose, no markdown fences."

const (
	gateTemperature      = 0.1
	checklistTemperature = 0.1
	ordinalTemperature   = 0.2
	judgeMaxTokens       = 2048
)

// filterGateRules applies the request context to a gate's rules:
// content keeps {content, both}, platform keeps {platform, both},
// both keeps all. Pure function of rule scope and request context.
func filterGateRules(s *schema.Schema, ctx models.ContextType) []schema.GateRule {
	var rules []schema.GateRule
	for _, rule := range s.GateRules {
		if rule.InScope(ctx) {
			rules = append(rules, rule)
		}
	}
	return rules
}

func buildGatePrompt(text string, s *schema.Schema, rules []schema.GateRule) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Check the following text against the rules of %q.\n\n", s.Name)
	fmt.Fprintf(&b, "Text:\n%s\n\n", text)
	b.WriteString("Rules:\n")
	for _, rule := range rules {
		fmt.Fprintf(&b, "- id: %s\n  description: %s\n", rule.ID, rule.Description)
		if len(rule.TriggerKeywords) > 0 {
			fmt.Fprintf(&b, "  trigger_keywords: %s\n", strings.Join(rule.TriggerKeywords, ", "))
		}
		if len(rule.NotTriggerKeywords) > 0 {
			fmt.Fprintf(&b, "  not_trigger_keywords: %s\n", strings.Join(rule.NotTriggerKeywords, ", "))
		}
		if rule.EvaluationHint != "" {
			fmt.Fprintf(&b, "  hint: %s\n", rule.EvaluationHint)
		}
	}

	b.WriteString("\nFor every rule decide whether the text triggers it.\n")
	b.WriteString("Answer with a JSON object mapping each rule id to an object:\n")
	b.WriteString(`{"<rule_id>": {"triggered": true|false, "reasoning": "<short explanation>"}}` + "\n")
	return b.String()
}

func buildChecklistPrompt(text string, s *schema.Schema) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Rate the following text against the checklist for %q (dimension: %s).\n\n", s.Name, s.Dimension)
	fmt.Fprintf(&b, "Text:\n%s\n\n", text)
	b.WriteString("Checklist:\n")
	for _, item := range s.Items {
		fmt.Fprintf(&b, "- id: %s\n  question: %s\n  levels:\n", item.ID, item.Prompt)
		for _, level := range item.Levels() {
			lv := item.Values[fmt.Sprint(level)]
			fmt.Fprintf(&b, "    %d: %s\n", level, lv.Description)
		}
		if item.AllowNA {
			b.WriteString("    na: not applicable to this text\n")
		}
	}

	b.WriteString("\nAnswer with a JSON object mapping each item id to an object:\n")
	b.WriteString(`{"<item_id>": {"level": <level number or "na">, "reasoning": "<short explanation>"}}` + "\n")
	return b.String()
}

func buildOrdinalPrompt(text string, s *schema.Schema) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Rate the following text on the rubric for %q (dimension: %s).\n\n", s.Name, s.Dimension)
	fmt.Fprintf(&b, "Text:\n%s\n\n", text)
	b.WriteString("Levels, best first:\n")
	for _, anchor := range s.Anchors {
		fmt.Fprintf(&b, "- %d (%s): %s\n", anchor.Value, anchor.Label, anchor.Criteria)
	}

	b.WriteString("\nPick the single level whose criteria the text satisfies.\n")
	b.WriteString("Answer with a JSON object:\n")
	b.WriteString(`{"value": <level number>, "reasoning": "<short explanation>", "confidence": <0.0-1.0>}` + "\n")
	return b.String()
}

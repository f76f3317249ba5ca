package engine

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/openjudge/content-evaluator/internal/models"
	"github.com/openjudge/content-evaluator/internal/schema"
)

// evaluateDerived resolves all dependencies concurrently through the
// request cache, then applies the scheme's rules in declaration order to
// the settled results. No LLM call is made here.
func (e *Engine) evaluateDerived(ctx context.Context, cache *requestCache, s *schema.Schema, p Params) models.EvaluationResult {
	deps := e.resolveDependencies(ctx, cache, s, p)

	// Dependency results indexed by dimension; when two dependencies
	// share a dimension the first one in declaration order wins.
	byDimension := make(map[string]*models.EvaluationResult, len(deps))
	for i := range deps {
		dim := deps[i].Dimension
		if _, taken := byDimension[dim]; !taken {
			byDimension[dim] = &deps[i]
		}
	}

	for _, rule := range s.Rules {
		if !conditionsHold(rule, byDimension) {
			continue
		}
		result, ok := e.applyRule(s, rule, deps, byDimension)
		if ok {
			return result
		}
		// An unapplicable rule (e.g. zero total weight) falls through to
		// the scheme default.
		break
	}

	return e.defaultDerivedResult(s, deps)
}

func conditionsHold(rule schema.DerivedRule, byDimension map[string]*models.EvaluationResult) bool {
	if len(rule.Conditions) == 0 {
		return true
	}

	if rule.ConditionLogic == "OR" {
		for _, cond := range rule.Conditions {
			if conditionMet(cond, byDimension) {
				return true
			}
		}
		return false
	}

	for _, cond := range rule.Conditions {
		if !conditionMet(cond, byDimension) {
			return false
		}
	}
	return true
}

func conditionMet(cond schema.Condition, byDimension map[string]*models.EvaluationResult) bool {
	dep, ok := byDimension[cond.Dimension]
	if !ok || dep.Value == nil {
		return false
	}

	switch cond.Operator {
	case "in":
		return valueInList(dep.Value, cond.Value)
	case "not_in":
		return !valueInList(dep.Value, cond.Value)
	case "==":
		return valuesEqual(dep.Value, cond.Value)
	case "!=":
		return !valuesEqual(dep.Value, cond.Value)
	}

	left, okL := asFloat(dep.Value)
	right, okR := asFloat(cond.Value)
	if !okL || !okR {
		return false
	}
	switch cond.Operator {
	case ">":
		return left > right
	case ">=":
		return left >= right
	case "<":
		return left < right
	case "<=":
		return left <= right
	}
	return false
}

func valuesEqual(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func valueInList(v, list any) bool {
	items, ok := list.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if valuesEqual(v, item) {
			return true
		}
	}
	return false
}

// applyRule computes the matched rule's value. The second return is false
// only when the rule cannot produce a value (weighted average with zero
// total weight), which sends the scheme to its default.
func (e *Engine) applyRule(s *schema.Schema, rule schema.DerivedRule, deps []models.EvaluationResult, byDimension map[string]*models.EvaluationResult) (models.EvaluationResult, bool) {
	var value any

	switch method := rule.Value.(type) {
	case string:
		computed, ok := e.computeMethod(method, rule, deps, byDimension)
		if !ok {
			return models.EvaluationResult{}, false
		}
		value = computed
	default:
		value = rule.Value
	}

	// Computed values inherit the scheme's output range the same way
	// ordinal and checklist results do. Boolean ranges have no numeric
	// bounds to clamp against.
	if s.OutputRange.Type != "boolean" {
		if f, ok := asFloat(value); ok {
			value = s.OutputRange.Clamp(f)
		}
	}

	confidence := rule.Confidence
	if confidence <= 0 {
		confidence = 0.9
	}

	label := rule.Label
	if label == "" {
		label = s.ResolveLabel(value)
	}

	return models.EvaluationResult{
		SchemeID:   s.ID,
		Dimension:  s.Dimension,
		Value:      value,
		Label:      label,
		Confidence: confidence,
		Reasoning:  rule.Reasoning,
		Criteria:   dependencyCriteria(deps, rule.Weights),
		ScaleInfo:  derivedScaleInfo(s, rule),
	}, true
}

func (e *Engine) computeMethod(method string, rule schema.DerivedRule, deps []models.EvaluationResult, byDimension map[string]*models.EvaluationResult) (any, bool) {
	switch method {
	case "weighted_average":
		var weightedSum, totalWeight float64
		for dim, weight := range rule.Weights {
			dep, ok := byDimension[dim]
			if !ok {
				continue
			}
			v, numeric := asFloat(dep.Value)
			if !numeric {
				continue
			}
			weightedSum += v * weight
			totalWeight += weight
		}
		if totalWeight == 0 {
			return nil, false
		}
		return round2(weightedSum / totalWeight), true

	case "sum":
		var sum float64
		for _, dep := range deps {
			if v, ok := asFloat(dep.Value); ok {
				sum += v
			}
		}
		return round2(sum), true

	case "min":
		best := math.Inf(1)
		for _, dep := range deps {
			if v, ok := asFloat(dep.Value); ok && v < best {
				best = v
			}
		}
		if math.IsInf(best, 1) {
			return nil, false
		}
		return best, true

	case "max":
		best := math.Inf(-1)
		for _, dep := range deps {
			if v, ok := asFloat(dep.Value); ok && v > best {
				best = v
			}
		}
		if math.IsInf(best, -1) {
			return nil, false
		}
		return best, true

	case "and_gate":
		for _, dep := range deps {
			if b, ok := dep.Value.(bool); ok && !b {
				return false, true
			}
		}
		return true, true

	case "or_gate":
		for _, dep := range deps {
			if b, ok := dep.Value.(bool); ok && b {
				return true, true
			}
		}
		return false, true
	}

	return nil, false
}

// dependencyCriteria nests the settled dependency results under the
// derived result, each annotated with its rule-assigned weight.
func dependencyCriteria(deps []models.EvaluationResult, weights map[string]float64) map[string]any {
	criteria := make(map[string]any, len(deps))
	for _, dep := range deps {
		entry := map[string]any{
			"dimension":  dep.Dimension,
			"value":      dep.Value,
			"label":      dep.Label,
			"confidence": dep.Confidence,
		}
		if dep.Reasoning != "" {
			entry["reasoning"] = firstLine(dep.Reasoning)
		}
		if weight, ok := weights[dep.Dimension]; ok {
			entry["weight"] = weight
		}
		criteria[dep.SchemeID] = entry
	}
	return criteria
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (e *Engine) defaultDerivedResult(s *schema.Schema, deps []models.EvaluationResult) models.EvaluationResult {
	result := models.EvaluationResult{
		SchemeID:  s.ID,
		Dimension: s.Dimension,
		Criteria:  dependencyCriteria(deps, nil),
		ScaleInfo: scaleInfo(s),
	}

	if s.Default != nil {
		result.Value = s.Default.Value
		result.Label = s.Default.Label
		result.Reasoning = s.Default.Reasoning
		result.Confidence = s.Default.Confidence
		return result
	}

	result.Value = 0.0
	result.Label = "Unbewertet"
	result.Confidence = 0.0
	result.Reasoning = "Keine Ableitungsregel zutreffend"
	return result
}

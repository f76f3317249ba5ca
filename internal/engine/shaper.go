package engine

import (
	"fmt"

	"github.com/openjudge/content-evaluator/internal/schema"
)

// scaleInfo describes the scheme's kind and range so a consumer can
// interpret the value without re-reading the scheme file.
func scaleInfo(s *schema.Schema) map[string]any {
	switch s.Kind {
	case schema.KindOrdinal:
		return map[string]any{
			"type":    s.Kind.ScaleType(),
			"range":   s.OutputRange,
			"anchors": len(s.Anchors),
		}
	case schema.KindChecklist:
		return map[string]any{
			"type":             s.Kind.ScaleType(),
			"raw_range":        "0.0-1.0",
			"normalized_range": fmt.Sprintf("%.1f-%.1f", s.OutputRange.Min, s.OutputRange.Max),
		}
	case schema.KindBinaryGate:
		return map[string]any{
			"type":  s.Kind.ScaleType(),
			"rules": len(s.GateRules),
		}
	case schema.KindDerived:
		return map[string]any{
			"type":         s.Kind.ScaleType(),
			"method":       "rule_based",
			"dependencies": len(s.Dependencies),
		}
	}
	return map[string]any{"type": s.Kind.ScaleType()}
}

// derivedScaleInfo names the method of the matched rule and, for weighted
// aggregation, its weights.
func derivedScaleInfo(s *schema.Schema, rule schema.DerivedRule) map[string]any {
	info := scaleInfo(s)
	if method, ok := rule.Value.(string); ok {
		info["method"] = method
	}
	if len(rule.Weights) > 0 {
		info["weights"] = rule.Weights
	}
	return info
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

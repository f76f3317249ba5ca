package engine

import (
	"context"
	"fmt"

	"github.com/openjudge/content-evaluator/internal/judge"
	"github.com/openjudge/content-evaluator/internal/models"
	"github.com/openjudge/content-evaluator/internal/schema"
)

// evaluateOrdinal asks the judge for a single anchor selection. With the
// first_match strategy the anchors are presented best first and the value
// must name a defined anchor (off-scale answers snap to the nearest one);
// best_fit accepts the judge's value and confidence as returned.
func (e *Engine) evaluateOrdinal(ctx context.Context, s *schema.Schema, p Params) models.EvaluationResult {
	prompt := buildOrdinalPrompt(p.Text, s)
	raw, err := e.judge.Judge(ctx, judge.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		Temperature:  ordinalTemperature,
		MaxTokens:    judgeMaxTokens,
	})
	if err != nil {
		return e.fallbackResult(s, err)
	}

	var judgment ordinalJudgment
	if err := decodeResponse(raw, &judgment); err != nil {
		return e.fallbackResult(s, err)
	}
	if judgment.Value == nil {
		return e.fallbackResult(s, fmt.Errorf("judge response missing value"))
	}

	value := *judgment.Value
	anchor, exact := findAnchor(s, value)
	if s.Strategy == "first_match" && !exact {
		value = anchor.Value
	}
	value = int(s.OutputRange.Clamp(float64(value)))

	label := s.ResolveLabel(value)
	if label == "" {
		label = anchor.Label
	}

	confidence := judgment.Confidence
	if confidence <= 0 {
		confidence = 0.8
	}

	return models.EvaluationResult{
		SchemeID:   s.ID,
		Dimension:  s.Dimension,
		Value:      value,
		Label:      label,
		Confidence: confidence,
		Reasoning:  judgment.Reasoning,
		ScaleInfo:  scaleInfo(s),
	}
}

// findAnchor returns the anchor for value, or the closest one when the
// judge answered off the defined scale.
func findAnchor(s *schema.Schema, value int) (schema.Anchor, bool) {
	best := s.Anchors[0]
	for _, anchor := range s.Anchors {
		if anchor.Value == value {
			return anchor, true
		}
		if abs(anchor.Value-value) < abs(best.Value-value) {
			best = anchor
		}
	}
	return best, false
}

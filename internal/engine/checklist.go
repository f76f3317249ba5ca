package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/openjudge/content-evaluator/internal/judge"
	"github.com/openjudge/content-evaluator/internal/models"
	"github.com/openjudge/content-evaluator/internal/schema"
)

// evaluateChecklist runs a single judge call that rates every item, then
// aggregates a weighted mean over the normalized scores.
func (e *Engine) evaluateChecklist(ctx context.Context, s *schema.Schema, p Params) models.EvaluationResult {
	prompt := buildChecklistPrompt(p.Text, s)
	raw, err := e.judge.Judge(ctx, judge.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		Temperature:  checklistTemperature,
		MaxTokens:    judgeMaxTokens,
	})
	if err != nil {
		return e.fallbackResult(s, err)
	}

	judgments := map[string]itemJudgment{}
	if err := decodeResponse(raw, &judgments); err != nil {
		return e.fallbackResult(s, err)
	}

	return e.aggregateChecklist(s, judgments)
}

// aggregateChecklist computes Σ(weight·score)/Σ(weight) over the included
// items and scales the mean by the aggregator's scale factor. An item the
// judge skipped, and an "na" rating, follow the missing strategy: ignore
// drops the item from both sums, zero keeps its weight at score 0.
func (e *Engine) aggregateChecklist(s *schema.Schema, judgments map[string]itemJudgment) models.EvaluationResult {
	agg := s.Aggregator

	var weightedScore, totalWeight float64
	var confidenceSum float64
	var confidenceCount int
	criteria := map[string]any{}

	for _, item := range s.Items {
		judgment, answered := judgments[item.ID]
		missing := !answered || judgment.Level.NA

		entry := map[string]any{
			"name":   item.Prompt,
			"weight": item.Weight,
		}
		criteria[item.ID] = entry

		if missing {
			entry["level"] = "na"
			if answered && judgment.Reasoning != "" {
				entry["reasoning"] = judgment.Reasoning
			} else if !answered {
				entry["reasoning"] = "Keine Bewertung gefunden"
			}
			if agg.Missing == "zero" {
				totalWeight += item.Weight
				entry["normalized_score"] = 0.0
			}
			continue
		}

		level := snapLevel(item, judgment.Level.Level)
		score := item.Values[fmt.Sprint(level)].Score

		weightedScore += score * item.Weight
		totalWeight += item.Weight

		entry["level"] = level
		entry["normalized_score"] = round2(score * agg.ScaleFactor)
		if judgment.Reasoning != "" {
			entry["reasoning"] = judgment.Reasoning
		}
		if judgment.Confidence > 0 {
			confidenceSum += judgment.Confidence
			confidenceCount++
		}
	}

	if totalWeight == 0 {
		return e.fallbackResult(s, fmt.Errorf("no checklist item could be scored"))
	}

	value := s.OutputRange.Clamp(round2(weightedScore / totalWeight * agg.ScaleFactor))
	confidence := 0.8
	if confidenceCount > 0 {
		confidence = confidenceSum / float64(confidenceCount)
	}

	percentage := value / (s.Aggregator.ScaleFactor) * 100

	return models.EvaluationResult{
		SchemeID:   s.ID,
		Dimension:  s.Dimension,
		Value:      value,
		Label:      s.ResolveLabel(value),
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("Bewertung für %s: %.0f%% der möglichen Punkte erreicht.", s.Dimension, percentage),
		Criteria:   criteria,
		ScaleInfo:  scaleInfo(s),
	}
}

// snapLevel maps an out-of-range level to the closest defined one, the way
// a misread scale point is still a usable rating.
func snapLevel(item schema.ChecklistItem, level int) int {
	levels := item.Levels()
	if len(levels) == 0 {
		return level
	}
	best := levels[0]
	for _, l := range levels {
		if abs(l-level) < abs(best-level) {
			best = l
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

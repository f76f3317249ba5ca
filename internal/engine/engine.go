package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/openjudge/content-evaluator/internal/judge"
	"github.com/openjudge/content-evaluator/internal/models"
	"github.com/openjudge/content-evaluator/internal/schema"
	"github.com/rs/zerolog"
)

const apiVersion = "0.1.0"

// Engine evaluates text against registered schemes. It is safe for
// concurrent use; all per-request state lives in a request-local cache.
type Engine struct {
	registry  *schema.Registry
	judge     judge.Judge
	modelUsed string
	logger    *zerolog.Logger
}

func New(registry *schema.Registry, j judge.Judge, modelUsed string, logger *zerolog.Logger) *Engine {
	return &Engine{
		registry:  registry,
		judge:     j,
		modelUsed: modelUsed,
		logger:    logger,
	}
}

func (e *Engine) Registry() *schema.Registry {
	return e.registry
}

// Params describes one evaluation request.
type Params struct {
	Text             string
	SchemeIDs        []string
	Context          models.ContextType
	IncludeReasoning bool
}

// Evaluate walks the requested schemes and their dependency graph with
// maximum parallelism. Results come back in request order; a failing
// scheme never aborts its siblings.
func (e *Engine) Evaluate(ctx context.Context, p Params) models.EvaluationResponse {
	start := time.Now()
	if p.Context == "" {
		p.Context = models.ContextContent
	}

	e.logger.Info().
		Int("schemes", len(p.SchemeIDs)).
		Str("context_type", string(p.Context)).
		Msg("starting evaluation")

	cache := newRequestCache()
	results := make([]models.EvaluationResult, len(p.SchemeIDs))

	var wg sync.WaitGroup
	for i, id := range p.SchemeIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = e.evaluateScheme(ctx, cache, id, p)
		}(i, id)
	}
	wg.Wait()

	response := e.rollup(p, results)
	response.Metadata.ProcessingTimeMS = int(time.Since(start).Milliseconds())
	response.Metadata.ModelUsed = e.modelUsed
	response.Metadata.IncludeReasoning = p.IncludeReasoning
	response.Provenance = models.Provenance{
		Timestamp:    start.UTC().Format(time.RFC3339),
		APIVersion:   apiVersion,
		TextLength:   utf8.RuneCountInString(p.Text),
		SchemesCount: len(p.SchemeIDs),
	}

	if !p.IncludeReasoning {
		for i := range response.Results {
			response.Results[i].StripReasoning()
		}
	}

	e.logger.Info().
		Bool("gates_passed", response.GatesPassed).
		Int("processing_time_ms", response.Metadata.ProcessingTimeMS).
		Msg("evaluation complete")

	return response
}

// evaluateScheme resolves one scheme through the per-request cache. Only
// the first demand evaluates; everyone else awaits the settled entry.
func (e *Engine) evaluateScheme(ctx context.Context, cache *requestCache, id string, p Params) models.EvaluationResult {
	entry, owner := cache.demand(id)
	if !owner {
		return entry.await()
	}

	s, ok := e.registry.Get(id)
	var result models.EvaluationResult
	if !ok {
		result = models.EvaluationResult{
			SchemeID:   id,
			Value:      nil,
			Label:      "Unbewertet",
			Confidence: 0.0,
			Reasoning:  fmt.Sprintf("unknown scheme id %q", id),
			Errored:    true,
		}
	} else {
		result = e.dispatch(ctx, cache, s, p)
	}

	entry.settle(result)
	return result
}

func (e *Engine) dispatch(ctx context.Context, cache *requestCache, s *schema.Schema, p Params) models.EvaluationResult {
	switch s.Kind {
	case schema.KindOrdinal:
		return e.evaluateOrdinal(ctx, s, p)
	case schema.KindChecklist:
		return e.evaluateChecklist(ctx, s, p)
	case schema.KindBinaryGate:
		return e.evaluateGate(ctx, s, p)
	case schema.KindDerived:
		return e.evaluateDerived(ctx, cache, s, p)
	}
	return e.fallbackResult(s, fmt.Errorf("unsupported scheme kind %q", s.Kind))
}

// resolveDependencies evaluates all dependencies of a derived scheme
// concurrently through the shared cache.
func (e *Engine) resolveDependencies(ctx context.Context, cache *requestCache, s *schema.Schema, p Params) []models.EvaluationResult {
	results := make([]models.EvaluationResult, len(s.Dependencies))
	var wg sync.WaitGroup
	for i, dep := range s.Dependencies {
		wg.Add(1)
		go func(i int, dep string) {
			defer wg.Done()
			results[i] = e.evaluateScheme(ctx, cache, dep, p)
		}(i, dep)
	}
	wg.Wait()
	return results
}

// rollup computes gates_passed and the overall score/label across all
// settled results.
func (e *Engine) rollup(p Params, results []models.EvaluationResult) models.EvaluationResponse {
	response := models.EvaluationResponse{
		Results:     results,
		GatesPassed: true,
	}

	var sum float64
	var numeric int
	var labelSource *schema.Schema

	for _, result := range results {
		if result.Errored {
			response.Metadata.ErroredSchemes = append(response.Metadata.ErroredSchemes, result.SchemeID)
		}

		s, ok := e.registry.Get(result.SchemeID)
		if ok && s.Kind == schema.KindBinaryGate {
			if passed, isBool := result.Value.(bool); !isBool || !passed {
				response.GatesPassed = false
			}
		}

		switch v := result.Value.(type) {
		case int:
			sum += float64(v)
			numeric++
		case float64:
			sum += v
			numeric++
		default:
			continue
		}
		if labelSource == nil && ok && len(s.Labels) > 0 {
			labelSource = s
		}
	}

	if numeric > 0 {
		overall := sum / float64(numeric)
		response.OverallScore = &overall
		if labelSource != nil {
			response.OverallLabel = labelSource.ResolveLabel(overall)
		}
	}

	return response
}

// fallbackResult shapes the error-path result for a scheme: its declared
// default if present, otherwise a zero-valued "Unbewertet" result carrying
// the failure reason. Either way the result is flagged as errored.
func (e *Engine) fallbackResult(s *schema.Schema, cause error) models.EvaluationResult {
	e.logger.Warn().
		Err(cause).
		Str("scheme", s.ID).
		Msg("scheme evaluation failed, using fallback")

	result := models.EvaluationResult{
		SchemeID:  s.ID,
		Dimension: s.Dimension,
		ScaleInfo: scaleInfo(s),
		Errored:   true,
	}

	if s.Default != nil {
		result.Value = s.Default.Value
		result.Label = s.Default.Label
		result.Reasoning = s.Default.Reasoning
		result.Confidence = s.Default.Confidence
		return result
	}

	if s.OutputRange.Type == "boolean" {
		result.Value = false
	} else {
		result.Value = 0
	}
	result.Label = "Unbewertet"
	result.Confidence = 0.0
	result.Reasoning = cause.Error()
	return result
}

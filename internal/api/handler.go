package api

import (
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog"

	"github.com/openjudge/content-evaluator/internal/api/middleware"
	"github.com/openjudge/content-evaluator/internal/engine"
	"github.com/openjudge/content-evaluator/internal/models"
	"github.com/openjudge/content-evaluator/internal/schema"
)

const (
	minTextLength  = 10
	maxTextLength  = 50000
	maxSchemeCount = 10
)

type Handler struct {
	engine *engine.Engine
	logger *zerolog.Logger
}

func NewHandler(eng *engine.Engine, logger *zerolog.Logger) *Handler {
	return &Handler{
		engine: eng,
		logger: logger,
	}
}

type HealthResponse struct {
	Status        string `json:"status"`
	SchemasLoaded int    `json:"schemas_loaded"`
}

// GET /health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{
		Status:        "ok",
		SchemasLoaded: h.engine.Registry().Len(),
	})
}

type SchemeListResponse struct {
	Schemes []map[string]any `json:"schemes"`
	Count   int              `json:"count"`
}

// GET /schemes
// Query: include_parts (bool), context_type (content|platform|both), kind
func (h *Handler) ListSchemes(req *restful.Request, resp *restful.Response) {
	filter := schema.ListFilter{
		IncludeParts: req.QueryParameter("include_parts") == "true",
		Kind:         schema.Kind(req.QueryParameter("kind")),
	}

	if ct := req.QueryParameter("context_type"); ct != "" {
		contextType := models.ContextType(ct)
		if !contextType.Valid() {
			middleware.HandleError(resp, fmt.Errorf("invalid context_type %q", ct), http.StatusBadRequest)
			return
		}
		filter.ContextType = contextType
	}

	schemes := h.engine.Registry().List(filter)
	summaries := make([]map[string]any, 0, len(schemes))
	for _, s := range schemes {
		summaries = append(summaries, s.Summary())
	}

	resp.WriteHeaderAndEntity(http.StatusOK, SchemeListResponse{
		Schemes: summaries,
		Count:   len(summaries),
	})
}

// POST /evaluate
// Body: models.EvaluationRequest
// Returns: models.EvaluationResponse
func (h *Handler) Evaluate(req *restful.Request, resp *restful.Response) {
	var evalRequest models.EvaluationRequest
	if err := req.ReadEntity(&evalRequest); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	if err := validateRequest(&evalRequest); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	h.logger.Info().
		Int("text_length", utf8.RuneCountInString(evalRequest.Text)).
		Strs("schemes", evalRequest.Schemes).
		Str("context_type", string(evalRequest.ContextType)).
		Msg("Start evaluation")

	includeReasoning := true
	if evalRequest.IncludeReasoning != nil {
		includeReasoning = *evalRequest.IncludeReasoning
	}

	ctx := req.Request.Context()
	result := h.engine.Evaluate(ctx, engine.Params{
		Text:             evalRequest.Text,
		SchemeIDs:        evalRequest.Schemes,
		Context:          evalRequest.ContextType,
		IncludeReasoning: includeReasoning,
	})

	h.logger.Info().
		Bool("gates_passed", result.GatesPassed).
		Int("errored_schemes", len(result.Metadata.ErroredSchemes)).
		Int("processing_time_ms", result.Metadata.ProcessingTimeMS).
		Msg("Evaluation complete")

	resp.WriteHeaderAndEntity(http.StatusOK, result)
}

func validateRequest(req *models.EvaluationRequest) error {
	textLen := utf8.RuneCountInString(req.Text)
	if textLen < minTextLength || textLen > maxTextLength {
		return fmt.Errorf("text length must be between %d and %d characters, got %d",
			minTextLength, maxTextLength, textLen)
	}
	if len(req.Schemes) < 1 || len(req.Schemes) > maxSchemeCount {
		return fmt.Errorf("between 1 and %d schemes must be requested, got %d",
			maxSchemeCount, len(req.Schemes))
	}
	if req.ContextType != "" && !req.ContextType.Valid() {
		return fmt.Errorf("invalid context_type %q", req.ContextType)
	}
	return nil
}

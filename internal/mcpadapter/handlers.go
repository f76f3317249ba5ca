package mcpadapter

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/openjudge/content-evaluator/internal/engine"
	"github.com/openjudge/content-evaluator/internal/models"
	"github.com/openjudge/content-evaluator/internal/schema"
)

// EvaluateInput is the MCP tool input schema (matches HTTP API field names).
type EvaluateInput struct {
	Text             string   `json:"text" jsonschema:"text to evaluate"`
	Schemes          []string `json:"schemes" jsonschema:"scheme ids to evaluate against"`
	ContextType      string   `json:"context_type,omitempty" jsonschema:"evaluation context: content, platform or both (default: content)"`
	IncludeReasoning *bool    `json:"include_reasoning,omitempty" jsonschema:"include per-dimension reasoning in the result (default: true)"`
}

// ListSchemesInput is the MCP tool input schema for scheme discovery.
type ListSchemesInput struct {
	IncludeParts bool   `json:"include_parts,omitempty" jsonschema:"include internal part schemes"`
	ContextType  string `json:"context_type,omitempty" jsonschema:"filter by context: content, platform or both"`
	Kind         string `json:"kind,omitempty" jsonschema:"filter by scheme kind"`
}

// SchemeList is the list_schemes tool output.
type SchemeList struct {
	Schemes []map[string]any `json:"schemes"`
	Count   int              `json:"count"`
}

// NewEvaluateHandler returns a tool handler that uses the given engine.
// Pass the returned function to mcp.AddTool.
func NewEvaluateHandler(eng *engine.Engine) func(context.Context, *mcp.CallToolRequest, EvaluateInput) (*mcp.CallToolResult, models.EvaluationResponse, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input EvaluateInput) (*mcp.CallToolResult, models.EvaluationResponse, error) {
		return EvaluateText(ctx, eng, req, input)
	}
}

// EvaluateText runs the evaluation engine and returns the shaped result.
func EvaluateText(
	ctx context.Context,
	eng *engine.Engine,
	req *mcp.CallToolRequest,
	input EvaluateInput,
) (*mcp.CallToolResult, models.EvaluationResponse, error) {
	includeReasoning := true
	if input.IncludeReasoning != nil {
		includeReasoning = *input.IncludeReasoning
	}

	result := eng.Evaluate(ctx, engine.Params{
		Text:             input.Text,
		SchemeIDs:        input.Schemes,
		Context:          models.ContextType(input.ContextType),
		IncludeReasoning: includeReasoning,
	})

	return nil, result, nil
}

// NewListSchemesHandler returns a tool handler that lists loaded schemes.
// Pass the returned function to mcp.AddTool.
func NewListSchemesHandler(registry *schema.Registry) func(context.Context, *mcp.CallToolRequest, ListSchemesInput) (*mcp.CallToolResult, SchemeList, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListSchemesInput) (*mcp.CallToolResult, SchemeList, error) {
		schemes := registry.List(schema.ListFilter{
			IncludeParts: input.IncludeParts,
			ContextType:  models.ContextType(input.ContextType),
			Kind:         schema.Kind(input.Kind),
		})

		summaries := make([]map[string]any, 0, len(schemes))
		for _, s := range schemes {
			summaries = append(summaries, s.Summary())
		}

		return nil, SchemeList{Schemes: summaries, Count: len(summaries)}, nil
	}
}

package models

// ContextType selects which binary-gate rules apply to a request.
type ContextType string

const (
	ContextContent  ContextType = "content"
	ContextPlatform ContextType = "platform"
	ContextBoth     ContextType = "both"
)

func (c ContextType) Valid() bool {
	switch c {
	case ContextContent, ContextPlatform, ContextBoth:
		return true
	}
	return false
}

// Input message

type EvaluationRequest struct {
	Text             string      `json:"text"`
	Schemes          []string    `json:"schemes"`
	ContextType      ContextType `json:"context_type,omitempty"`
	IncludeReasoning *bool       `json:"include_reasoning,omitempty"`
}

// One scheme's output. Value is an int, float64 or bool depending on the
// scheme's output range.
type EvaluationResult struct {
	SchemeID   string         `json:"scheme_id"`
	Dimension  string         `json:"dimension"`
	Value      any            `json:"value"`
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Criteria   map[string]any `json:"criteria,omitempty"`
	ScaleInfo  map[string]any `json:"scale_info,omitempty"`
	Errored    bool           `json:"-"`
}

// StripReasoning removes the explanation payload for include_reasoning=false.
// Criteria carry per-item reasoning, so they are dropped as a whole.
func (r *EvaluationResult) StripReasoning() {
	r.Reasoning = ""
	r.Criteria = nil
}

type Metadata struct {
	ProcessingTimeMS int      `json:"processing_time_ms"`
	ModelUsed        string   `json:"model_used"`
	IncludeReasoning bool     `json:"include_reasoning"`
	ErroredSchemes   []string `json:"errored_schemes,omitempty"`
}

type Provenance struct {
	Timestamp    string `json:"timestamp"`
	APIVersion   string `json:"api_version"`
	TextLength   int    `json:"text_length"`
	SchemesCount int    `json:"schemes_count"`
}

// Final output returned over HTTP, the result stream and MCP.
type EvaluationResponse struct {
	Results      []EvaluationResult `json:"results"`
	GatesPassed  bool               `json:"gates_passed"`
	OverallScore *float64           `json:"overall_score,omitempty"`
	OverallLabel string             `json:"overall_label,omitempty"`
	Metadata     Metadata           `json:"metadata"`
	Provenance   Provenance         `json:"provenance"`
}

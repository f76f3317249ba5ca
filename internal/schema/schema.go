package schema

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/openjudge/content-evaluator/internal/models"
)

// Kind identifies how a scheme is evaluated.
type Kind string

const (
	KindOrdinal    Kind = "ordinal"
	KindChecklist  Kind = "checklist"
	KindBinaryGate Kind = "binary_gate"
	KindDerived    Kind = "derived"
)

func (k Kind) Valid() bool {
	switch k {
	case KindOrdinal, KindChecklist, KindBinaryGate, KindDerived:
		return true
	}
	return false
}

// ScaleType reported in scale_info for each kind.
func (k Kind) ScaleType() string {
	switch k {
	case KindOrdinal:
		return "ordinal_rubric"
	case KindChecklist:
		return "checklist_additive"
	case KindBinaryGate:
		return "binary_gate"
	case KindDerived:
		return "derived"
	}
	return string(k)
}

// OutputRange describes the value space of a scheme's result. Either a
// numeric min/max with a value type, or an enumerated value set.
type OutputRange struct {
	Min    float64 `yaml:"min" json:"min"`
	Max    float64 `yaml:"max" json:"max"`
	Type   string  `yaml:"type" json:"type"` // int|float|boolean
	Values []any   `yaml:"values,omitempty" json:"values,omitempty"`
}

// Contains reports whether v lies within the range (or value set).
func (r OutputRange) Contains(v any) bool {
	if len(r.Values) > 0 {
		for _, allowed := range r.Values {
			if fmt.Sprint(allowed) == fmt.Sprint(v) {
				return true
			}
		}
		return false
	}
	switch x := v.(type) {
	case bool:
		return r.Type == "boolean"
	case int:
		return float64(x) >= r.Min && float64(x) <= r.Max
	case float64:
		return x >= r.Min && x <= r.Max
	}
	return false
}

// Clamp forces f into [Min, Max].
func (r OutputRange) Clamp(f float64) float64 {
	return math.Min(r.Max, math.Max(r.Min, f))
}

// Fallback is the result emitted when a scheme cannot be evaluated.
type Fallback struct {
	Value      any     `yaml:"value"`
	Label      string  `yaml:"label"`
	Reasoning  string  `yaml:"reasoning"`
	Confidence float64 `yaml:"confidence"`
}

// Anchor is one level of an ordinal rubric, listed in descending order.
type Anchor struct {
	Value    int    `yaml:"value"`
	Label    string `yaml:"label"`
	Criteria string `yaml:"criteria"`
}

// LevelValue maps a checklist response level to a normalized score.
type LevelValue struct {
	Score       float64 `yaml:"score"`
	Description string  `yaml:"description"`
}

// ChecklistItem is one weighted criterion of an additive checklist.
type ChecklistItem struct {
	ID      string                `yaml:"id"`
	Prompt  string                `yaml:"prompt"`
	Weight  float64               `yaml:"weight"`
	Values  map[string]LevelValue `yaml:"values"` // level number (as string) or "na"
	AllowNA bool                  `yaml:"allow_na"`
}

// AggregatorSpec configures checklist score aggregation.
type AggregatorSpec struct {
	Strategy    string  `yaml:"strategy"` // weighted_mean
	Missing     string  `yaml:"missing"`  // ignore|zero
	ScaleFactor float64 `yaml:"scale_factor"`
}

// GateRule is one ordered rule of a binary gate.
type GateRule struct {
	ID                 string             `yaml:"id"`
	Description        string             `yaml:"description"`
	Action             string             `yaml:"action"` // reject|pass
	Reason             string             `yaml:"reason"`
	Severity           string             `yaml:"severity"`
	LegalReference     string             `yaml:"legal_reference"`
	Scope              models.ContextType `yaml:"scope"` // content|platform|both
	TriggerKeywords    []string           `yaml:"trigger_keywords"`
	NotTriggerKeywords []string           `yaml:"not_trigger_keywords"`
	EvaluationHint     string             `yaml:"evaluation_hint"`
	Confidence         float64            `yaml:"confidence"`
}

// InScope reports whether the rule applies under the request context.
func (r GateRule) InScope(ctx models.ContextType) bool {
	if ctx == models.ContextBoth || r.Scope == models.ContextBoth {
		return true
	}
	return r.Scope == ctx
}

// Condition compares a dependency result against a threshold.
type Condition struct {
	Dimension string `yaml:"dimension"`
	Operator  string `yaml:"operator"` // ==, !=, >, >=, <, <=, in, not_in
	Value     any    `yaml:"value"`
}

// DerivedRule computes a derived scheme's value from dependency results.
// Value is either a numeric literal or one of the method names
// weighted_average, sum, min, max, and_gate, or_gate.
type DerivedRule struct {
	ConditionLogic string             `yaml:"condition_logic"` // AND|OR
	Conditions     []Condition        `yaml:"conditions"`
	Value          any                `yaml:"value"`
	Label          string             `yaml:"label"`
	Reasoning      string             `yaml:"reasoning"`
	Confidence     float64            `yaml:"confidence"`
	Weights        map[string]float64 `yaml:"weights,omitempty"`
}

// Schema is one immutable evaluation scheme. The kind decides which of the
// payload sections is populated.
type Schema struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description"`
	Version      string            `yaml:"version"`
	Dimension    string            `yaml:"dimension"`
	Kind         Kind              `yaml:"kind"`
	OutputRange  OutputRange       `yaml:"output_range"`
	Labels       map[string]string `yaml:"labels,omitempty"`
	Default      *Fallback         `yaml:"default,omitempty"`
	Dependencies []string          `yaml:"dependencies,omitempty"`

	// ordinal
	Anchors  []Anchor `yaml:"anchors,omitempty"`
	Strategy string   `yaml:"strategy,omitempty"` // first_match|best_fit

	// checklist
	Items      []ChecklistItem `yaml:"items,omitempty"`
	Aggregator *AggregatorSpec `yaml:"aggregator,omitempty"`

	// binary_gate
	GateRules     []GateRule `yaml:"gate_rules,omitempty"`
	DefaultAction string     `yaml:"default_action,omitempty"` // pass|reject
	GateLogic     string     `yaml:"gate_logic,omitempty"`     // AND|OR

	// derived
	Rules []DerivedRule `yaml:"rules,omitempty"`
}

var rangeKeyPattern = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*-\s*(-?\d+(?:\.\d+)?)$`)

// ResolveLabel maps a result value to a human-readable label using the
// scheme's labels. Resolution order: exact key, containing numeric range
// key ("3.5-4.4"), then empty string so the caller can fall back to the
// matched anchor or rule label.
func (s *Schema) ResolveLabel(value any) string {
	if len(s.Labels) == 0 {
		return ""
	}
	if label, ok := s.Labels[formatValue(value)]; ok {
		return label
	}
	num, ok := asFloat(value)
	if !ok {
		return ""
	}
	for key, label := range s.Labels {
		m := rangeKeyPattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if num >= lo && num <= hi {
			return label
		}
	}
	return ""
}

func formatValue(v any) string {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		if x == math.Trunc(x) {
			return strconv.Itoa(int(x))
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
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

// IsPart reports whether the id names a partial scheme (*_part<N>), which
// the listing hides unless asked for.
var partPattern = regexp.MustCompile(`_part[0-9]+$`)

func (s *Schema) IsPart() bool {
	return partPattern.MatchString(s.ID)
}

func (s *Schema) normalize() {
	if s.Kind == KindOrdinal && s.Strategy == "" {
		s.Strategy = "first_match"
	}
	if s.Kind == KindBinaryGate {
		if s.DefaultAction == "" {
			s.DefaultAction = "pass"
		}
		if s.GateLogic == "" {
			s.GateLogic = "AND"
		}
		for i := range s.GateRules {
			if s.GateRules[i].Scope == "" {
				s.GateRules[i].Scope = models.ContextBoth
			}
		}
	}
	if s.Kind == KindChecklist {
		if s.Aggregator == nil {
			s.Aggregator = &AggregatorSpec{}
		}
		if s.Aggregator.Strategy == "" {
			s.Aggregator.Strategy = "weighted_mean"
		}
		if s.Aggregator.Missing == "" {
			s.Aggregator.Missing = "ignore"
		}
		if s.Aggregator.ScaleFactor == 0 {
			s.Aggregator.ScaleFactor = 1.0
		}
	}
	if s.Kind == KindDerived {
		for i := range s.Rules {
			if s.Rules[i].ConditionLogic == "" {
				s.Rules[i].ConditionLogic = "AND"
			}
		}
	}
}

func (s *Schema) validate() error {
	if s.ID == "" {
		return fmt.Errorf("scheme without id")
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("scheme %s: unknown kind %q", s.ID, s.Kind)
	}
	switch s.Kind {
	case KindOrdinal:
		if len(s.Anchors) == 0 {
			return fmt.Errorf("scheme %s: ordinal scheme needs anchors", s.ID)
		}
		if s.Strategy != "first_match" && s.Strategy != "best_fit" {
			return fmt.Errorf("scheme %s: unknown strategy %q", s.ID, s.Strategy)
		}
	case KindChecklist:
		if len(s.Items) == 0 {
			return fmt.Errorf("scheme %s: checklist scheme needs items", s.ID)
		}
		for _, item := range s.Items {
			if item.Weight <= 0 {
				return fmt.Errorf("scheme %s: item %s has non-positive weight", s.ID, item.ID)
			}
			for level, lv := range item.Values {
				if lv.Score < 0 || lv.Score > 1 {
					return fmt.Errorf("scheme %s: item %s level %s score %v outside [0,1]", s.ID, item.ID, level, lv.Score)
				}
			}
		}
		if s.Aggregator.ScaleFactor <= 0 {
			return fmt.Errorf("scheme %s: scale_factor must be > 0", s.ID)
		}
		if s.Aggregator.Missing != "ignore" && s.Aggregator.Missing != "zero" {
			return fmt.Errorf("scheme %s: unknown missing strategy %q", s.ID, s.Aggregator.Missing)
		}
	case KindBinaryGate:
		if len(s.GateRules) == 0 {
			return fmt.Errorf("scheme %s: binary gate needs gate_rules", s.ID)
		}
		for _, rule := range s.GateRules {
			if rule.ID == "" {
				return fmt.Errorf("scheme %s: gate rule without id", s.ID)
			}
			if rule.Action != "reject" && rule.Action != "pass" {
				return fmt.Errorf("scheme %s: rule %s has unknown action %q", s.ID, rule.ID, rule.Action)
			}
			if !rule.Scope.Valid() {
				return fmt.Errorf("scheme %s: rule %s has unknown scope %q", s.ID, rule.ID, rule.Scope)
			}
		}
		if s.DefaultAction != "pass" && s.DefaultAction != "reject" {
			return fmt.Errorf("scheme %s: unknown default_action %q", s.ID, s.DefaultAction)
		}
		if s.GateLogic != "AND" && s.GateLogic != "OR" {
			return fmt.Errorf("scheme %s: unknown gate_logic %q", s.ID, s.GateLogic)
		}
	case KindDerived:
		if len(s.Dependencies) == 0 {
			return fmt.Errorf("scheme %s: derived scheme needs dependencies", s.ID)
		}
		for _, rule := range s.Rules {
			if err := validateRuleValue(rule.Value); err != nil {
				return fmt.Errorf("scheme %s: %w", s.ID, err)
			}
			switch rule.Value.(type) {
			case int, float64, bool:
				if !s.OutputRange.Contains(rule.Value) {
					return fmt.Errorf("scheme %s: literal rule value %v outside output range", s.ID, rule.Value)
				}
			}
			for _, cond := range rule.Conditions {
				if !validOperator(cond.Operator) {
					return fmt.Errorf("scheme %s: unknown operator %q", s.ID, cond.Operator)
				}
			}
		}
	}
	return nil
}

func validateRuleValue(v any) error {
	switch x := v.(type) {
	case int, float64, bool:
		return nil
	case string:
		switch x {
		case "weighted_average", "sum", "min", "max", "and_gate", "or_gate":
			return nil
		}
		return fmt.Errorf("unknown rule value method %q", x)
	}
	return fmt.Errorf("rule value %v has unsupported type %T", v, v)
}

func validOperator(op string) bool {
	switch op {
	case "==", "!=", ">", ">=", "<", "<=", "in", "not_in":
		return true
	}
	return false
}

// MatchesContext reports whether the scheme is relevant under the given
// request context: gates need at least one rule in scope, derived schemes
// inherit from their dependencies, and the LLM-judged kinds are context
// independent. Used by the listing.
func (s *Schema) matchesContext(ctx models.ContextType, lookup func(string) (*Schema, bool)) bool {
	switch s.Kind {
	case KindBinaryGate:
		for _, rule := range s.GateRules {
			if rule.InScope(ctx) {
				return true
			}
		}
		return false
	case KindDerived:
		for _, dep := range s.Dependencies {
			if depSchema, ok := lookup(dep); ok && depSchema.matchesContext(ctx, lookup) {
				return true
			}
		}
		return false
	}
	return true
}

// Summary returns the listing entry for the scheme.
func (s *Schema) Summary() map[string]any {
	entry := map[string]any{
		"id":           s.ID,
		"name":         s.Name,
		"description":  s.Description,
		"kind":         string(s.Kind),
		"dimension":    s.Dimension,
		"output_range": s.OutputRange,
		"version":      s.versionOrDefault(),
	}
	if len(s.Dependencies) > 0 {
		entry["dependencies"] = s.Dependencies
	}
	return entry
}

func (s *Schema) versionOrDefault() string {
	if s.Version == "" {
		return "1.0"
	}
	return s.Version
}

// sortableLevels returns the numeric levels of a checklist item in
// ascending order.
func (i ChecklistItem) sortableLevels() []int {
	var levels []int
	for key := range i.Values {
		if n, err := strconv.Atoi(strings.TrimSpace(key)); err == nil {
			levels = append(levels, n)
		}
	}
	for a := 1; a < len(levels); a++ {
		for b := a; b > 0 && levels[b-1] > levels[b]; b-- {
			levels[b-1], levels[b] = levels[b], levels[b-1]
		}
	}
	return levels
}

// Levels exposes the ordered numeric levels for prompt building.
func (i ChecklistItem) Levels() []int {
	return i.sortableLevels()
}

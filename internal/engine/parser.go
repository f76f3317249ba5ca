package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// decodeResponse parses a judge response into v. The raw content goes
// through best-effort repair first: markdown fences are stripped and the
// first balanced JSON object is isolated, so prose before or after the
// object does not break decoding. All JSON repair is confined here; the
// evaluators only ever see typed data.
func decodeResponse(content string, v any) error {
	extracted, err := extractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(extracted), v); err != nil {
		return fmt.Errorf("failed to decode judge response: %w", err)
	}
	return nil
}

func extractJSON(content string) (string, error) {
	content = stripMarkdownCodeBlock(content)

	start := strings.IndexByte(content, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in judge response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in judge response")
}

// stripMarkdownCodeBlock removes markdown code block formatting if present
func stripMarkdownCodeBlock(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		firstNewline := strings.Index(content, "\n")
		if firstNewline == -1 {
			return content
		}

		closingBackticks := strings.LastIndex(content, "```")
		if closingBackticks == -1 || closingBackticks <= firstNewline {
			return content
		}

		content = content[firstNewline+1 : closingBackticks]
		content = strings.TrimSpace(content)
	}

	return content
}

// ruleJudgment is the judge's verdict on a single gate rule.
type ruleJudgment struct {
	Triggered bool   `json:"triggered"`
	Reasoning string `json:"reasoning"`
}

// itemLevel is a checklist rating: a numeric level or "na".
type itemLevel struct {
	NA    bool
	Level int
}

func (l *itemLevel) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		l.Level = n
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("level must be a number or \"na\"")
	}
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "na" || s == "n/a" {
		l.NA = true
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("level %q is neither a number nor \"na\"", s)
	}
	l.Level = n
	return nil
}

// itemJudgment is the judge's rating of a single checklist item.
type itemJudgment struct {
	Level      itemLevel `json:"level"`
	Reasoning  string    `json:"reasoning"`
	Confidence float64   `json:"confidence"`
}

// ordinalJudgment is the judge's anchor selection for an ordinal rubric.
type ordinalJudgment struct {
	Value      *int    `json:"value"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

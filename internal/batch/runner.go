package batch

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog"

	"github.com/openjudge/content-evaluator/internal/engine"
	"github.com/openjudge/content-evaluator/internal/models"
)

// OutputRecord mirrors one input line in the result file.
type OutputRecord struct {
	Line   int                        `json:"line"`
	Error  string                     `json:"error,omitempty"`
	Result *models.EvaluationResponse `json:"result,omitempty"`
}

type Runner struct {
	engine *engine.Engine
	logger *zerolog.Logger
}

func NewRunner(eng *engine.Engine, logger *zerolog.Logger) *Runner {
	return &Runner{
		engine: eng,
		logger: logger,
	}
}

// Run evaluates every record from input and writes one JSON result line
// per input line to output. Parse failures are reported in place rather
// than aborting the batch.
func (r *Runner) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	reader := NewReader(input, r.logger)
	encoder := json.NewEncoder(output)

	processed := 0
	failed := 0
	for record := range reader.ReadAll(ctx) {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		out := OutputRecord{Line: record.LineNumber}
		if record.Error != nil {
			failed++
			out.Error = record.Error.Error()
			r.logger.Warn().Err(record.Error).Int("line", record.LineNumber).Msg("Skipping bad record")
		} else {
			includeReasoning := true
			if record.Request.IncludeReasoning != nil {
				includeReasoning = *record.Request.IncludeReasoning
			}

			result := r.engine.Evaluate(ctx, engine.Params{
				Text:             record.Request.Text,
				SchemeIDs:        record.Request.Schemes,
				Context:          record.Request.ContextType,
				IncludeReasoning: includeReasoning,
			})
			out.Result = &result
			processed++
		}

		if err := encoder.Encode(out); err != nil {
			return err
		}
	}

	r.logger.Info().
		Int("processed", processed).
		Int("failed", failed).
		Msg("Batch complete")

	return nil
}

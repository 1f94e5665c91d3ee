package report

import (
	"context"
	"encoding/json"
	"io"

	"github.com/0x6d61/rawget/internal/engine"
)

// JSONReporter outputs structured JSON.
type JSONReporter struct {
	// Compact outputs single-line JSON when true (no indentation).
	Compact bool
}

// Format returns "json".
func (r *JSONReporter) Format() string {
	return "json"
}

// Generate writes JSON run results to w.
func (r *JSONReporter) Generate(ctx context.Context, result *engine.RunResult, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	if !r.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(buildOutput(result))
}

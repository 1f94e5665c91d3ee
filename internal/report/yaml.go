package report

import (
	"context"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/0x6d61/rawget/internal/engine"
)

// YAMLReporter outputs the same document as JSONReporter, encoded as YAML.
type YAMLReporter struct{}

// Format returns "yaml".
func (r *YAMLReporter) Format() string {
	return "yaml"
}

// Generate writes YAML run results to w.
func (r *YAMLReporter) Generate(ctx context.Context, result *engine.RunResult, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(buildOutput(result)); err != nil {
		return err
	}
	return enc.Close()
}

// Package report provides formatters for fetch run output.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/0x6d61/rawget/internal/engine"
)

// Reporter generates output in a specific format.
type Reporter interface {
	// Format returns the format name (e.g., "text", "json").
	Format() string

	// Generate writes the formatted run result to w.
	Generate(ctx context.Context, result *engine.RunResult, w io.Writer) error
}

// New creates a reporter by format name ("text", "json" or "yaml").
// The format name is case-insensitive.
func New(format string) (Reporter, error) {
	switch strings.ToLower(format) {
	case "text":
		return &TextReporter{}, nil
	case "json":
		return &JSONReporter{}, nil
	case "yaml", "yml":
		return &YAMLReporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %q", format)
	}
}

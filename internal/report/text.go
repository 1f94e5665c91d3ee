package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/0x6d61/rawget/internal/engine"
	"github.com/0x6d61/rawget/internal/transport"
)

const (
	doubleLine = "\u2550" // ═
	singleLine = "\u2500" // ─
	lineWidth  = 50
)

// TextReporter outputs plain terminal text.
type TextReporter struct {
	// Brief omits the header listing of each fetch.
	Brief bool
}

// Format returns "text".
func (r *TextReporter) Format() string {
	return "text"
}

// Generate writes formatted run results to w.
func (r *TextReporter) Generate(ctx context.Context, result *engine.RunResult, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := &strings.Builder{}

	doubleBar := strings.Repeat(doubleLine, lineWidth)
	singleBar := strings.Repeat(singleLine, lineWidth)

	fmt.Fprintln(b, doubleBar)
	fmt.Fprintln(b, "rawget - Fetch Results")
	fmt.Fprintln(b, doubleBar)

	host, port := result.Target.Host, result.Target.Port
	if host == "" {
		host = transport.DefaultHost
	}
	if port == 0 {
		port = transport.DefaultPort
	}
	fmt.Fprintf(b, "Target:   %s:%d\n", host, port)

	duration := result.EndTime.Sub(result.StartTime)
	fmt.Fprintf(b, "Duration: %.1fs\n", duration.Seconds())
	fmt.Fprintf(b, "Requests: %d\n", result.RequestCount)

	if len(result.Fetches) == 0 {
		fmt.Fprintln(b, singleBar)
		fmt.Fprintln(b, "No fetches performed.")
	}
	for i := range result.Fetches {
		fmt.Fprintln(b, singleBar)
		r.writeFetch(b, &result.Fetches[i])
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(b, singleBar)
		fmt.Fprintln(b, "Errors:")
		for _, e := range result.Errors {
			fmt.Fprintf(b, "  - %s\n", e.Error())
		}
	}

	fmt.Fprintln(b, doubleBar)
	fmt.Fprintf(b, "Summary: %d of %d fetch(es) succeeded\n", result.Succeeded(), len(result.Fetches))
	fmt.Fprintln(b, doubleBar)

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *TextReporter) writeFetch(b *strings.Builder, f *engine.FetchResult) {
	if !f.OK() {
		fmt.Fprintf(b, "[FAILED] GET %s\n", f.Request.Target())
		fmt.Fprintf(b, "  Kind:  %s\n", transport.KindOf(f.Err))
		fmt.Fprintf(b, "  Error: %v\n", f.Err)
		return
	}

	resp := f.Response
	fmt.Fprintf(b, "[%s] GET %s\n", resp.StatusCode, f.Request.Target())
	fmt.Fprintf(b, "  Body:     %d bytes\n", len(resp.Body))
	fmt.Fprintf(b, "  Duration: %dms\n", resp.Duration.Milliseconds())
	if title := PageTitle(resp); title != "" {
		fmt.Fprintf(b, "  Title:    %s\n", title)
	}
	if !r.Brief && len(resp.Headers) > 0 {
		fmt.Fprintln(b, "  Headers:")
		for _, k := range sortedKeys(resp.Headers) {
			// Values keep the whitespace that followed the colon.
			fmt.Fprintf(b, "    %s:%s\n", k, resp.Headers[k])
		}
	}
}

package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/0x6d61/rawget/internal/engine"
	"github.com/0x6d61/rawget/internal/transport"
)

const testHTML = `<!doctype html>
<html><head><title>
  Example   Domain
</title></head><body><h1>Example Domain</h1></body></html>`

// newTestRunResult creates a realistic RunResult with one success and one
// connection failure.
func newTestRunResult() *engine.RunResult {
	start := time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)
	end := start.Add(1200 * time.Millisecond)

	okReq := transport.NewRequest("www.example.com", "/", 80)
	badReq := transport.NewRequest("www.example.com", "/missing", 80)
	dialErr := &transport.Error{Kind: transport.KindConnection, Op: "dial", Err: errors.New("connection refused")}

	return &engine.RunResult{
		Target: engine.Target{Host: "www.example.com", Port: 80, Paths: []string{"/", "/missing"}},
		Fetches: []engine.FetchResult{
			{
				Request: okReq,
				Response: &transport.Response{
					StatusCode: "200",
					Headers: map[string]string{
						"content-type":   " text/html; charset=UTF-8",
						"content-length": " 1256",
					},
					Body:     []byte(testHTML),
					Duration: 42 * time.Millisecond,
				},
				StartedAt: start,
			},
			{
				Request:   badReq,
				Err:       dialErr,
				StartedAt: start.Add(time.Second),
			},
		},
		StartTime:    start,
		EndTime:      end,
		RequestCount: 2,
		Errors:       []error{fmt.Errorf("%s: %w", badReq.Target(), dialErr)},
	}
}

// newEmptyRunResult creates a RunResult with no fetches.
func newEmptyRunResult() *engine.RunResult {
	start := time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)
	return &engine.RunResult{
		Target:    engine.Target{Host: "localhost", Port: 8080},
		StartTime: start,
		EndTime:   start,
	}
}

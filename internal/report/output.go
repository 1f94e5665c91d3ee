package report

import (
	"sort"
	"time"

	"github.com/0x6d61/rawget/internal/engine"
	"github.com/0x6d61/rawget/internal/transport"
)

const schemaVersion = "1.0"

// output is the structured document shared by the JSON and YAML reporters.
type output struct {
	SchemaVersion string        `json:"schema_version" yaml:"schema_version"`
	Tool          string        `json:"tool" yaml:"tool"`
	Target        outputTarget  `json:"target" yaml:"target"`
	Run           outputRun     `json:"run" yaml:"run"`
	Fetches       []outputFetch `json:"fetches" yaml:"fetches"`
	Summary       outputSummary `json:"summary" yaml:"summary"`
	Errors        []string      `json:"errors,omitempty" yaml:"errors,omitempty"`
}

type outputTarget struct {
	Host  string   `json:"host" yaml:"host"`
	Port  int      `json:"port" yaml:"port"`
	Paths []string `json:"paths" yaml:"paths"`
}

type outputRun struct {
	StartTime       time.Time `json:"start_time" yaml:"start_time"`
	EndTime         time.Time `json:"end_time" yaml:"end_time"`
	DurationSeconds float64   `json:"duration_seconds" yaml:"duration_seconds"`
	TotalRequests   int64     `json:"total_requests" yaml:"total_requests"`
}

type outputFetch struct {
	Target     string            `json:"target" yaml:"target"`
	Path       string            `json:"path" yaml:"path"`
	StatusCode string            `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	BodySize   int               `json:"body_size" yaml:"body_size"`
	DurationMS int64             `json:"duration_ms" yaml:"duration_ms"`
	Title      string            `json:"title,omitempty" yaml:"title,omitempty"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind  string            `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
}

type outputSummary struct {
	Total     int `json:"total" yaml:"total"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
}

func buildOutput(result *engine.RunResult) output {
	requests := result.Target.Requests()
	paths := make([]string, 0, len(requests))
	for _, req := range requests {
		paths = append(paths, req.Path)
	}
	host, port := transport.DefaultHost, transport.DefaultPort
	if len(requests) > 0 {
		host, port = requests[0].Host, requests[0].Port
	}

	succeeded := result.Succeeded()
	out := output{
		SchemaVersion: schemaVersion,
		Tool:          "rawget",
		Target:        outputTarget{Host: host, Port: port, Paths: paths},
		Run: outputRun{
			StartTime:       result.StartTime,
			EndTime:         result.EndTime,
			DurationSeconds: result.EndTime.Sub(result.StartTime).Seconds(),
			TotalRequests:   result.RequestCount,
		},
		Fetches: make([]outputFetch, 0, len(result.Fetches)),
		Summary: outputSummary{
			Total:     len(result.Fetches),
			Succeeded: succeeded,
			Failed:    len(result.Fetches) - succeeded,
		},
	}

	for i := range result.Fetches {
		out.Fetches = append(out.Fetches, buildFetch(&result.Fetches[i]))
	}

	if len(result.Errors) > 0 {
		out.Errors = make([]string, len(result.Errors))
		for i, e := range result.Errors {
			out.Errors[i] = e.Error()
		}
	}
	return out
}

func buildFetch(f *engine.FetchResult) outputFetch {
	of := outputFetch{
		Target: f.Request.Target(),
		Path:   f.Request.Path,
	}
	if f.Err != nil {
		of.Error = f.Err.Error()
		of.ErrorKind = transport.KindOf(f.Err).String()
		return of
	}
	if f.Response != nil {
		of.StatusCode = f.Response.StatusCode
		of.Headers = f.Response.Headers
		of.BodySize = len(f.Response.Body)
		of.DurationMS = f.Response.Duration.Milliseconds()
		of.Title = PageTitle(f.Response)
	}
	return of
}

// sortedKeys returns the header names of h in lexical order.
func sortedKeys(h map[string]string) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

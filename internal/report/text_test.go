package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestTextReporter_Format(t *testing.T) {
	r := &TextReporter{}
	if got := r.Format(); got != "text" {
		t.Errorf("Format() = %q, want %q", got, "text")
	}
}

func TestTextReporter_Generate(t *testing.T) {
	r := &TextReporter{}

	var buf bytes.Buffer
	if err := r.Generate(context.Background(), newTestRunResult(), &buf); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	out := buf.String()

	wants := []string{
		"rawget - Fetch Results",
		"Target:   www.example.com:80",
		"Duration: 1.2s",
		"Requests: 2",
		"[200] GET www.example.com:80/",
		"Duration: 42ms",
		"Title:    Example Domain",
		"[FAILED] GET www.example.com:80/missing",
		"Kind:  connection",
		"Error: dial: connection error: connection refused",
		"Errors:",
		"Summary: 1 of 2 fetch(es) succeeded",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\noutput:\n%s", want, out)
		}
	}
	if want := fmt.Sprintf("Body:     %d bytes", len(testHTML)); !strings.Contains(out, want) {
		t.Errorf("output missing %q", want)
	}
	if !strings.Contains(out, "Headers:") {
		t.Error("headers not printed")
	}
}

func TestTextReporter_Generate_HeadersSorted(t *testing.T) {
	r := &TextReporter{}

	var buf bytes.Buffer
	if err := r.Generate(context.Background(), newTestRunResult(), &buf); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "    content-length: 1256\n    content-type: text/html; charset=UTF-8\n") {
		t.Errorf("headers not listed in sorted order\noutput:\n%s", out)
	}
}

func TestTextReporter_Generate_Brief(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextReporter{Brief: true}).Generate(context.Background(), newTestRunResult(), &buf); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if strings.Contains(buf.String(), "Headers:") {
		t.Errorf("Brief output lists headers\noutput:\n%s", buf.String())
	}
}

func TestTextReporter_Generate_Empty(t *testing.T) {
	r := &TextReporter{}

	var buf bytes.Buffer
	if err := r.Generate(context.Background(), newEmptyRunResult(), &buf); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "No fetches performed.") {
		t.Errorf("output missing empty marker\noutput:\n%s", out)
	}
	if !strings.Contains(out, "Target:   localhost:8080") {
		t.Errorf("output missing target\noutput:\n%s", out)
	}
	if strings.Contains(out, "Errors:") {
		t.Error("Errors section printed without errors")
	}
}

func TestTextReporter_Generate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	if err := (&TextReporter{}).Generate(ctx, newTestRunResult(), &buf); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes despite cancelled context", buf.Len())
	}
}

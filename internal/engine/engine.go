// Package engine runs a sequence of fetches against one target and collects
// the outcome of each.
package engine

import (
	"time"

	"github.com/0x6d61/rawget/internal/transport"
)

// Target names a host and the paths to GET from it, in order.
type Target struct {
	Host  string
	Port  int
	Paths []string
}

// Requests expands the target into one transport.Request per path. An
// empty path list yields a single request for the default path.
func (t *Target) Requests() []*transport.Request {
	paths := t.Paths
	if len(paths) == 0 {
		paths = []string{""}
	}
	reqs := make([]*transport.Request, 0, len(paths))
	for _, p := range paths {
		reqs = append(reqs, transport.NewRequest(t.Host, p, t.Port))
	}
	return reqs
}

// FetchResult is the outcome of one fetch. Exactly one of Response and Err
// is set.
type FetchResult struct {
	Request   *transport.Request
	Response  *transport.Response
	Err       error
	StartedAt time.Time
}

// OK reports whether the fetch produced a response.
func (f *FetchResult) OK() bool {
	return f.Err == nil && f.Response != nil
}

// RunResult holds the complete result of a run.
type RunResult struct {
	Target       Target
	Fetches      []FetchResult
	StartTime    time.Time
	EndTime      time.Time
	RequestCount int64
	Errors       []error
}

// Succeeded counts fetches that produced a response.
func (r *RunResult) Succeeded() int {
	n := 0
	for i := range r.Fetches {
		if r.Fetches[i].OK() {
			n++
		}
	}
	return n
}

package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/0x6d61/rawget/internal/transport"
)

// RunConfig holds configuration for a run.
type RunConfig struct {
	// StopOnError ends the run at the first failed fetch.
	StopOnError bool
}

// DefaultRunConfig returns the defaults: keep going after a failed fetch.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{}
}

// Recorder receives every fetch outcome, successful or not.
type Recorder interface {
	Record(ctx context.Context, fetch *FetchResult) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, fetch *FetchResult) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, fetch *FetchResult) error {
	return f(ctx, fetch)
}

// Runner executes the fetches of a Target one after another.
type Runner struct {
	client   transport.Client
	config   *RunConfig
	log      *zap.Logger
	recorder Recorder

	onProgress func(msg string)
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder sets the recorder notified after each fetch.
func WithRecorder(r Recorder) Option {
	return func(run *Runner) {
		run.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(run *Runner) {
		if l != nil {
			run.log = l
		}
	}
}

// WithProgressCallback sets the progress callback.
func WithProgressCallback(fn func(string)) Option {
	return func(run *Runner) {
		run.onProgress = fn
	}
}

// NewRunner creates a runner around client.
func NewRunner(client transport.Client, config *RunConfig, opts ...Option) *Runner {
	if config == nil {
		config = DefaultRunConfig()
	}
	r := &Runner{
		client: client,
		config: config,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetProgressCallback replaces the progress callback.
func (r *Runner) SetProgressCallback(fn func(string)) {
	r.onProgress = fn
}

func (r *Runner) progress(format string, args ...any) {
	if r.onProgress != nil {
		r.onProgress(fmt.Sprintf(format, args...))
	}
}

// Run fetches every path of target sequentially. Failed fetches are kept
// in the result; the returned error is non-nil only when ctx ends the run.
func (r *Runner) Run(ctx context.Context, target *Target) (*RunResult, error) {
	if target == nil {
		return nil, fmt.Errorf("engine: nil target")
	}

	result := &RunResult{
		Target:    *target,
		StartTime: time.Now(),
	}
	defer func() { result.EndTime = time.Now() }()

	reqs := target.Requests()
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		r.progress("[%d/%d] GET %s", i+1, len(reqs), req.Target())

		fetch := FetchResult{Request: req, StartedAt: time.Now()}
		fetch.Response, fetch.Err = r.client.Fetch(ctx, req)
		result.RequestCount++
		result.Fetches = append(result.Fetches, fetch)

		if fetch.Err != nil {
			r.log.Warn("fetch failed",
				zap.String("target", req.Target()),
				zap.Stringer("kind", transport.KindOf(fetch.Err)),
				zap.Error(fetch.Err),
			)
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", req.Target(), fetch.Err))
		} else {
			r.log.Info("fetched",
				zap.String("target", req.Target()),
				zap.String("status", fetch.Response.StatusCode),
				zap.Int64("bytes", fetch.Response.BytesRead),
				zap.Duration("duration", fetch.Response.Duration),
			)
		}

		if r.recorder != nil {
			if err := r.recorder.Record(ctx, &fetch); err != nil {
				r.log.Warn("record fetch failed", zap.String("target", req.Target()), zap.Error(err))
				result.Errors = append(result.Errors, fmt.Errorf("record %s: %w", req.Target(), err))
			}
		}

		if fetch.Err != nil && r.config.StopOnError {
			r.progress("stopping after failed fetch of %s", req.Target())
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

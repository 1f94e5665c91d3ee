package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultChunkSize is the size of each socket read.
const DefaultChunkSize = 4096

// Client is the interface for the fetch transport. Every request goes
// through its own TCP connection.
type Client interface {
	// Fetch sends a GET request and returns the parsed response.
	Fetch(ctx context.Context, req *Request) (*Response, error)

	// SetRateLimit sets the maximum fetches per second.
	SetRateLimit(rps float64)

	// Stats returns transport statistics.
	Stats() *TransportStats
}

// Dialer opens the TCP connection for a fetch. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TransportStats holds aggregate statistics for successful fetches.
type TransportStats struct {
	TotalRequests int64
	TotalBytes    int64
	TotalDuration time.Duration
	AvgDuration   time.Duration
}

// ClientOptions holds configuration for creating a new DefaultClient.
type ClientOptions struct {
	// Timeout bounds dial plus the whole exchange. Zero means no timeout:
	// an unresponsive peer blocks the fetch until the context is done.
	Timeout time.Duration

	// ChunkSize is the size of each socket read (0 = DefaultChunkSize).
	ChunkSize int

	// ParseMode selects the header line splitting.
	ParseMode ParseMode

	// MaxRPS is the maximum fetches per second (0 = unlimited).
	MaxRPS float64

	// Dialer opens connections. nil means a zero net.Dialer.
	Dialer Dialer

	// Logger receives debug events. nil means no logging.
	Logger *zap.Logger
}

// DefaultClient is the default implementation of the Client interface,
// backed by raw TCP sockets.
type DefaultClient struct {
	opts    ClientOptions
	dialer  Dialer
	log     *zap.Logger
	limiter *rate.Limiter

	mu              sync.RWMutex
	totalRequests   int64
	totalBytes      int64
	totalDurationNs int64
}

// Compile-time check that DefaultClient implements Client.
var _ Client = (*DefaultClient)(nil)

// NewClient creates a new DefaultClient with the given options.
func NewClient(opts ClientOptions) (*DefaultClient, error) {
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("invalid timeout %s", opts.Timeout)
	}
	if opts.ChunkSize < 0 {
		return nil, fmt.Errorf("invalid chunk size %d", opts.ChunkSize)
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ParseMode != ModeCRLF && opts.ParseMode != ModeLegacyCR {
		return nil, fmt.Errorf("invalid parse mode %d", opts.ParseMode)
	}

	c := &DefaultClient{
		opts:   opts,
		dialer: opts.Dialer,
		log:    opts.Logger,
	}
	if c.dialer == nil {
		c.dialer = &net.Dialer{}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.SetRateLimit(opts.MaxRPS)

	return c, nil
}

// Fetch sends req and parses the response. Empty request fields take the
// package defaults.
func (c *DefaultClient) Fetch(ctx context.Context, req *Request) (*Response, error) {
	req = req.WithDefaults()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	raw, remote, err := c.exchange(ctx, req)
	duration := time.Since(start)
	if err != nil {
		c.log.Debug("fetch failed",
			zap.String("target", req.Target()),
			zap.Stringer("kind", KindOf(err)),
			zap.Error(err),
		)
		return nil, err
	}

	header, body := SplitResponse(raw)
	headers, code, err := ParseHeader(header, c.opts.ParseMode)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.totalRequests++
	c.totalBytes += int64(len(raw))
	c.totalDurationNs += duration.Nanoseconds()
	c.mu.Unlock()

	return &Response{
		StatusCode: code,
		Headers:    headers,
		Body:       body,
		Raw:        raw,
		BytesRead:  int64(len(raw)),
		Duration:   duration,
		RemoteAddr: remote,
	}, nil
}

// Exchange writes the request header for req and reads the response until
// the peer closes the connection. The raw bytes are returned unparsed.
func (c *DefaultClient) Exchange(ctx context.Context, req *Request) ([]byte, error) {
	raw, _, err := c.exchange(ctx, req.WithDefaults())
	return raw, err
}

func (c *DefaultClient) exchange(ctx context.Context, req *Request) ([]byte, string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	conn, err := c.dial(ctx, req.Addr())
	if err != nil {
		return nil, "", err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, "", newError(KindConnection, "set deadline", err)
		}
	}
	// Unblock pending I/O when the context is cancelled.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	c.log.Debug("connected", zap.String("addr", req.Addr()), zap.String("remote", remote))

	n, err := writeFull(conn, []byte(req.Header()))
	if err != nil {
		return nil, remote, newError(KindTransmit, "write", causeOf(ctx, err))
	}
	c.log.Debug("request sent", zap.Int("bytes", n))

	raw, err := readUntilClose(conn, c.opts.ChunkSize)
	if err != nil {
		return nil, remote, newError(KindReceive, "read", causeOf(ctx, err))
	}
	c.log.Debug("response received", zap.Int("bytes", len(raw)))

	return raw, remote, nil
}

// dial opens the connection and classifies resolution failures apart from
// connect failures.
func (c *DefaultClient) dial(ctx context.Context, addr string) (net.Conn, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err == nil {
		return conn, nil
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return nil, newError(KindResolution, "dial", err)
	}
	return nil, newError(KindConnection, "dial", causeOf(ctx, err))
}

// writeFull writes all of buf, retrying partial writes.
func writeFull(w io.Writer, buf []byte) (int, error) {
	written := 0
	for written < len(buf) {
		n, err := w.Write(buf[written:])
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}

// readUntilClose appends chunkSize reads to a buffer until the peer closes
// the connection. There is no Content-Length or chunked framing.
func readUntilClose(r io.Reader, chunkSize int) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, chunkSize)
	for {
		n, err := r.Read(chunk)
		buf.Write(chunk[:n])
		if errors.Is(err, io.EOF) {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return buf.Bytes(), nil
		}
	}
}

// causeOf prefers the context error when the context ended the I/O.
func causeOf(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

// SetRateLimit sets the maximum number of fetches per second.
// A value of 0 or less disables rate limiting.
func (c *DefaultClient) SetRateLimit(rps float64) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// Stats returns aggregate transport statistics.
func (c *DefaultClient) Stats() *TransportStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := &TransportStats{
		TotalRequests: c.totalRequests,
		TotalBytes:    c.totalBytes,
		TotalDuration: time.Duration(c.totalDurationNs),
	}
	if c.totalRequests > 0 {
		stats.AvgDuration = time.Duration(c.totalDurationNs / c.totalRequests)
	}
	return stats
}

// Fetch issues one GET request with a zero-option client and returns the
// header map, status code and body.
func Fetch(ctx context.Context, host, path string, port int) (map[string]string, string, []byte, error) {
	c, err := NewClient(ClientOptions{})
	if err != nil {
		return nil, "", nil, err
	}
	resp, err := c.Fetch(ctx, NewRequest(host, path, port))
	if err != nil {
		return nil, "", nil, err
	}
	return resp.Headers, resp.StatusCode, resp.Body, nil
}

package transport

import (
	"strings"
	"time"
)

// Response is a parsed HTTP response read from the socket.
type Response struct {
	// StatusCode is the second token of the status line, as received.
	StatusCode string

	// Headers maps lowercased field names to their untrimmed values.
	Headers map[string]string

	// Body is everything after the first blank line.
	Body []byte

	// Raw is the complete response as read from the socket.
	Raw []byte

	// BytesRead is len(Raw).
	BytesRead int64

	// Duration covers dial, write and the whole read loop.
	Duration time.Duration

	// RemoteAddr is the address of the peer that served the response.
	RemoteAddr string
}

// BodyString returns the response body as a string.
func (r *Response) BodyString() string {
	return string(r.Body)
}

// Header returns the trimmed value of the named field. The lookup is
// case-insensitive.
func (r *Response) Header(name string) string {
	return strings.TrimSpace(r.Headers[strings.ToLower(name)])
}

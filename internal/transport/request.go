// Package transport implements a minimal HTTP/1.1 GET transactor that talks
// to the peer over a plain TCP socket, without any HTTP client library.
package transport

import (
	"net"
	"strconv"
)

// Defaults applied to a Request whose fields are left empty.
const (
	DefaultHost = "www.example.com"
	DefaultPath = "/"
	DefaultPort = 80
)

// CRLF terminates every request line and header line.
const CRLF = "\r\n"

// Request describes a single GET request. The method is always GET.
type Request struct {
	// Host is the server name, used both for dialing and the Host header.
	Host string

	// Path is the request-target written verbatim into the request line.
	Path string

	// Port is the TCP port to dial.
	Port int
}

// NewRequest returns a Request with defaults applied to empty fields.
func NewRequest(host, path string, port int) *Request {
	return (&Request{Host: host, Path: path, Port: port}).WithDefaults()
}

// WithDefaults returns a copy of r with empty or zero fields set to
// DefaultHost, DefaultPath and DefaultPort.
func (r *Request) WithDefaults() *Request {
	out := &Request{}
	if r != nil {
		*out = *r
	}
	if out.Host == "" {
		out.Host = DefaultHost
	}
	if out.Path == "" {
		out.Path = DefaultPath
	}
	if out.Port == 0 {
		out.Port = DefaultPort
	}
	return out
}

// Addr returns the host:port pair to dial.
func (r *Request) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Target returns a stable "host:port/path" key identifying the request.
func (r *Request) Target() string {
	return r.Addr() + r.Path
}

// Header returns the request header text for r.
func (r *Request) Header() string {
	return BuildHeader(r.Host, r.Path)
}

// BuildHeader produces the literal request header:
//
//	GET <path> HTTP/1.1\r\nHost: <host>\r\nConnection: Close\r\n\r\n
//
// Neither argument is validated.
func BuildHeader(host, path string) string {
	return "GET " + path + " HTTP/1.1" + CRLF +
		"Host: " + host + CRLF +
		"Connection: Close" + CRLF + CRLF
}

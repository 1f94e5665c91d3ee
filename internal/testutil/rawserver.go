// Package testutil provides test utilities: a scripted raw TCP server that
// speaks just enough HTTP/1.1 to answer a GET, and an in-memory net.Conn
// for exercising the transport without a network.
package testutil

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// Handler writes a response on conn. request is the raw request header
// the client sent, up to and including the blank line.
type Handler func(conn net.Conn, request string)

// RawServer accepts TCP connections on the loopback interface and hands
// each one to a Handler. The server closes every connection after the
// handler returns, which is what ends a read-until-close response.
type RawServer struct {
	Host string
	Port int

	listener net.Listener
	handler  Handler
	wg       sync.WaitGroup

	mu       sync.Mutex
	requests []string
}

// NewRawServer starts a server and registers its shutdown with t.Cleanup.
func NewRawServer(t testing.TB, handler Handler) *RawServer {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().(*net.TCPAddr)

	s := &RawServer{
		Host:     addr.IP.String(),
		Port:     addr.Port,
		listener: l,
		handler:  handler,
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Addr returns host:port.
func (s *RawServer) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Requests returns the request headers received so far, in order.
func (s *RawServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

// Close stops accepting and waits for in-flight handlers.
func (s *RawServer) Close() {
	s.listener.Close()
	s.wg.Wait()
}

func (s *RawServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			req := readRequestHeader(conn)
			s.mu.Lock()
			s.requests = append(s.requests, req)
			s.mu.Unlock()
			if s.handler != nil {
				s.handler(conn, req)
			}
		}()
	}
}

// readRequestHeader reads lines until the blank line ending the header.
func readRequestHeader(conn net.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer conn.SetReadDeadline(time.Time{})

	r := bufio.NewReader(conn)
	var b strings.Builder
	for {
		line, err := r.ReadString('\n')
		b.WriteString(line)
		if err != nil || line == "\r\n" {
			return b.String()
		}
	}
}

// Chunks returns a Handler that writes each chunk separately, pausing
// between writes so the client sees them as distinct reads.
func Chunks(chunks ...string) Handler {
	return func(conn net.Conn, _ string) {
		for i, c := range chunks {
			if i > 0 {
				time.Sleep(20 * time.Millisecond)
			}
			if _, err := conn.Write([]byte(c)); err != nil {
				return
			}
		}
	}
}

// Respond returns a Handler that writes a complete response with the given
// status line, header lines and body.
func Respond(statusLine string, headers []string, body string) Handler {
	var b strings.Builder
	b.WriteString(statusLine + "\r\n")
	for _, h := range headers {
		b.WriteString(h + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return Chunks(b.String())
}

// Stall returns a Handler that writes nothing and holds the connection
// open for d.
func Stall(d time.Duration) Handler {
	return func(net.Conn, string) {
		time.Sleep(d)
	}
}

// Echo returns a Handler that answers 200 with the request path as body.
func Echo() Handler {
	return func(conn net.Conn, request string) {
		line, _, _ := strings.Cut(request, "\r\n")
		parts := strings.Split(line, " ")
		path := ""
		if len(parts) > 1 {
			path = parts[1]
		}
		_, _ = conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nConnection: close\r\n\r\n" + path))
	}
}

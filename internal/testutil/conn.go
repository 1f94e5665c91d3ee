package testutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// ScriptedConn is an in-memory net.Conn. Reads return Chunks one per call,
// then io.EOF (or ReadErr when set). Writes are captured, at most
// MaxWrite bytes per call when MaxWrite > 0, and fail with WriteErr when
// set.
type ScriptedConn struct {
	Chunks   []string
	ReadErr  error
	WriteErr error
	MaxWrite int

	mu      sync.Mutex
	written bytes.Buffer
	writes  int
	closed  bool
}

// Read returns the next scripted chunk.
func (c *ScriptedConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	if len(c.Chunks) == 0 {
		if c.ReadErr != nil {
			return 0, c.ReadErr
		}
		return 0, io.EOF
	}
	n := copy(p, c.Chunks[0])
	if n < len(c.Chunks[0]) {
		c.Chunks[0] = c.Chunks[0][n:]
	} else {
		c.Chunks = c.Chunks[1:]
	}
	return n, nil
}

// Write records p, honoring MaxWrite and WriteErr.
func (c *ScriptedConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	c.writes++
	if c.WriteErr != nil {
		return 0, c.WriteErr
	}
	if c.MaxWrite > 0 && len(p) > c.MaxWrite {
		p = p[:c.MaxWrite]
	}
	c.written.Write(p)
	return len(p), nil
}

// Close marks the connection closed.
func (c *ScriptedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Written returns everything written so far.
func (c *ScriptedConn) Written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.String()
}

// WriteCalls returns the number of Write calls.
func (c *ScriptedConn) WriteCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// Closed reports whether Close was called.
func (c *ScriptedConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *ScriptedConn) LocalAddr() net.Addr              { return scriptedAddr("local") }
func (c *ScriptedConn) RemoteAddr() net.Addr             { return scriptedAddr("remote") }
func (c *ScriptedConn) SetDeadline(time.Time) error      { return nil }
func (c *ScriptedConn) SetReadDeadline(time.Time) error  { return nil }
func (c *ScriptedConn) SetWriteDeadline(time.Time) error { return nil }

type scriptedAddr string

func (a scriptedAddr) Network() string { return "scripted" }
func (a scriptedAddr) String() string  { return string(a) }

// ScriptedDialer hands out Conns in order and records each dialed address.
// Err, when set, is returned instead of a connection.
type ScriptedDialer struct {
	Conns []*ScriptedConn
	Err   error

	mu    sync.Mutex
	addrs []string
}

// DialContext returns the next scripted connection.
func (d *ScriptedDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addrs = append(d.addrs, address)
	if d.Err != nil {
		return nil, d.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(d.Conns) == 0 {
		return nil, errors.New("scripted dialer: no connections left")
	}
	c := d.Conns[0]
	d.Conns = d.Conns[1:]
	return c, nil
}

// Addrs returns the dialed addresses.
func (d *ScriptedDialer) Addrs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.addrs))
	copy(out, d.addrs)
	return out
}

package transport

import (
	"errors"
	"fmt"
)

// Kind identifies the phase of a fetch that failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindResolution
	KindConnection
	KindTransmit
	KindReceive
	KindParse
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	names := [...]string{"unknown", "resolution", "connection", "transmit", "receive", "parse"}
	if int(k) >= 0 && int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// Sentinels for errors.Is comparisons against a *Error of the same kind.
var (
	ErrResolution = &Error{Kind: KindResolution}
	ErrConnection = &Error{Kind: KindConnection}
	ErrTransmit   = &Error{Kind: KindTransmit}
	ErrReceive    = &Error{Kind: KindReceive}
	ErrParse      = &Error{Kind: KindParse}
)

// Error is returned by every failing fetch. Op names the operation that
// failed and Err carries the underlying cause, if any.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func parseError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindParse, Op: "parse", Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}

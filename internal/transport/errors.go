package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// Kind classifies a transport failure so callers can pick a retry policy.
type Kind int

const (
	// KindNetwork covers dial failures, resets, and remote I/O errors.
	KindNetwork Kind = iota
	// KindAuth covers rejected credentials and handshake failures.
	KindAuth
	// KindTimeout covers dial or read deadlines expiring.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindTimeout:
		return "timeout"
	default:
		return "network"
	}
}

// Error is the single error type surfaced by this package. Every failure
// inside a transport call is wrapped into one, carrying its Kind.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("transport %s %s: %s: %v", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("transport %s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransport reports whether err originated in this package.
func IsTransport(err error) bool {
	var te *Error
	return errors.As(err, &te)
}

// KindOf returns the failure kind, defaulting to KindNetwork for errors
// that did not come from this package.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindNetwork
}

func wrap(op, path string, err error) error {
	return &Error{Kind: classify(err), Op: op, Path: path, Err: err}
}

func classify(err error) Kind {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}
	// The ssh package reports bad credentials only by message.
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "ssh: handshake failed") ||
		strings.Contains(msg, "permission denied") {
		return KindAuth
	}
	return KindNetwork
}

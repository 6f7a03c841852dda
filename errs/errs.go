// Package errs defines the tagged error kinds returned across the
// transaction, proof and threshold-signing boundaries.
//
// Every fallible operation returns an error that matches exactly one kind
// with errors.Is, so callers can tell malformed input apart from a
// cryptographic or protocol failure:
//
//	if errors.Is(err, errs.BalanceError) { ... }
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure.
type Kind int

const (
	// ParseError reports malformed serialized bytes or wrong length buffers.
	ParseError Kind = iota + 1
	// KeyError reports invalid key hex or wrong-length key material.
	KeyError
	// ProofError reports proof construction or verification failure.
	ProofError
	// BalanceError reports a violated value-balance invariant.
	BalanceError
	// RangeError reports an index or numeric range violation.
	RangeError
	// SignatureError reports a signature or threshold aggregation failure.
	SignatureError
)

func (k Kind) String() string {
	switch k {
	case ParseError:
		return "parse error"
	case KeyError:
		return "key error"
	case ProofError:
		return "proof error"
	case BalanceError:
		return "balance error"
	case RangeError:
		return "range error"
	case SignatureError:
		return "signature error"
	}
	return fmt.Sprintf("error kind %d", int(k))
}

// Error lets a Kind be used as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

// Error is a failure tagged with its Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a bare Kind target.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New returns a tagged error with a fresh message.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Newf is New with formatting.
func Newf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

// Wrap tags err with kind. An error that already carries a kind keeps it.
func Wrap(kind Kind, err error, op string) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return errors.Wrap(err, op)
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Retag replaces the kind carried by err. The message is kept but the
// previous kind no longer matches.
func Retag(kind Kind, err error, op string) error {
	if err == nil {
		return nil
	}
	if KindOf(err) == 0 {
		return &Error{Kind: kind, Op: op, Err: err}
	}
	return &Error{Kind: kind, Op: op, Err: errors.New(err.Error())}
}

// KindOf returns the kind carried by err, or 0.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return 0
}

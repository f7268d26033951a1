// Package errors defines the typed error taxonomy shared by every component
// of the node and miner. It intentionally mirrors the shape of the teacher's
// error package (Code + Message + WrappedErr, with Is/As/Unwrap support for
// the standard library's errors.Is/errors.As) but drops the gRPC/protobuf
// status mapping: this system has no gRPC transport, so there is nothing for
// that half of the teacher's package to serve.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure from §7 of the specification.
type Code int

const (
	// Unknown is the zero value and should never be constructed directly.
	Unknown Code = iota

	// Corrupt means persisted state failed integrity checks on load.
	Corrupt
	// InvalidSignature means a transaction signature did not verify.
	InvalidSignature
	// InvalidAmount means a transaction amount was not strictly positive.
	InvalidAmount
	// InsufficientFunds means sender balance minus pending mempool spend was
	// less than the requested amount.
	InsufficientFunds
	// IndexMismatch means a candidate block's index did not follow the tip.
	IndexMismatch
	// PrevHashMismatch means a candidate block's prev_hash did not match the
	// tip's hash.
	PrevHashMismatch
	// HashMismatch means a block's recomputed hash did not match its
	// recorded hash.
	HashMismatch
	// PoWFailed means a block's hash did not satisfy the required
	// difficulty.
	PoWFailed
	// StaleCandidate means the submitter observed a candidate whose
	// prev_hash no longer matched the local tip by the time it was ready to
	// submit.
	StaleCandidate
	// Transport means a connection, read, or write error occurred talking
	// to a peer or daemon socket.
	Transport
	// ConfigInvalid means a loaded configuration violated an invariant.
	ConfigInvalid
)

var codeNames = map[Code]string{
	Unknown:           "unknown",
	Corrupt:           "corrupt",
	InvalidSignature:  "invalid_signature",
	InvalidAmount:     "invalid_amount",
	InsufficientFunds: "insufficient_funds",
	IndexMismatch:     "index_mismatch",
	PrevHashMismatch:  "prev_hash_mismatch",
	HashMismatch:      "hash_mismatch",
	PoWFailed:         "pow_failed",
	StaleCandidate:    "stale_candidate",
	Transport:         "transport",
	ConfigInvalid:     "config_invalid",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

// Error is the concrete error type returned by every package in this
// module. Message carries the human-readable, RPC-echoable text; WrappedErr
// carries an optional underlying cause for errors.Unwrap/errors.Is chains.
type Error struct {
	Code       Code
	Message    string
	WrappedErr error
}

// New builds an *Error. If the last element of args is an error, it is
// captured as WrappedErr and excluded from the fmt.Sprintf formatting of
// message against the remaining args.
func New(code Code, message string, args ...interface{}) *Error {
	var wrapped error

	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			wrapped = err
			args = args[:len(args)-1]
		}
	}

	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}

	return &Error{Code: code, Message: message, WrappedErr: wrapped}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.WrappedErr == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.WrappedErr)
}

// Unwrap exposes WrappedErr to errors.Is/errors.As/errors.Unwrap.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.WrappedErr
}

// Is reports whether target is an *Error with the same Code, falling back
// to comparing the wrapped chain.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}

	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}

	return false
}

// Is is the package-level convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is the package-level convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// CodeOf extracts the Code from err if it is (or wraps) an *Error, returning
// Unknown and false otherwise.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return Unknown, false
}

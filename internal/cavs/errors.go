package cavs

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
// Callers should branch on Kind rather than matching error strings.
type Kind string

const (
	KindFormat  Kind = "Format"  // label or separator mismatch
	KindLength  Kind = "Length"  // Len field is not a non-negative integer
	KindHex     Kind = "Hex"     // message or digest is not valid hex
	KindOptions Kind = "Options" // invalid parse options
)

// Error is the parser's structured error type.
//
// Block is the position of the offending block after header blocks are dropped,
// or -1 when the error is not tied to a block. Line is 1-based within the block.
type Error struct {
	Kind    Kind
	Block   int
	Line    int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	switch {
	case e.Block >= 0 && e.Line > 0:
		return fmt.Sprintf("block %d line %d: %s", e.Block, e.Line, msg)
	case e.Block >= 0:
		return fmt.Sprintf("block %d: %s", e.Block, msg)
	default:
		return msg
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, line int, msg string) *Error {
	return &Error{Kind: kind, Block: -1, Line: line, Message: msg}
}

func wrapError(kind Kind, line int, msg string, cause error) *Error {
	return &Error{Kind: kind, Block: -1, Line: line, Message: msg, Cause: cause}
}

// atBlock returns a copy of err tagged with a block position.
func atBlock(err error, block int) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	tagged := *e
	tagged.Block = block
	return &tagged
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

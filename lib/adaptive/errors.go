package adaptive

import "fmt"

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("AdaptiveError (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is an *Error with the same code.
// This lets errors.Is match any error against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// IndexError creates a range error for index against a container of length size.
func IndexError(index, size int) *Error {
	return NewError(RetCIndexOutOfRange, fmt.Sprintf("index %d out of range for length %d", index, size))
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess                RetCode = iota // 0: Operation executed successfully.
	RetCIndexOutOfRange                       // 1: Positional access outside the current bounds.
	RetCNoSuchElement                         // 2: Iterator exhausted or container empty.
	RetCUnsupportedOperation                  // 3: Operation is not supported in the current mode.
	RetCIllegalArgument                       // 4: Argument violates a constraint of the container.
	RetCConcurrentModification                // 5: Structure changed under a fail-fast iterator.
	RetCIllegalState                          // 6: Operation called at the wrong time (e.g. Remove before Next).
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCIndexOutOfRange:
		return "IndexOutOfRange"
	case RetCNoSuchElement:
		return "NoSuchElement"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCIllegalArgument:
		return "IllegalArgument"
	case RetCConcurrentModification:
		return "ConcurrentModification"
	case RetCIllegalState:
		return "IllegalState"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrIndexOutOfRange        = NewError(RetCIndexOutOfRange, "index out of range")
	ErrNoSuchElement          = NewError(RetCNoSuchElement, "no such element")
	ErrUnsupported            = NewError(RetCUnsupportedOperation, "unsupported operation")
	ErrIllegalArgument        = NewError(RetCIllegalArgument, "illegal argument")
	ErrConcurrentModification = NewError(RetCConcurrentModification, "concurrent modification")
	ErrIllegalState           = NewError(RetCIllegalState, "illegal state")
)

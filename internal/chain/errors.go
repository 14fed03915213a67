package chain

import "fmt"

// ErrorKind discriminates the enumerated failure kinds an operation in
// this package can return. It is a tagged union in spirit: callers switch
// on Kind rather than comparing error values directly.
type ErrorKind string

const (
	ErrInvalidBlockHeight   ErrorKind = "InvalidBlockHeight"
	ErrInvalidInputOutput   ErrorKind = "InvalidInputOutputSum"
	ErrInvalidBlockID       ErrorKind = "InvalidBlockId"
	ErrInvalidRollbackLevel ErrorKind = "InvalidRollbackHeight"
	ErrNoBlocksToRollback   ErrorKind = "NoBlocksToRollback"
	ErrMutexTimeout         ErrorKind = "MutexTimeout"
	ErrUTXONotFound         ErrorKind = "UTXONotFound"
	ErrDatabase             ErrorKind = "DatabaseError"
)

// Error is the typed result every core operation in this package returns
// on failure. It carries enough structured context (Observed/Expected,
// Target/Current) for the HTTP layer to render a response message
// without re-deriving them.
type Error struct {
	Kind     ErrorKind
	Message  string
	Observed uint64
	Expected uint64
	Target   uint64
	Current  uint64
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func errInvalidHeight(observed, expected uint64) *Error {
	return &Error{
		Kind:     ErrInvalidBlockHeight,
		Message:  fmt.Sprintf("expected height %d, got %d", expected, observed),
		Observed: observed,
		Expected: expected,
	}
}

func errInputOutputSum(msg string) *Error {
	return newError(ErrInvalidInputOutput, msg)
}

func errInvalidBlockID(expected, observed string) *Error {
	return newError(ErrInvalidBlockID, fmt.Sprintf("expected id %s, got %s", expected, observed))
}

func errInvalidRollbackHeight(msg string) *Error {
	return newError(ErrInvalidRollbackLevel, msg)
}

func errNoBlocksToRollback(target, current uint64) *Error {
	var msg string
	if current == 0 {
		msg = fmt.Sprintf("Cannot rollback to height %d: no blocks exist in the chain.", target)
	} else {
		msg = fmt.Sprintf("Cannot rollback to height %d: no blocks exist above this height. Current height is %d.", target, current)
	}
	return &Error{Kind: ErrNoBlocksToRollback, Message: msg, Target: target, Current: current}
}

func errDatabase(cause error) *Error {
	return &Error{Kind: ErrDatabase, Message: cause.Error(), Cause: cause}
}

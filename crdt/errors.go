package crdt

import "fmt"

// Error reports a CRDT invariant violation, e.g. an out-of-range RGA
// index or a malformed Position string. It is a
// value, never a panic: expected failure conditions are always
// returned, per the library's "no exceptions for control flow" rule.
type Error struct {
	Op  string
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("crdt: %s: %s", e.Op, e.Msg)
}

func errorf(op, format string, args ...any) *Error {
	return &Error{Op: op, Msg: fmt.Sprintf(format, args...)}
}

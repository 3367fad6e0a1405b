package bridge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/crossbind/seqbridge"
)

// Op indicates which bridge operation the error occurred in.
type Op string

const (
	OpInit       Op = "init"
	OpIncRef     Op = "inc_ref"
	OpDecRef     Op = "dec_ref"
	OpRegister   Op = "register"
	OpSetCounter Op = "set_counter"
)

// Kind categorizes the error.
type Kind string

const (
	// KindNotReady: an operation was invoked before Init.
	KindNotReady Kind = "not_ready"
	// KindInvalidRef: refnum 0, which never identifies an object.
	KindInvalidRef Kind = "invalid_ref"
	// KindUnknownRef: decrement of a refnum the bridge has never tracked.
	KindUnknownRef Kind = "unknown_ref"
	// KindDoubleDecrement: decrement of a refnum whose count already reached
	// zero. Indicates a double-free in the calling layer.
	KindDoubleDecrement Kind = "double_decrement"
	// KindLateInstall: counter installation after handle traffic began.
	KindLateInstall Kind = "late_install"
)

// Error is the structured error type used throughout the bridge.
type Error struct {
	Cause  error
	Op     Op
	Kind   Kind
	Detail string
	Ref    seqbridge.Refnum
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Op))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Ref != 0 {
		fmt.Fprintf(&b, " refnum %d", e.Ref)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a bridge *Error of the same kind. A target
// with an Op set must match the operation too; the package sentinels leave
// Op empty so they match their kind from any operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" && t.Op != e.Op {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel errors for use with errors.Is.
var (
	ErrNotReady        = &Error{Kind: KindNotReady}
	ErrInvalidRef      = &Error{Kind: KindInvalidRef}
	ErrUnknownRef      = &Error{Kind: KindUnknownRef}
	ErrDoubleDecrement = &Error{Kind: KindDoubleDecrement}
	ErrLateInstall     = &Error{Kind: KindLateInstall}
)

// IsKind reports whether err is a bridge *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var be *Error
	if !errors.As(err, &be) {
		return false
	}
	return be.Kind == kind
}

// Convenience constructors for common error patterns

func notReady(op Op) *Error {
	return &Error{
		Op:     op,
		Kind:   KindNotReady,
		Detail: "bridge not initialized, call Init first",
	}
}

func invalidRef(op Op) *Error {
	return &Error{
		Op:     op,
		Kind:   KindInvalidRef,
		Detail: "refnum 0 is reserved",
	}
}

func unknownRef(op Op, ref seqbridge.Refnum) *Error {
	return &Error{
		Op:   op,
		Kind: KindUnknownRef,
		Ref:  ref,
	}
}

func doubleDecrement(ref seqbridge.Refnum) *Error {
	return &Error{
		Op:     OpDecRef,
		Kind:   KindDoubleDecrement,
		Ref:    ref,
		Detail: "count already reached zero",
	}
}

func lateInstall() *Error {
	return &Error{
		Op:     OpSetCounter,
		Kind:   KindLateInstall,
		Detail: "handle traffic already began on the table-backed path",
	}
}

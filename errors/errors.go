package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates which binding operation produced the error
type Phase string

const (
	PhaseAlloc     Phase = "alloc"     // context allocation
	PhaseQuery     Phase = "query"     // is_lower / is_upper
	PhaseTransform Phase = "transform" // to_lower / to_upper
	PhaseView      Phase = "view"      // sub-object creation
	PhaseRender    Phase = "render"    // reading native text
	PhaseCallback  Phase = "callback"  // native-triggered notification
	PhaseRelease   Phase = "release"   // context release
	PhaseNative    Phase = "native"    // backend faults and setup
)

// Kind categorizes the error
type Kind string

const (
	KindAllocation        Kind = "allocation"
	KindInvalidOffset     Kind = "invalid_offset"
	KindInvalidUTF8       Kind = "invalid_utf8"
	KindUnmappedStatus    Kind = "unmapped_status"
	KindInvalidData       Kind = "invalid_data"
	KindReleased          Kind = "released"
	KindStaleView         Kind = "stale_view"
	KindOutstandingBorrow Kind = "outstanding_borrow"
	KindExpired           Kind = "expired"
	KindPrecondition      Kind = "precondition"
	KindAlreadyOwned      Kind = "already_owned"
	KindTrap              Kind = "trap"
	KindInstantiation     Kind = "instantiation"
)

// Error is the structured error type used throughout the binding
type Error struct {
	Value  any
	Limit  any // bound the offending Value violated, if any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
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

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return errors.Is(err, &Error{Kind: kind})
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the native entry point involved
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Limit sets the bound the offending value violated
func (b *Builder) Limit(v any) *Builder {
	b.err.Limit = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the binding's failure modes

// AllocationFailed reports a null return from the native allocator.
func AllocationFailed(op string) *Error {
	return &Error{
		Phase:  PhaseAlloc,
		Kind:   KindAllocation,
		Op:     op,
		Detail: "native allocator returned null",
	}
}

// InvalidOffset reports a sub-object offset outside [0, limit].
// Value holds the offset and Limit the inclusive maximum.
func InvalidOffset(offset, limit int) *Error {
	return &Error{
		Phase:  PhaseView,
		Kind:   KindInvalidOffset,
		Op:     "create_subobject",
		Value:  offset,
		Limit:  limit,
		Detail: fmt.Sprintf("offset=%d outside [0, %d]", offset, limit),
	}
}

// InvalidUTF8 reports native bytes that are not well-formed text
func InvalidUTF8(phase Phase, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Value:  append([]byte(nil), preview...),
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// UnmappedStatus reports a native status code the binding does not know.
func UnmappedStatus(phase Phase, op string, status int32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnmappedStatus,
		Op:     op,
		Value:  status,
		Detail: fmt.Sprintf("native returned unmapped status %d", status),
	}
}

// InvalidData reports a structurally impossible native answer
func InvalidData(phase Phase, op, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Op:     op,
		Detail: detail,
	}
}

// Released reports use of a context after it was released
func Released(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReleased,
		Detail: "context already released",
	}
}

// StaleView reports a view whose context was mutated after the view was taken.
func StaleView(offset int, taken, current uint64) *Error {
	return &Error{
		Phase:  PhaseRender,
		Kind:   KindStaleView,
		Value:  offset,
		Detail: fmt.Sprintf("view at offset %d taken at epoch %d, context now at epoch %d", offset, taken, current),
	}
}

// OutstandingBorrow reports a mutation or release attempted while views are held
func OutstandingBorrow(phase Phase, borrows uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutstandingBorrow,
		Value:  borrows,
		Detail: fmt.Sprintf("%d view(s) still borrowed", borrows),
	}
}

// Expired reports use of a callback payload after its invocation returned
func Expired() *Error {
	return &Error{
		Phase:  PhaseCallback,
		Kind:   KindExpired,
		Detail: "payload used after callback returned",
	}
}

// Precondition reports a checked transform the native contract forbids
func Precondition(op, detail string) *Error {
	return &Error{
		Phase:  PhaseTransform,
		Kind:   KindPrecondition,
		Op:     op,
		Detail: detail,
	}
}

// AlreadyOwned reports a second claim on a live native block
func AlreadyOwned(addr uint64) *Error {
	return &Error{
		Phase:  PhaseAlloc,
		Kind:   KindAlreadyOwned,
		Value:  addr,
		Detail: fmt.Sprintf("native block %#x is already owned", addr),
	}
}

// Trap wraps a fault raised inside the native backend
func Trap(op string, cause error) *Error {
	return &Error{
		Phase:  PhaseNative,
		Kind:   KindTrap,
		Op:     op,
		Detail: "native call faulted",
		Cause:  cause,
	}
}

// Instantiation creates a backend instantiation error
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseNative,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

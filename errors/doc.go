// Package errors provides structured error types for the ctxbind binding.
//
// Errors are categorized by Phase (which binding operation failed) and Kind
// (error category). Every failure at the native boundary is surfaced as an
// *Error so callers can branch on it programmatically:
//
//	v, err := ctx.View(30)
//	if errors.IsKind(err, errors.KindInvalidOffset) {
//	    // err.(*errors.Error).Value holds the rejected offset
//	}
//
// Use the Builder for ad-hoc construction:
//
//	err := errors.New(errors.PhaseView, errors.KindUnmappedStatus).
//		Op("create_subobject").
//		Value(int32(-7)).
//		Detail("native returned %d", -7).
//		Build()
//
// All errors implement the standard error interface and support errors.Is/As.
package errors

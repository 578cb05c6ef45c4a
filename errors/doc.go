// Package errors provides structured error types for the Emscripten shim.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Shim code distinguishes three classes of failure:
//
//   - Fatal: violated preconditions such as a misaligned guest struct or a
//     guest string that is not valid text. These are raised with Fatal and
//     terminate the current guest call.
//   - Soft: optional results reported as (value, ok) by the caller's API.
//   - Host passthrough: OS errors forwarded in the guest's errno convention.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLayout, errors.KindMisaligned).
//		Path("passwd").
//		Value(offset).
//		Detail("struct not 4-byte aligned").
//		Build()
//
// All errors implement the standard error interface and support errors.Is/As.
package errors

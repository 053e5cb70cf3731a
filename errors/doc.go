// Package errors provides structured error types for the bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// Every Kind belongs to one Class, which is what build callers usually branch on:
//
//	Transport      encode/decode or callback plumbing failed (a bridge bug)
//	System         the engine entry point could not be invoked
//	Configuration  the configuration was rejected before compiling
//
// Compilation problems are not errors; they are diagnostics inside a result.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindMalformedInput).
//		Path("options", "outdir").
//		Detail("string contains NUL byte").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseDecode, path, ptr, 16)
//	if errors.IsTransport(err) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors

// Package syncadapter runs host callbacks for a caller that must block until
// the answer is ready.
//
// An engine calls into the host on its own call stack and cannot return until
// it has a value. Call starts the host function on a fresh goroutine and
// blocks the calling goroutine on a one-shot channel owned by that single
// invocation. The send on the channel happens after the function's last
// write, so the caller observes a complete result exactly once.
//
// Failures never cross back into the engine as panics: a panicking callback
// is recovered into a *PanicError, and Resolve folds every failure into
// "no result".
//
// By default a call waits for as long as the callback takes. WithTimeout bounds
// the wait and a Limiter bounds how many calls may be blocked at once.
package syncadapter

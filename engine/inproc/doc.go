// Package inproc is a reference engine that runs inside the host process.
//
// It speaks the same pointer ABI as a wasm engine: arguments and results
// live in an abi.Arena, results are released through the free entry points
// and host callbacks go through an engine.Dispatcher. Code generation is
// done by the esbuild Go library.
//
// The compiler entry points implement a transpiling subset of tsc: project
// configuration (extends, files, include, exclude), module resolution,
// syntax diagnostics and emit. They do not type check.
package inproc

// Package tsc drives the engine's TypeScript compiler.
//
// Three ways to build:
//
//	BuildFileSystem    - the engine reads the project from disk
//	BuildWithResolver  - every path the compiler touches is answered by a
//	                     tsgobridge.FileResolver running in the host
//	BuildInMemory      - sources held in memory, tsconfig.json synthesised
//	                     from a tsconfig.Config
//
// Compilation errors are not Go errors: they come back as Diagnostics with
// Result.Success false. Go errors are reserved for the bridge itself
// (errors.IsTransport), an engine that could not run (errors.IsSystem) and
// a configuration the engine refused (errors.IsConfiguration).
package tsc

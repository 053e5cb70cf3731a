// Package tsgobridge lets Go code drive a TypeScript compiler and an esbuild-style
// bundler that run behind a flat, C-shaped ABI, and lets that engine call back
// into Go while it works.
//
// The engine owns a linear memory. Options are encoded into it as records of
// 32-bit slots, entry points return result records that the host decodes and
// then frees, and the engine reaches host code through a single numbered
// host function that carries an opaque callback token.
//
// # Architecture Overview
//
//	tsgobridge/          Root package with Memory, Allocator and FileResolver
//	├── abi/             Record codec, allocation lists, engine buffers, Go-owned arena
//	├── registry/        Callback token registry scoped per build invocation
//	├── syncadapter/     Blocking rendezvous for host callbacks
//	├── engine/          Engine contract, callback dispatcher, wazero host
//	│   └── inproc/      In-process reference engine backed by esbuild
//	├── tsconfig/        Compiler options model and presets
//	├── tsc/             Compiler builds: filesystem, dynamic resolver, in-memory
//	├── esbuild/         Bundler builds, transforms and the plugin hook API
//	├── errors/          Structured errors and the bridge error classes
//	└── cmd/tsgobridge/  Command-line build, bundle and transform
//
// # Quick Start
//
// Compile an in-memory project with the reference engine:
//
//	eng := inproc.New()
//	defer eng.Close(ctx)
//
//	res, err := tsc.BuildInMemory(ctx, eng, tsconfig.Default(), []tsc.Source{
//	    {Name: "index.ts", Content: "export const x: number = 1"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.WrittenFiles["/project/dist/index.js"])
//
// Run an engine compiled to WebAssembly instead:
//
//	eng, err := engine.LoadWazeroEngine(ctx, wasmBytes, nil)
//
// # Callbacks
//
// Plugin hooks and file resolvers are plain Go functions. The engine calls them
// synchronously; each call is run on its own goroutine and the engine's call
// stack blocks until the result is ready. A hook that fails yields "no result"
// for that call and the build continues.
package tsgobridge

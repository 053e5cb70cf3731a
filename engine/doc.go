// Package engine defines the C-shaped contract between the host and a
// compiler/bundler engine, and hosts engine binaries under wazero.
//
// # Contract
//
// An engine owns a flat linear memory. The host reaches it through a fixed
// set of entry points (see the Export constants) and the engine reaches the
// host through one import:
//
//	tsgo_host.invoke(fn, token, arg) -> ptr
//
// fn is a FuncID, token is a registry.Token minted by the host for the
// duration of one entry point call, and arg points to the callback's argument
// record. The returned pointer is a result record owned by the engine from
// then on, or 0 for "no result".
//
// # Dispatch
//
// Dispatcher resolves the token in a registry.Registry and hands the call to
// the registered Callback. Unknown tokens and failing callbacks answer 0;
// the engine never sees a host failure as anything but "no result".
//
// # Hosts
//
//	WazeroEngine  - a wasm32 engine binary under wazero
//	inproc.Engine - the in-process reference engine (package engine/inproc)
//
// All engine hosts serialise host operations with Acquire.
package engine

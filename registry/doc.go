// Package registry maps opaque callback tokens to host-side callback state.
//
// An engine can pass exactly one opaque value back with each callback, so the
// host registers the state a callback needs, hands the engine the returned
// Token, and looks the state up again when the engine calls back:
//
//	scope := registry.Default().NewScope()
//	defer scope.Close()
//
//	token, err := scope.Register(state)
//	// ... pass token to the engine, engine calls back with it ...
//	state, ok := registry.Default().Lookup(token)
//
// Tokens are minted from a counter starting at 1 and are never reissued, so a
// late callback carrying an unregistered token finds nothing instead of
// someone else's state. Token 0 is never valid.
//
// All registry operations take one mutex and do nothing but map work while
// holding it. Observers and Dropper values run after the lock is released, so
// they may call back into the registry.
package registry

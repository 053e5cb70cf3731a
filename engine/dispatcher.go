package engine

import (
	"context"

	"go.uber.org/zap"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/registry"
	"github.com/wippyai/tsgo-bridge/syncadapter"
)

// Call is one engine-to-host callback invocation.
type Call struct {
	// Heap is the memory Arg points into and results are written to.
	Heap tsgobridge.Heap
	// Adapter carries the engine's liveness options for syncadapter.
	Adapter []syncadapter.Option
	Token   registry.Token
	Func    FuncID
	// Arg points to the callback's argument record, 0 if it takes none.
	Arg uint32
}

// Callback is registry state that can serve engine callbacks.
//
// Invoke returns a pointer to a result record allocated in call.Heap, or 0
// for "no result". Ownership of the result passes to the engine.
type Callback interface {
	Invoke(ctx context.Context, call *Call) (uint32, error)
}

// Dispatcher routes engine callbacks to registered Callbacks.
type Dispatcher struct {
	registry *registry.Registry
	adapter  []syncadapter.Option
}

// NewDispatcher creates a dispatcher for cfg. A nil cfg uses registry.Default()
// with no timeout and no in-flight bound.
func NewDispatcher(cfg *Config) *Dispatcher {
	return &Dispatcher{
		registry: cfg.registry(),
		adapter:  cfg.adapterOptions(),
	}
}

func (d *Dispatcher) Registry() *registry.Registry {
	return d.registry
}

// Invoke serves one callback. Stale tokens, unknown states and callback
// errors all yield 0; none of them reach the engine as a failure.
func (d *Dispatcher) Invoke(ctx context.Context, heap tsgobridge.Heap, fn FuncID, token registry.Token, arg uint32) uint32 {
	if fn == FuncNone || token == 0 {
		return 0
	}

	state, ok := d.registry.Lookup(token)
	if !ok {
		Logger().Warn("callback for unknown token",
			zap.Uint32("token", uint32(token)),
			zap.Stringer("func", fn))
		return 0
	}
	cb, ok := state.(Callback)
	if !ok {
		Logger().Warn("token does not name a callback",
			zap.Uint32("token", uint32(token)),
			zap.Stringer("func", fn))
		return 0
	}

	ptr, err := cb.Invoke(ctx, &Call{
		Heap:    heap,
		Adapter: d.adapter,
		Token:   token,
		Func:    fn,
		Arg:     arg,
	})
	if err != nil {
		Logger().Warn("callback failed",
			zap.Uint32("token", uint32(token)),
			zap.Stringer("func", fn),
			zap.Error(err))
		return 0
	}
	return ptr
}

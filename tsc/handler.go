package tsc

import (
	"context"
	"sync"

	"go.uber.org/zap"

	tsgobridge "github.com/wippyai/tsgo-bridge"
	"github.com/wippyai/tsgo-bridge/abi"
	"github.com/wippyai/tsgo-bridge/engine"
	"github.com/wippyai/tsgo-bridge/syncadapter"
)

// resolverHandler serves resolve callbacks for one build.
// Encode and decode failures are kept and reported after the entry point returns.
type resolverHandler struct {
	resolver tsgobridge.FileResolver
	err      error
	mu       sync.Mutex
}

func (h *resolverHandler) fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err == nil {
		h.err = err
	}
}

func (h *resolverHandler) transportErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *resolverHandler) Invoke(ctx context.Context, call *engine.Call) (uint32, error) {
	if call.Func != engine.FuncResolve {
		return 0, nil
	}

	rd := abi.NewReader(call.Heap)
	p := DecodeResolveArgs(rd, call.Arg)
	if err := rd.Err(); err != nil {
		h.fail(err)
		return 0, err
	}

	opts := make([]syncadapter.Option, 0, len(call.Adapter)+1)
	opts = append(opts, call.Adapter...)
	opts = append(opts, syncadapter.WithErrorHandler(func(err error) {
		engine.Logger().Warn("file resolver failed",
			zap.String("path", p),
			zap.Error(err))
	}))
	entry, ok := syncadapter.Resolve(ctx, func(ctx context.Context) (tsgobridge.Entry, error) {
		return h.resolver.Resolve(ctx, p)
	}, opts...)
	if !ok || entry.Kind == tsgobridge.NotFound {
		return 0, nil
	}

	list := abi.NewAllocationList()
	defer list.Release()
	w := abi.NewWriter(call.Heap, list)
	ptr := EncodeEntry(w, entry)
	if err := w.Err(); err != nil {
		list.Free(call.Heap)
		h.fail(err)
		return 0, err
	}
	list.Detach()
	return ptr, nil
}
